package paapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// signer implements the AWS Signature Version 4 signing process the
// vendor's Product Advertising API requires on every request. Only the
// subset needed for a fixed host/region/service (single signed POST with a
// JSON body) is implemented; there is no support for query-string signing
// or multi-part payloads, neither of which PA-API v5 uses.
type signer struct {
	accessKey string
	secretKey string
	region    string
	service   string
	host      string
}

func newSigner(accessKey, secretKey, region, host string) *signer {
	return &signer{
		accessKey: accessKey,
		secretKey: secretKey,
		region:    region,
		service:   "ProductAdvertisingAPI",
		host:      host,
	}
}

// authHeader computes the Authorization header value for a signed POST of
// payload to target, the X-Amz-Target value (e.g.
// "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.GetItems", from which the
// "/paapi5/GetItems" canonical path is derived), at time t.
func (s *signer) authHeader(target, payload string, t time.Time) (authorization string, amzDate string) {
	amzDate = t.UTC().Format("20060102T150405Z")
	dateStamp := t.UTC().Format("20060102")

	canonicalHeaders := fmt.Sprintf(
		"content-encoding:amz-1.0\ncontent-type:application/json; charset=utf-8\nhost:%s\nx-amz-date:%s\nx-amz-target:%s\n",
		s.host, amzDate, target,
	)
	signedHeaders := "content-encoding;content-type;host;x-amz-date;x-amz-target"
	payloadHash := sha256Hex(payload)

	canonicalRequest := strings.Join([]string{
		"POST",
		"/paapi5/" + strings.TrimPrefix(target, "com.amazon.paapi5.v1.ProductAdvertisingAPIv1."),
		"",
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	credentialScope := fmt.Sprintf("%s/%s/%s/aws4_request", dateStamp, s.region, s.service)
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		credentialScope,
		sha256Hex(canonicalRequest),
	}, "\n")

	signingKey := s.deriveSigningKey(dateStamp)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	authorization = fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		s.accessKey, credentialScope, signedHeaders, signature,
	)
	return authorization, amzDate
}

func (s *signer) deriveSigningKey(dateStamp string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+s.secretKey), dateStamp)
	kRegion := hmacSHA256(kDate, s.region)
	kService := hmacSHA256(kRegion, s.service)
	return hmacSHA256(kService, "aws4_request")
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func sha256Hex(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
