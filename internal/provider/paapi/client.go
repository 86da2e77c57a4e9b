// Package paapi implements the Remote API Client: a typed wrapper around
// the vendor's product search and get-item operations, gated by the Rate
// Governor and protected by a circuit breaker, following the shape of the
// teacher's provider clients (internal/provider/tensordock).
package paapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/mandimonitor/core/internal/ratelimit"
	"github.com/mandimonitor/core/pkg/models"
)

const (
	defaultBaseURL   = "https://webservices.amazon.in"
	defaultHost      = "webservices.amazon.in"
	defaultRegion    = "eu-west-1"
	defaultTimeout   = 30 * time.Second
	maxRetries       = 3
	retryBaseDelay   = 1 * time.Second
	retryJitter      = 250 * time.Millisecond
	maxSearchItems   = 10 // vendor hard limit per page
)

// Client is a typed wrapper around the vendor's get-item and search
// operations. Every call is gated by a ratelimit.Governor and protected by
// an internal circuit breaker; construct with New.
type Client struct {
	httpClient     *http.Client
	governor       *ratelimit.Governor
	signer         *signer
	circuitBreaker *circuitBreaker
	logger         *slog.Logger

	baseURL      string
	partnerTag   string
	marketplace  string
	timeout      time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the vendor base URL (for tests).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithTimeout overrides the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a Client. governor must be shared process-wide; every
// operation acquires a token from it before issuing an HTTP request.
func New(accessKey, secretKey, partnerTag string, governor *ratelimit.Governor, opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: defaultTimeout},
		governor:       governor,
		signer:         newSigner(accessKey, secretKey, defaultRegion, defaultHost),
		circuitBreaker: newCircuitBreaker(defaultBreakerConfig()),
		logger:         slog.Default(),
		baseURL:        defaultBaseURL,
		partnerTag:     partnerTag,
		marketplace:    "www.amazon.in",
		timeout:        defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetItem fetches per-ASIN detail. It may return an APIError wrapping
// ErrItemNotAccessible for restricted items; callers should log and
// continue with the next candidate rather than treating it as fatal.
func (c *Client) GetItem(ctx context.Context, asin string, resources ResourceBundle) (*models.Product, error) {
	payload := map[string]interface{}{
		"ItemIds":        []string{asin},
		"PartnerTag":     c.partnerTag,
		"PartnerType":    "Associates",
		"Marketplace":    c.marketplace,
		"Resources":      []string(resources),
	}

	var resp getItemsResponse
	if err := c.call(ctx, "GetItems", "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.GetItems", payload, &resp, asin); err != nil {
		return nil, err
	}

	if len(resp.ItemsResult.Items) == 0 {
		return nil, newAPIError("GetItems", asin, http.StatusOK, "item not returned by vendor", ErrItemNotAccessible)
	}
	return resp.ItemsResult.Items[0].toProduct(), nil
}

// SearchParams configures a single page of the vendor's search operation.
// MinPrice is the only price bound ever forwarded to the vendor: combining
// it with a MaxPrice in the same request causes the vendor to silently
// ignore MaxPrice, so MaxPrice is always applied downstream by the Filter &
// Selector instead.
type SearchParams struct {
	Keywords    string
	SearchIndex string
	Page        int
	ItemCount   int
	Resources   ResourceBundle
	MinPrice    models.Paise
}

// SearchPage is a single page of search results.
type SearchPage struct {
	Items []models.Product
}

// Search issues one page of the vendor's search operation. ItemCount is
// clamped to the vendor's hard limit of 10 before the request is built.
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchPage, error) {
	itemCount := params.ItemCount
	if itemCount <= 0 || itemCount > maxSearchItems {
		itemCount = maxSearchItems
	}

	payload := map[string]interface{}{
		"Keywords":    params.Keywords,
		"SearchIndex": nonEmpty(params.SearchIndex, "All"),
		"ItemPage":    params.Page,
		"ItemCount":   itemCount,
		"PartnerTag":  c.partnerTag,
		"PartnerType": "Associates",
		"Marketplace": c.marketplace,
		"Resources":   []string(params.Resources),
	}
	if params.MinPrice > 0 {
		payload["MinPrice"] = int64(params.MinPrice)
	}

	var resp searchItemsResponse
	if err := c.call(ctx, "SearchItems", "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.SearchItems", payload, &resp, ""); err != nil {
		return nil, err
	}

	items := make([]models.Product, 0, len(resp.SearchResult.Items))
	for _, it := range resp.SearchResult.Items {
		items = append(items, *it.toProduct())
	}
	return &SearchPage{Items: items}, nil
}

// call executes a signed POST with retry and circuit breaker protection,
// gating each attempt behind the shared Rate Governor.
func (c *Client) call(ctx context.Context, operation, target string, payload map[string]interface{}, out interface{}, asin string) error {
	if !c.circuitBreaker.allow() {
		return newAPIError(operation, asin, 0, fmt.Sprintf("circuit open, retry after %v", c.circuitBreaker.backoff()), ErrTransient)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("paapi: marshal %s request: %w", operation, err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
			jitter := time.Duration(rand.Int63n(int64(2*retryJitter))) - retryJitter
			select {
			case <-time.After(delay + jitter):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.governor.Acquire(ctx); err != nil {
			return err
		}

		err := c.doRequest(ctx, operation, target, body, out, asin)
		c.recordResult(err)
		if err == nil {
			return nil
		}

		lastErr = err
		if !IsTransient(err) {
			return err
		}
		// Only transient network/5xx failures are retried; throttle and
		// quota responses are surfaced immediately so the caller (Price
		// Oracle, Search Pipeline) can decide on fallback or deferral.
	}
	return lastErr
}

func (c *Client) doRequest(ctx context.Context, operation, target string, body []byte, out interface{}, asin string) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/paapi5/"+strings.TrimPrefix(operation, "com.amazon.paapi5.v1.ProductAdvertisingAPIv1."), bytes.NewReader(body))
	if err != nil {
		return newAPIError(operation, asin, 0, err.Error(), ErrTransient)
	}

	authorization, amzDate := c.signer.authHeader(target, string(body), time.Now())
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Content-Encoding", "amz-1.0")
	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("X-Amz-Target", target)
	req.Header.Set("Authorization", authorization)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return newAPIError(operation, asin, 0, redact(err.Error(), c.signer.accessKey), ErrTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.handleError(resp, operation, asin)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return newAPIError(operation, asin, resp.StatusCode, "decode response: "+err.Error(), ErrTransient)
	}
	return nil
}

func (c *Client) handleError(resp *http.Response, operation, asin string) error {
	raw, _ := io.ReadAll(resp.Body)
	message := sanitize(string(raw))

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		c.governor.Throttled()
		return newAPIError(operation, asin, resp.StatusCode, message, ErrThrottled)
	case http.StatusServiceUnavailable:
		if strings.Contains(strings.ToLower(message), "quota") || strings.Contains(strings.ToLower(message), "limit") {
			return newAPIError(operation, asin, resp.StatusCode, message, ErrQuota)
		}
		return newAPIError(operation, asin, resp.StatusCode, message, ErrTransient)
	case http.StatusNotFound, http.StatusBadRequest:
		return newAPIError(operation, asin, resp.StatusCode, message, ErrItemNotAccessible)
	default:
		if resp.StatusCode >= 500 {
			return newAPIError(operation, asin, resp.StatusCode, message, ErrTransient)
		}
		return newAPIError(operation, asin, resp.StatusCode, message, ErrItemNotAccessible)
	}
}

// recordResult feeds the circuit breaker; only throttle/5xx/network
// failures count against it, matching the teacher's recordAPIResult.
func (c *Client) recordResult(err error) {
	if err == nil {
		c.circuitBreaker.recordSuccess()
		return
	}
	if IsThrottled(err) || IsTransient(err) {
		c.circuitBreaker.recordFailure()
	}
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

const maxErrorMessageLength = 1000

func sanitize(message string) string {
	if len(message) > maxErrorMessageLength {
		message = message[:maxErrorMessageLength] + "... [truncated]"
	}
	message = strings.ReplaceAll(message, "\n", " ")
	message = strings.ReplaceAll(message, "\r", " ")
	return message
}

// redact strips a credential value from a string before it reaches a log
// line or an error surfaced to the caller.
func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "[REDACTED]")
}
