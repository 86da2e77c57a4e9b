// Package chat defines the Chat Inbound/Outbound adapter contracts (§6):
// the interfaces the chat transport implements against this core, the
// free-text watch-creation parser, and the affiliate outbound-URL builder.
// The wire encoding and command routing themselves are explicitly out of
// scope (spec.md §1) and live in the transport, not here.
package chat

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mandimonitor/core/internal/metrics"
	"github.com/mandimonitor/core/pkg/models"
)

// ErrParseFailure is wrapped by every parse rejection, so a chat adapter can
// errors.Is against the general "please clarify" outcome described in
// spec.md §7.
var ErrParseFailure = errors.New("chat: could not parse watch request")

// validate is shared across every ParsedWatch.Validate call; Struct is safe
// for concurrent use once built, same as the teacher's single package-level
// instance.
var validate = validator.New()

// ParsedWatch is everything the free-text parser extracted from a single
// watch-creation message, ready to become a models.Watch once a user ID and
// mode are attached. The struct tags are a second, shape-level validation
// pass on top of Parse's own extraction rules — they catch a malformed
// PreParsed payload handed in directly by the transport, which never goes
// through Parse's regexes at all.
type ParsedWatch struct {
	Keywords    string       `validate:"required_without=ASIN"`
	Brand       string       `validate:"omitempty,alpha"`
	MaxPrice    models.Paise `validate:"omitempty,gt=0"`
	MinDiscount int          `validate:"omitempty,min=1,max=99"`
	ASIN        string       `validate:"omitempty,len=10,alphanum,uppercase"`
}

// Validate reports whether p is shape-valid per its struct tags, wrapping
// any failure in ErrParseFailure so callers can errors.Is against the same
// "please clarify" outcome as a Parse failure.
func (p ParsedWatch) Validate() error {
	if err := validate.Struct(p); err != nil {
		metrics.RecordChatParseFailure()
		return fmt.Errorf("%w: %s", ErrParseFailure, err.Error())
	}
	return nil
}

var (
	asinRe = regexp.MustCompile(`\b([A-Z0-9]{10})\b`)

	// discountRe matches "NN%", "NN percent", "NN per cent".
	discountRe = regexp.MustCompile(`(?i)(\d{1,2})\s*(?:%|(?:percent|per\s*cent)\b)`)

	// priceContextRe requires a currency marker or a trailing "k" shorthand
	// so a bare number in the keywords (e.g. a model year) is never
	// mistaken for a price.
	priceContextRe = regexp.MustCompile(`(?i)(₹|rs\.?|inr)\s*([\d,]+)|(\d[\d,]*)\s*k\b`)

	// curatedBrands seeds the brand vocabulary; any other all-caps token
	// in the message is also accepted, matching the Feature Matcher's own
	// brand-extraction fallback.
	curatedBrands = []string{
		"samsung", "lg", "dell", "acer", "asus", "benq", "msi", "viewsonic",
		"aoc", "zowie", "alienware", "hp", "lenovo", "philips", "gigabyte",
		"sony", "boat", "noise", "oneplus", "xiaomi", "realme",
	}
)

// Parse extracts a ParsedWatch from raw free text. It returns ErrParseFailure
// if the text yields neither keywords nor an ASIN, since a watch requires at
// least one of the two (models.Watch.Validate enforces the same rule at
// persistence time).
func Parse(raw string) (ParsedWatch, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		metrics.RecordChatParseFailure()
		return ParsedWatch{}, fmt.Errorf("%w: empty message", ErrParseFailure)
	}

	var p ParsedWatch

	if m := asinRe.FindString(trimmed); m != "" && models.IsValidASIN(m) {
		p.ASIN = m
	}

	if price, ok := extractPrice(trimmed); ok {
		p.MaxPrice = price
	}

	if m := discountRe.FindStringSubmatch(trimmed); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 99 {
			p.MinDiscount = n
		}
	}

	p.Brand = extractBrand(trimmed)
	p.Keywords = cleanKeywords(trimmed, p)

	if p.Keywords == "" && p.ASIN == "" {
		metrics.RecordChatParseFailure()
		return ParsedWatch{}, fmt.Errorf("%w: no keywords or ASIN found in %q", ErrParseFailure, raw)
	}
	return p, nil
}

// extractPrice finds a rupee amount with an explicit currency marker or a
// "k" shorthand (so "50k" = 50000 rupees = 5,000,000 paise) and converts it
// to paise. A bare number with neither marker is not treated as a price,
// since it is indistinguishable from an arbitrary keyword token.
func extractPrice(text string) (models.Paise, bool) {
	m := priceContextRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}

	var digits string
	var isK bool
	switch {
	case m[2] != "": // ₹/rs/inr form
		digits = m[2]
	case m[3] != "": // bare "NNk" form
		digits = m[3]
		isK = true
	default:
		return 0, false
	}

	digits = strings.ReplaceAll(digits, ",", "")
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	if isK {
		n *= 1000
	}
	return models.Rupees(n).ToPaise(), true
}

// priceTextRe parses a standalone price field (as opposed to a price
// embedded in free-form keywords): an optional currency marker, digits with
// optional comma grouping, and an optional trailing k-shorthand. Used for
// the chat transport's "optional pre-parsed fields" path, where the price
// arrives as its own token rather than embedded in ambiguous prose.
var priceTextRe = regexp.MustCompile(`(?i)^\s*(?:₹|rs\.?|inr)?\s*([\d,]+)\s*(k)?\s*$`)

// ParsePriceText parses a single standalone rupee amount, accepting a ₹
// prefix, "rs."/"INR" prefix, comma grouping, and a "k" thousands
// shorthand. "50k", "50000", "₹50,000", "rs. 50000", and "INR 50000" all
// parse to the same 5,000,000 paise.
func ParsePriceText(text string) (models.Paise, bool) {
	m := priceTextRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	digits := strings.ReplaceAll(m[1], ",", "")
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	if m[2] != "" {
		n *= 1000
	}
	return models.Rupees(n).ToPaise(), true
}

// discountTextRe parses a standalone discount field: "NN%", "NN percent",
// "NN per cent", or a bare "NN".
var discountTextRe = regexp.MustCompile(`(?i)^\s*(\d{1,2})\s*(?:%|percent|per\s*cent)?\s*$`)

// ParseDiscountText parses a single standalone discount percentage,
// accepting "%", "percent", "per cent", or no suffix at all.
func ParseDiscountText(text string) (int, bool) {
	m := discountTextRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > 99 {
		return 0, false
	}
	return n, true
}

func extractBrand(text string) string {
	lower := strings.ToLower(text)
	for _, b := range curatedBrands {
		if strings.Contains(lower, b) {
			return b
		}
	}
	for _, word := range strings.Fields(text) {
		trimmed := strings.Trim(word, ".,!?\"'")
		if len(trimmed) >= 3 && trimmed == strings.ToUpper(trimmed) && strings.ToLower(trimmed) != trimmed && !asinRe.MatchString(trimmed) {
			return strings.ToLower(trimmed)
		}
	}
	return ""
}

// cleanKeywords strips the tokens already claimed by ASIN/price/discount/
// brand extraction, leaving the remaining free text as search keywords. If
// an ASIN was found and nothing else remains, keywords are left empty per
// the watch invariant that an ASIN-pinned watch needs no keywords.
func cleanKeywords(text string, p ParsedWatch) string {
	cleaned := text
	if p.ASIN != "" {
		cleaned = strings.ReplaceAll(cleaned, p.ASIN, "")
	}
	cleaned = priceContextRe.ReplaceAllString(cleaned, "")
	cleaned = discountRe.ReplaceAllString(cleaned, "")

	fields := strings.Fields(cleaned)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		trimmed := strings.Trim(f, ".,!?\"'")
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, " ")
}
