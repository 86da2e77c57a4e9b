// Package scrape implements the Scrape Fallback: a single best-effort
// operation that extracts a product's current price directly from its
// marketplace detail page when the Remote API Client is throttled, over
// quota, or unreachable. It is never the primary price source and must
// never sit on a synchronous path that is itself being awaited by a chat
// callback — callers invoke it from a suspension point like any other
// external I/O.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mandimonitor/core/pkg/models"
)

const (
	defaultTimeout = 20 * time.Second
	defaultBaseURL = "https://www.amazon.in"
	userAgent      = "Mozilla/5.0 (compatible; MandiMonitorBot/1.0)"
)

// ErrPriceNotFound is returned when every selector rule fails to locate a
// parseable price on the page.
var ErrPriceNotFound = errors.New("scrape: price not found")

// ErrFetchFailed wraps a non-2xx response or transport failure.
var ErrFetchFailed = errors.New("scrape: fetch failed")

// priceSelectors are tried in order; the first one yielding a parseable
// amount wins. Marketplace detail pages change markup often enough that a
// small ordered list of fallbacks is cheaper to maintain than one brittle
// selector.
var priceSelectors = []string{
	"#corePrice_feature_div .a-price .a-offscreen",
	"#corePriceDisplay_desktop_feature_div .a-price .a-offscreen",
	"#priceblock_ourprice",
	"#priceblock_dealprice",
	".a-price .a-offscreen",
}

var nonDigits = regexp.MustCompile(`[^\d]`)

// Scraper extracts a price from a product detail page.
type Scraper struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithHTTPClient overrides the default HTTP client (for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Scraper) { s.httpClient = hc }
}

// WithBaseURL overrides the marketplace base URL (for tests).
func WithBaseURL(url string) Option {
	return func(s *Scraper) { s.baseURL = url }
}

// New builds a Scraper.
func New(opts ...Option) *Scraper {
	s := &Scraper{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScrapePrice fetches the detail page for asin and extracts its current
// price in paise. The request is bounded to the Scraper's timeout
// regardless of ctx's own deadline, matching the 20s budget.
func (s *Scraper) ScrapePrice(ctx context.Context, asin string) (models.Paise, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/dp/%s", s.baseURL, asin)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: HTTP %d", ErrFetchFailed, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: parse html: %v", ErrFetchFailed, err)
	}

	for _, selector := range priceSelectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text == "" {
			continue
		}
		if price, ok := parseRupeeText(text); ok {
			return price, nil
		}
	}
	return 0, ErrPriceNotFound
}

// parseRupeeText extracts a whole-rupee amount from marketplace price text
// such as "₹24,999.00" or "Rs. 24,999" and converts it to paise.
func parseRupeeText(text string) (models.Paise, bool) {
	text = strings.ReplaceAll(text, ",", "")
	// Skip any currency prefix first so the dot in "Rs." is not taken for
	// the decimal point.
	if i := strings.IndexAny(text, "0123456789"); i >= 0 {
		text = text[i:]
	}
	digitsOnly := nonDigits.ReplaceAllString(strings.SplitN(text, ".", 2)[0], "")
	if digitsOnly == "" {
		return 0, false
	}
	rupees, err := strconv.ParseInt(digitsOnly, 10, 64)
	if err != nil || rupees <= 0 {
		return 0, false
	}
	return models.Rupees(rupees).ToPaise(), true
}
