// Package oracle implements the Price Oracle: the cache-first, fail-over
// pipeline that turns an ASIN into a price, coalescing concurrent callers
// so that no ASIN is fetched more than once in flight at a time.
package oracle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mandimonitor/core/internal/metrics"
	"github.com/mandimonitor/core/internal/provider/paapi"
	"github.com/mandimonitor/core/internal/provider/scrape"
	"github.com/mandimonitor/core/pkg/models"
)

// DefaultFreshness is the cache freshness window: an entry younger than
// this is served without revalidation.
const DefaultFreshness = 24 * time.Hour

// DefaultStaleWindow bounds how far past freshness a stale entry may still
// be served when every live source fails and the caller allows stale. Rows
// older than freshness+window stay in storage for disaster recovery but are
// never returned.
const DefaultStaleWindow = 24 * time.Hour

// ErrUnavailable is returned when the cache has nothing usable and every
// live source (API, scrape) failed.
var ErrUnavailable = errors.New("oracle: price unavailable")

// CacheStore is the subset of internal/storage's PriceCacheStore the
// Oracle depends on. Get returns (nil, nil) on a cache miss.
type CacheStore interface {
	Get(ctx context.Context, asin string) (*models.PriceCacheEntry, error)
	Upsert(ctx context.Context, entry models.PriceCacheEntry) error
}

// Result is the outcome of a successful Get.
type Result struct {
	Price  models.Paise
	Source models.PriceSource
	Stale  bool
}

// inFlight tracks a single in-progress fetch for one ASIN; every caller
// that joins it receives the same result.
type inFlight struct {
	done   chan struct{}
	result Result
	err    error
}

// Oracle is the Price Oracle. Construct with New; safe for concurrent use.
type Oracle struct {
	cache   CacheStore
	api     *paapi.Client
	scraper *scrape.Scraper
	logger  *slog.Logger

	freshness   time.Duration
	staleWindow time.Duration

	mu       sync.Mutex
	inFlight map[string]*inFlight
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithFreshness overrides the default 24h cache freshness window.
func WithFreshness(d time.Duration) Option {
	return func(o *Oracle) { o.freshness = d }
}

// WithStaleWindow overrides how far past freshness a stale entry may still
// be served to an allowStale caller.
func WithStaleWindow(d time.Duration) Option {
	return func(o *Oracle) { o.staleWindow = d }
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Oracle) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New builds an Oracle over the given cache store, Remote API Client, and
// Scrape Fallback.
func New(cache CacheStore, api *paapi.Client, scraper *scrape.Scraper, opts ...Option) *Oracle {
	o := &Oracle{
		cache:       cache,
		api:         api,
		scraper:     scraper,
		logger:      slog.Default(),
		freshness:   DefaultFreshness,
		staleWindow: DefaultStaleWindow,
		inFlight:    make(map[string]*inFlight),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Get implements the price(asin) contract: cache → API → scrape → stale
// cache → unavailable. allowStale controls whether step 4 (serving a stale
// cache entry once every live source has failed) is reachable; the daily
// digest scheduler always calls with allowStale=false, per the
// conservative reading of the stale-cache-in-digests question recorded in
// DESIGN.md. Interactive callers may pass true.
func (o *Oracle) Get(ctx context.Context, asin string, allowStale bool) (Result, error) {
	entry, err := o.cache.Get(ctx, asin)
	if err != nil {
		o.logger.Warn("price cache read failed, proceeding as cache miss",
			slog.String("asin", asin), slog.String("error", err.Error()))
		entry = nil
	}

	now := time.Now()
	if entry != nil && entry.IsFresh(now) {
		metrics.RecordOracleCacheResult("hit")
		return Result{Price: entry.Price, Source: entry.Source}, nil
	}
	metrics.RecordOracleCacheResult("miss")

	fetch, isLeader := o.joinOrStartFetch(asin)
	if isLeader {
		result, fetchErr := o.fetchLive(ctx, asin)
		o.completeFetch(asin, fetch, result, fetchErr)
	} else {
		select {
		case <-fetch.done:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}

	if fetch.err == nil {
		return fetch.result, nil
	}
	if allowStale && entry != nil && time.Since(entry.FetchedAt) < o.freshness+o.staleWindow {
		metrics.RecordOracleCacheResult("stale")
		o.logger.Info("serving stale price, all live sources failed",
			slog.String("asin", asin))
		return Result{Price: entry.Price, Source: entry.Source, Stale: true}, nil
	}
	return Result{}, fetch.err
}

// joinOrStartFetch returns the in-flight fetch for asin, creating and
// registering a new one if none exists. The caller that creates it (the
// leader) is responsible for calling completeFetch.
func (o *Oracle) joinOrStartFetch(asin string) (*inFlight, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if f, ok := o.inFlight[asin]; ok {
		return f, false
	}
	f := &inFlight{done: make(chan struct{})}
	o.inFlight[asin] = f
	return f, true
}

func (o *Oracle) completeFetch(asin string, f *inFlight, result Result, err error) {
	f.result = result
	f.err = err
	close(f.done)

	o.mu.Lock()
	delete(o.inFlight, asin)
	o.mu.Unlock()
}

// fetchLive attempts the API then, on a fallback-eligible failure, the
// scrape fallback. A successful fetch upserts the cache; item-not-accessible
// errors are not retried via scrape, since a restricted item is restricted
// on the detail page too.
func (o *Oracle) fetchLive(ctx context.Context, asin string) (Result, error) {
	product, apiErr := o.api.GetItem(ctx, asin, paapi.ResourcesMinimal)
	if apiErr == nil && product.Price.Valid() {
		o.upsert(ctx, asin, product.Price, models.SourceAPI)
		return Result{Price: product.Price, Source: models.SourceAPI}, nil
	}

	if apiErr != nil && !paapi.IsFallbackEligible(apiErr) {
		return Result{}, apiErr
	}

	metrics.RecordScrapeFallback()
	price, scrapeErr := o.scraper.ScrapePrice(ctx, asin)
	if scrapeErr == nil && price.Valid() {
		o.upsert(ctx, asin, price, models.SourceScrape)
		return Result{Price: price, Source: models.SourceScrape}, nil
	}
	if scrapeErr != nil {
		metrics.RecordScrapeFailure(scrapeFailureReason(scrapeErr))
	}

	o.logger.Warn("all live price sources failed",
		slog.String("asin", asin),
		slog.String("api_error", errString(apiErr)),
		slog.String("scrape_error", errString(scrapeErr)))
	return Result{}, ErrUnavailable
}

func (o *Oracle) upsert(ctx context.Context, asin string, price models.Paise, source models.PriceSource) {
	now := time.Now()
	err := o.cache.Upsert(ctx, models.PriceCacheEntry{
		ASIN:       asin,
		Price:      price,
		Source:     source,
		FetchedAt:  now,
		StaleUntil: now.Add(o.freshness),
	})
	if err != nil {
		o.logger.Warn("price cache upsert failed",
			slog.String("asin", asin), slog.String("error", err.Error()))
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func scrapeFailureReason(err error) string {
	switch {
	case errors.Is(err, scrape.ErrPriceNotFound):
		return "price_not_found"
	case errors.Is(err, scrape.ErrFetchFailed):
		return "fetch_failed"
	default:
		return "other"
	}
}
