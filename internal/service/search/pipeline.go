// Package search implements the Search Pipeline: paginated search over the
// Remote API Client with a deduplicating, session-scoped result cache.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mandimonitor/core/internal/metrics"
	"github.com/mandimonitor/core/internal/provider/paapi"
	"github.com/mandimonitor/core/pkg/models"
)

const (
	// DefaultSessionTTL is how long an identical search request is served
	// from cache before a fresh fetch is issued.
	DefaultSessionTTL = 5 * time.Minute
	// pageDelay covers the governor's own 1s steady rate plus clock skew;
	// it is wall-clock and never held alongside a lock.
	pageDelay     = 1100 * time.Millisecond
	pageCount     = 3
	pageItemCount = 10
	defaultCap    = 30
)

// Request describes a single logical search; two requests with the same
// Keywords, SearchIndex, and ItemCap are deduplicated against the session
// cache.
type Request struct {
	Keywords    string
	SearchIndex string
	MinPrice    models.Paise
	ItemCap     int
}

func (r Request) cacheKey() string {
	cap := r.ItemCap
	if cap <= 0 {
		cap = defaultCap
	}
	return fmt.Sprintf("%s\x00%s\x00%d", r.Keywords, r.SearchIndex, cap)
}

// Result is the Search Pipeline's output: up to ItemCap deduplicated
// candidates, in vendor-relevance order, with a flag marking whether a
// throttle cut the run short.
type Result struct {
	Products []models.Product
	Partial  bool
}

type cacheEntry struct {
	result    Result
	err       error
	expiresAt time.Time
	done      chan struct{}
}

// Pipeline runs the paginated, deduplicated search. Construct with New;
// safe for concurrent use.
type Pipeline struct {
	api        *paapi.Client
	logger     *slog.Logger
	sessionTTL time.Duration

	mu    sync.Mutex
	cache map[string]*cacheEntry
}

// New builds a Pipeline over the given Remote API Client.
func New(api *paapi.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		api:        api,
		logger:     slog.Default(),
		sessionTTL: DefaultSessionTTL,
		cache:      make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSessionTTL overrides how long a completed search stays servable from
// the session cache.
func WithSessionTTL(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.sessionTTL = d
		}
	}
}

// Search runs req, sharing an in-flight or recently-completed fetch with
// any other caller issuing the same request within the session cache TTL.
func (p *Pipeline) Search(ctx context.Context, req Request) (Result, error) {
	key := req.cacheKey()

	entry, isLeader := p.joinOrStartSearch(key)
	if isLeader {
		metrics.RecordSearchSessionCacheResult("miss")
		result, err := p.runSearch(ctx, req)
		p.completeSearch(key, entry, result, err)
		if err != nil {
			return Result{}, err
		}
		return result, nil
	}

	metrics.RecordSearchSessionCacheResult("hit")
	select {
	case <-entry.done:
		return entry.result, entry.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (p *Pipeline) joinOrStartSearch(key string) (*cacheEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.cache[key]; ok {
		if !isClosed(e.done) {
			// A fetch for this exact request is already in flight.
			return e, false
		}
		if time.Now().Before(e.expiresAt) {
			closed := make(chan struct{})
			close(closed)
			return &cacheEntry{result: e.result, done: closed}, false
		}
		delete(p.cache, key)
	}

	e := &cacheEntry{done: make(chan struct{})}
	p.cache[key] = e
	return e, true
}

func (p *Pipeline) completeSearch(key string, e *cacheEntry, result Result, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		// Followers already joined on this entry still see the error; the
		// failed fetch is just not cached, so the next caller retries fresh.
		e.err = err
		delete(p.cache, key)
		close(e.done)
		return
	}
	e.result = result
	e.expiresAt = time.Now().Add(p.sessionTTL)
	close(e.done)
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// runSearch issues up to three pages of 10 items each, 1.1s apart,
// deduplicating by ASIN and stopping early once a page returns fewer than
// 10 items (exhaustion) or the item cap is reached. A throttle on any page
// returns what was collected so far with Partial set.
func (p *Pipeline) runSearch(ctx context.Context, req Request) (Result, error) {
	itemCap := req.ItemCap
	if itemCap <= 0 {
		itemCap = defaultCap
	}

	seen := make(map[string]struct{})
	var products []models.Product
	duplicates := 0
	defer func() {
		if duplicates > 0 {
			metrics.RecordSearchResultsDeduped(duplicates)
		}
	}()

	for page := 1; page <= pageCount; page++ {
		if page > 1 {
			select {
			case <-time.After(pageDelay):
			case <-ctx.Done():
				return Result{Products: products, Partial: true}, nil
			}
		}

		searchResult, err := p.api.Search(ctx, paapi.SearchParams{
			Keywords:    req.Keywords,
			SearchIndex: req.SearchIndex,
			Page:        page,
			ItemCount:   pageItemCount,
			Resources:   paapi.ResourcesDetailed,
			MinPrice:    req.MinPrice,
		})
		if err != nil {
			if paapi.IsThrottled(err) || paapi.IsQuota(err) {
				p.logger.Warn("search pipeline degraded by throttle/quota",
					slog.String("keywords", req.Keywords), slog.Int("page", page))
				return Result{Products: products, Partial: true}, nil
			}
			return Result{}, err
		}

		for _, product := range searchResult.Items {
			if _, dup := seen[product.ASIN]; dup {
				duplicates++
				continue
			}
			seen[product.ASIN] = struct{}{}
			products = append(products, product)
			if len(products) >= itemCap {
				return Result{Products: products}, nil
			}
		}

		if len(searchResult.Items) < pageItemCount {
			break // vendor exhausted; no point issuing further pages
		}
	}

	return Result{Products: products}, nil
}
