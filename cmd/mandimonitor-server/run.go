package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mandimonitor/core/internal/chat"
	"github.com/mandimonitor/core/internal/logging"
	"github.com/mandimonitor/core/internal/metrics"
	"github.com/mandimonitor/core/internal/service/enrichment"
	"github.com/mandimonitor/core/internal/service/feature"
	"github.com/mandimonitor/core/internal/service/filter"
	"github.com/mandimonitor/core/internal/service/oracle"
	"github.com/mandimonitor/core/internal/service/search"
	"github.com/mandimonitor/core/internal/storage"
	"github.com/mandimonitor/core/pkg/models"
)

// evaluator wires the Price Oracle, Search Pipeline, Enrichment Service,
// and Filter & Selector into the single per-watch run the Scheduler fires:
// resolve candidates (by ASIN or by keyword search), enrich missing prices,
// run the filter cascade, then persist and deliver the outcome.
type evaluator struct {
	oracle       *oracle.Oracle
	searchPl     *search.Pipeline
	enrichment   *enrichment.Service
	matcher      *feature.GamingMonitorMatcher
	selector     *filter.Selector
	observations *storage.PriceObservationStore
	outbound     chat.Outbound
	digests      *chat.DigestBuilder
	marketplace  string
	affiliateTag string
	logger       *slog.Logger
}

// run implements scheduler.RunFunc.
func (e *evaluator) run(ctx context.Context, watch models.Watch) error {
	ctx = logging.WithWatchID(ctx, watch.ID)
	ctx = logging.WithUserID(ctx, watch.UserID)

	// A digest run requires a live price; only the real-time/interactive
	// path may fall back to a stale cache entry (spec.md §9, DESIGN.md).
	allowStale := watch.Mode != models.ModeDaily

	candidates, err := e.resolveCandidates(ctx, watch, allowStale)
	if err != nil {
		return err
	}

	candidates = e.enrichment.Enrich(ctx, candidates)

	result := e.selector.Select(&watch, candidates)
	if !result.Matched() {
		metrics.RecordFilterNoMatch(string(result.EmptiedAt))
		logging.Audit(ctx, "no_match_outcome", "stage", string(result.EmptiedAt), "candidates_in", result.CandidatesIn)
		msg := chat.NewNoMatchMessage(result.EmptiedAt, &watch)
		if err := e.outbound.DeliverNoMatch(ctx, watch.UserID, msg); err != nil {
			metrics.RecordChatDelivery("no_match", "error")
			return err
		}
		metrics.RecordChatDelivery("no_match", "ok")
		return nil
	}
	metrics.RecordFilterMatch()

	best := result.Products[0]

	// The Price Oracle is the authoritative source for the chosen ASIN
	// (spec.md §2, §4.9), for both an ASIN-pinned watch and a keyword
	// watch's winning candidate alike; its per-ASIN coalescing also means
	// two watches resolving to the same winner share one fetch.
	oracleStart := time.Now()
	priced, err := e.oracle.Get(ctx, best.ASIN, allowStale)
	if err != nil {
		if errors.Is(err, oracle.ErrUnavailable) {
			metrics.RecordOracleUnavailable()
		}
		return err
	}
	metrics.RecordOracleLookup(string(priced.Source), time.Since(oracleStart))
	best.Price = priced.Price

	obs := &models.PriceObservation{
		WatchID: watch.ID, ASIN: best.ASIN, Price: best.Price,
		Source: priced.Source, FetchedAt: time.Now(),
	}
	if err := e.observations.Create(ctx, obs); err != nil {
		e.logger.Error("failed to record price observation", slog.String("error", err.Error()))
	}

	var explanation []string
	if e.matcher.IsTechnicalQuery(watch.Keywords) {
		for _, exp := range e.matcher.Explain(watch.Keywords, best.FeatureText) {
			explanation = append(explanation, exp.Detail)
		}
	}

	card := chat.BuildCard(watch.ID, best, e.marketplace, e.affiliateTag, explanation)

	// A daily run's card goes into the digest batch (top cards by discount,
	// delivered together once the day's runs settle); a real-time run
	// delivers its single card immediately.
	if watch.Mode == models.ModeDaily {
		e.digests.Add(watch.UserID, card)
		return nil
	}
	if err := e.outbound.Deliver(ctx, watch.UserID, card); err != nil {
		metrics.RecordChatDelivery("card", "error")
		return err
	}
	metrics.RecordChatDelivery("card", "ok")
	return nil
}

// resolveCandidates returns the candidate pool for watch: a single
// oracle-priced product for an ASIN-pinned watch, or the Search Pipeline's
// paginated result set for a keyword watch. allowStale is threaded through
// to the ASIN-pinned path's provisional oracle lookup so a digest run never
// filters against a stale price either.
func (e *evaluator) resolveCandidates(ctx context.Context, watch models.Watch, allowStale bool) ([]models.Product, error) {
	if watch.HasASIN() {
		return e.resolveASIN(ctx, watch.ASIN, allowStale)
	}

	res, err := e.searchPl.Search(ctx, search.Request{Keywords: watch.Keywords})
	if err != nil {
		return nil, err
	}
	if res.Partial {
		metrics.RecordSearchPartialResult()
	}
	return res.Products, nil
}

func (e *evaluator) resolveASIN(ctx context.Context, asin string, allowStale bool) ([]models.Product, error) {
	start := time.Now()
	priced, err := e.oracle.Get(ctx, asin, allowStale)
	if err != nil {
		if errors.Is(err, oracle.ErrUnavailable) {
			metrics.RecordOracleUnavailable()
		}
		return nil, err
	}
	metrics.RecordOracleLookup(string(priced.Source), time.Since(start))

	enriched := e.enrichment.Enrich(ctx, []models.Product{{ASIN: asin}})
	if len(enriched) == 0 {
		return nil, oracle.ErrUnavailable
	}
	detail := enriched[0]
	detail.Price = priced.Price
	return []models.Product{detail}, nil
}
