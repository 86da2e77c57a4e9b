// Package enrichment implements the Enrichment Service: for candidates the
// Search Pipeline returned without pricing, it fetches per-ASIN detail
// through the Remote API Client so the Filter & Selector sees a price
// before the budget stage runs. At most MaxPerInvocation candidates are
// fetched per call; further unpriced candidates pass through without one.
package enrichment

import (
	"context"
	"log/slog"

	"github.com/mandimonitor/core/internal/provider/paapi"
	"github.com/mandimonitor/core/pkg/models"
)

// MaxPerInvocation bounds the number of serial get_item calls per selector
// invocation, to keep tail latency predictable.
const MaxPerInvocation = 5

// Service batches get_item calls for candidates missing pricing.
type Service struct {
	api    *paapi.Client
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds an enrichment Service over the given Remote API Client.
func New(api *paapi.Client, opts ...Option) *Service {
	s := &Service{api: api, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enrich fetches full detail for every candidate in products missing a
// price, up to MaxPerInvocation calls, serially through the Rate Governor.
// A candidate whose get_item call fails is dropped from the returned pool;
// the batch continues with the remaining candidates.
func (s *Service) Enrich(ctx context.Context, products []models.Product) []models.Product {
	enriched := make([]models.Product, 0, len(products))
	calls := 0

	for _, product := range products {
		if product.Price > 0 || calls >= MaxPerInvocation {
			enriched = append(enriched, product)
			continue
		}

		calls++
		detail, err := s.api.GetItem(ctx, product.ASIN, paapi.ResourcesDetailed)
		if err != nil {
			s.logger.Info("dropping candidate after enrichment failure",
				slog.String("asin", product.ASIN), slog.String("error", err.Error()))
			continue
		}
		enriched = append(enriched, *detail)
	}

	return enriched
}
