// Package filter implements the Filter & Selector: a strict, left-biased
// cascade (budget → brand → discount → feature-match) that picks a single
// best candidate or reports a typed "no match" naming the stage that
// emptied the set. Filters never relax, and a no-match outcome is never
// swallowed into a degraded success.
package filter

import (
	"strings"

	"github.com/mandimonitor/core/internal/service/feature"
	"github.com/mandimonitor/core/pkg/models"
)

// Selector runs the cascade for a single watch.
type Selector struct {
	matcher feature.Matcher
}

// New builds a Selector using matcher for the feature-match stage.
func New(matcher feature.Matcher) *Selector {
	return &Selector{matcher: matcher}
}

// Select runs the full cascade against candidates for watch and returns
// either a single surviving candidate or a FilterResult naming the stage
// that emptied the set. An empty candidates slice that no stage ran on
// yields a no-match with an empty EmptiedAt.
func (s *Selector) Select(watch *models.Watch, candidates []models.Product) models.FilterResult {
	survivors := candidates

	if watch.HasMaxPrice() {
		in := len(survivors)
		survivors = applyBudget(survivors, watch.MaxPrice)
		if len(survivors) == 0 {
			return noMatch(models.StageBudget, in)
		}
	}

	if watch.HasBrand() {
		in := len(survivors)
		survivors = applyBrand(survivors, watch.Brand)
		if len(survivors) == 0 {
			return noMatch(models.StageBrand, in)
		}
	}

	if watch.HasMinDiscount() {
		in := len(survivors)
		survivors = applyDiscount(survivors, watch.MinDiscount)
		if len(survivors) == 0 {
			return noMatch(models.StageDiscount, in)
		}
	}

	if s.matcher != nil && isTechnicalQuery(watch.Keywords, s.matcher) {
		in := len(survivors)
		ranked := s.matcher.Rank(watch.Keywords, survivors)
		if len(ranked) == 0 {
			return noMatch(models.StageFeature, in)
		}
		survivors = ranked
	}

	if len(survivors) == 0 {
		return noMatch("", 0)
	}
	return models.FilterResult{Products: survivors[:1]}
}

func noMatch(stage models.FilterStage, candidatesIn int) models.FilterResult {
	return models.FilterResult{NoMatch: true, EmptiedAt: stage, CandidatesIn: candidatesIn}
}

// applyBudget retains candidates with a known price at or below max. A
// candidate with unknown (zero) price is dropped, never assumed to pass.
func applyBudget(candidates []models.Product, max models.Paise) []models.Product {
	out := make([]models.Product, 0, len(candidates))
	for _, c := range candidates {
		if c.Price > 0 && c.Price <= max {
			out = append(out, c)
		}
	}
	return out
}

// applyBrand retains candidates whose brand field, or title as fallback,
// contains brand case-insensitively.
func applyBrand(candidates []models.Product, brand string) []models.Product {
	needle := strings.ToLower(brand)
	out := make([]models.Product, 0, len(candidates))
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Brand), needle) ||
			strings.Contains(strings.ToLower(c.Title), needle) {
			out = append(out, c)
		}
	}
	return out
}

// applyDiscount retains candidates whose discount against list price is at
// least minDiscount percent. A candidate without a known list price is
// dropped, since its discount cannot be computed.
func applyDiscount(candidates []models.Product, minDiscount int) []models.Product {
	out := make([]models.Product, 0, len(candidates))
	for _, c := range candidates {
		if c.ListPrice <= 0 {
			continue
		}
		if c.Discount() >= minDiscount {
			out = append(out, c)
		}
	}
	return out
}

// isTechnicalQuery decides whether the feature-match stage should re-rank
// the survivors. See DESIGN.md for the recorded decision on what counts as
// "technical" — extracted-feature count >= 2, or a category-vocabulary hit.
func isTechnicalQuery(keywords string, matcher feature.Matcher) bool {
	return matcher.IsTechnicalQuery(keywords)
}
