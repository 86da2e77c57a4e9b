// Package feature implements the Feature Matcher for the bundled gaming-
// monitor category: extraction of a structured Vector from free text,
// weighted scoring of a candidate against a query Vector, and a
// deterministic tie-break when scores are equal.
package feature

import (
	"math"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mandimonitor/core/internal/metrics"
	"github.com/mandimonitor/core/pkg/models"
)

// Matcher ranks candidates against a free-text query and decides whether a
// query is "technical" enough to warrant feature-match re-ranking at all.
type Matcher interface {
	IsTechnicalQuery(query string) bool
	Rank(query string, candidates []models.Product) []models.Product
}

// weights mirror how much each feature contributes to a candidate's score.
// refresh_rate dominates since it is the single most requested spec in this
// category, followed by resolution, size, panel type, curvature, and brand.
var weights = map[string]float64{
	"refresh_rate": 3.0,
	"resolution":   2.5,
	"size":         2.0,
	"panel_type":   1.5,
	"curvature":    1.0,
	"brand":        1.0,
}

const upgradeBonus = 1.10

// Numeric features score in bands around the requested value: within
// nearMatchBand deviation the full weight is awarded, between the two bands
// the score decays linearly, and beyond zeroScoreBand the feature contributes
// nothing even if the candidate is nominally "better".
const (
	nearMatchBand = 0.15
	zeroScoreBand = 0.50
)

// minTechnicalFeatures is the extracted-feature-count threshold for treating
// a query as technical when no category keyword is present either.
const minTechnicalFeatures = 2

// categoryVocabulary are terms that mark a query as belonging to this
// category even when fewer than minTechnicalFeatures were extracted, e.g.
// "gaming monitor" alone with no numeric specs attached.
var categoryVocabulary = []string{"monitor", "display", "gaming"}

// GamingMonitorMatcher is the bundled Matcher for the gaming-monitor
// vocabulary (refresh_rate, size, resolution, curvature, panel_type, brand).
type GamingMonitorMatcher struct {
	mu    sync.Mutex
	cache *lru.Cache[string, Vector]
}

// NewGamingMonitorMatcher builds a matcher with an LRU cache for extracted
// vectors, sized for a single search/enrichment batch's worth of distinct
// texts.
func NewGamingMonitorMatcher() *GamingMonitorMatcher {
	cache, _ := lru.New[string, Vector](100)
	return &GamingMonitorMatcher{cache: cache}
}

// IsTechnicalQuery reports whether query carries enough extractable spec
// detail, or enough category vocabulary, to justify feature-match ranking.
func (m *GamingMonitorMatcher) IsTechnicalQuery(query string) bool {
	v := m.extractCached(query)
	if v.ExtractedCount() >= minTechnicalFeatures {
		return true
	}
	lower := strings.ToLower(query)
	for _, kw := range categoryVocabulary {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Rank scores every candidate against query's extracted Vector and returns
// them sorted best-first. Candidates tie-break deterministically so the
// result is stable across runs given identical input.
func (m *GamingMonitorMatcher) Rank(query string, candidates []models.Product) []models.Product {
	if len(candidates) == 0 {
		return nil
	}
	want := m.extractCached(query)

	type scored struct {
		product models.Product
		score   float64
	}
	rows := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		got := m.extractCached(c.Title + " " + c.FeatureText + " " + technicalInfoText(c.TechnicalInfo))
		rows = append(rows, scored{product: c, score: score(want, got)})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return lessByTieBreak(rows[i].product, rows[j].product)
	})

	out := make([]models.Product, len(rows))
	for i, r := range rows {
		out[i] = r.product
	}
	return out
}

func (m *GamingMonitorMatcher) extractCached(text string) Vector {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.cache.Get(text); ok {
		metrics.RecordFeatureExtractionCacheResult("hit")
		return v
	}
	metrics.RecordFeatureExtractionCacheResult("miss")
	v := extract(text)
	m.cache.Add(text, v)
	return v
}

func technicalInfoText(info map[string]string) string {
	if len(info) == 0 {
		return ""
	}
	var b strings.Builder
	for k, v := range info {
		b.WriteString(k)
		b.WriteString(" ")
		b.WriteString(v)
		b.WriteString(" ")
	}
	return b.String()
}

// score weighs want (the query's extracted Vector) against got (a
// candidate's extracted Vector). Monotone features (refresh_rate, size,
// resolution) award a +10% bonus when the candidate exceeds what was asked
// for; categorical features (panel_type, curvature, brand) only match
// exactly, with one compatible-upgrade exception for panel_type (IPS/OLED
// satisfy a TN/VA request, since both are perceived upgrades).
func score(want, got Vector) float64 {
	var total float64

	if want.RefreshRate > 0 {
		total += monotoneScore(weights["refresh_rate"], float64(want.RefreshRate), float64(got.RefreshRate))
	}
	if want.Size > 0 {
		total += monotoneScore(weights["size"], want.Size, got.Size)
	}
	if want.Resolution != ResolutionUnknown {
		total += ordinalScore(weights["resolution"], want.Resolution, got.Resolution)
	}
	if want.PanelType != "" {
		total += categoricalPanelScore(weights["panel_type"], want.PanelType, got.PanelType)
	}
	if want.Curvature != "" {
		total += categoricalScore(weights["curvature"], want.Curvature, got.Curvature)
	}
	if want.Brand != "" {
		total += categoricalScore(weights["brand"], want.Brand, got.Brand)
	}

	return total
}

func monotoneScore(weight, want, got float64) float64 {
	if got <= 0 {
		return 0
	}
	dev := math.Abs(got-want) / want
	var base float64
	switch {
	case dev <= nearMatchBand:
		base = weight
	case dev < zeroScoreBand:
		base = weight * (zeroScoreBand - dev) / (zeroScoreBand - nearMatchBand)
	}
	if got > want {
		base *= upgradeBonus
	}
	return base
}

// ordinalScore handles the resolution classes, which have no meaningful
// percentage deviation: the exact class earns full weight, a better class
// earns the upgrade bonus, a worse class earns nothing.
func ordinalScore(weight float64, want, got ResolutionClass) float64 {
	switch {
	case got == ResolutionUnknown:
		return 0
	case got == want:
		return weight
	case got > want:
		return weight * upgradeBonus
	default:
		return 0
	}
}

func categoricalScore(weight float64, want, got string) float64 {
	if got == "" {
		return 0
	}
	if strings.EqualFold(want, got) {
		return weight
	}
	return 0
}

// panelRank orders panel types for the compatible-upgrade exception: an
// IPS/OLED candidate still satisfies a TN/VA request.
var panelRank = map[string]int{"TN": 0, "VA": 1, "IPS": 2, "OLED": 3}

func categoricalPanelScore(weight float64, want, got string) float64 {
	if got == "" {
		return 0
	}
	if strings.EqualFold(want, got) {
		return weight
	}
	wr, wok := panelRank[strings.ToUpper(want)]
	gr, gok := panelRank[strings.ToUpper(got)]
	if wok && gok && gr > wr {
		return weight * upgradeBonus
	}
	return 0
}

// lessByTieBreak implements the deterministic tie-break order: higher
// refresh rate, then higher resolution class, then lower price, then larger
// review count, then ASIN lexicographic ascending.
func lessByTieBreak(a, b models.Product) bool {
	va := extract(a.Title + " " + a.FeatureText + " " + technicalInfoText(a.TechnicalInfo))
	vb := extract(b.Title + " " + b.FeatureText + " " + technicalInfoText(b.TechnicalInfo))

	if va.RefreshRate != vb.RefreshRate {
		return va.RefreshRate > vb.RefreshRate
	}
	if va.Resolution != vb.Resolution {
		return va.Resolution > vb.Resolution
	}
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	if a.ReviewCount != b.ReviewCount {
		return a.ReviewCount > b.ReviewCount
	}
	return a.ASIN < b.ASIN
}
