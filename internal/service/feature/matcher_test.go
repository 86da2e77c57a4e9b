package feature

import (
	"testing"

	"github.com/mandimonitor/core/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractParsesRefreshRateSizeResolutionPanelCurvatureBrand(t *testing.T) {
	v := extract(`Samsung 27" 165Hz QHD curved VA gaming monitor, stunning immersive visuals`)
	assert.Equal(t, 165, v.RefreshRate)
	assert.Equal(t, 27.0, v.Size)
	assert.Equal(t, ResolutionQHD, v.Resolution)
	assert.Equal(t, "curved", v.Curvature)
	assert.Equal(t, "VA", v.PanelType)
	assert.Equal(t, "samsung", v.Brand)
}

func TestExtractRejectsOutOfRangeSize(t *testing.T) {
	v := extract(`a tiny 8" display`)
	assert.Zero(t, v.Size)
}

func TestExtractNormalizesResolutionSynonyms(t *testing.T) {
	assert.Equal(t, ResolutionUHD, extract("4K display").Resolution)
	assert.Equal(t, ResolutionUHD, extract("2160p panel").Resolution)
	assert.Equal(t, ResolutionQHD, extract("1440p WQHD monitor").Resolution)
	assert.Equal(t, ResolutionFHD, extract("1080p Full HD screen").Resolution)
}

func TestIsTechnicalQueryRequiresTwoFeaturesOrCategoryWord(t *testing.T) {
	m := NewGamingMonitorMatcher()
	assert.True(t, m.IsTechnicalQuery("165Hz 27 inch monitor"))
	assert.True(t, m.IsTechnicalQuery("gaming monitor"))
	assert.False(t, m.IsTechnicalQuery("165Hz"))
	assert.False(t, m.IsTechnicalQuery("cheap deal today"))
}

func TestRankPrefersExactRefreshRateMatchOverLower(t *testing.T) {
	m := NewGamingMonitorMatcher()
	candidates := []models.Product{
		{ASIN: "A", Title: "27 inch 144Hz QHD monitor"},
		{ASIN: "B", Title: "27 inch 165Hz QHD monitor"},
	}
	ranked := m.Rank("165Hz QHD monitor", candidates)
	require.Len(t, ranked, 2)
	assert.Equal(t, "B", ranked[0].ASIN)
}

func TestRankAwardsUpgradeBonusForHigherRefreshRate(t *testing.T) {
	want := Vector{RefreshRate: 144}
	upgrade := Vector{RefreshRate: 165} // within the near-match band, strictly better
	exact := Vector{RefreshRate: 144}
	assert.Greater(t, score(want, upgrade), score(want, exact))
}

func TestMonotoneScoreBands(t *testing.T) {
	// Within 15% deviation: full weight.
	assert.InDelta(t, 3.0, monotoneScore(3.0, 144, 130), 0.001)
	// Between 15% and 50%: linear decay, strictly between zero and full.
	mid := monotoneScore(3.0, 144, 100) // ~30.6% below
	assert.Greater(t, mid, 0.0)
	assert.Less(t, mid, 3.0)
	// Beyond 50% deviation: nothing, even for a nominal upgrade.
	assert.Zero(t, monotoneScore(3.0, 144, 60))
	assert.Zero(t, monotoneScore(3.0, 144, 240))
	// Absent entirely: nothing.
	assert.Zero(t, monotoneScore(3.0, 144, 0))
}

func TestOrdinalScoreResolutionClasses(t *testing.T) {
	assert.Equal(t, 2.5, ordinalScore(2.5, ResolutionQHD, ResolutionQHD))
	assert.Greater(t, ordinalScore(2.5, ResolutionQHD, ResolutionUHD), 2.5)
	assert.Zero(t, ordinalScore(2.5, ResolutionQHD, ResolutionFHD))
	assert.Zero(t, ordinalScore(2.5, ResolutionQHD, ResolutionUnknown))
}

func TestRankPrefersNearBandUpgradeOverExactMatch(t *testing.T) {
	m := NewGamingMonitorMatcher()
	query := "gaming monitor 144Hz 27 inch QHD"
	candidates := []models.Product{
		{ASIN: "B0EXACT001", Title: `27" 144Hz QHD gaming monitor`},
		{ASIN: "B0FASTER01", Title: `27" 165Hz QHD gaming monitor`},
	}
	ranked := m.Rank(query, candidates)
	require.Len(t, ranked, 2)
	assert.Equal(t, "B0FASTER01", ranked[0].ASIN)

	winner := m.Explain(query, ranked[0].Title)
	runnerUp := m.Explain(query, ranked[1].Title)
	assert.Equal(t, FlagUpgrade, flagFor(t, winner, "refresh_rate"))
	assert.Equal(t, FlagMatch, flagFor(t, runnerUp, "refresh_rate"))
}

func flagFor(t *testing.T, explanations []Explanation, feature string) MatchFlag {
	t.Helper()
	for _, e := range explanations {
		if e.Feature == feature {
			return e.Flag
		}
	}
	t.Fatalf("no explanation for feature %s", feature)
	return ""
}

func TestRankIsDeterministicAcrossRuns(t *testing.T) {
	m := NewGamingMonitorMatcher()
	candidates := []models.Product{
		{ASIN: "B0CCCCCCCC", Title: "27 inch 144Hz QHD monitor", Price: 2_000_000},
		{ASIN: "B0AAAAAAAA", Title: "27 inch 144Hz QHD monitor", Price: 2_000_000},
		{ASIN: "B0BBBBBBBB", Title: "27 inch 144Hz QHD monitor", Price: 2_000_000},
	}
	first := m.Rank("144Hz 27 inch QHD monitor", candidates)
	for i := 0; i < 5; i++ {
		again := m.Rank("144Hz 27 inch QHD monitor", candidates)
		require.Equal(t, first, again)
	}
	// Identical on every feature and price, so ASIN order decides.
	assert.Equal(t, "B0AAAAAAAA", first[0].ASIN)
}

func TestRankTieBreaksOnPriceWhenScoresAndSpecsTie(t *testing.T) {
	m := NewGamingMonitorMatcher()
	candidates := []models.Product{
		{ASIN: "Z999", Title: "monitor", Price: 2000000, ReviewCount: 10},
		{ASIN: "A111", Title: "monitor", Price: 1500000, ReviewCount: 10},
	}
	// Neither candidate has an extractable feature matching the query, so
	// both score 0 and the tie-break on price must decide the order.
	ranked := m.Rank("gaming monitor", candidates)
	require.Len(t, ranked, 2)
	assert.Equal(t, "A111", ranked[0].ASIN)
}

func TestCategoricalPanelTypeAllowsCompatibleUpgradeNotArbitrarySwap(t *testing.T) {
	assert.Greater(t, categoricalPanelScore(1.5, "TN", "IPS"), 0.0)
	assert.Equal(t, 0.0, categoricalPanelScore(1.5, "IPS", "TN"))
}

func TestExplainReportsUpgradeAndMissFlags(t *testing.T) {
	m := NewGamingMonitorMatcher()
	explanations := m.Explain("165Hz IPS monitor", "180Hz TN panel monitor")
	require.NotEmpty(t, explanations)

	var refresh, panel *Explanation
	for i := range explanations {
		switch explanations[i].Feature {
		case "refresh_rate":
			refresh = &explanations[i]
		case "panel_type":
			panel = &explanations[i]
		}
	}
	require.NotNil(t, refresh)
	assert.Equal(t, FlagUpgrade, refresh.Flag)
	require.NotNil(t, panel)
	assert.Equal(t, FlagMiss, panel.Flag)
}
