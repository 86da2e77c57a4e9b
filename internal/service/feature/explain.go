package feature

import (
	"fmt"
	"math"
)

// MatchFlag classifies how a single feature compared between what a query
// asked for and what a candidate offered.
type MatchFlag string

const (
	FlagMatch     MatchFlag = "match"
	FlagNearMatch MatchFlag = "near_match"
	FlagUpgrade   MatchFlag = "upgrade"
	FlagMiss      MatchFlag = "miss"
)

// Explanation is a single feature's contribution to a match, in a form a
// chat adapter can render directly (e.g. "165Hz refresh rate (upgrade)").
type Explanation struct {
	Feature string
	Flag    MatchFlag
	Detail  string
}

// Explain produces the ordered, human-readable reasons a candidate matched
// query, for CardResult.Explanation. Only features present in the query are
// reported, in the same weighted order used for scoring.
func (m *GamingMonitorMatcher) Explain(query string, candidateText string) []Explanation {
	want := m.extractCached(query)
	got := m.extractCached(candidateText)

	var out []Explanation
	if want.RefreshRate > 0 {
		out = append(out, explainMonotone("refresh_rate", float64(want.RefreshRate), float64(got.RefreshRate),
			fmt.Sprintf("%dHz", got.RefreshRate)))
	}
	if want.Resolution != ResolutionUnknown {
		out = append(out, explainResolution(want.Resolution, got.Resolution))
	}
	if want.Size > 0 {
		out = append(out, explainMonotone("size", want.Size, got.Size, fmt.Sprintf("%.0f\"", got.Size)))
	}
	if want.PanelType != "" {
		out = append(out, explainPanel(want.PanelType, got.PanelType))
	}
	if want.Curvature != "" {
		out = append(out, explainCategorical("curvature", want.Curvature, got.Curvature))
	}
	if want.Brand != "" {
		out = append(out, explainCategorical("brand", want.Brand, got.Brand))
	}
	return out
}

func explainMonotone(feature string, want, got float64, label string) Explanation {
	switch {
	case got <= 0:
		return Explanation{Feature: feature, Flag: FlagMiss, Detail: feature + " not listed"}
	case got > want:
		return Explanation{Feature: feature, Flag: FlagUpgrade, Detail: label + " exceeds request"}
	case got == want:
		return Explanation{Feature: feature, Flag: FlagMatch, Detail: label + " matches request"}
	case math.Abs(got-want)/want < zeroScoreBand:
		return Explanation{Feature: feature, Flag: FlagNearMatch, Detail: label + " close to request"}
	default:
		return Explanation{Feature: feature, Flag: FlagMiss, Detail: label + " well below request"}
	}
}

func explainResolution(want, got ResolutionClass) Explanation {
	switch {
	case got == ResolutionUnknown:
		return Explanation{Feature: "resolution", Flag: FlagMiss, Detail: "resolution not listed"}
	case got == want:
		return Explanation{Feature: "resolution", Flag: FlagMatch, Detail: resolutionLabel(got) + " matches request"}
	case got > want:
		return Explanation{Feature: "resolution", Flag: FlagUpgrade, Detail: resolutionLabel(got) + " exceeds request"}
	default:
		return Explanation{Feature: "resolution", Flag: FlagMiss, Detail: resolutionLabel(got) + " below request"}
	}
}

func explainPanel(want, got string) Explanation {
	if got == "" {
		return Explanation{Feature: "panel_type", Flag: FlagMiss, Detail: "panel type not listed"}
	}
	if want == got {
		return Explanation{Feature: "panel_type", Flag: FlagMatch, Detail: got + " panel"}
	}
	if wr, wok := panelRank[want]; wok {
		if gr, gok := panelRank[got]; gok && gr > wr {
			return Explanation{Feature: "panel_type", Flag: FlagUpgrade, Detail: got + " panel exceeds " + want}
		}
	}
	return Explanation{Feature: "panel_type", Flag: FlagMiss, Detail: got + " panel does not match " + want}
}

func explainCategorical(feature, want, got string) Explanation {
	if got == "" {
		return Explanation{Feature: feature, Flag: FlagMiss, Detail: feature + " not listed"}
	}
	if want == got {
		return Explanation{Feature: feature, Flag: FlagMatch, Detail: got}
	}
	return Explanation{Feature: feature, Flag: FlagMiss, Detail: got + " does not match " + want}
}

func resolutionLabel(r ResolutionClass) string {
	switch r {
	case ResolutionFHD:
		return "FHD"
	case ResolutionQHD:
		return "QHD"
	case ResolutionUHD:
		return "UHD"
	default:
		return "unknown resolution"
	}
}
