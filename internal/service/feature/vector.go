package feature

import (
	"regexp"
	"strconv"
	"strings"
)

// ResolutionClass orders monitor resolutions so "better" is comparable
// like a numeric feature: FHD < QHD < UHD.
type ResolutionClass int

const (
	ResolutionUnknown ResolutionClass = iota
	ResolutionFHD
	ResolutionQHD
	ResolutionUHD
)

// Vector is the typed feature set extracted from either a user query or a
// candidate's title, features text, and technical info.
type Vector struct {
	RefreshRate int // Hz, 0 if absent
	Size        float64
	Resolution  ResolutionClass
	Curvature   string // "flat", "curved", or "" if absent
	PanelType   string // "TN", "IPS", "VA", "OLED", or ""
	Brand       string
}

// ExtractedCount reports how many distinct features were found, used by
// the "technical query" heuristic.
func (v Vector) ExtractedCount() int {
	n := 0
	if v.RefreshRate > 0 {
		n++
	}
	if v.Size > 0 {
		n++
	}
	if v.Resolution != ResolutionUnknown {
		n++
	}
	if v.Curvature != "" {
		n++
	}
	if v.PanelType != "" {
		n++
	}
	if v.Brand != "" {
		n++
	}
	return n
}

var (
	refreshRateRe = regexp.MustCompile(`(?i)(\d{2,3})\s*(?:hz|fps)\b`)
	sizeRe        = regexp.MustCompile(`(?i)(\d{2})\s*(?:"|-inch\b|inch\b|in\b)`)
	panelTypeRe   = regexp.MustCompile(`(?i)\b(TN|IPS|VA|OLED)\b`)
	curvedRe      = regexp.MustCompile(`(?i)\bcurved\b`)
	flatRe        = regexp.MustCompile(`(?i)\bflat\b`)

	marketingWords = []string{"stunning", "immersive", "cinematic", "eye-care"}

	// curatedBrands is the brand vocabulary for the bundled gaming-monitor
	// category. Any other all-caps token is also accepted as a brand hit
	// by extractBrand's fallback.
	curatedBrands = []string{
		"samsung", "lg", "dell", "acer", "asus", "benq", "msi", "viewsonic",
		"aoc", "zowie", "alienware", "hp", "lenovo", "philips", "gigabyte",
	}
)

// extract parses a Vector out of free text (a user query or a candidate's
// concatenated title/features/technical-info text).
func extract(text string) Vector {
	clean := stripMarketingWords(text)

	var v Vector
	if m := refreshRateRe.FindStringSubmatch(clean); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			v.RefreshRate = n
		}
	}
	if m := sizeRe.FindStringSubmatch(clean); m != nil {
		if n, err := strconv.ParseFloat(m[1], 64); err == nil && n >= 15 && n <= 65 {
			v.Size = n
		}
	}
	v.Resolution = extractResolution(clean)
	if curvedRe.MatchString(clean) {
		v.Curvature = "curved"
	} else if flatRe.MatchString(clean) {
		v.Curvature = "flat"
	}
	if m := panelTypeRe.FindStringSubmatch(clean); m != nil {
		v.PanelType = strings.ToUpper(m[1])
	}
	v.Brand = extractBrand(clean)

	return v
}

func extractResolution(text string) ResolutionClass {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "4k"), strings.Contains(lower, "2160p"), strings.Contains(lower, "uhd"):
		return ResolutionUHD
	case strings.Contains(lower, "1440p"), strings.Contains(lower, "wqhd"), strings.Contains(lower, "qhd"):
		return ResolutionQHD
	case strings.Contains(lower, "1080p"), strings.Contains(lower, "fhd"), strings.Contains(lower, "full hd"):
		return ResolutionFHD
	default:
		return ResolutionUnknown
	}
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
		if len(trimmed) >= 3 && trimmed == strings.ToUpper(trimmed) && strings.ToLower(trimmed) != trimmed {
			return strings.ToLower(trimmed)
		}
	}
	return ""
}

func stripMarketingWords(text string) string {
	out := text
	for _, word := range marketingWords {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
		out = re.ReplaceAllString(out, "")
	}
	return out
}
