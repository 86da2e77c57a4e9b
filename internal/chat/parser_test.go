package chat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandimonitor/core/pkg/models"
)

func TestParse_KeywordsOnly(t *testing.T) {
	p, err := Parse("gaming monitor 144hz")
	require.NoError(t, err)
	assert.Equal(t, "gaming monitor 144hz", p.Keywords)
	assert.Empty(t, p.ASIN)
}

func TestParse_ASINOnly(t *testing.T) {
	p, err := Parse("B08X4FBVXY")
	require.NoError(t, err)
	assert.Equal(t, "B08X4FBVXY", p.ASIN)
	assert.Empty(t, p.Keywords)
}

func TestParse_FullCombination(t *testing.T) {
	p, err := Parse("samsung gaming monitor under 50k with 20% off")
	require.NoError(t, err)
	assert.Equal(t, "samsung", p.Brand)
	assert.Equal(t, models.Rupees(50_000).ToPaise(), p.MaxPrice)
	assert.Equal(t, 20, p.MinDiscount)
	assert.Contains(t, p.Keywords, "gaming")
	assert.Contains(t, p.Keywords, "monitor")
}

func TestParse_RupeeMarkerVariants(t *testing.T) {
	cases := []string{
		"monitor under ₹50,000",
		"monitor under rs. 50000",
		"monitor under INR 50000",
	}
	for _, text := range cases {
		p, err := Parse(text)
		require.NoError(t, err, text)
		assert.Equal(t, models.Paise(5_000_000), p.MaxPrice, text)
	}
}

func TestParse_BareNumberNotTreatedAsPrice(t *testing.T) {
	p, err := Parse("dell s2721 monitor")
	require.NoError(t, err)
	assert.Zero(t, p.MaxPrice)
	assert.Contains(t, p.Keywords, "2721")
}

func TestParse_EmptyMessageFails(t *testing.T) {
	_, err := Parse("   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParseFailure))
}

func TestParse_NoKeywordsOrASINFails(t *testing.T) {
	_, err := Parse("50k 20%")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParseFailure))
}

func TestParsePriceText_RoundTrip(t *testing.T) {
	cases := []string{"50k", "50000", "₹50,000", "rs. 50000", "INR 50000"}
	for _, text := range cases {
		got, ok := ParsePriceText(text)
		require.True(t, ok, text)
		assert.Equal(t, models.Paise(5_000_000), got, text)
	}
}

func TestParsePriceText_Invalid(t *testing.T) {
	_, ok := ParsePriceText("not a price")
	assert.False(t, ok)

	_, ok = ParsePriceText("0")
	assert.False(t, ok)
}

func TestParseDiscountText_Variants(t *testing.T) {
	cases := map[string]int{
		"20%":        20,
		"20":         20,
		"20 percent": 20,
		"5 per cent": 5,
	}
	for text, want := range cases {
		got, ok := ParseDiscountText(text)
		require.True(t, ok, text)
		assert.Equal(t, want, got, text)
	}
}

func TestParseDiscountText_OutOfRange(t *testing.T) {
	_, ok := ParseDiscountText("150")
	assert.False(t, ok)

	_, ok = ParseDiscountText("0")
	assert.False(t, ok)
}

func TestParsedWatch_Validate_PreParsedShape(t *testing.T) {
	valid := ParsedWatch{Keywords: "gaming monitor", MaxPrice: 25_000_00, MinDiscount: 10}
	assert.NoError(t, valid.Validate())

	noKeywordsOrASIN := ParsedWatch{MaxPrice: 25_000_00}
	err := noKeywordsOrASIN.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParseFailure))

	badASIN := ParsedWatch{ASIN: "tooshort"}
	assert.Error(t, badASIN.Validate())

	badDiscount := ParsedWatch{Keywords: "monitor", MinDiscount: 150}
	assert.Error(t, badDiscount.Validate())
}
