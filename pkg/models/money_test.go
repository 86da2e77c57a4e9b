package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRupeePaiseRoundTrip(t *testing.T) {
	for _, r := range []Rupees{0, 1, 499, 50_000, 9_999_999} {
		assert.Equal(t, r, r.ToPaise().ToRupees())
	}
}

func TestToPaiseMultipliesByHundred(t *testing.T) {
	assert.Equal(t, Paise(5_000_000), Rupees(50_000).ToPaise())
}

func TestToRupeesTruncatesFractionalPaise(t *testing.T) {
	assert.Equal(t, Rupees(12), Paise(1299).ToRupees())
}

func TestPaiseString(t *testing.T) {
	assert.Equal(t, "₹1234.50", Paise(123450).String())
	assert.Equal(t, "₹0.05", Paise(5).String())
}

func TestPaiseValid(t *testing.T) {
	assert.False(t, Paise(0).Valid())
	assert.False(t, Paise(-100).Valid())
	assert.True(t, Paise(1).Valid())
	assert.True(t, Paise(9_999_999_999).Valid())
	assert.False(t, Paise(10_000_000_000).Valid())
}
