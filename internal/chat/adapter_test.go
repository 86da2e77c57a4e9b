package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandimonitor/core/pkg/models"
)

func TestBuildOutboundURL(t *testing.T) {
	url := BuildOutboundURL("www.amazon.in", "B0ABC12345", "mandi-21")
	assert.Equal(t, "https://www.amazon.in/dp/B0ABC12345?tag=mandi-21&linkCode=ogi&th=1&psc=1", url)
}

func TestBuildCardCarriesProductFields(t *testing.T) {
	product := models.Product{
		ASIN:      "B0ABC12345",
		Title:     "27 inch 165Hz QHD monitor",
		Price:     25_000_00,
		ListPrice: 30_000_00,
		ImageURL:  "https://img.example/monitor.jpg",
	}
	card := BuildCard("w1", product, "www.amazon.in", "mandi-21", []string{"165Hz exceeds request"})

	assert.Equal(t, "w1", card.WatchID)
	assert.Equal(t, models.Paise(25_000_00), card.Price)
	assert.Equal(t, models.Paise(30_000_00), card.ListPrice)
	assert.Equal(t, 16, card.DiscountPct)
	assert.Equal(t, "https://img.example/monitor.jpg", card.ImageURL)
	assert.Contains(t, card.ClickURL, "/dp/B0ABC12345?tag=mandi-21")
	assert.Equal(t, []string{"165Hz exceeds request"}, card.Explanation)
}

func TestBuildCardPreservesEmptyImageURL(t *testing.T) {
	card := BuildCard("w1", models.Product{ASIN: "B0ABC12345"}, "www.amazon.in", "mandi-21", nil)
	assert.Empty(t, card.ImageURL)
}

func TestClickTokenRoundTrip(t *testing.T) {
	token := BuildClickToken("4f3a2c1d", "B0ABC12345")

	watchID, asin, err := ParseClickToken(token)
	require.NoError(t, err)
	assert.Equal(t, "4f3a2c1d", watchID)
	assert.Equal(t, "B0ABC12345", asin)
}

func TestParseClickTokenRejectsMalformed(t *testing.T) {
	for _, token := range []string{"", "noseparator", ":B0ABC12345", "w1:"} {
		_, _, err := ParseClickToken(token)
		assert.ErrorIs(t, err, ErrParseFailure, "token %q", token)
	}
}

func TestNewNoMatchMessageNamesTheConstraint(t *testing.T) {
	watch := &models.Watch{
		MaxPrice:    25_000_00,
		Brand:       "Samsung",
		MinDiscount: 30,
	}

	budget := NewNoMatchMessage(models.StageBudget, watch)
	assert.Contains(t, budget.Explanation, "₹25000.00")
	assert.NotEmpty(t, budget.Suggestion)

	brand := NewNoMatchMessage(models.StageBrand, watch)
	assert.Contains(t, brand.Explanation, "Samsung")

	discount := NewNoMatchMessage(models.StageDiscount, watch)
	assert.Contains(t, discount.Explanation, "30%")
}

func TestResolvePrefersPreParsedAndValidatesIt(t *testing.T) {
	pre := &ParsedWatch{Keywords: "gaming monitor"}
	event := InboundEvent{UserID: 7, RawText: "ignored", PreParsed: pre}

	got, err := event.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "gaming monitor", got.Keywords)
}
