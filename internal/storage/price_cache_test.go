package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandimonitor/core/pkg/models"
)

func TestPriceCacheStore_GetMiss(t *testing.T) {
	db := newTestDB(t)
	store := NewPriceCacheStore(db)

	entry, err := store.Get(context.Background(), "B000000001")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestPriceCacheStore_UpsertAndGet(t *testing.T) {
	db := newTestDB(t)
	store := NewPriceCacheStore(db)

	now := time.Now().Truncate(time.Second)
	entry := models.PriceCacheEntry{
		ASIN:       "B000000001",
		Price:      2_500_000,
		Source:     models.SourceAPI,
		FetchedAt:  now,
		StaleUntil: now.Add(24 * time.Hour),
	}
	require.NoError(t, store.Upsert(context.Background(), entry))

	got, err := store.Get(context.Background(), "B000000001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.Price, got.Price)
	assert.Equal(t, entry.Source, got.Source)
}

func TestPriceCacheStore_UpsertReplaces(t *testing.T) {
	db := newTestDB(t)
	store := NewPriceCacheStore(db)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	require.NoError(t, store.Upsert(ctx, models.PriceCacheEntry{
		ASIN: "B000000001", Price: 1000_00, Source: models.SourceAPI,
		FetchedAt: now, StaleUntil: now.Add(time.Hour),
	}))
	require.NoError(t, store.Upsert(ctx, models.PriceCacheEntry{
		ASIN: "B000000001", Price: 900_00, Source: models.SourceScrape,
		FetchedAt: now, StaleUntil: now.Add(time.Hour),
	}))

	got, err := store.Get(ctx, "B000000001")
	require.NoError(t, err)
	assert.Equal(t, models.Paise(900_00), got.Price)
	assert.Equal(t, models.SourceScrape, got.Source)
}

func TestPriceCacheStore_UpsertRejectsNonPositivePrice(t *testing.T) {
	db := newTestDB(t)
	store := NewPriceCacheStore(db)
	now := time.Now()

	err := store.Upsert(context.Background(), models.PriceCacheEntry{
		ASIN: "B000000001", Price: 0, Source: models.SourceAPI,
		FetchedAt: now, StaleUntil: now.Add(time.Hour),
	})
	assert.Error(t, err)
}

func TestPriceCacheEntry_IsFresh(t *testing.T) {
	now := time.Now()
	entry := models.PriceCacheEntry{FetchedAt: now.Add(-time.Hour), StaleUntil: now.Add(23 * time.Hour)}
	assert.True(t, entry.IsFresh(now))

	stale := models.PriceCacheEntry{FetchedAt: now.Add(-25 * time.Hour), StaleUntil: now.Add(-time.Hour)}
	assert.False(t, stale.IsFresh(now))
}
