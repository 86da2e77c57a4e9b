package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandimonitor/core/pkg/models"
)

// recordingOutbound captures deliveries for assertions.
type recordingOutbound struct {
	mu      sync.Mutex
	digests []Digest
}

func (o *recordingOutbound) Deliver(ctx context.Context, userID int64, card models.CardResult) error {
	return nil
}

func (o *recordingOutbound) DeliverNoMatch(ctx context.Context, userID int64, message NoMatchMessage) error {
	return nil
}

func (o *recordingOutbound) DeliverDigest(ctx context.Context, digest Digest) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.digests = append(o.digests, digest)
	return nil
}

func (o *recordingOutbound) delivered() []Digest {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Digest, len(o.digests))
	copy(out, o.digests)
	return out
}

func cardWithDiscount(asin string, discount int) models.CardResult {
	return models.CardResult{ASIN: asin, DiscountPct: discount}
}

func TestDigestFlushRanksByDiscountAndCapsAtFive(t *testing.T) {
	out := &recordingOutbound{}
	b := NewDigestBuilder(out)

	discounts := []int{5, 40, 15, 25, 35, 10, 30}
	for i, d := range discounts {
		b.Add(7, cardWithDiscount(string(rune('A'+i)), d))
	}

	require.NoError(t, b.Flush(context.Background()))

	delivered := out.delivered()
	require.Len(t, delivered, 1)
	assert.Equal(t, int64(7), delivered[0].UserID)
	require.Len(t, delivered[0].Cards, MaxDigestCards)

	got := make([]int, 0, MaxDigestCards)
	for _, c := range delivered[0].Cards {
		got = append(got, c.DiscountPct)
	}
	assert.Equal(t, []int{40, 35, 30, 25, 15}, got)
}

func TestDigestFlushGroupsPerUser(t *testing.T) {
	out := &recordingOutbound{}
	b := NewDigestBuilder(out)

	b.Add(1, cardWithDiscount("A", 10))
	b.Add(2, cardWithDiscount("B", 20))
	b.Add(1, cardWithDiscount("C", 30))

	require.NoError(t, b.Flush(context.Background()))

	delivered := out.delivered()
	require.Len(t, delivered, 2)
	byUser := map[int64]int{}
	for _, d := range delivered {
		byUser[d.UserID] = len(d.Cards)
	}
	assert.Equal(t, 2, byUser[1])
	assert.Equal(t, 1, byUser[2])
}

func TestDigestFlushDrainsBuffer(t *testing.T) {
	out := &recordingOutbound{}
	b := NewDigestBuilder(out)

	b.Add(1, cardWithDiscount("A", 10))
	require.NoError(t, b.Flush(context.Background()))
	assert.Zero(t, b.Pending())

	// A second flush with nothing buffered delivers nothing.
	require.NoError(t, b.Flush(context.Background()))
	assert.Len(t, out.delivered(), 1)
}

func TestDigestSettleTimerFlushesAutomatically(t *testing.T) {
	out := &recordingOutbound{}
	b := NewDigestBuilder(out, WithSettleWindow(20*time.Millisecond))

	b.Add(9, cardWithDiscount("A", 10))

	assert.Eventually(t, func() bool {
		return len(out.delivered()) == 1 && b.Pending() == 0
	}, time.Second, 10*time.Millisecond)
}
