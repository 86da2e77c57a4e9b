package chat

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mandimonitor/core/pkg/models"
)

const (
	// MaxDigestCards caps a daily digest at five cards per user, ranked by
	// discount across that user's watches.
	MaxDigestCards = 5
	// DefaultSettleWindow is how long after the last added card the builder
	// waits before flushing. Every daily job fires at the same digest time
	// and is bounded to the job timeout, so by the time the window elapses
	// all of a user's daily runs have either contributed a card or failed.
	DefaultSettleWindow = 5 * time.Minute
	// flushTimeout bounds the outbound deliveries of a timer-driven flush.
	flushTimeout = 30 * time.Second
)

// DigestBuilder accumulates the cards produced by a user's daily watch runs
// and delivers them as a single digest once the day's runs settle. Real-time
// runs bypass it entirely and deliver immediately.
type DigestBuilder struct {
	outbound Outbound
	logger   *slog.Logger
	settle   time.Duration

	mu    sync.Mutex
	cards map[int64][]models.CardResult
	timer *time.Timer
}

// DigestOption configures a DigestBuilder.
type DigestOption func(*DigestBuilder)

func WithDigestLogger(logger *slog.Logger) DigestOption {
	return func(b *DigestBuilder) { b.logger = logger }
}

// WithSettleWindow overrides how long the builder waits after the last
// added card before flushing.
func WithSettleWindow(d time.Duration) DigestOption {
	return func(b *DigestBuilder) { b.settle = d }
}

// NewDigestBuilder builds a DigestBuilder that delivers through outbound.
func NewDigestBuilder(outbound Outbound, opts ...DigestOption) *DigestBuilder {
	b := &DigestBuilder{
		outbound: outbound,
		logger:   slog.Default(),
		settle:   DefaultSettleWindow,
		cards:    make(map[int64][]models.CardResult),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add buffers a daily run's card for userID and (re)arms the settle timer.
func (b *DigestBuilder) Add(userID int64, card models.CardResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cards[userID] = append(b.cards[userID], card)
	if b.timer == nil {
		b.timer = time.AfterFunc(b.settle, b.flushExpired)
	} else {
		b.timer.Reset(b.settle)
	}
}

func (b *DigestBuilder) flushExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := b.Flush(ctx); err != nil {
		b.logger.Error("digest flush failed", slog.String("error", err.Error()))
	}
}

// Flush delivers every pending digest now: per user, cards sorted by
// discount descending and capped at MaxDigestCards. The buffer is drained
// before delivery starts, so a failed delivery drops that user's batch
// rather than redelivering it on the next flush.
func (b *DigestBuilder) Flush(ctx context.Context) error {
	b.mu.Lock()
	pending := b.cards
	b.cards = make(map[int64][]models.CardResult)
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	var firstErr error
	for userID, cards := range pending {
		sort.SliceStable(cards, func(i, j int) bool {
			return cards[i].DiscountPct > cards[j].DiscountPct
		})
		if len(cards) > MaxDigestCards {
			cards = cards[:MaxDigestCards]
		}
		if err := b.outbound.DeliverDigest(ctx, Digest{UserID: userID, Cards: cards}); err != nil {
			b.logger.Error("digest delivery failed",
				slog.Int64("user_id", userID), slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Pending reports how many users currently have buffered cards.
func (b *DigestBuilder) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.cards)
}
