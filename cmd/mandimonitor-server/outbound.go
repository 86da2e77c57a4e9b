package main

import (
	"context"
	"log/slog"

	"github.com/mandimonitor/core/internal/chat"
	"github.com/mandimonitor/core/internal/metrics"
	"github.com/mandimonitor/core/pkg/models"
)

// loggingOutbound is a placeholder chat.Outbound: the real chat transport
// (command routing, carousel rendering, retries) is an external
// collaborator and lives in its own process. This implementation only logs
// what would have been delivered, so the core can run and be exercised
// end-to-end before a transport is wired up against it.
type loggingOutbound struct {
	logger *slog.Logger
}

func newLoggingOutbound(logger *slog.Logger) *loggingOutbound {
	return &loggingOutbound{logger: logger}
}

func (o *loggingOutbound) Deliver(ctx context.Context, userID int64, card models.CardResult) error {
	o.logger.Info("card ready for delivery",
		slog.Int64("user_id", userID),
		slog.String("asin", card.ASIN),
		slog.String("title", card.Title),
		slog.Int64("price_paise", int64(card.Price)))
	return nil
}

func (o *loggingOutbound) DeliverNoMatch(ctx context.Context, userID int64, message chat.NoMatchMessage) error {
	o.logger.Info("no-match outcome ready for delivery",
		slog.Int64("user_id", userID),
		slog.String("stage", string(message.Stage)),
		slog.String("explanation", message.Explanation))
	return nil
}

func (o *loggingOutbound) DeliverDigest(ctx context.Context, digest chat.Digest) error {
	o.logger.Info("digest ready for delivery",
		slog.Int64("user_id", digest.UserID),
		slog.Int("cards", len(digest.Cards)))
	metrics.RecordChatDelivery("digest", "ok")
	return nil
}
