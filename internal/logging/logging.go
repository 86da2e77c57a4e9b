package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// contextKey is a type for context keys
type contextKey string

const (
	// WatchIDKey is the context key for the watch a log line concerns
	WatchIDKey contextKey = "watch_id"
	// UserIDKey is the context key for the watch-owning user
	UserIDKey contextKey = "user_id"
	// ASINKey is the context key for the product a log line concerns
	ASINKey contextKey = "asin"
)

// Config holds logging configuration
type Config struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json" or "text"
	Output io.Writer
}

// Setup configures the global logger
func Setup(cfg Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	// Wrap with context handler
	handler = &ContextHandler{Handler: handler}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// ContextHandler adds context values to log records
type ContextHandler struct {
	slog.Handler
}

// Handle adds context values to the record before passing to the wrapped handler
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if watchID, ok := ctx.Value(WatchIDKey).(string); ok && watchID != "" {
		r.AddAttrs(slog.String("watch_id", watchID))
	}
	if userID, ok := ctx.Value(UserIDKey).(int64); ok && userID != 0 {
		r.AddAttrs(slog.Int64("user_id", userID))
	}
	if asin, ok := ctx.Value(ASINKey).(string); ok && asin != "" {
		r.AddAttrs(slog.String("asin", asin))
	}

	return h.Handler.Handle(ctx, r)
}

// WithWatchID adds a watch ID to the context
func WithWatchID(ctx context.Context, watchID string) context.Context {
	return context.WithValue(ctx, WatchIDKey, watchID)
}

// WithUserID adds a user ID to the context
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithASIN adds an ASIN to the context
func WithASIN(ctx context.Context, asin string) context.Context {
	return context.WithValue(ctx, ASINKey, asin)
}

// Logger returns a logger with additional context
func Logger(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	var attrs []any
	if watchID, ok := ctx.Value(WatchIDKey).(string); ok && watchID != "" {
		attrs = append(attrs, "watch_id", watchID)
	}
	if userID, ok := ctx.Value(UserIDKey).(int64); ok && userID != 0 {
		attrs = append(attrs, "user_id", userID)
	}
	if asin, ok := ctx.Value(ASINKey).(string); ok && asin != "" {
		attrs = append(attrs, "asin", asin)
	}

	if len(attrs) > 0 {
		return logger.With(attrs...)
	}
	return logger
}

// Audit logs an audit event (always logged regardless of level), for
// operationally significant events: a watch created, a no-match outcome,
// a circuit breaker opening, a scrape fallback invoked.
func Audit(ctx context.Context, operation string, attrs ...any) {
	logger := slog.Default()

	baseAttrs := []any{
		"audit", true,
		"operation", operation,
	}

	if watchID, ok := ctx.Value(WatchIDKey).(string); ok && watchID != "" {
		baseAttrs = append(baseAttrs, "watch_id", watchID)
	}
	if userID, ok := ctx.Value(UserIDKey).(int64); ok && userID != 0 {
		baseAttrs = append(baseAttrs, "user_id", userID)
	}
	if asin, ok := ctx.Value(ASINKey).(string); ok && asin != "" {
		baseAttrs = append(baseAttrs, "asin", asin)
	}

	baseAttrs = append(baseAttrs, attrs...)

	// Hand the record to the handler directly: Logger.Info would drop it
	// whenever the configured level is above Info.
	r := slog.NewRecord(time.Now(), slog.LevelInfo, "AUDIT", 0)
	r.Add(baseAttrs...)
	_ = logger.Handler().Handle(context.Background(), r)
}

// Common log operations with context

// Debug logs a debug message
func Debug(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Debug(msg, args...)
}

// Info logs an info message
func Info(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Info(msg, args...)
}

// Warn logs a warning message
func Warn(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Warn(msg, args...)
}

// Error logs an error message
func Error(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Error(msg, args...)
}
