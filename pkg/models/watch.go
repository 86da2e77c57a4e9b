package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// WatchMode determines which scheduler job family owns a watch.
type WatchMode string

const (
	// ModeDaily fires once per day at the configured local digest time.
	ModeDaily WatchMode = "daily"
	// ModeRealtime fires every poll interval, subject to quiet hours.
	ModeRealtime WatchMode = "realtime"
)

// PriceSource identifies where a price observation or cache entry came from.
type PriceSource string

const (
	SourceAPI    PriceSource = "api"
	SourceScrape PriceSource = "scrape"
)

// ErrInvalidWatch is wrapped by specific validation failures returned from
// Watch.Validate, so callers can errors.Is against the general condition.
var ErrInvalidWatch = errors.New("invalid watch")

// Watch is a user's standing query against the marketplace. It is
// immutable except for Mode, which the Scheduler treats as a deregister+
// register transition (see internal/service/scheduler).
type Watch struct {
	ID           string
	UserID       int64
	Keywords     string
	Brand        string
	MaxPrice     Paise // 0 means unset
	MinDiscount  int   // percentage, 1-99; 0 means unset
	ASIN         string
	Mode         WatchMode
	CreatedAt    time.Time
}

// HasMaxPrice reports whether the watch constrains price.
func (w *Watch) HasMaxPrice() bool { return w.MaxPrice > 0 }

// HasMinDiscount reports whether the watch constrains discount.
func (w *Watch) HasMinDiscount() bool { return w.MinDiscount > 0 }

// HasBrand reports whether the watch constrains brand.
func (w *Watch) HasBrand() bool { return w.Brand != "" }

// HasASIN reports whether the watch pins a specific product.
func (w *Watch) HasASIN() bool { return w.ASIN != "" }

// Validate reports whether the watch is well formed: at least one of
// keywords or ASIN must be set, price and discount constraints must be
// non-zero and in range when present, and a set ASIN must be a valid
// 10-character uppercase alphanumeric token.
func (w *Watch) Validate() error {
	if strings.TrimSpace(w.Keywords) == "" && w.ASIN == "" {
		return fmt.Errorf("%w: at least one of keywords or ASIN is required", ErrInvalidWatch)
	}
	if w.ASIN != "" && !IsValidASIN(w.ASIN) {
		return fmt.Errorf("%w: ASIN %q is not a valid 10-character uppercase alphanumeric token", ErrInvalidWatch, w.ASIN)
	}
	if w.MaxPrice < 0 {
		return fmt.Errorf("%w: max price must be positive", ErrInvalidWatch)
	}
	if w.MinDiscount < 0 || w.MinDiscount > 99 {
		return fmt.Errorf("%w: min discount must be between 1 and 99", ErrInvalidWatch)
	}
	if w.Mode != ModeDaily && w.Mode != ModeRealtime {
		return fmt.Errorf("%w: mode must be daily or realtime", ErrInvalidWatch)
	}
	return nil
}

// IsValidASIN reports whether s is a 10-character uppercase alphanumeric
// ASIN token.
func IsValidASIN(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

// PriceObservation is an append-only record of an observed price for a
// watch's chosen ASIN. Never mutated after insert.
type PriceObservation struct {
	ID        int64
	WatchID   string
	ASIN      string
	Price     Paise
	Source    PriceSource
	FetchedAt time.Time
}

// Click is an append-only record created when a user follows a delivered
// card's outbound link.
type Click struct {
	ID        int64
	WatchID   string
	ASIN      string
	ClickedAt time.Time
}

// User is identified by an opaque external chat user id. Immutable once
// created; holds no PII beyond that id.
type User struct {
	ID        int64
	CreatedAt time.Time
}
