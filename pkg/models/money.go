// Package models holds the persistent entities and value types shared
// across the watch-evaluation pipeline: users, watches, price observations,
// clicks, and the price cache.
package models

import "fmt"

// Paise is an integer amount in paise, the store's minor currency unit
// (1/100 of a rupee). All internal price arithmetic and comparisons use
// Paise; a Rupees value only exists at the chat and display boundaries.
// The distinct type exists so that comparing a Paise to a Rupees value is
// a compile error rather than a silent factor-of-100 bug.
type Paise int64

// Rupees is a whole-rupee amount, used only at input/display boundaries.
type Rupees int64

// ToPaise converts a rupee amount to paise. This is the only place user
// or display-facing rupee amounts become paise.
func (r Rupees) ToPaise() Paise {
	return Paise(r * 100)
}

// ToRupees converts a paise amount back to whole rupees, truncating any
// fractional paise. This is the only place paise becomes a rupee amount
// for display.
func (p Paise) ToRupees() Rupees {
	return Rupees(p / 100)
}

// String renders the amount as a rupee string with two decimal places,
// e.g. "₹1234.50". Used for user-visible templated messages.
func (p Paise) String() string {
	rupees := p / 100
	paise := p % 100
	if paise < 0 {
		paise = -paise
	}
	return fmt.Sprintf("₹%d.%02d", rupees, paise)
}

// Valid reports whether a price is a sane positive amount below the
// absurd-price ceiling, suitable for a cache write or observation insert.
func (p Paise) Valid() bool {
	return p > 0 && p < 10_000_000_000
}
