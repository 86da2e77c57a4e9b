package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/mandimonitor/core/pkg/models"
)

// InboundEvent is a single watch-creation event as handed to this core by
// the chat transport. RawText is always present; PreParsed is populated
// when the transport's own button/form flow has already extracted fields,
// in which case the core trusts PreParsed over re-parsing RawText.
type InboundEvent struct {
	UserID    int64
	RawText   string
	PreParsed *ParsedWatch
}

// Resolve returns the event's ParsedWatch, preferring PreParsed fields when
// present and falling back to parsing RawText otherwise. A PreParsed payload
// skips Parse's regex extraction entirely, so it is shape-validated on this
// path instead.
func (e InboundEvent) Resolve() (ParsedWatch, error) {
	if e.PreParsed != nil {
		if err := e.PreParsed.Validate(); err != nil {
			return ParsedWatch{}, err
		}
		return *e.PreParsed, nil
	}
	return Parse(e.RawText)
}

// Inbound is implemented by the chat transport to hand watch-creation
// events to this core. The transport owns delivery semantics (polling,
// webhooks, retries); this core only consumes the resulting channel.
type Inbound interface {
	Events() <-chan InboundEvent
}

// Digest is a daily batch of up to five cards for one user, ranked by
// discount across that user's watches.
type Digest struct {
	UserID int64
	Cards  []models.CardResult
}

// Outbound is implemented by the chat transport to render delivered
// results. Deliver handles the immediate (zero-or-one card) path; a
// no-match outcome is rendered via DeliverNoMatch, never silently dropped.
// DeliverDigest handles the daily batch path.
type Outbound interface {
	Deliver(ctx context.Context, userID int64, card models.CardResult) error
	DeliverNoMatch(ctx context.Context, userID int64, message NoMatchMessage) error
	DeliverDigest(ctx context.Context, digest Digest) error
}

// NoMatchMessage is the templated, user-visible explanation for a no-match
// outcome: what was tried and what to adjust. The core never substitutes an
// unfiltered choice in place of this message (spec.md §7).
type NoMatchMessage struct {
	Stage       models.FilterStage
	Explanation string
	Suggestion  string
}

// NewNoMatchMessage builds the templated message for stage, given the
// watch constraint that emptied the candidate set.
func NewNoMatchMessage(stage models.FilterStage, watch *models.Watch) NoMatchMessage {
	switch stage {
	case models.StageBudget:
		return NoMatchMessage{
			Stage:       stage,
			Explanation: fmt.Sprintf("no products found under %s", watch.MaxPrice),
			Suggestion:  "try raising your budget or removing the price limit",
		}
	case models.StageBrand:
		return NoMatchMessage{
			Stage:       stage,
			Explanation: fmt.Sprintf("no products found from %q", watch.Brand),
			Suggestion:  "try a different brand or drop the brand filter",
		}
	case models.StageDiscount:
		return NoMatchMessage{
			Stage:       stage,
			Explanation: fmt.Sprintf("no deals at %d%% or more off", watch.MinDiscount),
			Suggestion:  "try a lower minimum discount",
		}
	case models.StageFeature:
		return NoMatchMessage{
			Stage:       stage,
			Explanation: "no products matched the requested specs",
			Suggestion:  "try relaxing one of the requested specs",
		}
	default:
		return NoMatchMessage{Stage: stage, Explanation: "no matching products found"}
	}
}

// affiliateURLFormat is the outbound link shape every delivered card uses
// (spec.md §6): marketplace product page, affiliate tag, and the tracking
// parameters the vendor's associates program requires.
const affiliateURLFormat = "https://%s/dp/%s?tag=%s&linkCode=ogi&th=1&psc=1"

// BuildOutboundURL constructs the affiliate URL for asin on marketplace,
// tagged with the process-wide affiliate tag.
func BuildOutboundURL(marketplace, asin, affiliateTag string) string {
	return fmt.Sprintf(affiliateURLFormat, marketplace, asin, affiliateTag)
}

// BuildCard assembles a CardResult for product, ready for Outbound.Deliver.
// An empty image URL is never passed through as a non-empty string so the
// transport's "degrade to text-only card" rule (spec.md §6) has a clean
// signal to key off; explanation is the Feature Matcher's per-feature
// reasons, already in score order, or nil if the feature-match stage did
// not run.
func BuildCard(watchID string, product models.Product, marketplace, affiliateTag string, explanation []string) models.CardResult {
	return models.CardResult{
		WatchID:     watchID,
		ASIN:        product.ASIN,
		Title:       product.Title,
		Price:       product.Price,
		ListPrice:   product.ListPrice,
		DiscountPct: product.Discount(),
		ImageURL:    product.ImageURL,
		ClickURL:    BuildOutboundURL(marketplace, product.ASIN, affiliateTag),
		ClickToken:  BuildClickToken(watchID, product.ASIN),
		Explanation: explanation,
	}
}

// BuildClickToken encodes the (watch, ASIN) pair a delivered card's click
// callback reports back, so the transport can record the resulting Click
// without a server-side token table.
func BuildClickToken(watchID, asin string) string {
	return watchID + ":" + asin
}

// ParseClickToken splits a callback token back into its watch ID and ASIN.
func ParseClickToken(token string) (watchID, asin string, err error) {
	i := strings.LastIndex(token, ":")
	if i <= 0 || i == len(token)-1 {
		return "", "", fmt.Errorf("%w: malformed click token %q", ErrParseFailure, token)
	}
	return token[:i], token[i+1:], nil
}
