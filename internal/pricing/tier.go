package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tier is one row of an equipment rate card: a contiguous range of rental days
// mapped to a daily price. DiscountPercent is informational and already
// reflected in PricePerDay.
type Tier struct {
	ID              uuid.UUID
	PeriodStart     int
	PeriodEnd       *int
	PricePerDay     decimal.Decimal
	DiscountPercent decimal.Decimal
}

// RateCard is the ordered tier table of a single equipment item.
type RateCard struct {
	EquipmentID       uuid.UUID
	AvailableQuantity int
	Tiers             []Tier
}

// OpenEnded reports whether the tier has no upper bound.
func (t Tier) OpenEnded() bool {
	return t.PeriodEnd == nil
}

// Covers reports whether days falls within the tier bounds.
func (t Tier) Covers(days int) bool {
	if days < t.PeriodStart {
		return false
	}
	return t.PeriodEnd == nil || days <= *t.PeriodEnd
}

// ResolveTier returns the first tier, in table order, covering days.
func ResolveTier(tiers []Tier, days int) (Tier, error) {
	if days <= 0 {
		return Tier{}, ErrInvalidQuantityOrDuration
	}
	for _, tier := range tiers {
		if tier.Covers(days) {
			return tier, nil
		}
	}
	return Tier{}, ErrNoPricingAvailable
}

// Resolve is ResolveTier over the card's tiers.
func (c RateCard) Resolve(days int) (Tier, error) {
	return ResolveTier(c.Tiers, days)
}
