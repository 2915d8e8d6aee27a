package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

var hundred = decimal.NewFromInt(100)

// TierViolation describes one problem in a tier table. Index refers to the
// tier's position in the table as submitted; -1 marks table-wide problems.
type TierViolation struct {
	Index   int
	Message string
}

func (v *TierViolation) Error() string {
	if v.Index < 0 {
		return v.Message
	}
	return fmt.Sprintf("tier %d: %s", v.Index, v.Message)
}

// Violations unpacks an error returned by ValidateTiers.
func Violations(err error) []*TierViolation {
	var out []*TierViolation
	for _, e := range multierr.Errors(err) {
		if v, ok := e.(*TierViolation); ok {
			out = append(out, v)
		}
	}
	return out
}

// ValidateTiers checks a rate card before it is stored. Every positive day
// count from 1 upward must be covered by exactly one tier, ending with a
// single open-ended tier. An empty table is accepted and prices nothing.
func ValidateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return nil
	}

	var errs error
	for i, tier := range tiers {
		if tier.PeriodStart < 1 {
			errs = multierr.Append(errs, &TierViolation{Index: i, Message: "period_start must be at least 1"})
		}
		if tier.PeriodEnd != nil && *tier.PeriodEnd < tier.PeriodStart {
			errs = multierr.Append(errs, &TierViolation{Index: i, Message: "period_end must not be before period_start"})
		}
		if tier.PricePerDay.IsNegative() {
			errs = multierr.Append(errs, &TierViolation{Index: i, Message: "price_per_day must not be negative"})
		}
		if tier.DiscountPercent.IsNegative() || tier.DiscountPercent.GreaterThan(hundred) {
			errs = multierr.Append(errs, &TierViolation{Index: i, Message: "discount_percent must be between 0 and 100"})
		}
	}
	if errs != nil {
		return errs
	}

	order := make([]int, len(tiers))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return tiers[order[a]].PeriodStart < tiers[order[b]].PeriodStart
	})

	if first := tiers[order[0]]; first.PeriodStart != 1 {
		errs = multierr.Append(errs, &TierViolation{Index: order[0], Message: fmt.Sprintf("first tier starts at day %d, expected 1", first.PeriodStart)})
	}

	openCount := 0
	for pos, idx := range order {
		tier := tiers[idx]
		if tier.OpenEnded() {
			openCount++
			if pos != len(order)-1 {
				errs = multierr.Append(errs, &TierViolation{Index: idx, Message: "open-ended tier must be the last tier"})
			}
		}
		if pos == 0 {
			continue
		}
		prev := tiers[order[pos-1]]
		if prev.PeriodEnd == nil {
			continue
		}
		switch {
		case tier.PeriodStart <= *prev.PeriodEnd:
			errs = multierr.Append(errs, &TierViolation{Index: idx, Message: fmt.Sprintf("overlaps tier %d (days %d-%d)", order[pos-1], prev.PeriodStart, *prev.PeriodEnd)})
		case tier.PeriodStart > *prev.PeriodEnd+1:
			errs = multierr.Append(errs, &TierViolation{Index: idx, Message: fmt.Sprintf("gap between day %d and day %d", *prev.PeriodEnd+1, tier.PeriodStart-1)})
		}
	}

	switch {
	case openCount == 0:
		errs = multierr.Append(errs, &TierViolation{Index: -1, Message: "the last tier must be open-ended"})
	case openCount > 1:
		errs = multierr.Append(errs, &TierViolation{Index: -1, Message: "only one tier may be open-ended"})
	}
	return errs
}
