package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/rentquote-backend/pkg/enums"
)

// MoneyScale is the minor-unit precision used when totals are persisted or displayed.
const MoneyScale = 2

// LineTotal returns pricePerDay × quantity × days without rounding.
func LineTotal(pricePerDay decimal.Decimal, quantity, days int) (decimal.Decimal, error) {
	if quantity <= 0 || days <= 0 {
		return decimal.Zero, ErrInvalidQuantityOrDuration
	}
	return pricePerDay.
		Mul(decimal.NewFromInt(int64(quantity))).
		Mul(decimal.NewFromInt(int64(days))), nil
}

// QuoteTotal sums the unrounded totals of priced lines. Unpriced lines never contribute.
func QuoteTotal(lines []Line) decimal.Decimal {
	return Summarize(lines).Total
}

// RoundMoney rounds an accumulated amount to the currency's minor unit.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyScale)
}

// Summary describes the aggregate state of a set of quote lines.
type Summary struct {
	Total       decimal.Decimal
	PricedCount int
	// Incomplete is set when at least one line was left out of Total.
	Incomplete        bool
	UnpricedPositions []int
}

// Summarize recomputes every priced line from its own fields and accumulates
// the result. Lines that are unselected, or whose fields no longer form a
// valid total, are reported as unpriced.
func Summarize(lines []Line) Summary {
	summary := Summary{Total: decimal.Zero}
	for _, line := range lines {
		if line.State != enums.LineItemStatePriced || line.PricePerDay == nil {
			summary.Incomplete = true
			summary.UnpricedPositions = append(summary.UnpricedPositions, line.Position)
			continue
		}
		total, err := LineTotal(*line.PricePerDay, line.Quantity, line.Days)
		if err != nil {
			summary.Incomplete = true
			summary.UnpricedPositions = append(summary.UnpricedPositions, line.Position)
			continue
		}
		summary.Total = summary.Total.Add(total)
		summary.PricedCount++
	}
	return summary
}
