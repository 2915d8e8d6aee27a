package quotes

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/rentquote-backend/internal/pricing"
	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
	"github.com/angelmondragon/rentquote-backend/pkg/enums"
)

type rateCardSource interface {
	RateCards(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*pricing.RateCard, error)
}

func toPricingLine(row *models.QuoteLineItem) pricing.Line {
	line := pricing.Line{
		Position:        row.Position,
		EquipmentID:     row.EquipmentID,
		Quantity:        row.Quantity,
		Days:            row.RentalPeriodDays,
		State:           row.State,
		TierID:          row.TierID,
		PricePerDay:     row.PricePerDay,
		DiscountPercent: row.DiscountPercent,
		Total:           row.TotalPrice,
	}
	if row.UnpricedReason != nil {
		line.Reason = *row.UnpricedReason
	}
	return line
}

// ToPricingLines converts stored lines for the aggregator.
func ToPricingLines(rows []models.QuoteLineItem) []pricing.Line {
	out := make([]pricing.Line, 0, len(rows))
	for i := range rows {
		out = append(out, toPricingLine(&rows[i]))
	}
	return out
}

func applyPricing(row *models.QuoteLineItem, line pricing.Line) {
	row.EquipmentID = line.EquipmentID
	row.State = line.State
	row.TierID = line.TierID
	row.PricePerDay = line.PricePerDay
	row.DiscountPercent = line.DiscountPercent
	row.TotalPrice = line.Total
	row.UnpricedReason = nil
	if line.Reason != "" {
		reason := line.Reason
		row.UnpricedReason = &reason
	}
}

func equipmentIDs(rows []models.QuoteLineItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(rows))
	out := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		if row.EquipmentID == nil {
			continue
		}
		if _, ok := seen[*row.EquipmentID]; ok {
			continue
		}
		seen[*row.EquipmentID] = struct{}{}
		out = append(out, *row.EquipmentID)
	}
	return out
}

// againstCatalog returns the line's current rate card. A line whose equipment
// is no longer in cards is cleared as stale.
func againstCatalog(line *pricing.Line, cards map[uuid.UUID]*pricing.RateCard) (card *pricing.RateCard, stale bool) {
	if line.EquipmentID == nil {
		return nil, false
	}
	card = cards[*line.EquipmentID]
	if card == nil {
		line.ClearSelection(enums.UnpricedReasonStaleEquipment)
		return nil, true
	}
	return card, false
}

// currentLines converts stored rows the way the quote view sees them.
func currentLines(rows []models.QuoteLineItem, cards map[uuid.UUID]*pricing.RateCard) []pricing.Line {
	lines := ToPricingLines(rows)
	for i := range lines {
		againstCatalog(&lines[i], cards)
	}
	return lines
}

// catalogTotal is the rounded quote total of rows, leaving out lines whose
// equipment has been deleted.
func catalogTotal(ctx context.Context, source rateCardSource, rows []models.QuoteLineItem) (decimal.Decimal, error) {
	cards, err := source.RateCards(ctx, equipmentIDs(rows))
	if err != nil {
		return decimal.Zero, err
	}
	return pricing.RoundMoney(pricing.QuoteTotal(currentLines(rows, cards))), nil
}
