package quotes

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/rentquote-backend/internal/pricing"
	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
	"github.com/angelmondragon/rentquote-backend/pkg/enums"
	"github.com/angelmondragon/rentquote-backend/pkg/money"
)

// buildView renders a quote against the current catalog. A line whose
// equipment is missing from cards is reported stale and left out of the
// display total; the stored rows are not touched.
func buildView(q *models.Quote, cards map[uuid.UUID]*pricing.RateCard, formatter *money.Formatter) QuoteDTO {
	dto := headerDTO(q, formatter)
	viewLines := make([]pricing.Line, 0, len(q.Lines))
	dto.Lines = make([]LineDTO, 0, len(q.Lines))

	for i := range q.Lines {
		row := &q.Lines[i]
		line := toPricingLine(row)

		card, stale := againstCatalog(&line, cards)

		lineDTO := newLineDTO(row, line, formatter)
		lineDTO.Stale = stale
		lineDTO.Warnings = warningsFor(line, card)

		viewLines = append(viewLines, line)
		dto.Lines = append(dto.Lines, lineDTO)
	}

	summary := pricing.Summarize(viewLines)
	dto.DisplayTotal = pricing.RoundMoney(summary.Total)
	dto.TotalNetDisplay = formatter.Format(dto.DisplayTotal)
	dto.Incomplete = summary.Incomplete
	dto.UnpricedPositions = summary.UnpricedPositions
	return dto
}

// headerDTO renders the stored quote row. Listings use it as is, so their
// display total is the persisted one.
func headerDTO(q *models.Quote, formatter *money.Formatter) QuoteDTO {
	dto := QuoteDTO{
		ID:              q.ID,
		QuoteNumber:     q.QuoteNumber,
		ClientID:        q.ClientID,
		CreatedBy:       q.CreatedBy,
		Status:          q.Status,
		TotalNet:        q.TotalNet,
		DisplayTotal:    q.TotalNet,
		TotalNetDisplay: formatter.Format(q.TotalNet),
		Notes:           q.Notes,
		ValidUntil:      q.ValidUntil,
		SentAt:          q.SentAt,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
	if q.Client != nil {
		dto.ClientName = q.Client.Name
	}
	return dto
}

func newLineDTO(row *models.QuoteLineItem, line pricing.Line, formatter *money.Formatter) LineDTO {
	dto := LineDTO{
		ID:               row.ID,
		Position:         row.Position,
		CategoryID:       row.CategoryID,
		EquipmentID:      row.EquipmentID,
		Quantity:         row.Quantity,
		RentalPeriodDays: row.RentalPeriodDays,
		RentalStart:      row.RentalStart,
		RentalEnd:        row.RentalEnd,
		State:            line.State,
		TierID:           line.TierID,
		PricePerDay:      line.PricePerDay,
		DiscountPercent:  line.DiscountPercent,
		TotalPrice:       line.Total,
		Notes:            row.Notes,
	}
	if line.Reason != "" {
		reason := line.Reason
		dto.UnpricedReason = &reason
	}
	if line.Total != nil {
		dto.TotalPriceDisplay = formatter.Format(pricing.RoundMoney(*line.Total))
	}
	return dto
}

// warningsFor flags lines that are priced but worth a second look.
func warningsFor(line pricing.Line, card *pricing.RateCard) []enums.LineItemWarning {
	if card == nil {
		return nil
	}
	var out []enums.LineItemWarning
	if line.Quantity > card.AvailableQuantity {
		out = append(out, enums.LineItemWarningExceedsAvailable)
	}
	if line.Priced() && priceChanged(line, card) {
		out = append(out, enums.LineItemWarningPriceChanged)
	}
	return out
}

func priceChanged(line pricing.Line, card *pricing.RateCard) bool {
	tier, err := card.Resolve(line.Days)
	if err != nil {
		return true
	}
	if line.TierID == nil || *line.TierID != tier.ID {
		return true
	}
	return line.PricePerDay == nil || !line.PricePerDay.Equal(tier.PricePerDay)
}
