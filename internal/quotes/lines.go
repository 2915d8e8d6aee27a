package quotes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentquote-backend/internal/equipment"
	"github.com/angelmondragon/rentquote-backend/internal/pricing"
	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
	"github.com/angelmondragon/rentquote-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentquote-backend/pkg/errors"
	"github.com/angelmondragon/rentquote-backend/pkg/metrics"
)

// edit is one draft mutation running inside a transaction while the quote's
// draft lock is held.
type edit struct {
	quote     *models.Quote
	quotes    *Repository
	equipment *equipment.Repository
	metrics   *metrics.QuoteMetrics
}

// rentalPeriod resolves the line duration. Dates, when given, must come as a
// pair and win over an omitted day count; a supplied count must agree.
func rentalPeriod(days int, start, end *time.Time) (int, *time.Time, *time.Time, error) {
	if (start == nil) != (end == nil) {
		return 0, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "rental_start and rental_end must be supplied together")
	}
	if start == nil {
		if days <= 0 {
			return 0, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, pricing.ErrInvalidQuantityOrDuration.Error())
		}
		return days, nil, nil, nil
	}
	derived, err := pricing.RentalDays(*start, *end)
	if err != nil {
		return 0, nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	if days > 0 && days != derived {
		return 0, nil, nil, pkgerrors.Newf(pkgerrors.CodeValidation,
			"rental_period_days %d does not match the %d day(s) between rental_start and rental_end", days, derived)
	}
	s, e := dateOnly(*start), dateOnly(*end)
	return derived, &s, &e, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// selectEquipment points the line at a catalog item. The item must exist and,
// when a category is also given, belong to it.
func (e *edit) selectEquipment(ctx context.Context, row *models.QuoteLineItem, equipmentID uuid.UUID, categoryID *uuid.UUID) error {
	item, err := e.equipment.FindByID(ctx, equipmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "equipment not found").
				WithDetails(map[string]any{"equipment_id": equipmentID})
		}
		return err
	}
	if categoryID != nil && *categoryID != item.CategoryID {
		return pkgerrors.New(pkgerrors.CodeValidation, "equipment does not belong to category").
			WithDetails(map[string]any{"equipment_id": equipmentID, "category_id": *categoryID})
	}
	id, category := item.ID, item.CategoryID
	row.EquipmentID = &id
	row.CategoryID = &category
	return nil
}

// selectCategory moves the line to a category without equipment, which
// always leaves it unselected.
func (e *edit) selectCategory(ctx context.Context, row *models.QuoteLineItem, categoryID uuid.UUID) error {
	if _, err := e.equipment.FindCategory(ctx, categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "category not found").
				WithDetails(map[string]any{"category_id": categoryID})
		}
		return err
	}
	id := categoryID
	row.CategoryID = &id
	row.EquipmentID = nil
	return nil
}

// newLine builds an unsaved line from input.
func (e *edit) newLine(ctx context.Context, position int, input LineInput) (*models.QuoteLineItem, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, pricing.ErrInvalidQuantityOrDuration.Error())
	}
	days, start, end, err := rentalPeriod(input.RentalPeriodDays, input.RentalStart, input.RentalEnd)
	if err != nil {
		return nil, err
	}
	row := &models.QuoteLineItem{
		QuoteID:          e.quote.ID,
		Position:         position,
		Quantity:         input.Quantity,
		RentalPeriodDays: days,
		RentalStart:      start,
		RentalEnd:        end,
		State:            enums.LineItemStateUnselected,
		Notes:            input.Notes,
	}
	switch {
	case input.EquipmentID != nil:
		err = e.selectEquipment(ctx, row, *input.EquipmentID, input.CategoryID)
	case input.CategoryID != nil:
		err = e.selectCategory(ctx, row, *input.CategoryID)
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// applyUpdate merges a partial update into a stored line.
func (e *edit) applyUpdate(ctx context.Context, row *models.QuoteLineItem, input UpdateLineInput) error {
	if input.Quantity != nil {
		if *input.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, pricing.ErrInvalidQuantityOrDuration.Error())
		}
		row.Quantity = *input.Quantity
	}

	if input.RentalStart != nil || input.RentalEnd != nil || input.RentalPeriodDays != nil {
		start, end := row.RentalStart, row.RentalEnd
		days := 0
		if input.RentalStart != nil || input.RentalEnd != nil {
			if input.RentalStart != nil {
				start = input.RentalStart
			}
			if input.RentalEnd != nil {
				end = input.RentalEnd
			}
			if input.RentalPeriodDays != nil {
				days = *input.RentalPeriodDays
			}
		} else {
			// a bare day count replaces the stored dates
			start, end = nil, nil
			days = *input.RentalPeriodDays
		}
		resolved, s, en, err := rentalPeriod(days, start, end)
		if err != nil {
			return err
		}
		row.RentalPeriodDays, row.RentalStart, row.RentalEnd = resolved, s, en
	}

	switch {
	case input.EquipmentID.Value != nil:
		if err := e.selectEquipment(ctx, row, *input.EquipmentID.Value, input.CategoryID); err != nil {
			return err
		}
	case input.EquipmentID.IsNull():
		row.EquipmentID = nil
		if input.CategoryID != nil {
			if err := e.selectCategory(ctx, row, *input.CategoryID); err != nil {
				return err
			}
		}
	case input.CategoryID != nil && (row.CategoryID == nil || *row.CategoryID != *input.CategoryID):
		if err := e.selectCategory(ctx, row, *input.CategoryID); err != nil {
			return err
		}
	}

	if input.Notes != nil {
		row.Notes = input.Notes
	}
	return nil
}

// price re-resolves rows against the current rate cards. Rows pointing at
// equipment that is gone become stale.
func (e *edit) price(ctx context.Context, rows []*models.QuoteLineItem) error {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		if row.EquipmentID != nil {
			ids = append(ids, *row.EquipmentID)
		}
	}
	cards, err := e.equipment.RateCards(ctx, ids)
	if err != nil {
		return err
	}
	for _, row := range rows {
		line := toPricingLine(row)
		var card *pricing.RateCard
		if line.EquipmentID != nil {
			card = cards[*line.EquipmentID]
		}
		if err := line.Reprice(card); err != nil {
			return pricingError(err)
		}
		applyPricing(row, line)
		if !line.Priced() {
			e.metrics.IncUnpriced(line.Reason.String())
		}
	}
	return nil
}

// recomputeTotal stores the rounded sum of every stored priced line whose
// equipment is still in the catalog.
func (e *edit) recomputeTotal(ctx context.Context) error {
	rows, err := e.quotes.Lines(ctx, e.quote.ID)
	if err != nil {
		return err
	}
	total, err := catalogTotal(ctx, e.equipment, rows)
	if err != nil {
		return err
	}
	if err := e.quotes.UpdateTotal(ctx, e.quote.ID, total); err != nil {
		return err
	}
	e.quote.TotalNet = total
	return nil
}

func pricingError(err error) error {
	switch {
	case errors.Is(err, pricing.ErrInvalidQuantityOrDuration):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	case errors.Is(err, pricing.ErrNoPricingAvailable):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, err.Error())
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "price quote line")
	}
}
