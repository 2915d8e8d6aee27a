package pricing

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/rentquote-backend/pkg/enums"
)

var (
	// ErrRateCardMismatch is returned when a line is repriced against another equipment's card.
	ErrRateCardMismatch = errors.New("rate card does not belong to the line's equipment")
	// ErrLineInconsistent is returned by Validate when the stored fields disagree with the line state.
	ErrLineInconsistent = errors.New("quote line is inconsistent")
)

// Line is the pricing view of a quote line item. Price fields are only
// populated while State is Priced.
type Line struct {
	Position    int
	EquipmentID *uuid.UUID
	Quantity    int
	Days        int

	State  enums.LineItemState
	Reason enums.UnpricedReason

	TierID          *uuid.UUID
	PricePerDay     *decimal.Decimal
	DiscountPercent *decimal.Decimal
	Total           *decimal.Decimal
}

// Reprice resolves the line against card and moves it into the matching
// state. A nil card means the line has no usable equipment: either nothing was
// selected yet or the referenced equipment left the catalog. Missing pricing
// is a line state, not an error; only invalid input is returned.
func (l *Line) Reprice(card *RateCard) error {
	if l.Quantity <= 0 || l.Days <= 0 {
		return ErrInvalidQuantityOrDuration
	}

	if card == nil {
		if l.EquipmentID == nil {
			l.ClearSelection(enums.UnpricedReasonNoEquipment)
		} else {
			l.ClearSelection(enums.UnpricedReasonStaleEquipment)
		}
		return nil
	}

	if l.EquipmentID != nil && *l.EquipmentID != card.EquipmentID {
		return ErrRateCardMismatch
	}

	tier, err := card.Resolve(l.Days)
	if err != nil {
		if errors.Is(err, ErrNoPricingAvailable) {
			l.EquipmentID = &card.EquipmentID
			l.ClearSelection(enums.UnpricedReasonNoPricingAvailable)
			return nil
		}
		return err
	}

	total, err := LineTotal(tier.PricePerDay, l.Quantity, l.Days)
	if err != nil {
		return err
	}

	equipmentID := card.EquipmentID
	tierID := tier.ID
	price := tier.PricePerDay
	discount := tier.DiscountPercent

	l.EquipmentID = &equipmentID
	l.State = enums.LineItemStatePriced
	l.Reason = ""
	l.TierID = &tierID
	l.PricePerDay = &price
	l.DiscountPercent = &discount
	l.Total = &total
	return nil
}

// ClearSelection drops every price field and records why the line is unpriced.
func (l *Line) ClearSelection(reason enums.UnpricedReason) {
	l.State = enums.LineItemStateUnselected
	l.Reason = reason
	l.TierID = nil
	l.PricePerDay = nil
	l.DiscountPercent = nil
	l.Total = nil
}

// Priced reports whether the line contributes to the quote total.
func (l Line) Priced() bool {
	return l.State == enums.LineItemStatePriced
}

// UnpricedErr maps an unselected line to the pricing error it represents.
// Priced lines return nil.
func (l Line) UnpricedErr() error {
	if l.Priced() {
		return nil
	}
	switch l.Reason {
	case enums.UnpricedReasonStaleEquipment:
		return ErrStaleEquipment
	default:
		return ErrNoPricingAvailable
	}
}

// Validate checks that the stored fields agree with the line state.
func (l Line) Validate() error {
	if l.Quantity <= 0 || l.Days <= 0 {
		return ErrInvalidQuantityOrDuration
	}

	switch l.State {
	case enums.LineItemStatePriced:
		if l.EquipmentID == nil || l.TierID == nil || l.PricePerDay == nil || l.DiscountPercent == nil || l.Total == nil {
			return fmt.Errorf("%w: priced line %d is missing price fields", ErrLineInconsistent, l.Position)
		}
		if l.Reason != "" {
			return fmt.Errorf("%w: priced line %d carries unpriced reason %q", ErrLineInconsistent, l.Position, l.Reason)
		}
		expected, err := LineTotal(*l.PricePerDay, l.Quantity, l.Days)
		if err != nil {
			return err
		}
		if !expected.Equal(*l.Total) {
			return fmt.Errorf("%w: line %d total %s, expected %s", ErrLineInconsistent, l.Position, l.Total.String(), expected.String())
		}
	case enums.LineItemStateUnselected:
		if l.TierID != nil || l.PricePerDay != nil || l.DiscountPercent != nil || l.Total != nil {
			return fmt.Errorf("%w: unselected line %d still carries price fields", ErrLineInconsistent, l.Position)
		}
		if !l.Reason.IsValid() {
			return fmt.Errorf("%w: unselected line %d has reason %q", ErrLineInconsistent, l.Position, l.Reason)
		}
	default:
		return fmt.Errorf("%w: line %d has state %q", ErrLineInconsistent, l.Position, l.State)
	}
	return nil
}
