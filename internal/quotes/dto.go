package quotes

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/rentquote-backend/pkg/enums"
	"github.com/angelmondragon/rentquote-backend/pkg/types"
)

// QuoteDTO is the API shape of a quote. TotalNet is the persisted total;
// DisplayTotal is recomputed when the quote is viewed and excludes lines whose
// equipment left the catalog. Lines are only populated on detail reads.
type QuoteDTO struct {
	ID                uuid.UUID         `json:"id"`
	QuoteNumber       string            `json:"quote_number"`
	ClientID          uuid.UUID         `json:"client_id"`
	ClientName        string            `json:"client_name,omitempty"`
	CreatedBy         uuid.UUID         `json:"created_by"`
	Status            enums.QuoteStatus `json:"status"`
	TotalNet          decimal.Decimal   `json:"total_net"`
	DisplayTotal      decimal.Decimal   `json:"display_total"`
	TotalNetDisplay   string            `json:"total_net_display"`
	Incomplete        bool              `json:"incomplete"`
	UnpricedPositions []int             `json:"unpriced_positions,omitempty"`
	Notes             *string           `json:"notes,omitempty"`
	ValidUntil        *time.Time        `json:"valid_until,omitempty"`
	SentAt            *time.Time        `json:"sent_at,omitempty"`
	Lines             []LineDTO         `json:"lines,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// LineDTO is one quote line as seen by the caller.
type LineDTO struct {
	ID                uuid.UUID               `json:"id"`
	Position          int                     `json:"position"`
	CategoryID        *uuid.UUID              `json:"category_id,omitempty"`
	EquipmentID       *uuid.UUID              `json:"equipment_id,omitempty"`
	Quantity          int                     `json:"quantity"`
	RentalPeriodDays  int                     `json:"rental_period_days"`
	RentalStart       *time.Time              `json:"rental_start,omitempty"`
	RentalEnd         *time.Time              `json:"rental_end,omitempty"`
	State             enums.LineItemState     `json:"state"`
	UnpricedReason    *enums.UnpricedReason   `json:"unpriced_reason,omitempty"`
	TierID            *uuid.UUID              `json:"tier_id,omitempty"`
	PricePerDay       *decimal.Decimal        `json:"price_per_day,omitempty"`
	DiscountPercent   *decimal.Decimal        `json:"discount_percent,omitempty"`
	TotalPrice        *decimal.Decimal        `json:"total_price,omitempty"`
	TotalPriceDisplay string                  `json:"total_price_display,omitempty"`
	Stale             bool                    `json:"stale"`
	Warnings          []enums.LineItemWarning `json:"warnings,omitempty"`
	Notes             *string                 `json:"notes,omitempty"`
}

// CreateQuoteInput opens a new draft.
type CreateQuoteInput struct {
	ClientID   uuid.UUID  `json:"client_id" validate:"required"`
	Notes      *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

// LineInput describes a new line. RentalPeriodDays may be omitted when both
// rental dates are supplied.
type LineInput struct {
	CategoryID       *uuid.UUID `json:"category_id,omitempty"`
	EquipmentID      *uuid.UUID `json:"equipment_id,omitempty"`
	Quantity         int        `json:"quantity" validate:"gt=0"`
	RentalPeriodDays int        `json:"rental_period_days" validate:"gte=0"`
	RentalStart      *time.Time `json:"rental_start,omitempty"`
	RentalEnd        *time.Time `json:"rental_end,omitempty"`
	Notes            *string    `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// UpdateLineInput changes any subset of a line's fields. An explicit
// "equipment_id": null drops the selected equipment and keeps the category.
type UpdateLineInput struct {
	CategoryID       *uuid.UUID             `json:"category_id,omitempty"`
	EquipmentID      types.Field[uuid.UUID] `json:"equipment_id"`
	Quantity         *int                   `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	RentalPeriodDays *int                   `json:"rental_period_days,omitempty" validate:"omitempty,gt=0"`
	RentalStart      *time.Time             `json:"rental_start,omitempty"`
	RentalEnd        *time.Time             `json:"rental_end,omitempty"`
	Notes            *string                `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// ReplaceLinesInput swaps every line of a draft in one edit.
type ReplaceLinesInput struct {
	Lines []LineInput `json:"lines" validate:"max=200,dive"`
}

// TransitionInput moves a quote to another status.
type TransitionInput struct {
	Status enums.QuoteStatus `json:"status" validate:"required"`
}

// ListFilter narrows quote listings.
type ListFilter struct {
	Status   *enums.QuoteStatus
	ClientID *uuid.UUID
}
