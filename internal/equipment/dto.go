package equipment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/rentquote-backend/internal/pricing"
	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
)

// CategoryDTO is the API shape of an equipment category.
type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TierDTO is one rate card row. PeriodEnd is omitted for the open-ended tier.
type TierDTO struct {
	ID              uuid.UUID       `json:"id"`
	PeriodStart     int             `json:"period_start"`
	PeriodEnd       *int            `json:"period_end,omitempty"`
	PricePerDay     decimal.Decimal `json:"price_per_day"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// EquipmentDTO is the API shape of a catalog item. Tiers are only populated
// on detail reads.
type EquipmentDTO struct {
	ID                uuid.UUID `json:"id"`
	CategoryID        uuid.UUID `json:"category_id"`
	CategoryName      string    `json:"category_name,omitempty"`
	Name              string    `json:"name"`
	Model             *string   `json:"model,omitempty"`
	Power             *string   `json:"power,omitempty"`
	Description       *string   `json:"description,omitempty"`
	TotalQuantity     int       `json:"total_quantity"`
	AvailableQuantity int       `json:"available_quantity"`
	Tiers             []TierDTO `json:"tiers,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PricePreview is the result of resolving a single price without a quote.
type PricePreview struct {
	EquipmentID      uuid.UUID       `json:"equipment_id"`
	Days             int             `json:"days"`
	Quantity         int             `json:"quantity"`
	Tier             TierDTO         `json:"tier"`
	PricePerDay      decimal.Decimal `json:"price_per_day"`
	DiscountPercent  decimal.Decimal `json:"discount_percent"`
	LineTotal        decimal.Decimal `json:"line_total"`
	LineTotalDisplay string          `json:"line_total_display"`
	ExceedsAvailable bool            `json:"exceeds_available"`
}

// CategoryInput creates or renames a category.
type CategoryInput struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description *string `json:"description,omitempty"`
}

// TierInput is a submitted rate card row.
type TierInput struct {
	PeriodStart     int             `json:"period_start"`
	PeriodEnd       *int            `json:"period_end,omitempty"`
	PricePerDay     decimal.Decimal `json:"price_per_day"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// CreateEquipmentInput holds a new catalog item and its rate card.
type CreateEquipmentInput struct {
	CategoryID        uuid.UUID   `json:"category_id" validate:"required"`
	Name              string      `json:"name" validate:"required,max=200"`
	Model             *string     `json:"model,omitempty"`
	Power             *string     `json:"power,omitempty"`
	Description       *string     `json:"description,omitempty"`
	TotalQuantity     int         `json:"total_quantity" validate:"gte=0"`
	AvailableQuantity int         `json:"available_quantity" validate:"gte=0"`
	Tiers             []TierInput `json:"tiers"`
}

// UpdateEquipmentInput holds optional changes. Tiers, when present, replace
// the whole rate card.
type UpdateEquipmentInput struct {
	CategoryID        *uuid.UUID   `json:"category_id,omitempty"`
	Name              *string      `json:"name,omitempty" validate:"omitempty,max=200"`
	Model             *string      `json:"model,omitempty"`
	Power             *string      `json:"power,omitempty"`
	Description       *string      `json:"description,omitempty"`
	TotalQuantity     *int         `json:"total_quantity,omitempty" validate:"omitempty,gte=0"`
	AvailableQuantity *int         `json:"available_quantity,omitempty" validate:"omitempty,gte=0"`
	Tiers             *[]TierInput `json:"tiers,omitempty"`
}

func NewCategoryDTO(c *models.EquipmentCategory) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func NewEquipmentDTO(e *models.Equipment) EquipmentDTO {
	dto := EquipmentDTO{
		ID:                e.ID,
		CategoryID:        e.CategoryID,
		Name:              e.Name,
		Model:             e.Model,
		Power:             e.Power,
		Description:       e.Description,
		TotalQuantity:     e.TotalQuantity,
		AvailableQuantity: e.AvailableQuantity,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
	if e.Category != nil {
		dto.CategoryName = e.Category.Name
	}
	if len(e.PricingTiers) > 0 {
		dto.Tiers = make([]TierDTO, 0, len(e.PricingTiers))
		for _, t := range e.PricingTiers {
			dto.Tiers = append(dto.Tiers, TierDTO{
				ID:              t.ID,
				PeriodStart:     t.PeriodStart,
				PeriodEnd:       t.PeriodEnd,
				PricePerDay:     t.PricePerDay,
				DiscountPercent: t.DiscountPercent,
			})
		}
	}
	return dto
}

func tierDTO(t pricing.Tier) TierDTO {
	return TierDTO{
		ID:              t.ID,
		PeriodStart:     t.PeriodStart,
		PeriodEnd:       t.PeriodEnd,
		PricePerDay:     t.PricePerDay,
		DiscountPercent: t.DiscountPercent,
	}
}

func (in TierInput) toPricing() pricing.Tier {
	return pricing.Tier{
		PeriodStart:     in.PeriodStart,
		PeriodEnd:       in.PeriodEnd,
		PricePerDay:     in.PricePerDay,
		DiscountPercent: in.DiscountPercent,
	}
}

func (in TierInput) toModel() models.EquipmentPricingTier {
	return models.EquipmentPricingTier{
		PeriodStart:     in.PeriodStart,
		PeriodEnd:       in.PeriodEnd,
		PricePerDay:     in.PricePerDay,
		DiscountPercent: in.DiscountPercent,
	}
}
