package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentquote-backend/pkg/enums"
)

// Quote is a rental offer for one client.
type Quote struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	QuoteNumber string            `gorm:"column:quote_number;not null;uniqueIndex"`
	ClientID    uuid.UUID         `gorm:"column:client_id;type:uuid;not null;index"`
	Client      *Client           `gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT"`
	CreatedBy   uuid.UUID         `gorm:"column:created_by;type:uuid;not null;index"`
	Status      enums.QuoteStatus `gorm:"column:status;type:text;not null;default:'draft';index"`
	TotalNet    decimal.Decimal   `gorm:"column:total_net;type:numeric(14,2);not null;default:0"`
	Notes       *string           `gorm:"column:notes"`
	ValidUntil  *time.Time        `gorm:"column:valid_until"`
	SentAt      *time.Time        `gorm:"column:sent_at"`
	Lines       []QuoteLineItem   `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (q *Quote) BeforeCreate(*gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// QuoteLineItem is one equipment selection on a quote. EquipmentID carries no
// foreign key so that removed equipment surfaces as a stale reference.
type QuoteLineItem struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	QuoteID          uuid.UUID             `gorm:"column:quote_id;type:uuid;not null;index"`
	Position         int                   `gorm:"column:position;not null"`
	CategoryID       *uuid.UUID            `gorm:"column:category_id;type:uuid"`
	EquipmentID      *uuid.UUID            `gorm:"column:equipment_id;type:uuid;index"`
	Quantity         int                   `gorm:"column:quantity;not null"`
	RentalPeriodDays int                   `gorm:"column:rental_period_days;not null"`
	RentalStart      *time.Time            `gorm:"column:rental_start"`
	RentalEnd        *time.Time            `gorm:"column:rental_end"`
	State            enums.LineItemState   `gorm:"column:state;type:text;not null;default:'unselected'"`
	UnpricedReason   *enums.UnpricedReason `gorm:"column:unpriced_reason;type:text"`
	TierID           *uuid.UUID            `gorm:"column:tier_id;type:uuid"`
	PricePerDay      *decimal.Decimal      `gorm:"column:price_per_day;type:numeric(12,2)"`
	DiscountPercent  *decimal.Decimal      `gorm:"column:discount_percent;type:numeric(5,2)"`
	TotalPrice       *decimal.Decimal      `gorm:"column:total_price;type:numeric(14,2)"`
	Notes            *string               `gorm:"column:notes"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *QuoteLineItem) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&User{},
		&EquipmentCategory{},
		&Equipment{},
		&EquipmentPricingTier{},
		&Client{},
		&Quote{},
		&QuoteLineItem{},
	}
}
