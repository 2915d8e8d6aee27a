package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EquipmentCategory groups rentable equipment, e.g. "Excavators".
type EquipmentCategory struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null;uniqueIndex"`
	Description *string   `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *EquipmentCategory) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Equipment is a catalog item with its daily rate card.
type Equipment struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	CategoryID        uuid.UUID              `gorm:"column:category_id;type:uuid;not null;index"`
	Category          *EquipmentCategory     `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
	Name              string                 `gorm:"column:name;not null"`
	Model             *string                `gorm:"column:model"`
	Power             *string                `gorm:"column:power"`
	Description       *string                `gorm:"column:description"`
	TotalQuantity     int                    `gorm:"column:total_quantity;not null;default:0"`
	AvailableQuantity int                    `gorm:"column:available_quantity;not null;default:0"`
	PricingTiers      []EquipmentPricingTier `gorm:"foreignKey:EquipmentID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (Equipment) TableName() string {
	return "equipment"
}

func (e *Equipment) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// EquipmentPricingTier maps a contiguous range of rental days to a daily
// price. PeriodEnd nil means the tier is open-ended.
type EquipmentPricingTier struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	EquipmentID     uuid.UUID       `gorm:"column:equipment_id;type:uuid;not null;uniqueIndex:idx_pricing_tiers_equipment_start,priority:1"`
	PeriodStart     int             `gorm:"column:period_start;not null;uniqueIndex:idx_pricing_tiers_equipment_start,priority:2"`
	PeriodEnd       *int            `gorm:"column:period_end"`
	PricePerDay     decimal.Decimal `gorm:"column:price_per_day;type:numeric(12,2);not null"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null;default:0"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (EquipmentPricingTier) TableName() string {
	return "equipment_pricing_tiers"
}

func (t *EquipmentPricingTier) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
