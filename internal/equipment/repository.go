package equipment

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentquote-backend/internal/pricing"
	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
	"github.com/angelmondragon/rentquote-backend/pkg/pagination"
)

// Repository persists categories, equipment and their pricing tiers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func orderedTiers(db *gorm.DB) *gorm.DB {
	return db.Order("period_start ASC")
}

// ListCategories returns every category ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]models.EquipmentCategory, error) {
	var rows []models.EquipmentCategory
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindCategory loads a category by id.
func (r *Repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.EquipmentCategory, error) {
	var row models.EquipmentCategory
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindCategoryByName matches case-insensitively.
func (r *Repository) FindCategoryByName(ctx context.Context, name string) (*models.EquipmentCategory, error) {
	var row models.EquipmentCategory
	if err := r.db.WithContext(ctx).Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// CreateCategory inserts a new category row.
func (r *Repository) CreateCategory(ctx context.Context, category *models.EquipmentCategory) error {
	return r.db.WithContext(ctx).Create(category).Error
}

// UpdateCategory saves name and description changes.
func (r *Repository) UpdateCategory(ctx context.Context, category *models.EquipmentCategory) error {
	return r.db.WithContext(ctx).Save(category).Error
}

// DeleteCategory removes a category row.
func (r *Repository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.EquipmentCategory{}, "id = ?", id).Error
}

// CountInCategory counts equipment assigned to the category.
func (r *Repository) CountInCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Equipment{}).Where("category_id = ?", categoryID).Count(&count).Error
	return count, err
}

// FindByID loads equipment with its category and tiers ordered by period_start.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Equipment, error) {
	var row models.Equipment
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("PricingTiers", orderedTiers).
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByName finds equipment by name within a category.
func (r *Repository) FindByName(ctx context.Context, categoryID uuid.UUID, name string) (*models.Equipment, error) {
	var row models.Equipment
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND LOWER(name) = ?", categoryID, strings.ToLower(strings.TrimSpace(name))).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListFilter narrows equipment listings.
type ListFilter struct {
	CategoryID *uuid.UUID
	Query      string
}

// List pages through equipment newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Equipment], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Equipment]{}, err
	}

	query := r.db.WithContext(ctx).Model(&models.Equipment{}).Preload("Category")
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		like := "%" + q + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(COALESCE(model, '')) LIKE ?", like, like)
	}

	var rows []models.Equipment
	if err := query.Scopes(pagination.Scope("", cursor, params.Limit)).Find(&rows).Error; err != nil {
		return pagination.Page[models.Equipment]{}, err
	}
	return pagination.Build(rows, params.Limit, func(e models.Equipment) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	}), nil
}

// Create inserts equipment without touching associations.
func (r *Repository) Create(ctx context.Context, equipment *models.Equipment) error {
	return r.db.WithContext(ctx).Omit("Category", "PricingTiers").Create(equipment).Error
}

// Update saves scalar equipment columns.
func (r *Repository) Update(ctx context.Context, equipment *models.Equipment) error {
	return r.db.WithContext(ctx).Omit("Category", "PricingTiers").Save(equipment).Error
}

// Delete removes equipment. Tiers cascade; quote lines keep the dangling id.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Select("PricingTiers").Delete(&models.Equipment{ID: id})
	return res.RowsAffected > 0, res.Error
}

// ReplaceTiers swaps the whole tier table for one piece of equipment.
func (r *Repository) ReplaceTiers(ctx context.Context, equipmentID uuid.UUID, tiers []models.EquipmentPricingTier) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("equipment_id = ?", equipmentID).Delete(&models.EquipmentPricingTier{}).Error; err != nil {
		return err
	}
	if len(tiers) == 0 {
		return nil
	}
	for i := range tiers {
		tiers[i].EquipmentID = equipmentID
	}
	return tx.Create(&tiers).Error
}

// RateCards loads the current rate card of every requested equipment id.
// Ids absent from the catalog are missing from the result.
func (r *Repository) RateCards(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*pricing.RateCard, error) {
	out := make(map[uuid.UUID]*pricing.RateCard, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Equipment
	err := r.db.WithContext(ctx).
		Preload("PricingTiers", orderedTiers).
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = RateCardFromModel(&rows[i])
	}
	return out, nil
}

// RateCardFromModel converts stored equipment into the pricing core's view.
func RateCardFromModel(e *models.Equipment) *pricing.RateCard {
	card := &pricing.RateCard{
		EquipmentID:       e.ID,
		AvailableQuantity: e.AvailableQuantity,
		Tiers:             make([]pricing.Tier, 0, len(e.PricingTiers)),
	}
	for _, t := range e.PricingTiers {
		card.Tiers = append(card.Tiers, pricing.Tier{
			ID:              t.ID,
			PeriodStart:     t.PeriodStart,
			PeriodEnd:       t.PeriodEnd,
			PricePerDay:     t.PricePerDay,
			DiscountPercent: t.DiscountPercent,
		})
	}
	return card
}
