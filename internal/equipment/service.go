package equipment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentquote-backend/internal/pricing"
	"github.com/angelmondragon/rentquote-backend/pkg/db"
	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/rentquote-backend/pkg/errors"
	"github.com/angelmondragon/rentquote-backend/pkg/money"
	"github.com/angelmondragon/rentquote-backend/pkg/pagination"
)

// Service manages the equipment catalog and its rate cards.
type Service interface {
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	CreateCategory(ctx context.Context, input CategoryInput) (*CategoryDTO, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*CategoryDTO, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	ListEquipment(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[EquipmentDTO], error)
	GetEquipment(ctx context.Context, id uuid.UUID) (*EquipmentDTO, error)
	CreateEquipment(ctx context.Context, input CreateEquipmentInput) (*EquipmentDTO, error)
	UpdateEquipment(ctx context.Context, id uuid.UUID, input UpdateEquipmentInput) (*EquipmentDTO, error)
	DeleteEquipment(ctx context.Context, id uuid.UUID) error

	PreviewPrice(ctx context.Context, id uuid.UUID, days, quantity int) (*PricePreview, error)
	ApplyRateCard(ctx context.Context, file *RateCardFile) (*ApplyResult, error)
}

type service struct {
	repo      *Repository
	dbClient  *db.Client
	formatter *money.Formatter
}

// NewService constructs the catalog service.
func NewService(repo *Repository, dbClient *db.Client, formatter *money.Formatter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("equipment repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if formatter == nil {
		return nil, fmt.Errorf("money formatter required")
	}
	return &service{repo: repo, dbClient: dbClient, formatter: formatter}, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewCategoryDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) CreateCategory(ctx context.Context, input CategoryInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	category := &models.EquipmentCategory{Name: name, Description: input.Description}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	dto := NewCategoryDTO(category)
	return &dto, nil
}

func (s *service) UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	category, err := s.repo.FindCategory(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "category not found", "load category")
	}
	category.Name = name
	category.Description = input.Description
	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update category")
	}
	dto := NewCategoryDTO(category)
	return &dto, nil
}

// DeleteCategory refuses to remove a category that still has equipment.
func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.inTx(ctx, "delete category", func(repo *Repository) error {
		if _, err := repo.FindCategory(ctx, id); err != nil {
			return notFoundOr(err, "category not found", "load category")
		}
		count, err := repo.CountInCategory(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count equipment")
		}
		if count > 0 {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "category is used by %d equipment item(s)", count)
		}
		return repo.DeleteCategory(ctx, id)
	})
}

func (s *service) ListEquipment(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[EquipmentDTO], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[EquipmentDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return pagination.Page[EquipmentDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list equipment")
	}
	out := pagination.Page[EquipmentDTO]{Items: make([]EquipmentDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, NewEquipmentDTO(&page.Items[i]))
	}
	return out, nil
}

func (s *service) GetEquipment(ctx context.Context, id uuid.UUID) (*EquipmentDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "equipment not found", "load equipment")
	}
	dto := NewEquipmentDTO(row)
	return &dto, nil
}

func (s *service) CreateEquipment(ctx context.Context, input CreateEquipmentInput) (*EquipmentDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := validateQuantities(input.TotalQuantity, input.AvailableQuantity); err != nil {
		return nil, err
	}
	tiers, err := validateTierInputs(input.Tiers)
	if err != nil {
		return nil, err
	}

	var createdID uuid.UUID
	err = s.inTx(ctx, "create equipment", func(repo *Repository) error {
		if _, err := repo.FindCategory(ctx, input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
		row := &models.Equipment{
			CategoryID:        input.CategoryID,
			Name:              name,
			Model:             input.Model,
			Power:             input.Power,
			Description:       input.Description,
			TotalQuantity:     input.TotalQuantity,
			AvailableQuantity: input.AvailableQuantity,
		}
		if err := repo.Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert equipment")
		}
		if err := repo.ReplaceTiers(ctx, row.ID, tiers); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert pricing tiers")
		}
		createdID = row.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetEquipment(ctx, createdID)
}

func (s *service) UpdateEquipment(ctx context.Context, id uuid.UUID, input UpdateEquipmentInput) (*EquipmentDTO, error) {
	var tiers []models.EquipmentPricingTier
	if input.Tiers != nil {
		validated, err := validateTierInputs(*input.Tiers)
		if err != nil {
			return nil, err
		}
		tiers = validated
	}

	err := s.inTx(ctx, "update equipment", func(repo *Repository) error {
		row, err := repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "equipment not found", "load equipment")
		}
		if input.CategoryID != nil && *input.CategoryID != row.CategoryID {
			if _, err := repo.FindCategory(ctx, *input.CategoryID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
			}
			row.CategoryID = *input.CategoryID
			row.Category = nil
		}
		if err := applyUpdate(row, input); err != nil {
			return err
		}
		if err := repo.Update(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update equipment")
		}
		if input.Tiers != nil {
			if err := repo.ReplaceTiers(ctx, row.ID, tiers); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: replace pricing tiers")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetEquipment(ctx, id)
}

// DeleteEquipment removes the item and its tiers. Quote lines that referenced
// it surface as stale on their next read.
func (s *service) DeleteEquipment(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete equipment")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "equipment not found")
	}
	return nil
}

// PreviewPrice resolves the tier for a single rental without touching a quote.
func (s *service) PreviewPrice(ctx context.Context, id uuid.UUID, days, quantity int) (*PricePreview, error) {
	if days <= 0 || quantity <= 0 {
		return nil, pricingError(pricing.ErrInvalidQuantityOrDuration)
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "equipment not found", "load equipment")
	}
	card := RateCardFromModel(row)
	tier, err := card.Resolve(days)
	if err != nil {
		return nil, pricingError(err)
	}
	total, err := pricing.LineTotal(tier.PricePerDay, quantity, days)
	if err != nil {
		return nil, pricingError(err)
	}
	total = pricing.RoundMoney(total)
	return &PricePreview{
		EquipmentID:      row.ID,
		Days:             days,
		Quantity:         quantity,
		Tier:             tierDTO(tier),
		PricePerDay:      tier.PricePerDay,
		DiscountPercent:  tier.DiscountPercent,
		LineTotal:        total,
		LineTotalDisplay: s.formatter.Format(total),
		ExceedsAvailable: quantity > row.AvailableQuantity,
	}, nil
}

// ApplyRateCard upserts every entry of a validated rate card in one transaction.
func (s *service) ApplyRateCard(ctx context.Context, file *RateCardFile) (*ApplyResult, error) {
	if file == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate card is required")
	}
	if err := file.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rate card").
			WithDetails(map[string]any{"problems": errorStrings(err)})
	}

	result := &ApplyResult{}
	err := s.inTx(ctx, "apply rate card", func(repo *Repository) error {
		categories := map[string]uuid.UUID{}
		for i, entry := range file.Equipment {
			categoryID, created, err := ensureCategory(ctx, repo, categories, entry.Category)
			if err != nil {
				return err
			}
			if created {
				result.CategoriesCreated++
			}
			row, isNew, err := findEntry(ctx, repo, categoryID, entry)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, entry.label(i))
			}
			applyEntry(row, categoryID, entry)
			if err := validateQuantities(row.TotalQuantity, row.AvailableQuantity); err != nil {
				return err
			}
			if isNew {
				err = repo.Create(ctx, row)
				result.EquipmentCreated++
			} else {
				err = repo.Update(ctx, row)
				result.EquipmentUpdated++
			}
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save "+entry.label(i))
			}
			tiers, err := validateTierInputs(entry.tierInputs())
			if err != nil {
				return err
			}
			if err := repo.ReplaceTiers(ctx, row.ID, tiers); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: replace tiers for "+entry.label(i))
			}
			result.TiersWritten += len(tiers)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func ensureCategory(ctx context.Context, repo *Repository, cache map[string]uuid.UUID, name string) (uuid.UUID, bool, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if id, ok := cache[key]; ok {
		return id, false, nil
	}
	existing, err := repo.FindCategoryByName(ctx, name)
	if err == nil {
		cache[key] = existing.ID
		return existing.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	category := &models.EquipmentCategory{Name: strings.TrimSpace(name)}
	if err := repo.CreateCategory(ctx, category); err != nil {
		return uuid.Nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert category")
	}
	cache[key] = category.ID
	return category.ID, true, nil
}

func findEntry(ctx context.Context, repo *Repository, categoryID uuid.UUID, entry RateCardEntry) (*models.Equipment, bool, error) {
	var (
		row *models.Equipment
		err error
	)
	if entry.ID != nil {
		row, err = repo.FindByID(ctx, *entry.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("equipment %s does not exist", *entry.ID)
		}
	} else {
		row, err = repo.FindByName(ctx, categoryID, entry.Name)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Equipment{}, true, nil
		}
	}
	if err != nil {
		return nil, false, err
	}
	row.Category = nil
	row.PricingTiers = nil
	return row, false, nil
}

func applyEntry(row *models.Equipment, categoryID uuid.UUID, entry RateCardEntry) {
	row.CategoryID = categoryID
	row.Name = strings.TrimSpace(entry.Name)
	if entry.Model != nil {
		row.Model = entry.Model
	}
	if entry.Power != nil {
		row.Power = entry.Power
	}
	if entry.Description != nil {
		row.Description = entry.Description
	}
	if entry.TotalQuantity != nil {
		row.TotalQuantity = *entry.TotalQuantity
	}
	if entry.AvailableQuantity != nil {
		row.AvailableQuantity = *entry.AvailableQuantity
	}
}

func applyUpdate(row *models.Equipment, input UpdateEquipmentInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		row.Name = name
	}
	if input.Model != nil {
		row.Model = input.Model
	}
	if input.Power != nil {
		row.Power = input.Power
	}
	if input.Description != nil {
		row.Description = input.Description
	}
	if input.TotalQuantity != nil {
		row.TotalQuantity = *input.TotalQuantity
	}
	if input.AvailableQuantity != nil {
		row.AvailableQuantity = *input.AvailableQuantity
	}
	row.PricingTiers = nil
	return validateQuantities(row.TotalQuantity, row.AvailableQuantity)
}

func validateQuantities(total, available int) error {
	if total < 0 || available < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantities must not be negative")
	}
	if available > total {
		return pkgerrors.New(pkgerrors.CodeValidation, "available_quantity cannot exceed total_quantity")
	}
	return nil
}

func (s *service) inTx(ctx context.Context, op string, fn func(repo *Repository) error) error {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(s.repo.WithTx(tx))
	})
	if err == nil || pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
