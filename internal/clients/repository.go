package clients

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
	"github.com/angelmondragon/rentquote-backend/pkg/pagination"
)

// Repository persists clients.
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

func (r *Repository) Create(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *Repository) Update(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Save(client).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var row models.Client
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Client{}, "id = ?", id).Error
}

// CountQuotes counts quotes addressed to the client.
func (r *Repository) CountQuotes(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Quote{}).Where("client_id = ?", id).Count(&count).Error
	return count, err
}

// List pages through clients newest first. query matches name or company.
func (r *Repository) List(ctx context.Context, query string, params pagination.Params) (pagination.Page[models.Client], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Client]{}, err
	}
	q := r.db.WithContext(ctx).Model(&models.Client{})
	if term := strings.ToLower(strings.TrimSpace(query)); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(COALESCE(company, '')) LIKE ?", like, like)
	}
	var rows []models.Client
	if err := q.Scopes(pagination.Scope("", cursor, params.Limit)).Find(&rows).Error; err != nil {
		return pagination.Page[models.Client]{}, err
	}
	return pagination.Build(rows, params.Limit, func(c models.Client) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	}), nil
}
