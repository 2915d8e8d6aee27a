package quotes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
	"github.com/angelmondragon/rentquote-backend/pkg/enums"
	"github.com/angelmondragon/rentquote-backend/pkg/pagination"
)

// Repository persists quotes and their lines.
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

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *Repository) Create(ctx context.Context, quote *models.Quote) error {
	return r.db.WithContext(ctx).Omit("Client", "Lines").Create(quote).Error
}

// FindByID loads a quote with its client and ordered lines.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var row models.Quote
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Lines", orderedLines).
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// FindHeader loads the quote row alone.
func (r *Repository) FindHeader(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var row models.Quote
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ClientExists reports whether the client id is known.
func (r *Repository) ClientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// List pages through quote headers newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Quote], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Quote]{}, err
	}
	q := r.db.WithContext(ctx).Model(&models.Quote{}).Preload("Client")
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.ClientID != nil {
		q = q.Where("client_id = ?", *filter.ClientID)
	}
	var rows []models.Quote
	if err := q.Scopes(pagination.Scope("", cursor, params.Limit)).Find(&rows).Error; err != nil {
		return pagination.Page[models.Quote]{}, err
	}
	return pagination.Build(rows, params.Limit, func(q models.Quote) pagination.Cursor {
		return pagination.Cursor{CreatedAt: q.CreatedAt, ID: q.ID}
	}), nil
}

// StatusUpdate is the set of columns a status transition writes.
type StatusUpdate struct {
	Status     enums.QuoteStatus
	SentAt     *time.Time
	ValidUntil *time.Time
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) error {
	res := r.db.WithContext(ctx).Model(&models.Quote{}).Where("id = ?", id).Updates(map[string]any{
		"status":      update.Status,
		"sent_at":     update.SentAt,
		"valid_until": update.ValidUntil,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateTotal stores a recomputed total_net.
func (r *Repository) UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.Quote{}).Where("id = ?", id).Update("total_net", total).Error
}

// UpdateTotalIf stores total only while total_net still equals expected. It
// reports whether the row was written.
func (r *Repository) UpdateTotalIf(ctx context.Context, id uuid.UUID, expected, total decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Quote{}).
		Where("id = ? AND total_net = ?", id, expected).
		Update("total_net", total)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Delete removes the quote and its lines.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("quote_id = ?", id).Delete(&models.QuoteLineItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&models.Quote{}, "id = ?", id).Error
}

// Lines returns the quote's lines in position order.
func (r *Repository) Lines(ctx context.Context, quoteID uuid.UUID) ([]models.QuoteLineItem, error) {
	var rows []models.QuoteLineItem
	err := r.db.WithContext(ctx).Where("quote_id = ?", quoteID).Scopes(orderedLines).Find(&rows).Error
	return rows, err
}

func (r *Repository) FindLine(ctx context.Context, quoteID, lineID uuid.UUID) (*models.QuoteLineItem, error) {
	var row models.QuoteLineItem
	if err := r.db.WithContext(ctx).First(&row, "id = ? AND quote_id = ?", lineID, quoteID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// NextPosition returns the position after the quote's last line.
func (r *Repository) NextPosition(ctx context.Context, quoteID uuid.UUID) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&models.QuoteLineItem{}).
		Where("quote_id = ?", quoteID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&max).Error
	return max + 1, err
}

func (r *Repository) CreateLine(ctx context.Context, line *models.QuoteLineItem) error {
	return r.db.WithContext(ctx).Create(line).Error
}

// SaveLine writes every column, including cleared price fields.
func (r *Repository) SaveLine(ctx context.Context, line *models.QuoteLineItem) error {
	return r.db.WithContext(ctx).Save(line).Error
}

func (r *Repository) DeleteLine(ctx context.Context, quoteID, lineID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.QuoteLineItem{}, "id = ? AND quote_id = ?", lineID, quoteID)
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) DeleteLines(ctx context.Context, quoteID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("quote_id = ?", quoteID).Delete(&models.QuoteLineItem{}).Error
}

// Renumber closes position gaps. Lines move down in ascending order so the
// (quote_id, position) unique index never sees a duplicate.
func (r *Repository) Renumber(ctx context.Context, quoteID uuid.UUID) error {
	lines, err := r.Lines(ctx, quoteID)
	if err != nil {
		return err
	}
	for i := range lines {
		want := i + 1
		if lines[i].Position == want {
			continue
		}
		err := r.db.WithContext(ctx).Model(&models.QuoteLineItem{}).
			Where("id = ?", lines[i].ID).
			Update("position", want).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// AuditBatch returns up to limit quotes with ids after the given one, lines
// preloaded, in id order. It walks the whole table without a moving cursor
// on created_at.
func (r *Repository) AuditBatch(ctx context.Context, after uuid.UUID, limit int) ([]models.Quote, error) {
	var rows []models.Quote
	q := r.db.WithContext(ctx).Preload("Lines", orderedLines).Order("id ASC").Limit(limit)
	if after != uuid.Nil {
		q = q.Where("id > ?", after)
	}
	err := q.Find(&rows).Error
	return rows, err
}
