package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
	"github.com/angelmondragon/rentquote-backend/pkg/enums"
	"github.com/angelmondragon/rentquote-backend/pkg/pagination"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// List pages through users, newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status *enums.UserStatus, params pagination.Params) (pagination.Page[models.User], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.User]{}, err
	}

	query := r.db.WithContext(ctx).Model(&models.User{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var rows []models.User
	if err := query.Scopes(pagination.Scope("", cursor, params.Limit)).Find(&rows).Error; err != nil {
		return pagination.Page[models.User]{}, err
	}
	return pagination.Build(rows, params.Limit, func(u models.User) pagination.Cursor {
		return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
	}), nil
}

// UpdateStatus applies an approval decision. Approvals stamp approved_by/approved_at.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, change StatusChange) error {
	updates := map[string]any{
		"status":        change.Status,
		"status_reason": change.Reason,
		"updated_at":    change.DecidedAt,
	}
	if change.Status == enums.UserStatusApproved {
		updates["approved_by"] = change.DecidedBy
		updates["approved_at"] = change.DecidedAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
