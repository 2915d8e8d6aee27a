package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
	"github.com/angelmondragon/rentquote-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID           uuid.UUID        `json:"id"`
	Email        string           `json:"email"`
	FirstName    string           `json:"first_name"`
	LastName     string           `json:"last_name"`
	Phone        *string          `json:"phone,omitempty"`
	Role         enums.UserRole   `json:"role"`
	Status       enums.UserStatus `json:"status"`
	StatusReason *string          `json:"status_reason,omitempty"`
	ApprovedAt   *time.Time       `json:"approved_at,omitempty"`
	LastLoginAt  *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	Role         enums.UserRole
	Status       enums.UserStatus
}

// StatusChange records an admin decision on an account.
type StatusChange struct {
	Status    enums.UserStatus
	Reason    *string
	DecidedBy uuid.UUID
	DecidedAt time.Time
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Phone:        u.Phone,
		Role:         u.Role,
		Status:       u.Status,
		StatusReason: u.StatusReason,
		ApprovedAt:   u.ApprovedAt,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleUser
	}
	status := c.Status
	if status == "" {
		status = enums.UserStatusPending
	}

	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Phone:        c.Phone,
		Role:         role,
		Status:       status,
	}
}
