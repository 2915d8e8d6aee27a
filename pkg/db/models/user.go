package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentquote-backend/pkg/enums"
)

// User is an application account. Only approved users may sign in.
type User struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Email        string           `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash string           `gorm:"column:password_hash;not null"`
	FirstName    string           `gorm:"column:first_name;not null"`
	LastName     string           `gorm:"column:last_name;not null"`
	Phone        *string          `gorm:"column:phone"`
	Role         enums.UserRole   `gorm:"column:role;type:text;not null;default:'user'"`
	Status       enums.UserStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	StatusReason *string          `gorm:"column:status_reason"`
	ApprovedBy   *uuid.UUID       `gorm:"column:approved_by;type:uuid"`
	ApprovedAt   *time.Time       `gorm:"column:approved_at"`
	LastLoginAt  *time.Time       `gorm:"column:last_login_at"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
