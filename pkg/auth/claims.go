package auth

import (
	"github.com/angelmondragon/rentquote-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	Role   enums.UserRole
	Status enums.UserStatus
	// JTI doubles as the refresh session key. A random one is generated when empty.
	JTI string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID uuid.UUID        `json:"user_id"`
	Email  string           `json:"email,omitempty"`
	Role   enums.UserRole   `json:"role"`
	Status enums.UserStatus `json:"status"`
	jwt.RegisteredClaims
}

// AccessID returns the token identifier used to look up the refresh session.
func (c *AccessTokenClaims) AccessID() string {
	if c == nil {
		return ""
	}
	return c.ID
}

// IsAdmin reports whether the token was minted for an administrator.
func (c *AccessTokenClaims) IsAdmin() bool {
	return c != nil && c.Role == enums.UserRoleAdmin
}
