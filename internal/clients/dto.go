package clients

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
)

// ClientDTO is the API shape of a client.
type ClientDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Company   *string   `json:"company,omitempty"`
	TaxID     *string   `json:"tax_id,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClientInput is the create payload; on update every field is replaced.
type ClientInput struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Company *string `json:"company,omitempty" validate:"omitempty,max=200"`
	TaxID   *string `json:"tax_id,omitempty" validate:"omitempty,max=64"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Address *string `json:"address,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

func FromModel(c *models.Client) ClientDTO {
	return ClientDTO{
		ID:        c.ID,
		Name:      c.Name,
		Company:   c.Company,
		TaxID:     c.TaxID,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		Notes:     c.Notes,
		CreatedBy: c.CreatedBy,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (in ClientInput) apply(c *models.Client) {
	c.Name = in.Name
	c.Company = trimmed(in.Company)
	c.TaxID = trimmed(in.TaxID)
	c.Email = trimmed(in.Email)
	c.Phone = trimmed(in.Phone)
	c.Address = trimmed(in.Address)
	c.Notes = in.Notes
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	out := strings.TrimSpace(*v)
	if out == "" {
		return nil
	}
	return &out
}
