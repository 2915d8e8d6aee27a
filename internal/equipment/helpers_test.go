package equipment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/rentquote-backend/pkg/db"
	"github.com/angelmondragon/rentquote-backend/pkg/db/dbtest"
	"github.com/angelmondragon/rentquote-backend/pkg/money"
)

func newTestService(t *testing.T) (Service, *Repository, *db.Client) {
	t.Helper()
	client := dbtest.Client(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(repo, client, money.MustFormatter("en-US", "USD"))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo, client
}

func intPtr(v int) *int { return &v }

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func excavatorTiers() []TierInput {
	return []TierInput{
		{PeriodStart: 1, PeriodEnd: intPtr(2), PricePerDay: dec("350")},
		{PeriodStart: 3, PeriodEnd: intPtr(7), PricePerDay: dec("315"), DiscountPercent: dec("10")},
		{PeriodStart: 8, PeriodEnd: intPtr(18), PricePerDay: dec("280"), DiscountPercent: dec("20")},
		{PeriodStart: 19, PeriodEnd: intPtr(29), PricePerDay: dec("245"), DiscountPercent: dec("30")},
		{PeriodStart: 30, PricePerDay: dec("210"), DiscountPercent: dec("40")},
	}
}

func mustCategory(t *testing.T, svc Service, name string) uuid.UUID {
	t.Helper()
	c, err := svc.CreateCategory(context.Background(), CategoryInput{Name: name})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c.ID
}

func mustExcavator(t *testing.T, svc Service, categoryID uuid.UUID) *EquipmentDTO {
	t.Helper()
	e, err := svc.CreateEquipment(context.Background(), CreateEquipmentInput{
		CategoryID:        categoryID,
		Name:              "CAT 320",
		TotalQuantity:     3,
		AvailableQuantity: 2,
		Tiers:             excavatorTiers(),
	})
	if err != nil {
		t.Fatalf("create equipment: %v", err)
	}
	return e
}
