package quotes

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/rentquote-backend/internal/equipment"
	"github.com/angelmondragon/rentquote-backend/pkg/db"
	"github.com/angelmondragon/rentquote-backend/pkg/db/dbtest"
	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
	"github.com/angelmondragon/rentquote-backend/pkg/money"
)

type memoryLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]bool
}

func newMemoryLocker() *memoryLocker {
	return &memoryLocker{held: map[uuid.UUID]bool{}}
}

func (m *memoryLocker) Acquire(_ context.Context, id uuid.UUID) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[id] {
		return nil, ErrQuoteLocked
	}
	m.held[id] = true
	return func() {
		m.mu.Lock()
		delete(m.held, id)
		m.mu.Unlock()
	}, nil
}

type counterSeq struct {
	mu     sync.Mutex
	values map[string]int64
}

func (c *counterSeq) NextSequence(_ context.Context, name string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = map[string]int64{}
	}
	c.values[name]++
	return c.values[name], nil
}

type fixture struct {
	svc       Service
	repo      *Repository
	eqRepo    *equipment.Repository
	catalog   equipment.Service
	db        *db.Client
	locker    *memoryLocker
	userID    uuid.UUID
	clientID  uuid.UUID
	category  uuid.UUID
	excavator uuid.UUID
	compactor uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Client(t)
	formatter := money.MustFormatter("en-US", "USD")

	eqRepo := equipment.NewRepository(client.DB())
	catalog, err := equipment.NewService(eqRepo, client, formatter)
	if err != nil {
		t.Fatalf("catalog service: %v", err)
	}

	numberer, err := NewNumberer(&counterSeq{}, "Q")
	if err != nil {
		t.Fatalf("numberer: %v", err)
	}
	numberer.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	f := &fixture{
		repo:    NewRepository(client.DB()),
		eqRepo:  eqRepo,
		catalog: catalog,
		db:      client,
		locker:  newMemoryLocker(),
		userID:  uuid.New(),
	}
	svc, err := NewService(ServiceParams{
		Repo:          f.repo,
		EquipmentRepo: eqRepo,
		DB:            client,
		Locker:        f.locker,
		Numberer:      numberer,
		Formatter:     formatter,
		ValidityDays:  30,
	})
	if err != nil {
		t.Fatalf("quote service: %v", err)
	}
	f.svc = svc

	acme := &models.Client{Name: "Acme Builders", CreatedBy: f.userID}
	if err := client.DB().Create(acme).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	f.clientID = acme.ID

	ctx := context.Background()
	cat, err := catalog.CreateCategory(ctx, equipment.CategoryInput{Name: "Earthmoving"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	f.category = cat.ID

	exc, err := catalog.CreateEquipment(ctx, equipment.CreateEquipmentInput{
		CategoryID: cat.ID, Name: "CAT 320", TotalQuantity: 3, AvailableQuantity: 2,
		Tiers: []equipment.TierInput{
			{PeriodStart: 1, PeriodEnd: intPtr(2), PricePerDay: dec("350")},
			{PeriodStart: 3, PeriodEnd: intPtr(7), PricePerDay: dec("315"), DiscountPercent: dec("10")},
			{PeriodStart: 8, PricePerDay: dec("280"), DiscountPercent: dec("20")},
		},
	})
	if err != nil {
		t.Fatalf("create excavator: %v", err)
	}
	f.excavator = exc.ID

	comp, err := catalog.CreateEquipment(ctx, equipment.CreateEquipmentInput{
		CategoryID: cat.ID, Name: "Plate Compactor", TotalQuantity: 4, AvailableQuantity: 4,
		Tiers: []equipment.TierInput{{PeriodStart: 1, PricePerDay: dec("70")}},
	})
	if err != nil {
		t.Fatalf("create compactor: %v", err)
	}
	f.compactor = comp.ID
	return f
}

func (f *fixture) draft(t *testing.T) *QuoteDTO {
	t.Helper()
	q, err := f.svc.Create(context.Background(), f.userID, CreateQuoteInput{ClientID: f.clientID})
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	return q
}

func intPtr(v int) *int { return &v }

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func idPtr(id uuid.UUID) *uuid.UUID { return &id }

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
	return &t
}
