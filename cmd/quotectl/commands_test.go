package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/rentquote-backend/internal/auth"
	"github.com/angelmondragon/rentquote-backend/internal/equipment"
	"github.com/angelmondragon/rentquote-backend/internal/quotes"
	"github.com/angelmondragon/rentquote-backend/internal/users"
)

const sampleRateCard = `equipment:
  - name: CAT 320
    category: Excavators
    total_quantity: 3
    available_quantity: 2
    tiers:
      - {from: 1, to: 2, price_per_day: 350}
      - {from: 3, price_per_day: 315, discount_percent: 10}
`

type stubEquipment struct {
	equipment.Service
	applied *equipment.RateCardFile
	preview *equipment.PricePreview
	gotDays int
	gotQty  int
}

func (s *stubEquipment) ApplyRateCard(_ context.Context, file *equipment.RateCardFile) (*equipment.ApplyResult, error) {
	s.applied = file
	return &equipment.ApplyResult{CategoriesCreated: 1, EquipmentCreated: 1, TiersWritten: 2}, nil
}

func (s *stubEquipment) PreviewPrice(_ context.Context, _ uuid.UUID, days, quantity int) (*equipment.PricePreview, error) {
	s.gotDays, s.gotQty = days, quantity
	return s.preview, nil
}

type stubRegister struct {
	auth.RegisterService
	got auth.CreateAdminRequest
}

func (s *stubRegister) CreateAdmin(_ context.Context, req auth.CreateAdminRequest) (*users.UserDTO, error) {
	s.got = req
	return &users.UserDTO{ID: uuid.New(), Email: req.Email}, nil
}

type stubAuditor struct {
	report quotes.AuditReport
}

func (s *stubAuditor) Run(context.Context) (quotes.AuditReport, error) { return s.report, nil }

type stubBackend struct {
	equipment *stubEquipment
	register  *stubRegister
	auditor   *stubAuditor
	repair    bool
	closed    bool
}

func (b *stubBackend) Equipment() equipment.Service   { return b.equipment }
func (b *stubBackend) Register() auth.RegisterService { return b.register }
func (b *stubBackend) Auditor(_ context.Context, repair bool) (quoteAuditor, error) {
	b.repair = repair
	return b.auditor, nil
}
func (b *stubBackend) Close() error {
	b.closed = true
	return nil
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		equipment: &stubEquipment{},
		register:  &stubRegister{},
		auditor:   &stubAuditor{},
	}
}

func execute(t *testing.T, b *stubBackend, args ...string) (string, error) {
	t.Helper()
	opened := false
	root := newRootCmd(func(context.Context) (backend, error) {
		opened = true
		return b, nil
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if opened && !b.closed {
		t.Fatalf("backend left open")
	}
	return out.String(), err
}

func writeRateCard(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "card.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write rate card: %v", err)
	}
	return path
}

func TestRateCardValidateDoesNotOpenBackend(t *testing.T) {
	path := writeRateCard(t, sampleRateCard)
	root := newRootCmd(func(context.Context) (backend, error) {
		return nil, errors.New("backend must not be opened")
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"ratecard", "validate", "-f", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out.String(), "1 equipment") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestRateCardValidateRejectsOverlappingTiers(t *testing.T) {
	path := writeRateCard(t, `equipment:
  - name: Lift
    category: Lifts
    tiers:
      - {from: 1, to: 5, price_per_day: 100}
      - {from: 4, price_per_day: 90}
`)
	if _, err := execute(t, newStubBackend(), "ratecard", "validate", "-f", path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestRateCardApply(t *testing.T) {
	b := newStubBackend()
	out, err := execute(t, b, "ratecard", "apply", "--file", writeRateCard(t, sampleRateCard))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if b.equipment.applied == nil || b.equipment.applied.Equipment[0].Name != "CAT 320" {
		t.Fatalf("rate card not forwarded: %+v", b.equipment.applied)
	}
	if !strings.Contains(out, "tiers written: 2") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestPriceCommand(t *testing.T) {
	b := newStubBackend()
	b.equipment.preview = &equipment.PricePreview{
		Tier:             equipment.TierDTO{PeriodStart: 3},
		PricePerDay:      decimal.NewFromInt(315),
		DiscountPercent:  decimal.NewFromInt(10),
		LineTotalDisplay: "$1,701.00",
	}
	out, err := execute(t, b, "price", "--equipment", uuid.NewString(), "--days", "3", "--quantity", "2")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if b.equipment.gotDays != 3 || b.equipment.gotQty != 2 {
		t.Fatalf("unexpected args days=%d qty=%d", b.equipment.gotDays, b.equipment.gotQty)
	}
	for _, want := range []string{"tier: 3+ days", "price per day: 315.00", "total: $1,701.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestPriceCommandValidatesInput(t *testing.T) {
	cases := [][]string{
		{"price", "--equipment", "nope", "--days", "3"},
		{"price", "--equipment", uuid.NewString(), "--days", "0"},
		{"price", "--equipment", uuid.NewString(), "--days", "2", "--quantity", "0"},
	}
	for _, args := range cases {
		if _, err := execute(t, newStubBackend(), args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestQuoteAuditReportsDrift(t *testing.T) {
	b := newStubBackend()
	b.auditor.report = quotes.AuditReport{
		Checked: 4,
		Drifts: []quotes.Drift{{
			QuoteNumber: "Q-2026-000012",
			Stored:      decimal.NewFromInt(100),
			Recomputed:  decimal.NewFromInt(120),
			Repaired:    true,
		}},
	}
	out, err := execute(t, b, "quote", "audit", "--repair")
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if !b.repair {
		t.Fatalf("repair flag not forwarded")
	}
	if !strings.Contains(out, "repaired Q-2026-000012 stored=100.00 recomputed=120.00") || !strings.Contains(out, "checked 4 quotes, 1 drifted") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestUserCreateAdmin(t *testing.T) {
	b := newStubBackend()
	out, err := execute(t, b, "user", "create-admin",
		"--email", "ops@example.com", "--password", "s3cret-pass!", "--first-name", "Ana", "--last-name", "Ruiz")
	if err != nil {
		t.Fatalf("create-admin: %v", err)
	}
	want := auth.CreateAdminRequest{Email: "ops@example.com", Password: "s3cret-pass!", FirstName: "Ana", LastName: "Ruiz"}
	if b.register.got != want {
		t.Fatalf("unexpected request %+v", b.register.got)
	}
	if !strings.Contains(out, "created admin ops@example.com") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestUserCreateAdminRequiresFlags(t *testing.T) {
	if _, err := execute(t, newStubBackend(), "user", "create-admin", "--email", "ops@example.com"); err == nil {
		t.Fatalf("expected missing flag error")
	}
}
