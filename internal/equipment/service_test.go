package equipment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentquote-backend/internal/pricing"
	pkgerrors "github.com/angelmondragon/rentquote-backend/pkg/errors"
	"github.com/angelmondragon/rentquote-backend/pkg/pagination"
)

func TestCreateEquipmentStoresOrderedTiers(t *testing.T) {
	svc, _, _ := newTestService(t)
	cat := mustCategory(t, svc, "Excavators")

	tiers := excavatorTiers()
	tiers[0], tiers[4] = tiers[4], tiers[0]
	created, err := svc.CreateEquipment(context.Background(), CreateEquipmentInput{
		CategoryID: cat, Name: "  CAT 320 ", TotalQuantity: 1, AvailableQuantity: 1, Tiers: tiers,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Name != "CAT 320" || created.CategoryName != "Excavators" {
		t.Fatalf("unexpected equipment %+v", created)
	}
	if len(created.Tiers) != 5 {
		t.Fatalf("expected 5 tiers, got %d", len(created.Tiers))
	}
	for i := 1; i < len(created.Tiers); i++ {
		if created.Tiers[i-1].PeriodStart >= created.Tiers[i].PeriodStart {
			t.Fatalf("tiers not ordered by period_start: %+v", created.Tiers)
		}
	}
	if created.Tiers[4].PeriodEnd != nil {
		t.Fatalf("last tier should be open-ended")
	}
}

func TestCreateEquipmentRejectsInvalidTiers(t *testing.T) {
	svc, _, _ := newTestService(t)
	cat := mustCategory(t, svc, "Excavators")

	cases := map[string][]TierInput{
		"gap": {
			{PeriodStart: 1, PeriodEnd: intPtr(2), PricePerDay: dec("10")},
			{PeriodStart: 4, PricePerDay: dec("9")},
		},
		"overlap": {
			{PeriodStart: 1, PeriodEnd: intPtr(5), PricePerDay: dec("10")},
			{PeriodStart: 3, PricePerDay: dec("9")},
		},
		"negative price": {
			{PeriodStart: 1, PricePerDay: dec("-1")},
		},
		"discount above 100": {
			{PeriodStart: 1, PricePerDay: dec("1"), DiscountPercent: dec("120")},
		},
		"no open tier": {
			{PeriodStart: 1, PeriodEnd: intPtr(5), PricePerDay: dec("10")},
		},
	}
	for name, tiers := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateEquipment(context.Background(), CreateEquipmentInput{
				CategoryID: cat, Name: "Broken", TotalQuantity: 1, AvailableQuantity: 1, Tiers: tiers,
			})
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			details, ok := typed.Details().(map[string]any)
			if !ok {
				t.Fatalf("expected tier details, got %#v", typed.Details())
			}
			if list, _ := details["tiers"].([]TierViolationDetail); len(list) == 0 {
				t.Fatalf("expected at least one violation detail")
			}
		})
	}
}

func TestCreateEquipmentValidatesCategoryAndQuantities(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.CreateEquipment(context.Background(), CreateEquipmentInput{CategoryID: uuid.New(), Name: "X", Tiers: excavatorTiers()})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for missing category, got %v", err)
	}

	cat := mustCategory(t, svc, "Lifts")
	_, err = svc.CreateEquipment(context.Background(), CreateEquipmentInput{CategoryID: cat, Name: "X", TotalQuantity: 1, AvailableQuantity: 2})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for available > total, got %v", err)
	}
}

func TestUpdateEquipmentReplacesTiersAtomically(t *testing.T) {
	svc, _, _ := newTestService(t)
	cat := mustCategory(t, svc, "Excavators")
	e := mustExcavator(t, svc, cat)

	bad := []TierInput{{PeriodStart: 2, PricePerDay: dec("1")}}
	if _, err := svc.UpdateEquipment(context.Background(), e.ID, UpdateEquipmentInput{Tiers: &bad}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	unchanged, err := svc.GetEquipment(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(unchanged.Tiers) != 5 {
		t.Fatalf("rejected update must not touch tiers, got %d", len(unchanged.Tiers))
	}

	flat := []TierInput{{PeriodStart: 1, PricePerDay: dec("199.99")}}
	name := "CAT 320 GC"
	updated, err := svc.UpdateEquipment(context.Background(), e.ID, UpdateEquipmentInput{Name: &name, Tiers: &flat})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != name || len(updated.Tiers) != 1 || !updated.Tiers[0].PricePerDay.Equal(dec("199.99")) {
		t.Fatalf("unexpected update result %+v", updated)
	}

	if _, err := svc.UpdateEquipment(context.Background(), uuid.New(), UpdateEquipmentInput{Name: &name}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteCategoryInUseConflicts(t *testing.T) {
	svc, _, _ := newTestService(t)
	cat := mustCategory(t, svc, "Excavators")
	e := mustExcavator(t, svc, cat)

	if err := svc.DeleteCategory(context.Background(), cat); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := svc.DeleteEquipment(context.Background(), e.ID); err != nil {
		t.Fatalf("delete equipment: %v", err)
	}
	if err := svc.DeleteEquipment(context.Background(), e.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if err := svc.DeleteCategory(context.Background(), cat); err != nil {
		t.Fatalf("delete empty category: %v", err)
	}
}

func TestCategoryNameUnique(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustCategory(t, svc, "Excavators")
	if _, err := svc.CreateCategory(context.Background(), CategoryInput{Name: "Excavators"}); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := svc.CreateCategory(context.Background(), CategoryInput{Name: "  "}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
}

func TestPreviewPrice(t *testing.T) {
	svc, _, _ := newTestService(t)
	cat := mustCategory(t, svc, "Excavators")
	e := mustExcavator(t, svc, cat)

	preview, err := svc.PreviewPrice(context.Background(), e.ID, 5, 2)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !preview.PricePerDay.Equal(dec("315")) || !preview.LineTotal.Equal(dec("3150")) {
		t.Fatalf("unexpected preview %+v", preview)
	}
	if preview.LineTotalDisplay != "USD 3,150.00" {
		t.Fatalf("unexpected display %q", preview.LineTotalDisplay)
	}
	if preview.ExceedsAvailable {
		t.Fatalf("2 of 2 available should not exceed")
	}

	over, err := svc.PreviewPrice(context.Background(), e.ID, 30, 3)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !over.PricePerDay.Equal(dec("210")) || !over.ExceedsAvailable {
		t.Fatalf("unexpected preview %+v", over)
	}

	if _, err := svc.PreviewPrice(context.Background(), e.ID, 0, 1); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for zero days, got %v", err)
	}
	if _, err := svc.PreviewPrice(context.Background(), e.ID, 3, -1); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for negative quantity, got %v", err)
	}
}

func TestPreviewPriceWithoutTiers(t *testing.T) {
	svc, _, _ := newTestService(t)
	cat := mustCategory(t, svc, "Trailers")
	e, err := svc.CreateEquipment(context.Background(), CreateEquipmentInput{CategoryID: cat, Name: "Unpriced trailer", TotalQuantity: 1, AvailableQuantity: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = svc.PreviewPrice(context.Background(), e.ID, 3, 1)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if !errors.Is(err, pricing.ErrNoPricingAvailable) {
		t.Fatalf("expected wrapped ErrNoPricingAvailable, got %v", err)
	}
}

func TestListEquipmentFilters(t *testing.T) {
	svc, _, _ := newTestService(t)
	excavators := mustCategory(t, svc, "Excavators")
	lifts := mustCategory(t, svc, "Lifts")
	mustExcavator(t, svc, excavators)
	for _, name := range []string{"Scissor lift", "Boom lift"} {
		if _, err := svc.CreateEquipment(context.Background(), CreateEquipmentInput{CategoryID: lifts, Name: name, Tiers: excavatorTiers()}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	page, err := svc.ListEquipment(context.Background(), ListFilter{CategoryID: &lifts}, pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 lifts, got %d", len(page.Items))
	}

	page, err = svc.ListEquipment(context.Background(), ListFilter{Query: "BOOM"}, pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Name != "Boom lift" {
		t.Fatalf("unexpected search result %+v", page.Items)
	}

	if _, err := svc.ListEquipment(context.Background(), ListFilter{}, pagination.Params{Cursor: "not-base64!"}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for bad cursor, got %v", err)
	}
}
