package equipment

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/rentquote-backend/pkg/errors"
	"github.com/angelmondragon/rentquote-backend/pkg/pagination"
)

func loadSample(t *testing.T) *RateCardFile {
	t.Helper()
	f, err := os.Open("testdata/ratecard.yaml")
	require.NoError(t, err)
	defer f.Close()
	file, err := ParseRateCard(f)
	require.NoError(t, err)
	return file
}

func TestParseRateCardSample(t *testing.T) {
	file := loadSample(t)
	require.Len(t, file.Equipment, 2)

	excavator := file.Equipment[0]
	assert.Equal(t, "Excavators", excavator.Category)
	require.Len(t, excavator.Tiers, 5)
	assert.True(t, excavator.Tiers[1].PricePerDay.Equal(dec("315")))
	assert.Nil(t, excavator.Tiers[4].To)
	assert.True(t, file.Equipment[1].Tiers[1].DiscountPercent.Equal(dec("14.29")))

	assert.NoError(t, file.Validate())
}

func TestParseRateCardRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"unknown field": "equipment:\n  - name: X\n    colour: red\n",
		"bad amount":    "equipment:\n  - name: X\n    category: Y\n    tiers:\n      - {from: 1, price_per_day: cheap}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRateCard(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestRateCardValidateCollectsEveryProblem(t *testing.T) {
	doc := `
equipment:
  - name: ""
    category: Excavators
    tiers:
      - {from: 1, to: 2, price_per_day: 10}
      - {from: 4, price_per_day: 9}
  - name: Roller
    category: ""
    total_quantity: 1
    available_quantity: 5
  - name: Roller
    category: ""
    tiers:
      - {from: 1, price_per_day: 5}
`
	file, err := ParseRateCard(strings.NewReader(doc))
	require.NoError(t, err)

	problems := errorStrings(file.Validate())
	joined := strings.Join(problems, "\n")
	for _, want := range []string{
		"entry 1: name is required",
		"gap between day 3 and day 3",
		"entry 2 (Roller): category is required",
		"available_quantity exceeds total_quantity",
		"entry 2 (Roller): at least one tier is required",
		"entry 3 (Roller): duplicates entry 2",
	} {
		assert.Contains(t, joined, want)
	}
}

func TestApplyRateCardCreatesThenUpdates(t *testing.T) {
	svc, repo, client := newTestService(t)
	ctx := context.Background()

	result, err := svc.ApplyRateCard(ctx, loadSample(t))
	require.NoError(t, err)
	assert.Equal(t, &ApplyResult{CategoriesCreated: 2, EquipmentCreated: 2, TiersWritten: 7}, result)

	file := loadSample(t)
	file.Equipment = file.Equipment[:1]
	file.Equipment[0].Tiers = file.Equipment[0].Tiers[4:]
	file.Equipment[0].Tiers[0].From = 1
	result, err = svc.ApplyRateCard(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, &ApplyResult{EquipmentUpdated: 1, TiersWritten: 1}, result)

	var count int64
	require.NoError(t, client.DB().Model(&models.Equipment{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	page, err := repo.List(ctx, ListFilter{Query: "CAT 320"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	detail, err := svc.GetEquipment(ctx, page.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, detail.Tiers, 1)
	assert.True(t, detail.Tiers[0].PricePerDay.Equal(dec("210")))
	assert.Equal(t, 3, detail.AvailableQuantity)
}

func TestApplyRateCardInvalidWritesNothing(t *testing.T) {
	svc, _, client := newTestService(t)
	file := loadSample(t)
	file.Equipment[1].Tiers[1].From = 9

	_, err := svc.ApplyRateCard(context.Background(), file)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	var count int64
	require.NoError(t, client.DB().Model(&models.EquipmentCategory{}).Count(&count).Error)
	assert.Zero(t, count)
}
