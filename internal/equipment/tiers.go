package equipment

import (
	"errors"

	"github.com/angelmondragon/rentquote-backend/internal/pricing"
	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/rentquote-backend/pkg/errors"
)

// TierViolationDetail is the error detail rendered for each tier problem.
type TierViolationDetail struct {
	Index   *int   `json:"index,omitempty"`
	Message string `json:"message"`
}

// validateTierInputs runs the rate card rules and converts the result into
// models ready to insert.
func validateTierInputs(inputs []TierInput) ([]models.EquipmentPricingTier, error) {
	tiers := make([]pricing.Tier, len(inputs))
	rows := make([]models.EquipmentPricingTier, len(inputs))
	for i, in := range inputs {
		tiers[i] = in.toPricing()
		rows[i] = in.toModel()
	}
	if err := pricing.ValidateTiers(tiers); err != nil {
		return nil, tierValidationError(err)
	}
	return rows, nil
}

func tierValidationError(err error) error {
	violations := pricing.Violations(err)
	details := make([]TierViolationDetail, 0, len(violations))
	for _, v := range violations {
		detail := TierViolationDetail{Message: v.Message}
		if v.Index >= 0 {
			idx := v.Index
			detail.Index = &idx
		}
		details = append(details, detail)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pricing tiers").
		WithDetails(map[string]any{"tiers": details})
}

// pricingError maps pricing core sentinels to API errors.
func pricingError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pricing.ErrInvalidQuantityOrDuration):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "quantity and rental days must be positive")
	case errors.Is(err, pricing.ErrNoPricingAvailable):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "no pricing available for the requested rental period")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve price")
	}
}
