package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPricingAvailable signals that no tier of the rate card covers the requested duration.
	ErrNoPricingAvailable = errors.New("no pricing available for rental period")
	// ErrInvalidQuantityOrDuration signals a non-positive quantity or rental period.
	ErrInvalidQuantityOrDuration = errors.New("quantity and rental period must be positive")
	// ErrStaleEquipment is returned when a line references equipment that left the catalog.
	// It matches ErrNoPricingAvailable under errors.Is.
	ErrStaleEquipment = fmt.Errorf("equipment no longer in catalog: %w", ErrNoPricingAvailable)
)
