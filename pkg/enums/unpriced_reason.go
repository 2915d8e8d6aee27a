package enums

import "fmt"

// UnpricedReason explains why a quote line has no price.
type UnpricedReason string

const (
	UnpricedReasonNoEquipment        UnpricedReason = "no_equipment"
	UnpricedReasonNoPricingAvailable UnpricedReason = "no_pricing_available"
	UnpricedReasonStaleEquipment     UnpricedReason = "stale_equipment"
)

var validUnpricedReasons = []UnpricedReason{
	UnpricedReasonNoEquipment,
	UnpricedReasonNoPricingAvailable,
	UnpricedReasonStaleEquipment,
}

// String implements fmt.Stringer.
func (u UnpricedReason) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UnpricedReason.
func (u UnpricedReason) IsValid() bool {
	for _, candidate := range validUnpricedReasons {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUnpricedReason converts raw input into an UnpricedReason.
func ParseUnpricedReason(value string) (UnpricedReason, error) {
	for _, candidate := range validUnpricedReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unpriced reason %q", value)
}
