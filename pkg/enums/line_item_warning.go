package enums

import "fmt"

// LineItemWarning enumerates non-blocking warnings attached to priced quote lines.
type LineItemWarning string

const (
	LineItemWarningExceedsAvailable LineItemWarning = "exceeds_available"
	LineItemWarningPriceChanged     LineItemWarning = "price_changed"
)

var validLineItemWarnings = []LineItemWarning{
	LineItemWarningExceedsAvailable,
	LineItemWarningPriceChanged,
}

// String implements fmt.Stringer.
func (l LineItemWarning) String() string {
	return string(l)
}

// IsValid reports whether the value is known.
func (l LineItemWarning) IsValid() bool {
	for _, candidate := range validLineItemWarnings {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLineItemWarning converts raw input into a LineItemWarning.
func ParseLineItemWarning(value string) (LineItemWarning, error) {
	for _, candidate := range validLineItemWarnings {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid line item warning %q", value)
}
