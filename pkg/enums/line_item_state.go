package enums

import "fmt"

// LineItemState tracks whether a quote line currently carries a resolved price.
type LineItemState string

const (
	LineItemStateUnselected LineItemState = "unselected"
	LineItemStatePriced     LineItemState = "priced"
)

var validLineItemStates = []LineItemState{
	LineItemStateUnselected,
	LineItemStatePriced,
}

// String implements fmt.Stringer.
func (l LineItemState) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LineItemState.
func (l LineItemState) IsValid() bool {
	for _, candidate := range validLineItemStates {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLineItemState converts raw input into a LineItemState.
func ParseLineItemState(value string) (LineItemState, error) {
	for _, candidate := range validLineItemStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid line item state %q", value)
}
