package enums

import "fmt"

// QuoteStatus tracks the lifecycle of a rental quote.
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRejected QuoteStatus = "rejected"
)

var validQuoteStatuses = []QuoteStatus{
	QuoteStatusDraft,
	QuoteStatusSent,
	QuoteStatusAccepted,
	QuoteStatusRejected,
}

var quoteStatusTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteStatusDraft: {QuoteStatusSent},
	QuoteStatusSent:  {QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusDraft},
}

// String implements fmt.Stringer.
func (q QuoteStatus) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QuoteStatus.
func (q QuoteStatus) IsValid() bool {
	for _, candidate := range validQuoteStatuses {
		if candidate == q {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether moving from q to next is allowed.
func (q QuoteStatus) CanTransitionTo(next QuoteStatus) bool {
	for _, candidate := range quoteStatusTransitions[q] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsEditable reports whether lines may still change.
func (q QuoteStatus) IsEditable() bool {
	return q == QuoteStatusDraft
}

// IsDeletable reports whether the quote can be removed.
func (q QuoteStatus) IsDeletable() bool {
	return q == QuoteStatusDraft || q == QuoteStatusRejected
}

// ParseQuoteStatus converts raw input into a QuoteStatus.
func ParseQuoteStatus(value string) (QuoteStatus, error) {
	for _, candidate := range validQuoteStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quote status %q", value)
}
