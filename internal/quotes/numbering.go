package quotes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type sequenceSource interface {
	NextSequence(ctx context.Context, name string) (int64, error)
}

// Numberer issues human readable quote numbers: <prefix>-<year>-<seq>.
// The sequence restarts every calendar year.
type Numberer struct {
	seq    sequenceSource
	prefix string
	now    func() time.Time
}

// NewNumberer builds a numberer backed by a Redis counter.
func NewNumberer(seq sequenceSource, prefix string) (*Numberer, error) {
	if seq == nil {
		return nil, errors.New("sequence source required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "Q"
	}
	return &Numberer{seq: seq, prefix: prefix, now: time.Now}, nil
}

// Next returns the next unused quote number.
func (n *Numberer) Next(ctx context.Context) (string, error) {
	year := n.now().UTC().Year()
	value, err := n.seq.NextSequence(ctx, fmt.Sprintf("quote_number:%d", year))
	if err != nil {
		return "", fmt.Errorf("next quote sequence: %w", err)
	}
	return fmt.Sprintf("%s-%d-%05d", n.prefix, year, value), nil
}
