package quotes

import (
	"context"
	"errors"
	"testing"
	"time"
)

type failingSeq struct{}

func (failingSeq) NextSequence(context.Context, string) (int64, error) {
	return 0, errors.New("redis down")
}

func TestNumbererRestartsEachYear(t *testing.T) {
	seq := &counterSeq{}
	n, err := NewNumberer(seq, " RQ ")
	if err != nil {
		t.Fatalf("numberer: %v", err)
	}
	ctx := context.Background()

	n.now = func() time.Time { return time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC) }
	for _, want := range []string{"RQ-2025-00001", "RQ-2025-00002"} {
		got, err := n.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}

	n.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC) }
	got, err := n.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got != "RQ-2026-00001" {
		t.Fatalf("expected a fresh sequence, got %s", got)
	}
}

func TestNumbererDefaultsAndErrors(t *testing.T) {
	n, err := NewNumberer(&counterSeq{}, "")
	if err != nil {
		t.Fatalf("numberer: %v", err)
	}
	if n.prefix != "Q" {
		t.Fatalf("expected default prefix, got %q", n.prefix)
	}

	if _, err := NewNumberer(nil, "Q"); err == nil {
		t.Fatalf("expected error without sequence")
	}

	broken, _ := NewNumberer(failingSeq{}, "Q")
	if _, err := broken.Next(context.Background()); err == nil {
		t.Fatalf("expected sequence failure")
	}
}
