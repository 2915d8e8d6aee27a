package cron

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/rentquote-backend/internal/quotes"
	"github.com/angelmondragon/rentquote-backend/pkg/logger"
)

type fakeAuditor struct {
	report quotes.AuditReport
	err    error
}

func (f *fakeAuditor) Run(context.Context) (quotes.AuditReport, error) {
	return f.report, f.err
}

func TestQuoteAuditJobLogsSummary(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: &logs})
	auditor := &fakeAuditor{report: quotes.AuditReport{
		Checked: 3,
		Drifts: []quotes.Drift{
			{QuoteID: uuid.New(), Stored: decimal.NewFromInt(10), Recomputed: decimal.NewFromInt(12), Repaired: true},
		},
	}}
	job, err := NewQuoteAuditJob(logg, auditor)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if job.Name() != QuoteAuditJobName {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := logs.String()
	for _, want := range []string{`"checked":3`, `"drifted":1`, `"repaired":1`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log %q missing %s", out, want)
		}
	}
}

func TestQuoteAuditJobPropagatesFailure(t *testing.T) {
	if _, err := NewQuoteAuditJob(nil, &fakeAuditor{}); err == nil {
		t.Fatalf("expected logger error")
	}
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: &bytes.Buffer{}})
	if _, err := NewQuoteAuditJob(logg, nil); err == nil {
		t.Fatalf("expected auditor error")
	}

	boom := errors.New("db gone")
	job, _ := NewQuoteAuditJob(logg, &fakeAuditor{err: boom})
	if err := job.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}
}
