package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/rentquote-backend/internal/quotes"
	"github.com/angelmondragon/rentquote-backend/pkg/logger"
)

// QuoteAuditJobName is the registry and metrics label of the total audit.
const QuoteAuditJobName = "quote-total-audit"

type quoteAuditor interface {
	Run(ctx context.Context) (quotes.AuditReport, error)
}

type quoteAuditJob struct {
	logg    *logger.Logger
	auditor quoteAuditor
}

// NewQuoteAuditJob wraps the quote total auditor as a cron job.
func NewQuoteAuditJob(logg *logger.Logger, auditor quoteAuditor) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("quote auditor required")
	}
	return &quoteAuditJob{logg: logg, auditor: auditor}, nil
}

func (j *quoteAuditJob) Name() string { return QuoteAuditJobName }

func (j *quoteAuditJob) Run(ctx context.Context) error {
	report, err := j.auditor.Run(ctx)
	repaired := 0
	for _, drift := range report.Drifts {
		if drift.Repaired {
			repaired++
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"checked":  report.Checked,
		"drifted":  len(report.Drifts),
		"repaired": repaired,
	})
	j.logg.Info(logCtx, "quote total audit finished")
	if err != nil {
		return fmt.Errorf("quote total audit: %w", err)
	}
	return nil
}
