package quotes

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/rentquote-backend/internal/equipment"
	"github.com/angelmondragon/rentquote-backend/internal/pricing"
	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
	"github.com/angelmondragon/rentquote-backend/pkg/logger"
	"github.com/angelmondragon/rentquote-backend/pkg/metrics"
)

const defaultAuditBatch = 200

// AuditParams configures a total audit run. Locker is required with Repair so
// a rewrite never races a draft edit.
type AuditParams struct {
	Repo          *Repository
	EquipmentRepo *equipment.Repository
	Locker        DraftLocker
	Metrics       *metrics.QuoteMetrics
	Logger        *logger.Logger
	BatchSize     int
	Repair        bool
}

// Drift is one quote whose stored total disagrees with its lines.
type Drift struct {
	QuoteID     uuid.UUID
	QuoteNumber string
	Stored      decimal.Decimal
	Recomputed  decimal.Decimal
	Repaired    bool
}

// AuditReport summarizes a run.
type AuditReport struct {
	Checked int
	Drifts  []Drift
}

// Auditor compares every stored quote total with a recomputation from its
// stored lines against the current catalog.
type Auditor struct {
	repo    *Repository
	cards   rateCardSource
	locker  DraftLocker
	metrics *metrics.QuoteMetrics
	logg    *logger.Logger
	batch   int
	repair  bool
}

func NewAuditor(params AuditParams) (*Auditor, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("quote repository required")
	}
	if params.EquipmentRepo == nil {
		return nil, fmt.Errorf("equipment repository required")
	}
	if params.Repair && params.Locker == nil {
		return nil, fmt.Errorf("draft locker required for repair")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultAuditBatch
	}
	return &Auditor{
		repo:    params.Repo,
		cards:   params.EquipmentRepo,
		locker:  params.Locker,
		metrics: params.Metrics,
		logg:    params.Logger,
		batch:   batch,
		repair:  params.Repair,
	}, nil
}

// Run walks all quotes. A failed repair does not stop the walk; failures are
// combined into the returned error.
func (a *Auditor) Run(ctx context.Context) (AuditReport, error) {
	var (
		report AuditReport
		errs   error
		after  uuid.UUID
	)
	for {
		if err := ctx.Err(); err != nil {
			return report, multierr.Append(errs, err)
		}
		batch, err := a.repo.AuditBatch(ctx, after, a.batch)
		if err != nil {
			return report, multierr.Append(errs, fmt.Errorf("load audit batch: %w", err))
		}
		cards, err := a.cards.RateCards(ctx, batchEquipmentIDs(batch))
		if err != nil {
			return report, multierr.Append(errs, fmt.Errorf("load rate cards: %w", err))
		}
		for i := range batch {
			quote := &batch[i]
			report.Checked++
			recomputed := pricing.RoundMoney(pricing.QuoteTotal(currentLines(quote.Lines, cards)))
			if recomputed.Equal(quote.TotalNet) {
				continue
			}

			drift := Drift{
				QuoteID:     quote.ID,
				QuoteNumber: quote.QuoteNumber,
				Stored:      quote.TotalNet,
				Recomputed:  recomputed,
			}
			a.metrics.IncDrift()
			if a.repair {
				repaired, err := a.repairQuote(ctx, &drift)
				if err != nil {
					errs = multierr.Append(errs, fmt.Errorf("repair quote %s: %w", quote.QuoteNumber, err))
				} else if repaired {
					drift.Repaired = true
					a.metrics.IncRepaired()
				}
			}
			a.logDrift(ctx, drift)
			report.Drifts = append(report.Drifts, drift)
		}
		if len(batch) < a.batch {
			return report, errs
		}
		after = batch[len(batch)-1].ID
	}
}

// repairQuote rewrites a drifted total under the draft lock. Lines are re-read
// after the lock is held, and the write only lands if total_net is still the
// value the audit saw. A quote that is being edited is skipped.
func (a *Auditor) repairQuote(ctx context.Context, drift *Drift) (bool, error) {
	release, err := a.locker.Acquire(ctx, drift.QuoteID)
	if err != nil {
		if errors.Is(err, ErrQuoteLocked) {
			return false, nil
		}
		return false, fmt.Errorf("acquire quote lock: %w", err)
	}
	defer release()

	rows, err := a.repo.Lines(ctx, drift.QuoteID)
	if err != nil {
		return false, fmt.Errorf("reload lines: %w", err)
	}
	total, err := catalogTotal(ctx, a.cards, rows)
	if err != nil {
		return false, fmt.Errorf("recompute total: %w", err)
	}
	drift.Recomputed = total
	if total.Equal(drift.Stored) {
		return false, nil
	}
	return a.repo.UpdateTotalIf(ctx, drift.QuoteID, drift.Stored, total)
}

func batchEquipmentIDs(batch []models.Quote) []uuid.UUID {
	var rows []models.QuoteLineItem
	for i := range batch {
		rows = append(rows, batch[i].Lines...)
	}
	return equipmentIDs(rows)
}

func (a *Auditor) logDrift(ctx context.Context, drift Drift) {
	if a.logg == nil {
		return
	}
	logCtx := a.logg.WithQuoteID(ctx, drift.QuoteID.String())
	logCtx = a.logg.WithFields(logCtx, map[string]any{
		"quote_number": drift.QuoteNumber,
		"stored":       drift.Stored.StringFixed(pricing.MoneyScale),
		"recomputed":   drift.Recomputed.StringFixed(pricing.MoneyScale),
		"repaired":     drift.Repaired,
	})
	a.logg.Warn(logCtx, "quotes.total_drift")
}
