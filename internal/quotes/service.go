package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentquote-backend/internal/equipment"
	"github.com/angelmondragon/rentquote-backend/pkg/db"
	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
	"github.com/angelmondragon/rentquote-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentquote-backend/pkg/errors"
	"github.com/angelmondragon/rentquote-backend/pkg/logger"
	"github.com/angelmondragon/rentquote-backend/pkg/metrics"
	"github.com/angelmondragon/rentquote-backend/pkg/money"
	"github.com/angelmondragon/rentquote-backend/pkg/pagination"
)

// Service drives the quote lifecycle.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateQuoteInput) (*QuoteDTO, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[QuoteDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*QuoteDTO, error)

	AddLine(ctx context.Context, quoteID uuid.UUID, input LineInput) (*QuoteDTO, error)
	UpdateLine(ctx context.Context, quoteID, lineID uuid.UUID, input UpdateLineInput) (*QuoteDTO, error)
	RemoveLine(ctx context.Context, quoteID, lineID uuid.UUID) (*QuoteDTO, error)
	ReplaceLines(ctx context.Context, quoteID uuid.UUID, input ReplaceLinesInput) (*QuoteDTO, error)
	Reprice(ctx context.Context, quoteID uuid.UUID) (*QuoteDTO, error)

	Transition(ctx context.Context, quoteID uuid.UUID, input TransitionInput) (*QuoteDTO, error)
	Delete(ctx context.Context, quoteID uuid.UUID) error
}

type quoteNumberer interface {
	Next(ctx context.Context) (string, error)
}

// ServiceParams names the dependencies of the quote service.
type ServiceParams struct {
	Repo          *Repository
	EquipmentRepo *equipment.Repository
	DB            *db.Client
	Locker        DraftLocker
	Numberer      quoteNumberer
	Formatter     *money.Formatter
	Metrics       *metrics.QuoteMetrics
	Logger        *logger.Logger
	ValidityDays  int
}

type service struct {
	repo         *Repository
	equipment    *equipment.Repository
	dbClient     *db.Client
	locker       DraftLocker
	numberer     quoteNumberer
	formatter    *money.Formatter
	metrics      *metrics.QuoteMetrics
	logg         *logger.Logger
	validityDays int
	now          func() time.Time
}

// NewService constructs the quote service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("quote repository required")
	}
	if params.EquipmentRepo == nil {
		return nil, fmt.Errorf("equipment repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("draft locker required")
	}
	if params.Numberer == nil {
		return nil, fmt.Errorf("quote numberer required")
	}
	if params.Formatter == nil {
		return nil, fmt.Errorf("money formatter required")
	}
	return &service{
		repo:         params.Repo,
		equipment:    params.EquipmentRepo,
		dbClient:     params.DB,
		locker:       params.Locker,
		numberer:     params.Numberer,
		formatter:    params.Formatter,
		metrics:      params.Metrics,
		logg:         params.Logger,
		validityDays: params.ValidityDays,
		now:          time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateQuoteInput) (*QuoteDTO, error) {
	if input.ClientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client_id is required")
	}
	exists, err := s.repo.ClientExists(ctx, input.ClientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client not found").
			WithDetails(map[string]any{"client_id": input.ClientID})
	}

	number, err := s.numberer.Next(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue quote number")
	}
	row := &models.Quote{
		QuoteNumber: number,
		ClientID:    input.ClientID,
		CreatedBy:   userID,
		Status:      enums.QuoteStatusDraft,
		Notes:       input.Notes,
		ValidUntil:  input.ValidUntil,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "quote number %s already issued", number)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create quote")
	}
	return s.Get(ctx, row.ID)
}

// List returns quote headers with their stored totals.
func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[QuoteDTO], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[QuoteDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return pagination.Page[QuoteDTO]{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid quote status %q", *filter.Status)
	}
	page, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return pagination.Page[QuoteDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list quotes")
	}
	return pagination.Map(page, func(q *models.Quote) QuoteDTO { return headerDTO(q, s.formatter) }), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*QuoteDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "quote not found", "load quote")
	}
	cards, err := s.equipment.RateCards(ctx, equipmentIDs(row.Lines))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rate cards")
	}
	dto := buildView(row, cards, s.formatter)
	return &dto, nil
}

func (s *service) AddLine(ctx context.Context, quoteID uuid.UUID, input LineInput) (*QuoteDTO, error) {
	return s.mutate(ctx, quoteID, "add quote line", func(ctx context.Context, e *edit) error {
		position, err := e.quotes.NextPosition(ctx, quoteID)
		if err != nil {
			return err
		}
		row, err := e.newLine(ctx, position, input)
		if err != nil {
			return err
		}
		if err := e.price(ctx, []*models.QuoteLineItem{row}); err != nil {
			return err
		}
		return e.quotes.CreateLine(ctx, row)
	})
}

func (s *service) UpdateLine(ctx context.Context, quoteID, lineID uuid.UUID, input UpdateLineInput) (*QuoteDTO, error) {
	return s.mutate(ctx, quoteID, "update quote line", func(ctx context.Context, e *edit) error {
		row, err := e.quotes.FindLine(ctx, quoteID, lineID)
		if err != nil {
			return notFoundOr(err, "line not found", "load quote line")
		}
		if err := e.applyUpdate(ctx, row, input); err != nil {
			return err
		}
		if err := e.price(ctx, []*models.QuoteLineItem{row}); err != nil {
			return err
		}
		return e.quotes.SaveLine(ctx, row)
	})
}

func (s *service) RemoveLine(ctx context.Context, quoteID, lineID uuid.UUID) (*QuoteDTO, error) {
	return s.mutate(ctx, quoteID, "remove quote line", func(ctx context.Context, e *edit) error {
		removed, err := e.quotes.DeleteLine(ctx, quoteID, lineID)
		if err != nil {
			return err
		}
		if !removed {
			return pkgerrors.New(pkgerrors.CodeNotFound, "line not found")
		}
		return e.quotes.Renumber(ctx, quoteID)
	})
}

// ReplaceLines swaps the whole line set. Every input is validated before
// anything is written.
func (s *service) ReplaceLines(ctx context.Context, quoteID uuid.UUID, input ReplaceLinesInput) (*QuoteDTO, error) {
	return s.mutate(ctx, quoteID, "replace quote lines", func(ctx context.Context, e *edit) error {
		rows := make([]*models.QuoteLineItem, 0, len(input.Lines))
		for i, lineInput := range input.Lines {
			row, err := e.newLine(ctx, i+1, lineInput)
			if err != nil {
				return withLineIndex(err, i)
			}
			rows = append(rows, row)
		}
		if err := e.price(ctx, rows); err != nil {
			return err
		}
		if err := e.quotes.DeleteLines(ctx, quoteID); err != nil {
			return err
		}
		for _, row := range rows {
			if err := e.quotes.CreateLine(ctx, row); err != nil {
				return err
			}
		}
		return nil
	})
}

// Reprice re-resolves every line against the current rate cards.
func (s *service) Reprice(ctx context.Context, quoteID uuid.UUID) (*QuoteDTO, error) {
	return s.mutate(ctx, quoteID, "reprice quote", func(ctx context.Context, e *edit) error {
		stored, err := e.quotes.Lines(ctx, quoteID)
		if err != nil {
			return err
		}
		rows := make([]*models.QuoteLineItem, 0, len(stored))
		for i := range stored {
			rows = append(rows, &stored[i])
		}
		if err := e.price(ctx, rows); err != nil {
			return err
		}
		for _, row := range rows {
			if err := e.quotes.SaveLine(ctx, row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) Transition(ctx context.Context, quoteID uuid.UUID, input TransitionInput) (*QuoteDTO, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid quote status %q", input.Status)
	}
	var from enums.QuoteStatus
	err := s.locked(ctx, quoteID, "transition quote", func(tx *gorm.DB) error {
		e := s.newEdit(tx)
		quote, err := e.quotes.FindHeader(ctx, quoteID)
		if err != nil {
			return notFoundOr(err, "quote not found", "load quote")
		}
		e.quote = quote
		from = quote.Status
		if !quote.Status.CanTransitionTo(input.Status) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move quote from %s to %s", quote.Status, input.Status).
				WithDetails(map[string]any{"from": quote.Status, "to": input.Status})
		}

		update := StatusUpdate{Status: input.Status, SentAt: quote.SentAt, ValidUntil: quote.ValidUntil}
		switch input.Status {
		case enums.QuoteStatusSent:
			if err := e.checkSendable(ctx); err != nil {
				return err
			}
			if err := e.recomputeTotal(ctx); err != nil {
				return err
			}
			now := s.now().UTC()
			update.SentAt = &now
			if update.ValidUntil == nil && s.validityDays > 0 {
				until := now.AddDate(0, 0, s.validityDays)
				update.ValidUntil = &until
			}
		case enums.QuoteStatusDraft:
			update.SentAt = nil
		}
		return e.quotes.UpdateStatus(ctx, quoteID, update)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(from.String(), input.Status.String())
	if s.logg != nil {
		logCtx := s.logg.WithQuoteID(ctx, quoteID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{"from": from, "to": input.Status})
		s.logg.Info(logCtx, "quotes.status_changed")
	}
	return s.Get(ctx, quoteID)
}

// Delete removes draft or rejected quotes.
func (s *service) Delete(ctx context.Context, quoteID uuid.UUID) error {
	return s.locked(ctx, quoteID, "delete quote", func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		quote, err := repo.FindHeader(ctx, quoteID)
		if err != nil {
			return notFoundOr(err, "quote not found", "load quote")
		}
		if !quote.Status.IsDeletable() {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "%s quotes cannot be deleted", quote.Status).
				WithDetails(map[string]any{"status": quote.Status})
		}
		return repo.Delete(ctx, quoteID)
	})
}

// checkSendable requires at least one line, all priced against equipment
// that is still in the catalog.
func (e *edit) checkSendable(ctx context.Context) error {
	rows, err := e.quotes.Lines(ctx, e.quote.ID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "quote has no lines")
	}
	cards, err := e.equipment.RateCards(ctx, equipmentIDs(rows))
	if err != nil {
		return err
	}
	var blocked []int
	for _, row := range rows {
		stale := row.EquipmentID != nil && cards[*row.EquipmentID] == nil
		if row.State != enums.LineItemStatePriced || stale {
			blocked = append(blocked, row.Position)
		}
	}
	if len(blocked) > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "quote has unpriced lines").
			WithDetails(map[string]any{"positions": blocked})
	}
	return nil
}

func (s *service) newEdit(tx *gorm.DB) *edit {
	return &edit{
		quotes:    s.repo.WithTx(tx),
		equipment: s.equipment.WithTx(tx),
		metrics:   s.metrics,
	}
}

// locked runs fn in a transaction while holding the quote's draft lock.
func (s *service) locked(ctx context.Context, quoteID uuid.UUID, op string, fn func(tx *gorm.DB) error) error {
	release, err := s.locker.Acquire(ctx, quoteID)
	if err != nil {
		if errors.Is(err, ErrQuoteLocked) {
			s.metrics.IncLockConflict()
			return pkgerrors.New(pkgerrors.CodeConflict, "quote is being edited")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire quote lock")
	}
	defer release()

	err = s.dbClient.WithTx(ctx, fn)
	if err == nil || pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

// mutate applies a line edit to a draft and persists the recomputed total in
// the same transaction.
func (s *service) mutate(ctx context.Context, quoteID uuid.UUID, op string, fn func(ctx context.Context, e *edit) error) (*QuoteDTO, error) {
	err := s.locked(ctx, quoteID, op, func(tx *gorm.DB) error {
		e := s.newEdit(tx)
		quote, err := e.quotes.FindHeader(ctx, quoteID)
		if err != nil {
			return notFoundOr(err, "quote not found", "load quote")
		}
		if !quote.Status.IsEditable() {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "%s quotes cannot be edited", quote.Status).
				WithDetails(map[string]any{"status": quote.Status})
		}
		e.quote = quote
		if err := fn(ctx, e); err != nil {
			return err
		}
		return e.recomputeTotal(ctx)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, quoteID)
}

func withLineIndex(err error, index int) error {
	if typed := pkgerrors.As(err); typed != nil && typed.Details() == nil {
		return typed.WithDetails(map[string]any{"line_index": index})
	}
	return err
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
