package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentquote-backend/api/responses"
	"github.com/angelmondragon/rentquote-backend/api/validators"
	"github.com/angelmondragon/rentquote-backend/internal/quotes"
	"github.com/angelmondragon/rentquote-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentquote-backend/pkg/errors"
	"github.com/angelmondragon/rentquote-backend/pkg/logger"
)

// ListQuotes supports ?status=, ?client_id=, ?limit= and ?cursor=.
func ListQuotes(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("quote"))
			return
		}

		var filter quotes.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseQuoteStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filter.Status = &status
		}
		clientID, err := validators.QueryUUID(r, "client_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.ClientID = clientID

		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func CreateQuote(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("quote"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body quotes.CreateQuoteInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.Create(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, quote)
	}
}

func GetQuote(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return quoteAction(svc, logg, func(r *http.Request, quoteID uuid.UUID) (*quotes.QuoteDTO, error) {
		return svc.Get(r.Context(), quoteID)
	})
}

func DeleteQuote(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("quote"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func AddQuoteLine(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("quote"))
			return
		}
		quoteID, err := validators.ParseUUIDParam(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body quotes.LineInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.AddLine(r.Context(), quoteID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, quote)
	}
}

func UpdateQuoteLine(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return quoteLineAction(svc, logg, func(r *http.Request, quoteID, lineID uuid.UUID) (*quotes.QuoteDTO, error) {
		var body quotes.UpdateLineInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.UpdateLine(r.Context(), quoteID, lineID, body)
	})
}

func RemoveQuoteLine(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return quoteLineAction(svc, logg, func(r *http.Request, quoteID, lineID uuid.UUID) (*quotes.QuoteDTO, error) {
		return svc.RemoveLine(r.Context(), quoteID, lineID)
	})
}

// ReplaceQuoteLines swaps the whole line list in one transaction.
func ReplaceQuoteLines(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return quoteAction(svc, logg, func(r *http.Request, quoteID uuid.UUID) (*quotes.QuoteDTO, error) {
		var body quotes.ReplaceLinesInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.ReplaceLines(r.Context(), quoteID, body)
	})
}

func RepriceQuote(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return quoteAction(svc, logg, func(r *http.Request, quoteID uuid.UUID) (*quotes.QuoteDTO, error) {
		return svc.Reprice(r.Context(), quoteID)
	})
}

func TransitionQuote(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return quoteAction(svc, logg, func(r *http.Request, quoteID uuid.UUID) (*quotes.QuoteDTO, error) {
		var body quotes.TransitionInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Transition(r.Context(), quoteID, body)
	})
}

func quoteAction(svc quotes.Service, logg *logger.Logger, fn func(*http.Request, uuid.UUID) (*quotes.QuoteDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("quote"))
			return
		}
		quoteID, err := validators.ParseUUIDParam(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithQuoteID(ctx, quoteID.String())
		}
		quote, err := fn(r.WithContext(ctx), quoteID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

func quoteLineAction(svc quotes.Service, logg *logger.Logger, fn func(*http.Request, uuid.UUID, uuid.UUID) (*quotes.QuoteDTO, error)) http.HandlerFunc {
	return quoteAction(svc, logg, func(r *http.Request, quoteID uuid.UUID) (*quotes.QuoteDTO, error) {
		lineID, err := validators.ParseUUIDParam(r, "lineId")
		if err != nil {
			return nil, err
		}
		return fn(r, quoteID, lineID)
	})
}
