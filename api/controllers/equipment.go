package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/rentquote-backend/api/responses"
	"github.com/angelmondragon/rentquote-backend/api/validators"
	"github.com/angelmondragon/rentquote-backend/internal/equipment"
	pkgerrors "github.com/angelmondragon/rentquote-backend/pkg/errors"
	"github.com/angelmondragon/rentquote-backend/pkg/logger"
)

const maxRateCardBytes = 1 << 20

// ListEquipment supports ?category_id=, ?q=, ?limit= and ?cursor=.
func ListEquipment(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("equipment"))
			return
		}
		categoryID, err := validators.QueryUUID(r, "category_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := equipment.ListFilter{
			CategoryID: categoryID,
			Query:      validators.QueryText(r, "q", 100),
		}
		page, err := svc.ListEquipment(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetEquipment(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("equipment"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "equipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.GetEquipment(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func CreateEquipment(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("equipment"))
			return
		}
		var body equipment.CreateEquipmentInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.CreateEquipment(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func UpdateEquipment(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("equipment"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "equipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body equipment.UpdateEquipmentInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.UpdateEquipment(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func DeleteEquipment(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("equipment"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "equipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteEquipment(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PreviewPrice resolves the tier for ?days=N and prices ?quantity=M units
// (default 1) without touching any quote.
func PreviewPrice(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("equipment"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "equipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if strings.TrimSpace(r.URL.Query().Get("days")) == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "days is required").WithDetails(map[string]any{"field": "days"}))
			return
		}
		days, err := validators.QueryInt(r, "days", 0, 1, 3650)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity, err := validators.QueryInt(r, "quantity", 1, 1, 100000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		preview, err := svc.PreviewPrice(r.Context(), id, days, quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preview)
	}
}

// ApplyRateCard imports a YAML rate card sent as the raw request body.
// With ?dry_run=true the document is only validated.
func ApplyRateCard(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("equipment"))
			return
		}
		file, err := equipment.ParseRateCard(io.LimitReader(r.Body, maxRateCardBytes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rate card").WithDetails(map[string]any{"error": err.Error()}))
			return
		}

		if r.URL.Query().Get("dry_run") == "true" {
			if err := file.Validate(); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rate card").WithDetails(map[string]any{"error": err.Error()}))
				return
			}
			responses.WriteSuccess(w, map[string]any{"valid": true, "equipment": len(file.Equipment)})
			return
		}

		result, err := svc.ApplyRateCard(r.Context(), file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
