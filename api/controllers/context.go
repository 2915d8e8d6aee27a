package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentquote-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/rentquote-backend/pkg/errors"
)

func currentUserID(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return id, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
