package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ahorrofamiliar/ahorro-be/internal/auth"
	"github.com/ahorrofamiliar/ahorro-be/internal/http/respond"
	"github.com/ahorrofamiliar/ahorro-be/internal/platform/logger"
	"github.com/ahorrofamiliar/ahorro-be/internal/provision"
	"github.com/ahorrofamiliar/ahorro-be/internal/storage"
)

// writeAuthError maps a failed auth chain to 401/403/500.
func writeAuthError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
			respond.Error(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}
		respond.Error(w, http.StatusUnauthorized, "Invalid session")
	case errors.Is(err, auth.ErrForbidden):
		respond.Error(w, http.StatusForbidden, "Forbidden")
	default:
		log.Error("auth chain failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, err.Error())
	}
}

// writeOperationError maps a business-operation failure to its status code.
func writeOperationError(w http.ResponseWriter, log *logger.Logger, err error) {
	var vErr *provision.ValidationError
	switch {
	case errors.As(err, &vErr):
		respond.Error(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, provision.ErrSelfDelete), errors.Is(err, provision.ErrAdminDelete):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrAlreadyExists):
		respond.Error(w, http.StatusBadRequest, "user already exists")
	case errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusBadRequest, "record not found")
	default:
		log.Error("operation failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, err.Error())
	}
}
