package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ahorrofamiliar/ahorro-be/internal/auth"
	"github.com/ahorrofamiliar/ahorro-be/internal/http/respond"
	"github.com/ahorrofamiliar/ahorro-be/internal/models/dto"
	"github.com/ahorrofamiliar/ahorro-be/internal/platform/logger"
	"github.com/ahorrofamiliar/ahorro-be/internal/provision"
)

// UsersHandler owns the admin member-directory endpoint: list, update, delete.
type UsersHandler struct {
	gateway     *auth.Gateway
	provisioner *provision.Service
	log         *logger.Logger
}

// NewUsersHandler constructs the handler.
func NewUsersHandler(gateway *auth.Gateway, provisioner *provision.Service, log *logger.Logger) *UsersHandler {
	return &UsersHandler{gateway: gateway, provisioner: provisioner, log: log}
}

// Register attaches the user routes to the mux.
func (h *UsersHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/users", h.handle)
}

func (h *UsersHandler) handle(w http.ResponseWriter, r *http.Request) {
	caller, err := h.gateway.Admin(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		writeAuthError(w, r, h.log, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		rows, err := h.provisioner.ListMembers(r.Context(), caller.ID)
		if err != nil {
			writeOperationError(w, h.log, err)
			return
		}
		respond.JSON(w, http.StatusOK, dto.ListUsersResponse{Users: rows})

	case http.MethodPatch:
		var req dto.UpdateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		err := h.provisioner.UpdateMember(r.Context(), provision.UpdateMemberInput{
			IdentityID: req.UserID,
			Nombre:     req.Nombre,
			Email:      req.Email,
			Password:   req.Password,
		})
		if err != nil {
			writeOperationError(w, h.log, err)
			return
		}
		respond.JSON(w, http.StatusOK, map[string]bool{"ok": true})

	case http.MethodDelete:
		var req dto.DeleteUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		if err := h.provisioner.DeleteMember(r.Context(), caller.ID, req.UserID); err != nil {
			writeOperationError(w, h.log, err)
			return
		}
		respond.JSON(w, http.StatusOK, map[string]bool{"ok": true})

	default:
		respond.MethodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}
