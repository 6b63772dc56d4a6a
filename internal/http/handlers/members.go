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

// MembersHandler owns the admin member-provisioning endpoint.
type MembersHandler struct {
	gateway     *auth.Gateway
	provisioner *provision.Service
	log         *logger.Logger
}

// NewMembersHandler constructs the handler.
func NewMembersHandler(gateway *auth.Gateway, provisioner *provision.Service, log *logger.Logger) *MembersHandler {
	return &MembersHandler{gateway: gateway, provisioner: provisioner, log: log}
}

// Register attaches the member routes to the mux.
func (h *MembersHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/members", h.handleCreate)
}

func (h *MembersHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respond.MethodNotAllowed(w, http.MethodPost)
		return
	}

	// Full auth chain before any store mutation.
	_, err := h.gateway.Admin(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		writeAuthError(w, r, h.log, err)
		return
	}

	var req dto.CreateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	userID, err := h.provisioner.CreateMember(r.Context(), provision.CreateMemberInput{
		Email:      req.Email,
		Password:   req.Password,
		Nombre:     req.Nombre,
		Frecuencia: req.Frecuencia,
	})
	if err != nil {
		writeOperationError(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusOK, dto.CreateMemberResponse{OK: true, UserID: userID})
}
