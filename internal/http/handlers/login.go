package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ahorrofamiliar/ahorro-be/internal/auth"
	"github.com/ahorrofamiliar/ahorro-be/internal/http/respond"
	"github.com/ahorrofamiliar/ahorro-be/internal/models"
	"github.com/ahorrofamiliar/ahorro-be/internal/models/dto"
	"github.com/ahorrofamiliar/ahorro-be/internal/platform/logger"
	"github.com/ahorrofamiliar/ahorro-be/internal/storage"
)

// LoginHandler exchanges email+password for a bearer token.
type LoginHandler struct {
	identities storage.IdentityStore
	records    storage.RecordStore
	tokens     *auth.TokenManager
	log        *logger.Logger
}

// NewLoginHandler constructs the handler.
func NewLoginHandler(identities storage.IdentityStore, records storage.RecordStore, tokens *auth.TokenManager, log *logger.Logger) *LoginHandler {
	return &LoginHandler{identities: identities, records: records, tokens: tokens, log: log}
}

// Register attaches the login route to the mux.
func (h *LoginHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/login", h.handle)
}

func (h *LoginHandler) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respond.MethodNotAllowed(w, http.MethodPost)
		return
	}

	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	identity, err := h.identities.GetIdentityByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.log.Error("login lookup failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(req.Password)); err != nil {
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	role, err := h.records.GetRole(r.Context(), identity.ID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.log.Error("login role lookup failed", "error", err)
			respond.Error(w, http.StatusInternalServerError, "failed to fetch role")
			return
		}
		role = models.RoleMember
	}

	token, err := h.tokens.Generate(identity.ID, identity.Email)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respond.JSON(w, http.StatusOK, dto.LoginResponse{
		Token:  token,
		UserID: identity.ID,
		Role:   models.NormalizeRole(role),
	})
}
