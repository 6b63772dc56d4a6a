package handlers

import (
	"context"
	"net/http"

	"github.com/ahorrofamiliar/ahorro-be/internal/account"
	"github.com/ahorrofamiliar/ahorro-be/internal/auth"
	"github.com/ahorrofamiliar/ahorro-be/internal/http/respond"
	"github.com/ahorrofamiliar/ahorro-be/internal/platform/logger"
	"github.com/ahorrofamiliar/ahorro-be/internal/storage"
)

// MeHandler serves the caller's own account view. Any authenticated identity
// may ask who it is; no admin role is required.
type MeHandler struct {
	gateway *auth.Gateway
	records storage.RecordStore
	log     *logger.Logger
}

// NewMeHandler constructs the handler.
func NewMeHandler(gateway *auth.Gateway, records storage.RecordStore, log *logger.Logger) *MeHandler {
	return &MeHandler{gateway: gateway, records: records, log: log}
}

// Register attaches the whoami route to the mux.
func (h *MeHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/me", h.handle)
}

// sessionResolver backs an account cache with the already-verified session
// identity and the record store.
type sessionResolver struct {
	identityID string
	records    storage.RecordStore
}

func (r *sessionResolver) SessionIdentityID(context.Context) (string, error) {
	return r.identityID, nil
}

func (r *sessionResolver) RoleOf(ctx context.Context, identityID string) (string, error) {
	return r.records.GetRole(ctx, identityID)
}

func (r *sessionResolver) PersonaIDOf(ctx context.Context, identityID string) (string, error) {
	persona, err := r.records.GetPersonaByIdentity(ctx, identityID)
	if err != nil {
		return "", err
	}
	return persona.ID, nil
}

func (h *MeHandler) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respond.MethodNotAllowed(w, http.MethodGet)
		return
	}

	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		writeAuthError(w, r, h.log, err)
		return
	}
	identity, err := h.gateway.ResolveIdentity(r.Context(), token)
	if err != nil {
		writeAuthError(w, r, h.log, err)
		return
	}

	cache := account.NewCache(&sessionResolver{identityID: identity.ID, records: h.records})
	cache.Prime(account.Primed{IdentityID: identity.ID})

	role, err := cache.Role(r.Context())
	if err != nil {
		writeOperationError(w, h.log, err)
		return
	}
	personaID, err := cache.PersonaID(r.Context())
	if err != nil {
		writeOperationError(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"user_id":    identity.ID,
		"email":      identity.Email,
		"role":       role,
		"persona_id": personaID,
	})
}
