package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ahorrofamiliar/ahorro-be/internal/auth"
	"github.com/ahorrofamiliar/ahorro-be/internal/http/respond"
	"github.com/ahorrofamiliar/ahorro-be/internal/models"
	"github.com/ahorrofamiliar/ahorro-be/internal/models/dto"
	"github.com/ahorrofamiliar/ahorro-be/internal/platform/logger"
	"github.com/ahorrofamiliar/ahorro-be/internal/schedule"
	"github.com/ahorrofamiliar/ahorro-be/internal/storage"
)

const defaultLatestLimit = 8

// AportesHandler owns contribution listing and manual entry.
type AportesHandler struct {
	gateway *auth.Gateway
	records storage.RecordStore
	log     *logger.Logger
}

// NewAportesHandler constructs the handler.
func NewAportesHandler(gateway *auth.Gateway, records storage.RecordStore, log *logger.Logger) *AportesHandler {
	return &AportesHandler{gateway: gateway, records: records, log: log}
}

// Register attaches the aporte routes to the mux.
func (h *AportesHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/aportes", h.handle)
	mux.HandleFunc("/aportes/latest", h.handleLatest)
}

// yearParam reads the year query value; anything unusable falls back to the
// current calendar year via the schedule's normalization.
func yearParam(r *http.Request) (int, string, string) {
	y, _ := strconv.Atoi(r.URL.Query().Get("year"))
	return schedule.YearRange(y)
}

func (h *AportesHandler) handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		respond.MethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *AportesHandler) list(w http.ResponseWriter, r *http.Request) {
	if _, err := h.gateway.Admin(r.Context(), r.Header.Get("Authorization")); err != nil {
		writeAuthError(w, r, h.log, err)
		return
	}

	year, start, end := yearParam(r)
	personaID := strings.TrimSpace(r.URL.Query().Get("persona_id"))

	aportes, err := h.records.ListContributionsByRange(r.Context(), start, end, personaID)
	if err != nil {
		writeOperationError(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"year":    year,
		"aportes": aportes,
	})
}

func (h *AportesHandler) create(w http.ResponseWriter, r *http.Request) {
	if _, err := h.gateway.Admin(r.Context(), r.Header.Get("Authorization")); err != nil {
		writeAuthError(w, r, h.log, err)
		return
	}

	var req dto.CreateAporteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.PersonaID) == "" {
		respond.Error(w, http.StatusBadRequest, "persona_id is required")
		return
	}
	if req.Valor <= 0 {
		respond.Error(w, http.StatusBadRequest, "valor must be positive")
		return
	}
	year, ok := schedule.YearFromISODate(req.Fecha)
	if !ok {
		respond.Error(w, http.StatusBadRequest, "fecha inválida")
		return
	}

	persona, err := h.records.GetPersona(r.Context(), req.PersonaID)
	if err != nil {
		writeOperationError(w, h.log, err)
		return
	}
	// Only ledger dates in the fixed calendar are acceptable. The amount is
	// deliberately not required to match the plan installment.
	if !schedule.IsAllowedDate(year, persona.Frecuencia, req.Fecha) {
		respond.Error(w, http.StatusBadRequest, "fecha fuera del calendario de aportes")
		return
	}

	created, err := h.records.InsertContribution(r.Context(), models.Contribution{
		PersonaID: req.PersonaID,
		Valor:     req.Valor,
		Fecha:     req.Fecha,
	})
	if err != nil {
		writeOperationError(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"ok": true, "id": created.ID})
}

func (h *AportesHandler) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respond.MethodNotAllowed(w, http.MethodGet)
		return
	}
	if _, err := h.gateway.Admin(r.Context(), r.Header.Get("Authorization")); err != nil {
		writeAuthError(w, r, h.log, err)
		return
	}

	_, start, end := yearParam(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultLatestLimit
	}
	aportes, err := h.records.LatestContributions(r.Context(), start, end, limit)
	if err != nil {
		writeOperationError(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"aportes": aportes})
}
