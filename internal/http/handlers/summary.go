package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/ahorrofamiliar/ahorro-be/internal/auth"
	"github.com/ahorrofamiliar/ahorro-be/internal/http/respond"
	"github.com/ahorrofamiliar/ahorro-be/internal/models"
	"github.com/ahorrofamiliar/ahorro-be/internal/platform/logger"
	"github.com/ahorrofamiliar/ahorro-be/internal/report"
	"github.com/ahorrofamiliar/ahorro-be/internal/storage"
)

// SummaryHandler serves the dashboard aggregates and the CSV exports.
type SummaryHandler struct {
	gateway *auth.Gateway
	records storage.RecordStore
	log     *logger.Logger
}

// NewSummaryHandler constructs the handler.
func NewSummaryHandler(gateway *auth.Gateway, records storage.RecordStore, log *logger.Logger) *SummaryHandler {
	return &SummaryHandler{gateway: gateway, records: records, log: log}
}

// Register attaches the summary and export routes to the mux.
func (h *SummaryHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/summary", h.handleSummary)
	mux.HandleFunc("/export/summary", h.handleExportSummary)
	mux.HandleFunc("/export/aportes", h.handleExportAportes)
}

// yearData is everything the summary needs, fetched concurrently: the four
// reads are independent and read-only.
type yearData struct {
	personas  []models.Persona
	aportes   []models.Contribution
	overrides map[string]int64
	minYear   int
	maxYear   int
}

func (h *SummaryHandler) fetchYear(r *http.Request, year int, start, end string) (yearData, error) {
	var (
		data yearData
		errs [4]error
		wg   sync.WaitGroup
	)
	ctx := r.Context()
	wg.Add(4)
	go func() {
		defer wg.Done()
		data.personas, errs[0] = h.records.ListPersonas(ctx)
	}()
	go func() {
		defer wg.Done()
		data.aportes, errs[1] = h.records.ListContributionsByRange(ctx, start, end, "")
	}()
	go func() {
		defer wg.Done()
		data.minYear, data.maxYear, errs[2] = h.records.ContributionYearBounds(ctx, "")
	}()
	go func() {
		defer wg.Done()
		overrides, err := h.records.GoalOverridesForYear(ctx, year)
		if errors.Is(err, storage.ErrOverridesUnavailable) {
			// Feature not deployed: no overrides, not a failure.
			return
		}
		data.overrides, errs[3] = overrides, err
	}()
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return yearData{}, fmt.Errorf("load summary: %w", err)
		}
	}
	return data, nil
}

func (h *SummaryHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respond.MethodNotAllowed(w, http.MethodGet)
		return
	}
	if _, err := h.gateway.Admin(r.Context(), r.Header.Get("Authorization")); err != nil {
		writeAuthError(w, r, h.log, err)
		return
	}

	year, start, end := yearParam(r)
	data, err := h.fetchYear(r, year, start, end)
	if err != nil {
		writeOperationError(w, h.log, err)
		return
	}

	totals := report.TotalsByPersona(data.aportes)
	respond.JSON(w, http.StatusOK, map[string]any{
		"year":           year,
		"rows":           report.SummaryRows(year, data.personas, totals, data.overrides),
		"total_meta":     report.SumGoals(data.personas, data.overrides),
		"total_aportado": report.SumContributions(data.aportes),
		"months_left":    report.MonthsRemaining(year),
		"by_month":       report.GroupByMonth(data.aportes),
		"min_year":       data.minYear,
		"max_year":       data.maxYear,
	})
}

func writeCSV(w http.ResponseWriter, filename, body string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (h *SummaryHandler) handleExportSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respond.MethodNotAllowed(w, http.MethodGet)
		return
	}
	if _, err := h.gateway.Admin(r.Context(), r.Header.Get("Authorization")); err != nil {
		writeAuthError(w, r, h.log, err)
		return
	}

	year, start, end := yearParam(r)
	data, err := h.fetchYear(r, year, start, end)
	if err != nil {
		writeOperationError(w, h.log, err)
		return
	}

	totals := report.TotalsByPersona(data.aportes)
	rows := report.SummaryRows(year, data.personas, totals, data.overrides)
	body := report.ToCSV(report.SummaryCSVHeaders, report.SummaryCSVRows(rows))
	writeCSV(w, fmt.Sprintf("resumen_%d.csv", year), body)
}

func (h *SummaryHandler) handleExportAportes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respond.MethodNotAllowed(w, http.MethodGet)
		return
	}
	if _, err := h.gateway.Admin(r.Context(), r.Header.Get("Authorization")); err != nil {
		writeAuthError(w, r, h.log, err)
		return
	}

	personaID := strings.TrimSpace(r.URL.Query().Get("persona_id"))
	if personaID == "" {
		respond.Error(w, http.StatusBadRequest, "persona_id is required")
		return
	}
	persona, err := h.records.GetPersona(r.Context(), personaID)
	if err != nil {
		writeOperationError(w, h.log, err)
		return
	}

	year, start, end := yearParam(r)
	aportes, err := h.records.ListContributionsByRange(r.Context(), start, end, personaID)
	if err != nil {
		writeOperationError(w, h.log, err)
		return
	}

	rows := report.ContributionRows(year, persona.Nombre, aportes)
	body := report.ToCSV(report.ContributionCSVHeaders, rows)
	writeCSV(w, fmt.Sprintf("aportes_%d.csv", year), body)
}
