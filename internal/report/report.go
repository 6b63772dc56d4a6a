// Package report aggregates contributions into per-persona totals, monthly
// buckets, and goal-progress rows ready for CSV export.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/ahorrofamiliar/ahorro-be/internal/models"
	"github.com/ahorrofamiliar/ahorro-be/internal/schedule"
)

// MonthGroup is the aggregate for one YYYY-MM bucket.
type MonthGroup struct {
	Key   string `json:"key"` // YYYY-MM
	Total int64  `json:"total"`
	Count int    `json:"count"`
}

// SummaryRow is one persona's goal progress for a year, shaped for export.
type SummaryRow struct {
	Year      int    `json:"year"`
	Persona   string `json:"persona"`
	MetaAnual int64  `json:"meta_anual"`
	Aportado  int64  `json:"aportado"`
	Restante  int64  `json:"restante"`
	AvancePct string `json:"avance_pct"`
}

// TotalsByPersona sums contribution amounts per persona id. Personas without
// contributions are simply absent from the map.
func TotalsByPersona(contributions []models.Contribution) map[string]int64 {
	totals := make(map[string]int64)
	for _, c := range contributions {
		totals[c.PersonaID] += c.Valor
	}
	return totals
}

// SumContributions adds up all contribution amounts.
func SumContributions(contributions []models.Contribution) int64 {
	var sum int64
	for _, c := range contributions {
		sum += c.Valor
	}
	return sum
}

// MonthKey extracts the YYYY-MM prefix of an ISO date, or "" when the value
// is too short to carry one.
func MonthKey(isoDate string) string {
	if len(isoDate) < 7 {
		return ""
	}
	return isoDate[:7]
}

// GroupByMonth buckets contributions by their YYYY-MM prefix, sorted
// descending by month. Rows without a usable date are skipped.
func GroupByMonth(contributions []models.Contribution) []MonthGroup {
	groups := make(map[string]*MonthGroup)
	for _, c := range contributions {
		key := MonthKey(c.Fecha)
		if key == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &MonthGroup{Key: key}
			groups[key] = g
		}
		g.Total += c.Valor
		g.Count++
	}
	out := make([]MonthGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key > out[j].Key })
	return out
}

// SumGoals totals annual goals across personas, taking a per-persona override
// when present and the fixed plan goal otherwise.
func SumGoals(personas []models.Persona, overrides map[string]int64) int64 {
	var total int64
	for _, p := range personas {
		if goal, ok := overrides[p.ID]; ok {
			total += goal
		} else {
			total += schedule.SavingsTotal
		}
	}
	return total
}

// MonthsRemaining reports how many months of the year are still ahead,
// counting the current one. Any year other than the current calendar year
// counts as a full twelve.
func MonthsRemaining(year int) int {
	now := time.Now()
	if now.Year() != year {
		return 12
	}
	return 12 - int(now.Month()) + 1
}

// SummaryRows builds the per-persona goal-progress rows for a year.
func SummaryRows(year int, personas []models.Persona, totals map[string]int64, overrides map[string]int64) []SummaryRow {
	rows := make([]SummaryRow, 0, len(personas))
	for _, p := range personas {
		goal := schedule.SavingsTotal
		if g, ok := overrides[p.ID]; ok {
			goal = g
		}
		paid := totals[p.ID]
		remaining := goal - paid
		if remaining < 0 {
			remaining = 0
		}
		percent := "0.0"
		if goal != 0 {
			percent = fmt.Sprintf("%.1f", float64(paid)/float64(goal)*100)
		}
		rows = append(rows, SummaryRow{
			Year:      year,
			Persona:   p.Nombre,
			MetaAnual: goal,
			Aportado:  paid,
			Restante:  remaining,
			AvancePct: percent,
		})
	}
	return rows
}

// ContributionRows flattens one persona's contributions for export, with the
// amount repeated in CLP display format.
func ContributionRows(year int, personaNombre string, contributions []models.Contribution) [][]string {
	rows := make([][]string, 0, len(contributions))
	for _, c := range contributions {
		rows = append(rows, []string{
			fmt.Sprintf("%d", year),
			personaNombre,
			c.Fecha,
			fmt.Sprintf("%d", c.Valor),
			FormatCLP(c.Valor),
		})
	}
	return rows
}

// SummaryCSVRows turns summary rows into string records matching
// SummaryCSVHeaders.
func SummaryCSVRows(rows []SummaryRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			fmt.Sprintf("%d", r.Year),
			r.Persona,
			fmt.Sprintf("%d", r.MetaAnual),
			fmt.Sprintf("%d", r.Aportado),
			fmt.Sprintf("%d", r.Restante),
			r.AvancePct,
		})
	}
	return out
}

// SummaryCSVHeaders is the header row for the summary export.
var SummaryCSVHeaders = []string{"year", "persona", "meta_anual", "aportado", "restante", "avance_pct"}

// ContributionCSVHeaders is the header row for the per-persona export.
var ContributionCSVHeaders = []string{"year", "persona", "fecha", "monto", "monto_clp"}
