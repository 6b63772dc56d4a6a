// Package schedule derives the fixed savings calendar: due dates for a year
// and frequency, the exact integer split of the annual goal across those
// dates, and validation of submitted contribution dates against the plan.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// SavingsTotal is the fixed annual goal per persona. It is an invariant, not
// a default: every persona write path re-applies it regardless of input.
const SavingsTotal int64 = 1_100_000

const (
	savingsStartMonth = 1  // January
	savingsEndMonth   = 11 // November; December is deliberately excluded
)

// Installment is one entry of a derived savings plan.
type Installment struct {
	Index  int    `json:"index"` // 1-based
	Date   string `json:"date"`  // YYYY-MM-DD
	Amount int64  `json:"amount"`
}

// normalizeYear clamps nonsense years to the current calendar year. Callers
// that want strict failure must validate the year range themselves.
func normalizeYear(year int) int {
	if year < 1970 || year > 2100 {
		return time.Now().Year()
	}
	return year
}

// DueDates returns the ordered ISO due dates for a plan year: one per month
// (the 4th) for Monthly, two per month (the 5th and 20th) for Biweekly,
// January through November.
func DueDates(year int, freq Frequency) []string {
	y := normalizeYear(year)
	dates := make([]string, 0, freq.InstallmentCount())
	for m := savingsStartMonth; m <= savingsEndMonth; m++ {
		if freq == Biweekly {
			dates = append(dates,
				fmt.Sprintf("%04d-%02d-05", y, m),
				fmt.Sprintf("%04d-%02d-20", y, m))
		} else {
			dates = append(dates, fmt.Sprintf("%04d-%02d-04", y, m))
		}
	}
	return dates
}

// Distribute splits total into count integer buckets that sum exactly to
// total. The floor remainder is added one unit at a time to the earliest
// buckets, so amounts step down at most once.
func Distribute(total int64, count int) []int64 {
	if count <= 0 {
		return nil
	}
	base := total / int64(count)
	remainder := total - base*int64(count)
	amounts := make([]int64, count)
	for i := range amounts {
		amounts[i] = base
		if int64(i) < remainder {
			amounts[i]++
		}
	}
	return amounts
}

// Plan zips DueDates with Distribute into the derived savings plan. It is
// recomputed on demand and never persisted.
func Plan(year int, freq Frequency, total int64) []Installment {
	dates := DueDates(year, freq)
	amounts := Distribute(total, len(dates))
	plan := make([]Installment, len(dates))
	for i, date := range dates {
		plan[i] = Installment{Index: i + 1, Date: date, Amount: amounts[i]}
	}
	return plan
}

// ExpectedAmount looks up the planned installment amount for a date. The
// second return is false when the date is not in the plan.
func ExpectedAmount(year int, freq Frequency, total int64, date string) (int64, bool) {
	for _, inst := range Plan(year, freq, total) {
		if inst.Date == date {
			return inst.Amount, true
		}
	}
	return 0, false
}

// IsAllowedDate reports whether date is a scheduled due date for the year and
// frequency. It gates manual contribution entry; it does not check amounts,
// so a contribution may differ from the planned installment.
func IsAllowedDate(year int, freq Frequency, date string) bool {
	for _, d := range DueDates(year, freq) {
		if d == date {
			return true
		}
	}
	return false
}

// YearRange returns the normalized year together with its inclusive ISO date
// bounds, for range queries over contributions.
func YearRange(year int) (int, string, string) {
	y := normalizeYear(year)
	return y, fmt.Sprintf("%04d-01-01", y), fmt.Sprintf("%04d-12-31", y)
}

var yearPrefixRe = regexp.MustCompile(`^\s*(\d{4})`)

// YearFromISODate extracts the leading four-digit year of an ISO date string.
func YearFromISODate(s string) (int, bool) {
	m := yearPrefixRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return y, true
}
