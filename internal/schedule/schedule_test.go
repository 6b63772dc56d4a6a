package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDueDatesMonthly(t *testing.T) {
	t.Parallel()

	dates := DueDates(2025, Monthly)
	require.Len(t, dates, 11)
	assert.Equal(t, "2025-01-04", dates[0])
	assert.Equal(t, "2025-11-04", dates[len(dates)-1])
}

func TestDueDatesBiweekly(t *testing.T) {
	t.Parallel()

	dates := DueDates(2025, Biweekly)
	require.Len(t, dates, 22)
	assert.Equal(t, "2025-01-05", dates[0])
	assert.Equal(t, "2025-01-20", dates[1])
	assert.Equal(t, "2025-11-20", dates[len(dates)-1])
	assert.NotContains(t, dates, "2025-12-05")
}

func TestDueDatesYearFallback(t *testing.T) {
	t.Parallel()

	dates := DueDates(1800, Monthly)
	require.Len(t, dates, 11)
	cy := time.Now().Year()
	y, ok := YearFromISODate(dates[0])
	require.True(t, ok)
	assert.Equal(t, cy, y)
}

func TestDistributeExact(t *testing.T) {
	t.Parallel()

	amounts := Distribute(1_100_000, 11)
	require.Len(t, amounts, 11)
	for _, a := range amounts {
		assert.Equal(t, int64(100_000), a)
	}
}

func TestDistributeRemainderGoesFirst(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int64{4, 3, 3}, Distribute(10, 3))
	assert.Equal(t, []int64{3, 3, 2, 2}, Distribute(10, 4))
}

func TestDistributeSumsToTotal(t *testing.T) {
	t.Parallel()

	totals := []int64{0, 1, 7, 1_100_000, 999_999}
	counts := []int{1, 3, 11, 22}
	for _, total := range totals {
		for _, count := range counts {
			amounts := Distribute(total, count)
			require.Len(t, amounts, count)
			var sum int64
			for _, a := range amounts {
				sum += a
			}
			assert.Equal(t, total, sum, "total=%d count=%d", total, count)
		}
	}
}

func TestPlan(t *testing.T) {
	t.Parallel()

	plan := Plan(2025, Biweekly, SavingsTotal)
	require.Len(t, plan, 22)
	assert.Equal(t, 1, plan[0].Index)
	assert.Equal(t, 22, plan[21].Index)

	var sum int64
	for _, inst := range plan {
		sum += inst.Amount
	}
	assert.Equal(t, SavingsTotal, sum)
}

func TestExpectedAmount(t *testing.T) {
	t.Parallel()

	amount, ok := ExpectedAmount(2025, Monthly, SavingsTotal, "2025-03-04")
	require.True(t, ok)
	assert.Equal(t, int64(100_000), amount)

	_, ok = ExpectedAmount(2025, Monthly, SavingsTotal, "2025-03-05")
	assert.False(t, ok)
}

func TestIsAllowedDate(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAllowedDate(2025, Biweekly, "2025-03-05"))
	assert.True(t, IsAllowedDate(2025, Biweekly, "2025-03-20"))
	assert.False(t, IsAllowedDate(2025, Biweekly, "2025-12-05"))
	assert.False(t, IsAllowedDate(2025, Monthly, "2025-03-05"))
}

func TestParseFrequency(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Biweekly, ParseFrequency(" Quincenal "))
	assert.Equal(t, Monthly, ParseFrequency("mensual"))
	assert.Equal(t, Monthly, ParseFrequency("weekly"))
	assert.Equal(t, Monthly, ParseFrequency(""))
}

func TestParseFrequencyStrict(t *testing.T) {
	t.Parallel()

	f, err := ParseFrequencyStrict("")
	require.NoError(t, err)
	assert.Equal(t, Monthly, f)

	f, err = ParseFrequencyStrict("QUINCENAL")
	require.NoError(t, err)
	assert.Equal(t, Biweekly, f)

	_, err = ParseFrequencyStrict("weekly")
	assert.Error(t, err)
}

func TestYearRange(t *testing.T) {
	t.Parallel()

	y, start, end := YearRange(2024)
	assert.Equal(t, 2024, y)
	assert.Equal(t, "2024-01-01", start)
	assert.Equal(t, "2024-12-31", end)

	y, _, _ = YearRange(99999)
	assert.Equal(t, time.Now().Year(), y)
}

func TestYearFromISODate(t *testing.T) {
	t.Parallel()

	y, ok := YearFromISODate("2023-05-04")
	require.True(t, ok)
	assert.Equal(t, 2023, y)

	_, ok = YearFromISODate("not a date")
	assert.False(t, ok)
}
