package schedule

import (
	"fmt"
	"strings"
)

// Frequency is the contribution cadence for a persona's savings plan.
type Frequency string

const (
	// Monthly pays one installment per month, on the 4th.
	Monthly Frequency = "mensual"
	// Biweekly pays two installments per month, on the 5th and the 20th.
	Biweekly Frequency = "quincenal"
)

// ParseFrequency normalizes a raw frequency string. Anything that is not
// "quincenal" (case/space insensitive) coerces to Monthly, matching the
// forgiving behavior of the write paths.
func ParseFrequency(raw string) Frequency {
	if strings.EqualFold(strings.TrimSpace(raw), string(Biweekly)) {
		return Biweekly
	}
	return Monthly
}

// ParseFrequencyStrict validates a raw frequency string at an input boundary.
// An empty value defaults to Monthly; any other unrecognized value is an error.
func ParseFrequencyStrict(raw string) (Frequency, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "":
		return Monthly, nil
	case string(Monthly):
		return Monthly, nil
	case string(Biweekly):
		return Biweekly, nil
	}
	return "", fmt.Errorf("frecuencia inválida: %q", raw)
}

// InstallmentCount is the number of scheduled dates in a plan year.
func (f Frequency) InstallmentCount() int {
	if f == Biweekly {
		return savingsEndMonth * 2
	}
	return savingsEndMonth
}
