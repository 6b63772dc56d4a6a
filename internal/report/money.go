package report

import (
	"fmt"
	"strings"
)

// FormatCLP renders an amount the way es-CL currency formatting does:
// dollar sign, dot-separated thousands, no decimals.
func FormatCLP(value int64) string {
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}
	digits := fmt.Sprintf("%d", value)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	return sign + "$" + strings.Join(groups, ".")
}

// ClampPercent bounds a progress percentage to [0, 100].
func ClampPercent(value float64) float64 {
	if value != value { // NaN
		return 0
	}
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
