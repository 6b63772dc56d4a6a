package report

import "strings"

// ToCSV serializes rows with RFC-4180-style quoting: every field is wrapped
// in double quotes and embedded quotes are doubled. encoding/csv is not used
// because it quotes only when it has to, and the export format always quotes.
func ToCSV(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, csvLine(headers))
	for _, row := range rows {
		lines = append(lines, csvLine(row))
	}
	return strings.Join(lines, "\n")
}

func csvLine(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}
