package ingest

import (
	"strings"
)

// Template renders an empty CSV for the given workflow: the header plus one
// blank example row.
func Template(states []string) string {
	columns := make([]string, 0, len(states)+2)
	columns = append(columns, colID, colTitle)
	for _, s := range states {
		columns = append(columns, EnteredPrefix+s)
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(columns, ","))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(",", len(columns)-1))
	sb.WriteString("\n")
	return sb.String()
}
