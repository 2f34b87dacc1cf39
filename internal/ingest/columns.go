package ingest

import (
	"cmp"
	"slices"
	"strings"
)

const (
	// EnteredPrefix marks a workflow state column in the CSV header.
	EnteredPrefix = "entered_"

	colID        = "id"
	colTitle     = "title"
	colCreated   = "created_date"
	colCompleted = "completed_date"
)

// columnLayout maps resolved header positions to their meaning.
type columnLayout struct {
	states    []string
	stateCols map[string]int
	created   int
	completed int
}

func isReserved(h string) bool {
	switch strings.ToLower(h) {
	case colID, colTitle, colCreated, colCompleted:
		return true
	}
	return false
}

// resolveColumns derives the ordered workflow states from a header row.
func resolveColumns(header []string, known []string, mode ColumnMode) (columnLayout, []string) {
	layout := columnLayout{
		stateCols: make(map[string]int),
		created:   -1,
		completed: -1,
	}
	var problems []string

	for i, h := range header {
		switch strings.ToLower(h) {
		case colCreated:
			layout.created = i
		case colCompleted:
			layout.completed = i
		}
	}

	assigned := make(map[int]bool)
	add := func(state string, col int) {
		if _, dup := layout.stateCols[state]; dup {
			problems = append(problems, "Duplicate workflow state column for \""+state+"\".")
			return
		}
		layout.stateCols[state] = col
		layout.states = append(layout.states, state)
		assigned[col] = true
	}

	for i := 2; i < len(header); i++ {
		h := header[i]
		switch mode {
		case ColumnsCompat:
			if len(h) > len(EnteredPrefix) && strings.EqualFold(h[:len(EnteredPrefix)], EnteredPrefix) {
				add(h[len(EnteredPrefix):], i)
			}
		default:
			if strings.HasPrefix(h, EnteredPrefix) && len(h) > len(EnteredPrefix) {
				add(strings.TrimPrefix(h, EnteredPrefix), i)
			}
		}
	}

	if mode != ColumnsCompat {
		return layout, problems
	}

	// Bare <State> columns matching a known state exactly (case-insensitive).
	for _, k := range known {
		if _, ok := layout.stateCols[k]; ok {
			continue
		}
		for i := 2; i < len(header); i++ {
			if !assigned[i] && !isReserved(header[i]) && strings.EqualFold(header[i], k) {
				add(k, i)
				break
			}
		}
	}

	// Substring fallback for merged states, e.g. "Dev" inside "Dev/Test".
	for _, k := range known {
		if _, ok := layout.stateCols[k]; ok || k == "" {
			continue
		}
		lk := strings.ToLower(k)
		for i := 2; i < len(header); i++ {
			if !assigned[i] && !isReserved(header[i]) && strings.Contains(strings.ToLower(header[i]), lk) {
				add(k, i)
				break
			}
		}
	}

	// No prefixed and no known columns: every remaining column is a bare state.
	if len(layout.states) == 0 {
		for i := 2; i < len(header); i++ {
			if !isReserved(header[i]) && header[i] != "" {
				add(header[i], i)
			}
		}
	}

	layout.states = orderByColumn(layout.states, layout.stateCols)
	return layout, problems
}

// orderByColumn sorts states by header position so the CSV stays authoritative for order.
func orderByColumn(states []string, cols map[string]int) []string {
	out := slices.Clone(states)
	slices.SortStableFunc(out, func(a, b string) int {
		return cmp.Compare(cols[a], cols[b])
	})
	return out
}
