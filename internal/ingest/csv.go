package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"flowcast/internal/dates"

	"github.com/rs/zerolog/log"
)

// Options tunes column resolution and normalization.
type Options struct {
	KnownStates []string
	ColumnMode  ColumnMode
	Inference   InferencePolicy
	Completion  CompletionPolicy
}

// Result is the outcome of a CSV ingestion. Errors are structural and imply
// zero items; Warnings are per-cell problems that were dropped to null.
type Result struct {
	Items          []Item   `json:"items"`
	WorkflowStates []string `json:"workflowStates"`
	Errors         []string `json:"errors,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// OK reports whether the ingestion produced an applicable item set.
func (r Result) OK() bool {
	return len(r.Errors) == 0 && len(r.Items) > 0
}

func fail(msg string) Result {
	return Result{Errors: []string{msg}}
}

// Parse validates the whole file structure first, then normalizes each row.
func Parse(text string, opts Options) Result {
	if opts.Inference == nil {
		opts.Inference = InferFlatFromCompleted
	}

	text = strings.TrimPrefix(text, "\ufeff")
	if strings.TrimSpace(text) == "" {
		return fail("CSV is empty.")
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	first, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fail("CSV is empty.")
		}
		return fail(fmt.Sprintf("CSV could not be read: %v", err))
	}

	header := trimAll(first)
	if len(header) < 2 || header[0] != colID || header[1] != colTitle {
		return fail("CSV must begin with: id,title")
	}

	layout, problems := resolveColumns(header, opts.KnownStates, opts.ColumnMode)
	if len(problems) > 0 {
		return Result{Errors: problems}
	}
	if len(layout.states) == 0 {
		return fail("No workflow state columns found (expected entered_<StateName>).")
	}

	res := Result{WorkflowStates: layout.states}

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(fmt.Sprintf("CSV could not be read: %v", err))
		}
		row := trimAll(rec)
		if isBlank(row) {
			continue
		}
		rowIndex, _ := reader.FieldPos(0)

		item := Item{
			ID:       cell(row, 0),
			Title:    cell(row, 1),
			Entered:  make(map[string]*time.Time, len(layout.states)),
			RowIndex: rowIndex,
		}

		for _, state := range layout.states {
			col := layout.stateCols[state]
			item.Entered[state] = parseCell(&res, row, col, header[col], rowIndex)
		}

		var createdHint, completedHint *time.Time
		if layout.created >= 0 {
			createdHint = parseCell(&res, row, layout.created, colCreated, rowIndex)
		}
		if layout.completed >= 0 {
			completedHint = parseCell(&res, row, layout.completed, colCompleted, rowIndex)
		}

		normalize(&item, layout.states, createdHint, completedHint, opts)
		res.Items = append(res.Items, item)
	}

	if len(res.Items) == 0 {
		return Result{WorkflowStates: layout.states, Errors: []string{"CSV contains no usable rows."}}
	}

	log.Debug().
		Int("items", len(res.Items)).
		Strs("states", res.WorkflowStates).
		Int("warnings", len(res.Warnings)).
		Msg("CSV ingested")

	return res
}

// Normalize applies the monotonicity clamp and derives created/completed for
// programmatically constructed items. Inputs are not mutated.
func Normalize(items []Item, states []string, opts Options) []Item {
	if opts.Inference == nil {
		opts.Inference = InferFlatFromCompleted
	}
	out := CloneAll(items)
	for i := range out {
		if out[i].Entered == nil {
			out[i].Entered = make(map[string]*time.Time, len(states))
		}
		for s, v := range out[i].Entered {
			if v != nil {
				out[i].Entered[s] = dates.Ptr(dates.Truncate(*v))
			}
		}
		var completedHint *time.Time
		if out[i].Completed != nil {
			completedHint = dates.Ptr(dates.Truncate(*out[i].Completed))
		}
		var createdHint *time.Time
		if out[i].Created != nil {
			createdHint = dates.Ptr(dates.Truncate(*out[i].Created))
		}
		normalize(&out[i], states, createdHint, completedHint, opts)
	}
	return out
}

func normalize(item *Item, states []string, createdHint, completedHint *time.Time, opts Options) {
	markInferred := func(state string) {
		if item.Inferred == nil {
			item.Inferred = make(map[string]bool)
		}
		item.Inferred[state] = true
	}

	// 1. Forward clamp: each transition is raised to at least its predecessor.
	var prev *time.Time
	hasAny := false
	for _, s := range states {
		v := item.Entered[s]
		if v == nil {
			continue
		}
		hasAny = true
		if prev != nil && v.Before(*prev) {
			log.Debug().
				Str("id", item.ID).
				Str("state", s).
				Str("raw", dates.Format(*v)).
				Str("clamped", dates.Format(*prev)).
				Msg("Clamped out-of-order transition")
			item.Entered[s] = copyTime(prev)
			markInferred(s)
		}
		prev = item.Entered[s]
	}

	// 2. Completion hint without transitions: delegate to the inference policy.
	terminal := ""
	if len(states) > 0 {
		terminal = states[len(states)-1]
	}
	if !hasAny && completedHint != nil {
		opts.Inference.Infer(item, states, *completedHint)
	} else if terminal != "" && item.Entered[terminal] == nil && completedHint != nil {
		done := *completedHint
		if prev != nil && done.Before(*prev) {
			done = *prev
		}
		item.Entered[terminal] = &done
		markInferred(terminal)
	}

	// 3. Completed date.
	item.Completed = nil
	if terminal != "" {
		item.Completed = copyTime(item.Entered[terminal])
	}
	if item.Completed == nil && opts.Completion == CompletedFromLastKnown {
		for i := len(states) - 1; i >= 0; i-- {
			if v := item.Entered[states[i]]; v != nil {
				item.Completed = copyTime(v)
				break
			}
		}
	}
	if item.Completed == nil && completedHint != nil && !anyEntered(item, states) {
		item.Completed = copyTime(completedHint)
	}

	// 4. Created = earliest entered date, falling back to an explicit created_date.
	item.Created = nil
	for _, s := range states {
		v := item.Entered[s]
		if v != nil && (item.Created == nil || v.Before(*item.Created)) {
			item.Created = copyTime(v)
		}
	}
	if item.Created == nil && createdHint != nil {
		item.Created = copyTime(createdHint)
	}
}

func anyEntered(item *Item, states []string) bool {
	for _, s := range states {
		if item.Entered[s] != nil {
			return true
		}
	}
	return false
}

func parseCell(res *Result, row []string, col int, column string, rowIndex int) *time.Time {
	raw := cell(row, col)
	if raw == "" {
		return nil
	}
	t, ok := dates.Parse(raw)
	if !ok {
		log.Warn().
			Int("row", rowIndex).
			Str("column", column).
			Str("value", raw).
			Msg("Unparseable date dropped")
		res.Warnings = append(res.Warnings, fmt.Sprintf("row %d, column %s: unparseable date %q dropped", rowIndex, column, raw))
		return nil
	}
	return &t
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func trimAll(rec []string) []string {
	out := make([]string, len(rec))
	for i, v := range rec {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
