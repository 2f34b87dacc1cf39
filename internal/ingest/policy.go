package ingest

import (
	"fmt"
	"strings"
	"time"
)

// ColumnMode controls how header columns are resolved to workflow states.
type ColumnMode int

const (
	// ColumnsStrict accepts only exact entered_<State> columns.
	ColumnsStrict ColumnMode = iota
	// ColumnsCompat also accepts a case-insensitive prefix, bare <State> columns
	// and a substring match for merged states.
	ColumnsCompat
)

func (m ColumnMode) String() string {
	if m == ColumnsCompat {
		return "compat"
	}
	return "strict"
}

// ParseColumnMode maps a configuration value to a ColumnMode.
func ParseColumnMode(s string) (ColumnMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return ColumnsStrict, nil
	case "compat", "fuzzy":
		return ColumnsCompat, nil
	default:
		return ColumnsStrict, fmt.Errorf("unknown column mode %q (want strict or compat)", s)
	}
}

// CompletionPolicy decides where an item's completed date comes from.
type CompletionPolicy int

const (
	// CompletedFromTerminal uses the last workflow state's date only.
	CompletedFromTerminal CompletionPolicy = iota
	// CompletedFromLastKnown falls back to the last non-null date scanning backward.
	CompletedFromLastKnown
)

func (p CompletionPolicy) String() string {
	if p == CompletedFromLastKnown {
		return "last-known"
	}
	return "terminal"
}

// ParseCompletionPolicy maps a configuration value to a CompletionPolicy.
func ParseCompletionPolicy(s string) (CompletionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "terminal":
		return CompletedFromTerminal, nil
	case "last-known", "last_known", "lastknown":
		return CompletedFromLastKnown, nil
	default:
		return CompletedFromTerminal, fmt.Errorf("unknown completion policy %q (want terminal or last-known)", s)
	}
}

// InferencePolicy fills transitions for an item that has a completion date
// but no transition dates at all.
type InferencePolicy interface {
	Name() string
	Infer(item *Item, states []string, completed time.Time)
}

var (
	// InferFlatFromCompleted assigns every state the completed date.
	InferFlatFromCompleted InferencePolicy = flatInference{}
	// InferNone leaves transitions empty.
	InferNone InferencePolicy = noInference{}
)

type flatInference struct{}

func (flatInference) Name() string { return "flat-from-completed" }

func (flatInference) Infer(item *Item, states []string, completed time.Time) {
	if item.Inferred == nil {
		item.Inferred = make(map[string]bool, len(states))
	}
	for _, s := range states {
		item.Entered[s] = copyTime(&completed)
		item.Inferred[s] = true
	}
}

type noInference struct{}

func (noInference) Name() string { return "none" }

func (noInference) Infer(*Item, []string, time.Time) {}
