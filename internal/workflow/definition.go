package workflow

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidWorkflow is returned for empty, blank or duplicate state lists.
var ErrInvalidWorkflow = errors.New("invalid workflow")

// DefaultStates is the workflow used before any CSV has been ingested.
var DefaultStates = []string{"Refinement", "Development", "Testing", "Done"}

// Definition is the user-owned workflow: ordered states plus display and
// classification flags.
type Definition struct {
	States     []string        `json:"states" yaml:"states"`
	Visibility map[string]bool `json:"visibility" yaml:"visibility"`
	InProgress map[string]bool `json:"inProgress" yaml:"in_progress"`
	Customized bool            `json:"customized" yaml:"customized"`
}

// New builds a definition with positional defaults for every state.
func New(states []string) (Definition, error) {
	if err := Validate(states); err != nil {
		return Definition{}, err
	}
	def := Definition{
		States:     slices.Clone(states),
		Visibility: make(map[string]bool, len(states)),
		InProgress: DefaultInProgress(states),
	}
	for _, s := range states {
		def.Visibility[s] = true
	}
	return def, nil
}

// Default returns the definition for DefaultStates.
func Default() Definition {
	def, _ := New(DefaultStates)
	return def
}

// Validate rejects empty lists, blank names and duplicates.
func Validate(states []string) error {
	if len(states) == 0 {
		return fmt.Errorf("%w: at least one state is required", ErrInvalidWorkflow)
	}
	seen := make(map[string]bool, len(states))
	for _, s := range states {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: state names must not be blank", ErrInvalidWorkflow)
		}
		if seen[s] {
			return fmt.Errorf("%w: duplicate state %q", ErrInvalidWorkflow, s)
		}
		seen[s] = true
	}
	return nil
}

// DefaultInProgress flags every middle state as active work; the first state
// (waiting) and the last state (terminal) are not.
func DefaultInProgress(states []string) map[string]bool {
	out := make(map[string]bool, len(states))
	for i, s := range states {
		out[s] = positionalDefault(i, len(states))
	}
	return out
}

func positionalDefault(i, n int) bool {
	return i > 0 && i < n-1
}

// Reconcile adapts the definition to a new state list. Visibility defaults to
// true for new states and entries for removed states are dropped. In-progress
// flags are fully re-defaulted unless the user customized them, in which case
// existing choices are kept and only new states get the positional default.
func (d Definition) Reconcile(states []string) (Definition, error) {
	if err := Validate(states); err != nil {
		return Definition{}, err
	}

	out := Definition{
		States:     slices.Clone(states),
		Visibility: make(map[string]bool, len(states)),
		InProgress: make(map[string]bool, len(states)),
		Customized: d.Customized,
	}

	for i, s := range states {
		if v, ok := d.Visibility[s]; ok {
			out.Visibility[s] = v
		} else {
			out.Visibility[s] = true
		}

		if v, ok := d.InProgress[s]; ok && d.Customized {
			out.InProgress[s] = v
		} else {
			out.InProgress[s] = positionalDefault(i, len(states))
		}
	}
	return out, nil
}

// FirstInProgress returns the first state, in workflow order, flagged as active work.
func (d Definition) FirstInProgress() (string, bool) {
	for _, s := range d.States {
		if d.InProgress[s] {
			return s, true
		}
	}
	return "", false
}

// Terminal returns the last workflow state.
func (d Definition) Terminal() string {
	if len(d.States) == 0 {
		return ""
	}
	return d.States[len(d.States)-1]
}

// Has reports whether state is part of the workflow.
func (d Definition) Has(state string) bool {
	return slices.Contains(d.States, state)
}

// Warnings returns guardrail messages for classifications that make cycle-time
// metrics meaningless.
func (d Definition) Warnings() []string {
	if _, ok := d.FirstInProgress(); ok {
		return nil
	}
	if len(d.States) == 2 {
		return []string{fmt.Sprintf("Workflow %q has only two states and none is marked in-progress; cycle times fall back to the created date. Mark a state as in-progress to measure active work.", strings.Join(d.States, " → "))}
	}
	return []string{"No workflow state is marked in-progress; cycle times fall back to the created date."}
}

// Clone returns a deep copy.
func (d Definition) Clone() Definition {
	out := Definition{
		States:     slices.Clone(d.States),
		Visibility: make(map[string]bool, len(d.Visibility)),
		InProgress: make(map[string]bool, len(d.InProgress)),
		Customized: d.Customized,
	}
	for k, v := range d.Visibility {
		out.Visibility[k] = v
	}
	for k, v := range d.InProgress {
		out.InProgress[k] = v
	}
	return out
}

// VisibleStates returns the states flagged visible, in workflow order.
func (d Definition) VisibleStates() []string {
	var out []string
	for _, s := range d.States {
		if d.Visibility[s] {
			out = append(out, s)
		}
	}
	return out
}
