package store

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"flowcast/internal/dates"
	"flowcast/internal/ingest"
	"flowcast/internal/simulation"
	"flowcast/internal/stats"
	"flowcast/internal/workflow"

	"github.com/rs/zerolog/log"
)

var (
	// ErrUnknownState is returned when a mutation names a state outside the workflow.
	ErrUnknownState = errors.New("unknown workflow state")
	// ErrInvalidWorkflow is returned for empty, blank or duplicate state lists.
	ErrInvalidWorkflow = workflow.ErrInvalidWorkflow
)

// State is an immutable view of everything the store derives. A new State is
// built for every mutation and swapped in as one unit.
type State struct {
	Revision   uint64                    `json:"revision"` // bumped whenever the item set is replaced
	Source     string                    `json:"source,omitempty"`
	Today      time.Time                 `json:"today"`
	Definition workflow.Definition       `json:"workflow"`
	Items      []ingest.Item             `json:"items"`
	Metrics    stats.Snapshot            `json:"metrics"`
	Summary    stats.Summary             `json:"summary"`
	Warnings   []string                  `json:"warnings,omitempty"`
	HowMany    *simulation.HowManyResult `json:"howMany,omitempty"`
	When       *simulation.WhenResult    `json:"when,omitempty"`
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIngestOptions sets the column, inference and completion policies.
func WithIngestOptions(opts ingest.Options) Option {
	return func(s *Store) { s.ingestOpts = opts }
}

// WithDefinition starts the store from a saved workflow instead of the default.
func WithDefinition(def workflow.Definition) Option {
	return func(s *Store) { s.initial = def.Clone() }
}

// OnWorkflowChange registers a hook called after every workflow mutation,
// outside the store lock.
func OnWorkflowChange(fn func(workflow.Definition)) Option {
	return func(s *Store) { s.onWorkflow = fn }
}

// Store owns the workflow definition and the item set. Writers are
// serialized; readers always see a consistent State.
type Store struct {
	mu    sync.RWMutex
	state *State
	raw   []ingest.Item // normalized items without cycle fields

	issued map[simulation.Kind]uint64 // last sequence handed out per kind

	now        func() time.Time
	ingestOpts ingest.Options
	initial    workflow.Definition
	onWorkflow func(workflow.Definition)
}

// New builds an empty store with the default workflow unless configured otherwise.
func New(opts ...Option) *Store {
	s := &Store{
		now:     time.Now,
		initial: workflow.Default(),
		issued:  make(map[simulation.Kind]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = s.build(s.initial, nil, 0, "")
	return s
}

// Snapshot returns the current state. Callers must treat it as read-only.
func (s *Store) Snapshot() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Metrics returns the current metrics snapshot.
func (s *Store) Metrics() stats.Snapshot {
	return s.Snapshot().Metrics
}

// Summary returns the headline numbers of the current dataset.
func (s *Store) Summary() stats.Summary {
	return s.Snapshot().Summary
}

// Workflow returns a copy of the current workflow definition.
func (s *Store) Workflow() workflow.Definition {
	return s.Snapshot().Definition.Clone()
}

// ThroughputHistory returns the full daily throughput series.
func (s *Store) ThroughputHistory() []int {
	return stats.Counts(s.Snapshot().Metrics.ThroughputRun)
}

// ThroughputWindow returns the daily throughput between start and end
// (inclusive, nil for open ends).
func (s *Store) ThroughputWindow(start, end *time.Time) []int {
	return stats.Counts(stats.WindowThroughput(s.Snapshot().Metrics.ThroughputRun, start, end))
}

// SimulationRequest builds a worker request from this snapshot, so samples
// and revision always describe the same dataset.
func (st *State) SimulationRequest(kind simulation.Kind, start, end *time.Time, minSamples, sims int) simulation.Request {
	run := st.Metrics.ThroughputRun
	return simulation.Request{
		Kind:           kind,
		Window:         stats.Counts(stats.WindowThroughput(run, start, end)),
		Full:           stats.Counts(run),
		MinSamples:     minSamples,
		NumSimulations: sims,
		Revision:       st.Revision,
	}
}

// SimulationRequest stamps a request for the current snapshot with the next
// sequence of its kind. Results of earlier requests of the same kind are
// rejected by RecordHowMany and RecordWhen once this one is issued.
func (s *Store) SimulationRequest(kind simulation.Kind, start, end *time.Time, minSamples, sims int) (simulation.Request, *State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[kind]++
	req := s.state.SimulationRequest(kind, start, end, minSamples, sims)
	req.Sequence = s.issued[kind]
	return req, s.state
}

// SetWorkflowStates replaces the ordered state list, reconciling visibility
// and in-progress flags, and returns guardrail warnings.
func (s *Store) SetWorkflowStates(states []string) ([]string, error) {
	return s.mutateWorkflow(func(def workflow.Definition) (workflow.Definition, error) {
		return def.Reconcile(states)
	})
}

// SetWorkflowDefinition installs an explicit definition. Its in-progress flags
// count as user choices.
func (s *Store) SetWorkflowDefinition(def workflow.Definition) ([]string, error) {
	return s.mutateWorkflow(func(workflow.Definition) (workflow.Definition, error) {
		if err := workflow.Validate(def.States); err != nil {
			return workflow.Definition{}, err
		}
		next, _ := workflow.New(def.States)
		for _, st := range def.States {
			if v, ok := def.Visibility[st]; ok {
				next.Visibility[st] = v
			}
			if v, ok := def.InProgress[st]; ok {
				next.InProgress[st] = v
			}
		}
		next.Customized = true
		return next, nil
	})
}

// ToggleInProgress flips one state's classification and marks the workflow customized.
func (s *Store) ToggleInProgress(state string) ([]string, error) {
	return s.mutateWorkflow(func(def workflow.Definition) (workflow.Definition, error) {
		if !def.Has(state) {
			return workflow.Definition{}, fmt.Errorf("toggle in-progress %q: %w", state, ErrUnknownState)
		}
		def.InProgress[state] = !def.InProgress[state]
		def.Customized = true
		return def, nil
	})
}

// ToggleVisibility flips whether a state is displayed.
func (s *Store) ToggleVisibility(state string) error {
	_, err := s.mutateWorkflow(func(def workflow.Definition) (workflow.Definition, error) {
		if !def.Has(state) {
			return workflow.Definition{}, fmt.Errorf("toggle visibility %q: %w", state, ErrUnknownState)
		}
		def.Visibility[state] = !def.Visibility[state]
		return def, nil
	})
	return err
}

// AddState appends a new, empty state to the end of the workflow.
func (s *Store) AddState(name string) ([]string, error) {
	return s.mutateWorkflow(func(def workflow.Definition) (workflow.Definition, error) {
		return def.Reconcile(append(slices.Clone(def.States), name))
	})
}

// DeleteState removes a state and its transition dates from every item.
func (s *Store) DeleteState(name string) ([]string, error) {
	return s.mutateItemsAndWorkflow(func(def workflow.Definition, items []ingest.Item) (workflow.Definition, error) {
		if !def.Has(name) {
			return workflow.Definition{}, fmt.Errorf("delete state %q: %w", name, ErrUnknownState)
		}
		next, err := def.Reconcile(slices.DeleteFunc(slices.Clone(def.States), func(st string) bool { return st == name }))
		if err != nil {
			return workflow.Definition{}, err
		}
		for i := range items {
			delete(items[i].Entered, name)
			delete(items[i].Inferred, name)
		}
		return next, nil
	})
}

// MergeStates folds names into newName, placed where the first of them sits.
// Each item keeps the earliest date among the merged states.
func (s *Store) MergeStates(names []string, newName string) ([]string, error) {
	return s.mutateItemsAndWorkflow(func(def workflow.Definition, items []ingest.Item) (workflow.Definition, error) {
		if len(names) == 0 {
			return workflow.Definition{}, fmt.Errorf("merge states: %w: nothing to merge", ErrInvalidWorkflow)
		}
		merged := make(map[string]bool, len(names))
		for _, n := range names {
			if !def.Has(n) {
				return workflow.Definition{}, fmt.Errorf("merge state %q: %w", n, ErrUnknownState)
			}
			merged[n] = true
		}

		var states []string
		inProgress := false
		placed := false
		for _, st := range def.States {
			if !merged[st] {
				states = append(states, st)
				continue
			}
			inProgress = inProgress || def.InProgress[st]
			if !placed {
				states = append(states, newName)
				placed = true
			}
		}
		next, err := def.Reconcile(states)
		if err != nil {
			return workflow.Definition{}, err
		}
		if def.Customized {
			next.InProgress[newName] = inProgress
		}

		for i := range items {
			var earliest *time.Time
			inferred := false
			for _, n := range names {
				if d := items[i].Entered[n]; d != nil && (earliest == nil || d.Before(*earliest)) {
					earliest = d
				}
				inferred = inferred || items[i].Inferred[n]
				delete(items[i].Entered, n)
				delete(items[i].Inferred, n)
			}
			if items[i].Entered == nil {
				items[i].Entered = make(map[string]*time.Time)
			}
			items[i].Entered[newName] = earliest
			if inferred {
				if items[i].Inferred == nil {
					items[i].Inferred = make(map[string]bool)
				}
				items[i].Inferred[newName] = true
			}
		}
		return next, nil
	})
}

// SetItems replaces the item set. Items are normalized against the current
// workflow and any previous simulation results are cleared.
func (s *Store) SetItems(items []ingest.Item) {
	s.mu.Lock()
	def := s.state.Definition
	opts := s.ingestOpts
	s.raw = ingest.Normalize(items, def.States, opts)
	s.state = s.build(def, s.raw, s.state.Revision+1, "")
	s.mu.Unlock()
}

// Ingest parses a CSV and, if it is usable, applies it as one transaction:
// derive the workflow, reconcile classification, recompute everything and
// clear simulations. A failed ingestion leaves the store untouched.
func (s *Store) Ingest(csvText string) (ingest.Result, []string) {
	return s.IngestFrom("", csvText)
}

// IngestFrom is Ingest with the name of the file the CSV came from.
func (s *Store) IngestFrom(source, csvText string) (ingest.Result, []string) {
	s.mu.Lock()

	opts := s.ingestOpts
	opts.KnownStates = s.state.Definition.States
	res := ingest.Parse(csvText, opts)
	if !res.OK() {
		s.mu.Unlock()
		log.Warn().Strs("errors", res.Errors).Str("source", source).Msg("CSV rejected")
		return res, nil
	}

	def, err := s.state.Definition.Reconcile(res.WorkflowStates)
	if err != nil {
		s.mu.Unlock()
		res.Errors = append(res.Errors, err.Error())
		res.Items = nil
		return res, nil
	}

	s.raw = ingest.CloneAll(res.Items)
	s.state = s.build(def, s.raw, s.state.Revision+1, source)
	warnings := s.state.Warnings
	s.mu.Unlock()

	log.Info().Str("source", source).Int("items", len(res.Items)).Strs("states", def.States).Msg("Dataset loaded")
	s.notifyWorkflow(def)
	return res, warnings
}

// RecordHowMany stores a how-many result if it was computed from the current
// dataset and no newer how-many request has been issued since. It reports
// whether the result was kept.
func (s *Store) RecordHowMany(resp simulation.Response) bool {
	if resp.HowMany == nil {
		return false
	}
	res := *resp.HowMany
	return s.record(simulation.KindHowMany, resp, func(next *State) { next.HowMany = &res })
}

// RecordWhen is RecordHowMany for when-how-long results.
func (s *Store) RecordWhen(resp simulation.Response) bool {
	if resp.When == nil {
		return false
	}
	res := *resp.When
	return s.record(simulation.KindWhen, resp, func(next *State) { next.When = &res })
}

// Reset drops all items and simulation results, keeping the workflow.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = nil
	s.state = s.build(s.state.Definition, nil, s.state.Revision+1, "")
}

func (s *Store) record(kind simulation.Kind, resp simulation.Response, apply func(*State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if resp.Revision != s.state.Revision {
		log.Debug().Uint64("result", resp.Revision).Uint64("current", s.state.Revision).Msg("Dropping stale simulation result")
		return false
	}
	if resp.Sequence < s.issued[kind] {
		log.Debug().Str("kind", string(kind)).Uint64("result", resp.Sequence).Uint64("latest", s.issued[kind]).Msg("Dropping superseded simulation result")
		return false
	}
	next := *s.state
	apply(&next)
	s.state = &next
	return true
}

func (s *Store) mutateWorkflow(fn func(workflow.Definition) (workflow.Definition, error)) ([]string, error) {
	return s.mutateItemsAndWorkflow(func(def workflow.Definition, _ []ingest.Item) (workflow.Definition, error) {
		return fn(def)
	})
}

// mutateItemsAndWorkflow hands fn private copies of the definition and items;
// nothing is published unless fn succeeds. Simulation results survive a
// workflow edit since the dataset revision is unchanged.
func (s *Store) mutateItemsAndWorkflow(fn func(workflow.Definition, []ingest.Item) (workflow.Definition, error)) ([]string, error) {
	s.mu.Lock()
	items := ingest.CloneAll(s.raw)
	dated := make([]bool, len(items))
	for i := range items {
		dated[i] = hasTransition(items[i])
	}
	def, err := fn(s.state.Definition.Clone(), items)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	items = rederive(items, dated, def.States, s.ingestOpts)

	prev := s.state
	s.raw = items
	next := s.build(def, items, prev.Revision, prev.Source)
	next.HowMany, next.When = prev.HowMany, prev.When
	s.state = next
	warnings := next.Warnings
	s.mu.Unlock()

	s.notifyWorkflow(def)
	return warnings, nil
}

// rederive recomputes created and completed dates against a new state order.
// dated reports which items had a transition before the edit; the others keep
// the dates taken from the created_date/completed_date columns.
func rederive(items []ingest.Item, dated []bool, states []string, opts ingest.Options) []ingest.Item {
	for i := range items {
		if dated[i] {
			items[i].Created = nil
			items[i].Completed = nil
		}
	}
	return ingest.Normalize(items, states, opts)
}

func hasTransition(it ingest.Item) bool {
	for _, d := range it.Entered {
		if d != nil {
			return true
		}
	}
	return false
}

func (s *Store) notifyWorkflow(def workflow.Definition) {
	if s.onWorkflow != nil {
		s.onWorkflow(def.Clone())
	}
}

// build derives a complete State. It never mutates raw.
func (s *Store) build(def workflow.Definition, raw []ingest.Item, revision uint64, source string) *State {
	today := dates.Truncate(s.now())
	items := ingest.CloneAll(raw)
	for i := range items {
		items[i].CycleStart, items[i].CycleEnd = CycleBounds(items[i], def)
	}

	metrics := stats.ComputeSnapshot(items, def.States, today)
	return &State{
		Revision:   revision,
		Source:     source,
		Today:      today,
		Definition: def,
		Items:      items,
		Metrics:    metrics,
		Summary:    stats.ComputeSummary(items, metrics),
		Warnings:   def.Warnings(),
	}
}

// CycleBounds derives the cycle start and end of an item under a workflow
// classification. The start is the first in-progress state with a date,
// falling back to the created date; the end is the completed date.
func CycleBounds(it ingest.Item, def workflow.Definition) (*time.Time, *time.Time) {
	var start *time.Time
	for _, st := range def.States {
		if def.InProgress[st] && it.EnteredAt(st) != nil {
			start = it.EnteredAt(st)
			break
		}
	}
	if start == nil {
		start = it.Created
	}
	var end *time.Time
	if it.Completed != nil {
		end = dates.Ptr(*it.Completed)
	}
	if start != nil {
		start = dates.Ptr(*start)
	}
	return start, end
}
