package ingest

import (
	"time"
)

// Item is the canonical, normalized work item.
// CycleStart and CycleEnd are derived by the store and never set by ingestion.
type Item struct {
	ID         string                `json:"id"`
	Title      string                `json:"title"`
	Entered    map[string]*time.Time `json:"entered"`
	Inferred   map[string]bool       `json:"inferred,omitempty"`
	Created    *time.Time            `json:"created"`
	Completed  *time.Time            `json:"completed"`
	CycleStart *time.Time            `json:"cycleStart"`
	CycleEnd   *time.Time            `json:"cycleEnd"`
	RowIndex   int                   `json:"rowIndex,omitempty"`
}

// EnteredAt returns the date the item first reached state, or nil.
func (it Item) EnteredAt(state string) *time.Time {
	if it.Entered == nil {
		return nil
	}
	return it.Entered[state]
}

// IsDone reports whether the item has a cycle end.
func (it Item) IsDone() bool {
	return it.CycleEnd != nil
}

// IsActive reports whether the item has started its cycle but not finished it.
func (it Item) IsActive() bool {
	return it.CycleStart != nil && it.CycleEnd == nil
}

// Clone returns a deep copy so snapshots never share mutable maps or dates.
func (it Item) Clone() Item {
	out := it
	out.Entered = make(map[string]*time.Time, len(it.Entered))
	for k, v := range it.Entered {
		out.Entered[k] = copyTime(v)
	}
	if it.Inferred != nil {
		out.Inferred = make(map[string]bool, len(it.Inferred))
		for k, v := range it.Inferred {
			out.Inferred[k] = v
		}
	}
	out.Created = copyTime(it.Created)
	out.Completed = copyTime(it.Completed)
	out.CycleStart = copyTime(it.CycleStart)
	out.CycleEnd = copyTime(it.CycleEnd)
	return out
}

// CloneAll deep-copies a slice of items.
func CloneAll(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
