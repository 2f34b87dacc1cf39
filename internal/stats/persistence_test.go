package stats

import (
	"testing"
	"time"

	"flowcast/internal/ingest"
)

func TestComputeStatePersistence(t *testing.T) {
	states := []string{"A", "B", "C"}
	items := []ingest.Item{
		// A for 2 days, B for 3 days, then done.
		{ID: "1", Entered: map[string]*time.Time{"A": dayPtr("2024-01-01"), "B": dayPtr("2024-01-03"), "C": dayPtr("2024-01-06")}, Completed: dayPtr("2024-01-06")},
		// B skipped: A runs until C.
		{ID: "2", Entered: map[string]*time.Time{"A": dayPtr("2024-01-02"), "C": dayPtr("2024-01-04")}, Completed: dayPtr("2024-01-04")},
		// Still in B on day 10.
		{ID: "3", Entered: map[string]*time.Time{"A": dayPtr("2024-01-05"), "B": dayPtr("2024-01-06")}},
	}

	got := ComputeStatePersistence(items, states, day("2024-01-10"))
	if len(got) != 2 {
		t.Fatalf("Expected persistence for A and B only, got %+v", got)
	}

	a, b := got[0], got[1]
	if a.State != "A" || a.Count != 3 || a.Share != 1 {
		t.Errorf("Unexpected A summary %+v", a)
	}
	// A stays: 2, 2, 1 -> sorted 1, 2, 2
	if a.P50 != 2 || a.P95 != 2 {
		t.Errorf("Unexpected A percentiles %+v", a)
	}
	// B stays: 3 and 4 (open until today)
	if b.State != "B" || b.Count != 2 || b.P50 != 4 {
		t.Errorf("Unexpected B summary %+v", b)
	}
}

func TestComputeStatePersistence_Empty(t *testing.T) {
	if got := ComputeStatePersistence(nil, []string{"A"}, day("2024-01-01")); got != nil {
		t.Errorf("Expected nil for no items, got %+v", got)
	}
}
