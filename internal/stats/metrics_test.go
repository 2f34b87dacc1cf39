package stats

import (
	"encoding/json"
	"testing"
	"time"

	"flowcast/internal/dates"
	"flowcast/internal/ingest"
)

func day(s string) time.Time { return dates.MustParse(s) }

func dayPtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	return dates.Ptr(day(s))
}

// finished builds a completed item whose cycle runs from start to end.
func finished(id, start, end string) ingest.Item {
	return ingest.Item{
		ID:         id,
		Entered:    map[string]*time.Time{"A": dayPtr(start), "B": dayPtr(end)},
		Created:    dayPtr(start),
		Completed:  dayPtr(end),
		CycleStart: dayPtr(start),
		CycleEnd:   dayPtr(end),
	}
}

func active(id, start string) ingest.Item {
	return ingest.Item{
		ID:         id,
		Entered:    map[string]*time.Time{"A": dayPtr(start)},
		Created:    dayPtr(start),
		CycleStart: dayPtr(start),
	}
}

func scenarioItems() []ingest.Item {
	mk := func(id, a, b, c, d string) ingest.Item {
		return ingest.Item{
			ID:        id,
			Entered:   map[string]*time.Time{"A": dayPtr(a), "B": dayPtr(b), "C": dayPtr(c), "D": dayPtr(d)},
			Created:   dayPtr(a),
			Completed: dayPtr(d),
		}
	}
	return []ingest.Item{
		mk("1", "2024-01-01", "2024-01-02", "2024-01-03", "2024-01-05"),
		mk("2", "2024-01-02", "2024-01-03", "2024-01-03", "2024-01-04"),
	}
}

func TestComputeCFD_Scenario(t *testing.T) {
	states := []string{"A", "B", "C", "D"}
	rows := ComputeCFD(scenarioItems(), states)
	if len(rows) != 5 {
		t.Fatalf("Expected 5 days (Jan 1..5), got %d", len(rows))
	}

	var jan3 *CFDRow
	for i := range rows {
		if dates.Format(rows[i].Date) == "2024-01-03" {
			jan3 = &rows[i]
		}
	}
	if jan3 == nil {
		t.Fatalf("Row for 2024-01-03 missing")
	}
	want := map[string]int{"A": 2, "B": 2, "C": 2, "D": 0}
	for s, n := range want {
		if jan3.Counts[s] != n {
			t.Errorf("Expected %s=%d on 2024-01-03, got %d", s, n, jan3.Counts[s])
		}
	}
}

func TestComputeCFD_MonotonicAcrossStates(t *testing.T) {
	states := []string{"A", "B", "C", "D"}
	for _, row := range ComputeCFD(scenarioItems(), states) {
		for i := 1; i < len(states); i++ {
			if row.Counts[states[i-1]] < row.Counts[states[i]] {
				t.Errorf("%s: %s=%d below %s=%d", dates.Format(row.Date),
					states[i-1], row.Counts[states[i-1]], states[i], row.Counts[states[i]])
			}
		}
	}
}

func TestComputeCFD_Empty(t *testing.T) {
	if rows := ComputeCFD(nil, []string{"A"}); rows != nil {
		t.Errorf("Expected no rows, got %v", rows)
	}
}

func TestComputeWipRun_OpenItemsRunToToday(t *testing.T) {
	items := []ingest.Item{
		finished("1", "2024-01-01", "2024-01-03"),
		active("2", "2024-01-02"),
	}
	run := ComputeWipRun(items, day("2024-01-05"))
	if len(run) != 5 {
		t.Fatalf("Expected Jan 1..5, got %d points", len(run))
	}
	want := []int{1, 2, 1, 1, 1}
	for i, p := range run {
		if p.Count != want[i] {
			t.Errorf("%s: expected %d, got %d", dates.Format(p.Date), want[i], p.Count)
		}
	}
}

func TestComputeThroughputRun_ZeroFillAndSum(t *testing.T) {
	states := []string{"A", "B", "C", "D"}
	items := append(scenarioItems(), ingest.Item{
		ID:      "open",
		Entered: map[string]*time.Time{"A": dayPtr("2023-12-30")},
		Created: dayPtr("2023-12-30"),
	})
	today := day("2024-01-10")

	run := ComputeThroughputRun(items, states, today)
	first, _ := dates.DaysBetween(dayPtr("2023-12-30"), &today)
	if len(run) != first+1 {
		t.Fatalf("Expected %d days, got %d", first+1, len(run))
	}

	sum := 0
	for i, p := range run {
		if i > 0 {
			gap, _ := dates.DaysBetween(&run[i-1].Date, &p.Date)
			if gap != 1 {
				t.Errorf("Gap of %d days before %s", gap, dates.Format(p.Date))
			}
		}
		sum += p.Count
	}
	if sum != 2 {
		t.Errorf("Expected 2 completions, got %d", sum)
	}
	if dates.Format(run[len(run)-1].Date) != "2024-01-10" {
		t.Errorf("Run must end today, got %s", dates.Format(run[len(run)-1].Date))
	}
}

func TestComputeThroughputRun_FutureCompletionsExtendRange(t *testing.T) {
	items := []ingest.Item{finished("1", "2024-01-01", "2024-02-01")}
	run := ComputeThroughputRun(items, []string{"A", "B"}, day("2024-01-15"))
	if got := dates.Format(run[len(run)-1].Date); got != "2024-02-01" {
		t.Errorf("Expected run to reach the completion date, got %s", got)
	}
	if CalculateMean(Counts(run)) == 0 {
		t.Errorf("Future completion was lost")
	}
}

func TestCycleTimeHistogram_FloorsAtOneDay(t *testing.T) {
	items := []ingest.Item{
		finished("same", "2024-01-01", "2024-01-01"),
		finished("one", "2024-01-01", "2024-01-02"),
		finished("four", "2024-01-01", "2024-01-05"),
		active("open", "2024-01-01"),
	}
	hist := ComputeCycleTimeHistogram(items)
	want := []HistogramBucket{{Value: 1, Count: 2}, {Value: 4, Count: 1}}
	if len(hist) != len(want) {
		t.Fatalf("Expected %v, got %v", want, hist)
	}
	for i := range want {
		if hist[i] != want[i] {
			t.Errorf("Expected %v, got %v", want[i], hist[i])
		}
		if hist[i].Value < 1 {
			t.Errorf("Bucket below one day: %v", hist[i])
		}
	}
}

func TestCycleTimeScatter_PreservesOrder(t *testing.T) {
	items := []ingest.Item{
		finished("b", "2024-01-01", "2024-01-09"),
		active("open", "2024-01-01"),
		finished("a", "2024-01-01", "2024-01-02"),
	}
	pts := ComputeCycleTimeScatter(items)
	if len(pts) != 2 || pts[0].ID != "b" || pts[1].ID != "a" {
		t.Fatalf("Unexpected points %+v", pts)
	}
	if pts[0].Value != 8 || dates.Format(pts[0].Date) != "2024-01-09" {
		t.Errorf("Unexpected first point %+v", pts[0])
	}
}

func TestCycleTimePercentiles_LinearInterpolation(t *testing.T) {
	// Cycle times 1..10
	var items []ingest.Item
	for i := 1; i <= 10; i++ {
		end := day("2024-01-01").AddDate(0, 0, i)
		items = append(items, finished("x", "2024-01-01", dates.Format(end)))
	}
	p := ComputeCycleTimePercentiles(items)
	// idx = p*(n-1): 4.5 -> 5.5, 6.3 -> 7.3, 7.65 -> 8.65, 8.55 -> 9.55
	checks := []struct {
		name string
		got  *int
		want int
	}{{"p50", p.P50, 6}, {"p70", p.P70, 7}, {"p85", p.P85, 9}, {"p95", p.P95, 10}}
	for _, c := range checks {
		if c.got == nil || *c.got != c.want {
			t.Errorf("%s: expected %d, got %v", c.name, c.want, c.got)
		}
	}

	if empty := ComputeCycleTimePercentiles(nil); empty.P50 != nil || empty.P95 != nil {
		t.Errorf("Expected nil percentiles without data")
	}
}

func TestComputeAgingWip(t *testing.T) {
	states := []string{"A", "B", "C"}
	young := active("young", "2024-01-09")
	old := active("old", "2024-01-01")
	old.Entered["B"] = dayPtr("2024-01-03")
	items := []ingest.Item{young, old, finished("done", "2024-01-01", "2024-01-03")}

	aging := ComputeAgingWip(items, states, day("2024-01-10"))
	if len(aging) != 2 {
		t.Fatalf("Expected 2 active items, got %d", len(aging))
	}
	if aging[0].ID != "old" || aging[0].AgeDays != 10 || aging[0].State != "B" {
		t.Errorf("Unexpected oldest item %+v", aging[0])
	}
	if aging[1].ID != "young" || aging[1].AgeDays != 2 || aging[1].State != "A" {
		t.Errorf("Unexpected youngest item %+v", aging[1])
	}
	if !aging[0].IsStale || aging[0].Percentile != 95 {
		t.Errorf("Expected the oldest item above every service level, got %+v", aging[0])
	}
}

func TestComputeSummary(t *testing.T) {
	items := []ingest.Item{
		finished("1", "2024-01-01", "2024-01-03"),
		finished("2", "2024-01-01", "2024-01-06"),
		active("3", "2024-01-02"),
	}
	today := day("2024-01-10")
	snap := ComputeSnapshot(items, []string{"A", "B"}, today)
	sum := ComputeSummary(items, snap)

	if sum.TotalItems != 3 || sum.CompletedItems != 2 || sum.ActiveItems != 1 {
		t.Errorf("Unexpected counts %+v", sum)
	}
	if sum.AvgCycleTimeDays != 3.5 || sum.MedianCycleTimeDays != 3.5 {
		t.Errorf("Expected 3.5 average and median, got %+v", sum)
	}
	// 2 completions over Jan 1..10
	if sum.AvgDailyThroughput != 0.2 {
		t.Errorf("Expected 0.2 items/day, got %v", sum.AvgDailyThroughput)
	}
}

func TestComputeSnapshot_IsDeterministic(t *testing.T) {
	items := append(scenarioItems(), active("open", "2024-01-02"))
	for i := range items {
		if items[i].CycleStart == nil {
			items[i].CycleStart = items[i].EnteredAt("B")
			items[i].CycleEnd = items[i].Completed
		}
	}
	today := day("2024-01-08")
	a, _ := json.Marshal(ComputeSnapshot(items, []string{"A", "B", "C", "D"}, today))
	b, _ := json.Marshal(ComputeSnapshot(items, []string{"A", "B", "C", "D"}, today))
	if string(a) != string(b) {
		t.Errorf("Snapshot JSON differs between runs")
	}
}

func TestWindowThroughputAndAggregate(t *testing.T) {
	start := day("2024-01-01") // Monday
	var run []RunPoint
	for i := 0; i < 10; i++ {
		run = append(run, RunPoint{Date: start.AddDate(0, 0, i), Count: 1})
	}

	win := WindowThroughput(run, dayPtr("2024-01-03"), dayPtr("2024-01-05"))
	if len(win) != 3 || dates.Format(win[0].Date) != "2024-01-03" {
		t.Errorf("Unexpected window %v", win)
	}
	if open := WindowThroughput(run, nil, nil); len(open) != len(run) {
		t.Errorf("Open window should keep everything")
	}

	weeks := Aggregate(run, BucketWeek)
	if len(weeks) != 2 || weeks[0].Count != 7 || weeks[1].Count != 3 || weeks[1].Days != 3 {
		t.Errorf("Unexpected weekly buckets %+v", weeks)
	}
	if weeks[0].Label != "2024-W01" {
		t.Errorf("Unexpected label %s", weeks[0].Label)
	}
}

func TestRunPointJSON(t *testing.T) {
	data, err := json.Marshal(RunPoint{Date: day("2024-03-01"), Count: 2})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"date":"2024-03-01","count":2}` {
		t.Errorf("Unexpected JSON %s", data)
	}
}
