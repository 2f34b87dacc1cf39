package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"flowcast/internal/dates"
	"flowcast/internal/simulation"
	"flowcast/internal/store"
)

const reportCSV = "id,title,entered_Backlog,entered_Dev,entered_Done\n" +
	"1,Login,2024-01-01,2024-01-02,2024-01-05\n" +
	"2,<b>Search</b>,2024-01-02,2024-01-03,\n" +
	"3,Export,2024-01-03,2024-01-04,2024-01-08\n"

func reportStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(store.WithClock(func() time.Time { return dates.MustParse("2024-01-10") }))
	res, _ := s.IngestFrom("items.csv", reportCSV)
	if !res.OK() {
		t.Fatalf("CSV rejected: %v", res.Errors)
	}
	return s
}

func TestRender_ContainsSections(t *testing.T) {
	s := reportStore(t)
	var buf bytes.Buffer
	if err := Render(&buf, s.Snapshot(), Options{Title: "Team A", Now: time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"<title>Team A</title>",
		"Generated 2024-01-10 09:30 from items.csv",
		"as of 2024-01-10",
		"<strong>Dev</strong>",
		"window.flowcastData",
		`"throughput"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Report is missing %q", want)
		}
	}
	if strings.Contains(out, "How many items") {
		t.Error("Forecast sections should be absent without simulation results")
	}
}

func TestRender_EscapesItemTitles(t *testing.T) {
	s := reportStore(t)
	var buf bytes.Buffer
	if err := Render(&buf, s.Snapshot(), Options{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Contains(buf.String(), "<b>Search</b>") {
		t.Error("Item titles must be HTML-escaped")
	}
}

func TestRender_IncludesForecasts(t *testing.T) {
	s := reportStore(t)
	engine := simulation.NewEngine()
	engine.SetSeed(7)
	rev := s.Snapshot().Revision

	hm, err := engine.RunHowMany(context.Background(), simulation.HowManyRequest{Samples: []int{1, 0, 2}, Days: 10, NumSimulations: 200})
	if err != nil {
		t.Fatal(err)
	}
	s.RecordHowMany(simulation.Response{Revision: rev, HowMany: &hm})
	when, err := engine.RunWhen(context.Background(), simulation.WhenRequest{Samples: []int{1, 0, 2}, TargetCount: 5, NumSimulations: 200})
	if err != nil {
		t.Fatal(err)
	}
	s.RecordWhen(simulation.Response{Revision: rev, When: &when})

	var buf bytes.Buffer
	if err := Render(&buf, s.Snapshot(), Options{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "How many items in 10 days") {
		t.Error("Missing how-many section")
	}
	if !strings.Contains(out, "When will 5 items be done") {
		t.Error("Missing when section")
	}
}

func TestMinifiedScript_StripsComments(t *testing.T) {
	script, err := minifiedScript()
	if err != nil {
		t.Fatalf("minify failed: %v", err)
	}
	if strings.Contains(script, "Renders the bar and line charts") {
		t.Error("Comments should be removed by minification")
	}
	if !strings.Contains(script, "flowcastData") {
		t.Error("Global data reference must survive minification")
	}
}

func TestWrite_CreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	path, err := Write(dir, reportStore(t).Snapshot(), Options{Now: time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if filepath.Base(path) != "flowcast-report-20240110-080000.html" {
		t.Errorf("Unexpected report name %s", filepath.Base(path))
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("Report file not written: %v", err)
	}
}
