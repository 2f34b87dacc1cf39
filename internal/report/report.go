// Package report renders a self-contained HTML snapshot of a store state.
package report

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"flowcast/internal/dates"
	"flowcast/internal/simulation"
	"flowcast/internal/stats"
	"flowcast/internal/store"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
)

//go:embed report.html.tmpl charts.js
var assets embed.FS

var page = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"date":  dates.Format,
	"days":  func(v *int) string { return orNA(v, "days") },
	"items": func(v *int) string { return orNA(v, "items") },
}).ParseFS(assets, "report.html.tmpl"))

// Options tune a rendered report.
type Options struct {
	Title string
	// Now stamps the report; defaults to time.Now.
	Now time.Time
}

type stateView struct {
	Name       string
	InProgress bool
}

type series struct {
	Name   string   `json:"name"`
	Labels []string `json:"labels,omitempty"`
	Values []int    `json:"values"`
}

type chartData struct {
	Throughput     series   `json:"throughput"`
	Wip            series   `json:"wip"`
	CFD            []series `json:"cfd"`
	CycleHistogram series   `json:"cycleHistogram"`
	HowMany        *series  `json:"howMany,omitempty"`
	When           *series  `json:"when,omitempty"`
}

type view struct {
	Title       string
	Generated   string
	Source      string
	Today       time.Time
	Warnings    []string
	Summary     stats.Summary
	States      []stateView
	Visible     []string
	Percentiles stats.Percentiles
	Aging       []stats.AgingItem
	HowMany     *simulation.HowManyResult
	HowManyDays int
	When        *simulation.WhenResult
	WhenTarget  int
	Data        chartData
	Script      template.JS
}

// Render writes the report for st to w.
func Render(w io.Writer, st *store.State, opts Options) error {
	if st == nil {
		return errors.New("report: no state to render")
	}
	script, err := minifiedScript()
	if err != nil {
		return err
	}
	if opts.Title == "" {
		opts.Title = "Flow metrics"
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	v := view{
		Title:       opts.Title,
		Generated:   opts.Now.Format("2006-01-02 15:04"),
		Source:      st.Source,
		Today:       st.Today,
		Warnings:    st.Warnings,
		Summary:     st.Summary,
		Visible:     st.Definition.VisibleStates(),
		Percentiles: st.Metrics.CycleTimePercentiles,
		Aging:       st.Metrics.AgingWip,
		HowMany:     st.HowMany,
		When:        st.When,
		Data:        buildChartData(st),
		Script:      template.JS(script),
	}
	for _, s := range st.Definition.States {
		v.States = append(v.States, stateView{Name: s, InProgress: st.Definition.InProgress[s]})
	}
	if st.HowMany != nil {
		v.HowManyDays = st.HowMany.Days
	}
	if st.When != nil {
		v.WhenTarget = st.When.TargetCount
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, v); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// Write renders the report into dir and returns the file path.
func Write(dir string, st *store.State, opts Options) (string, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("flowcast-report-%s.html", opts.Now.Format("20060102-150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := Render(f, st, opts); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	log.Info().Str("path", path).Msg("Report written")
	return path, nil
}

// Open shows a written report in the default browser.
func Open(path string) error {
	return browser.OpenFile(path)
}

func minifiedScript() (string, error) {
	src, err := assets.ReadFile("charts.js")
	if err != nil {
		return "", err
	}
	result := api.Transform(string(src), api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            api.ES2017,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, len(result.Errors))
		for i, m := range result.Errors {
			msgs[i] = m.Text
		}
		return "", fmt.Errorf("minify chart script: %s", strings.Join(msgs, "; "))
	}
	return string(result.Code), nil
}

func buildChartData(st *store.State) chartData {
	m := st.Metrics
	var data chartData

	for _, b := range stats.Aggregate(m.ThroughputRun, stats.BucketWeek) {
		data.Throughput.Labels = append(data.Throughput.Labels, b.Label)
		data.Throughput.Values = append(data.Throughput.Values, b.Count)
	}
	data.Throughput.Name = "Weekly throughput"

	data.Wip = series{Name: "WIP", Values: stats.Counts(m.WipRun)}

	for _, state := range st.Definition.VisibleStates() {
		s := series{Name: state, Values: make([]int, len(m.CFD))}
		for i, row := range m.CFD {
			s.Values[i] = row.Counts[state]
		}
		data.CFD = append(data.CFD, s)
	}

	data.CycleHistogram.Name = "Cycle time"
	for _, b := range m.CycleHistogram {
		data.CycleHistogram.Labels = append(data.CycleHistogram.Labels, strconv.Itoa(b.Value))
		data.CycleHistogram.Values = append(data.CycleHistogram.Values, b.Count)
	}

	if st.HowMany != nil && !st.HowMany.Blocked() {
		data.HowMany = bucketSeries("Items delivered", st.HowMany.Histogram)
	}
	if st.When != nil && !st.When.Blocked() {
		data.When = bucketSeries("Days to finish", st.When.Histogram)
	}
	return data
}

func bucketSeries(name string, buckets []simulation.Bucket) *series {
	s := &series{Name: name}
	for _, b := range buckets {
		s.Labels = append(s.Labels, strconv.Itoa(b.Value))
		s.Values = append(s.Values, b.Count)
	}
	return s
}

func orNA(v *int, unit string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d %s", *v, unit)
}
