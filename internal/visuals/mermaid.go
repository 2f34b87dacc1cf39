package visuals

import (
	"fmt"
	"math"
	"strings"

	"flowcast/internal/simulation"
	"flowcast/internal/stats"
)

// Mermaid's xychart starts overlapping labels at around 60 points.
const maxPoints = 60

// GenerateXmRChart creates a Mermaid xychart-beta for a Process Behavior (Individuals) chart.
func GenerateXmRChart(xmr stats.XmRResult, title, yLabel string) string {
	if len(xmr.Values) == 0 {
		return ""
	}

	var labels []string
	var values []string
	var averages []string
	var unpls []string

	for i, v := range xmr.Values {
		labels = append(labels, fmt.Sprintf("%d", i+1))
		values = append(values, fmt.Sprintf("%.1f", v))
		averages = append(averages, fmt.Sprintf("%.1f", xmr.Average))
		unpls = append(unpls, fmt.Sprintf("%.1f", xmr.UNPL))
	}

	// Dynamically scale Y-axis based on max value to give breathing room above the UNPL
	maxY := xmr.UNPL * 1.2
	for _, v := range xmr.Values {
		if v > maxY {
			maxY = v * 1.1
		}
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"%s\"\n", title))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"%s\" 0 --> %d\n", yLabel, int(math.Ceil(math.Max(maxY, 1)))))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(values, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(averages, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(unpls, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateThroughputChart creates a Mermaid bar chart for delivery cadence over time buckets.
func GenerateThroughputChart(buckets []stats.BucketPoint) string {
	if len(buckets) == 0 {
		return ""
	}

	var labels []string
	var values []string

	maxVal := 0
	for _, b := range buckets {
		labels = append(labels, quote(b.Label))
		values = append(values, fmt.Sprintf("%d", b.Count))
		maxVal = max(maxVal, b.Count)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Delivery Cadence (Throughput)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Items Delivered\" 0 --> %d\n", maxVal+int(math.Max(1, float64(maxVal)*0.2))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateAgingChart creates a Mermaid bar chart showing the age of currently active items.
func GenerateAgingChart(aging []stats.AgingItem) string {
	if len(aging) == 0 {
		return ""
	}

	var labels []string
	var values []string
	maxVal := 0

	// Limit to 20 items to avoid overwhelming the text chart context
	for _, item := range aging[:min(len(aging), 20)] {
		labels = append(labels, quote(item.ID))
		values = append(values, fmt.Sprintf("%d", item.AgeDays))
		maxVal = max(maxVal, item.AgeDays)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"WIP Aging (Top 20 Active Items)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Age (Days)\" 0 --> %d\n", int(math.Ceil(float64(maxVal)*1.1))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateWIPRunChart creates a Mermaid xychart-beta of the daily WIP count.
func GenerateWIPRunChart(run []stats.RunPoint) string {
	if len(run) == 0 {
		return ""
	}

	var labels []string
	var values []string
	maxVal := 0
	rate := subsampleRate(len(run))

	for i, point := range run {
		if i%rate == 0 || i == len(run)-1 {
			labels = append(labels, quote(point.Date.Format("Jan02")))
			values = append(values, fmt.Sprintf("%d", point.Count))
		}
		maxVal = max(maxVal, point.Count)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Work-In-Progress (WIP) Run Chart\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Active Items\" 0 --> %d\n", int(math.Ceil(float64(max(maxVal, 1))*1.2))))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateCFDChart draws one line per state. Pass only the visible states.
func GenerateCFDChart(rows []stats.CFDRow, states []string) string {
	if len(rows) == 0 || len(states) == 0 {
		return ""
	}

	rate := subsampleRate(len(rows))
	var labels []string
	series := make([][]string, len(states))
	maxVal := 0

	for i, row := range rows {
		if i%rate != 0 && i != len(rows)-1 {
			continue
		}
		labels = append(labels, quote(row.Date.Format("Jan02")))
		for j, s := range states {
			series[j] = append(series[j], fmt.Sprintf("%d", row.Counts[s]))
			maxVal = max(maxVal, row.Counts[s])
		}
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"Cumulative Flow (%s)\"\n", strings.Join(states, ", ")))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Items\" 0 --> %d\n", int(math.Ceil(float64(max(maxVal, 1))*1.1))))
	for _, line := range series {
		sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(line, ", ")))
	}
	sb.WriteString("```")
	return sb.String()
}

// GenerateCycleTimeHistogram creates a Mermaid bar chart of cycle-time frequencies.
func GenerateCycleTimeHistogram(buckets []stats.HistogramBucket) string {
	if len(buckets) == 0 {
		return ""
	}
	values := make([]simulation.Bucket, len(buckets))
	for i, b := range buckets {
		values[i] = simulation.Bucket{Value: b.Value, Count: b.Count}
	}
	return frequencyChart("Cycle Time Distribution", "Items", values)
}

// GenerateSimulationHistogram creates a Mermaid bar chart of trial outcomes.
func GenerateSimulationHistogram(buckets []simulation.Bucket, mode string) string {
	title := "Monte Carlo: Days to Finish"
	if mode == string(simulation.KindHowMany) {
		title = "Monte Carlo: Items Delivered"
	}
	return frequencyChart(title, "Trials", buckets)
}

// GenerateHowManyChart shows the forecast levels; lower levels are safer commitments.
func GenerateHowManyChart(p simulation.HowManyPercentiles) string {
	return percentileChart("How Many (Items by Date)", "Items Delivered", []string{
		"\"95% (Safe)\"", "\"85% (Likely)\"", "\"50% (Coin Toss)\"",
	}, []*int{p.P05, p.P15, p.P50})
}

// GenerateWhenChart shows the forecast levels in days.
func GenerateWhenChart(p simulation.WhenPercentiles) string {
	return percentileChart("When (Days to Finish)", "Days", []string{
		"\"50% (Coin Toss)\"", "\"85% (Likely)\"", "\"95% (Safe)\"",
	}, []*int{p.P50, p.P85, p.P95})
}

func percentileChart(title, yLabel string, labels []string, levels []*int) string {
	var values []string
	maxVal := 0
	for _, l := range levels {
		if l == nil {
			return ""
		}
		values = append(values, fmt.Sprintf("%d", *l))
		maxVal = max(maxVal, *l)
	}
	if maxVal == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"%s\"\n", title))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"%s\" 0 --> %d\n", yLabel, int(math.Ceil(float64(maxVal)*1.1))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

func frequencyChart(title, yLabel string, buckets []simulation.Bucket) string {
	if len(buckets) == 0 {
		return ""
	}

	// Wide distributions are grouped into equal-width ranges.
	lo, hi := buckets[0].Value, buckets[len(buckets)-1].Value
	width := max(1, int(math.Ceil(float64(hi-lo+1)/float64(maxPoints))))

	var labels []string
	var values []string
	maxVal := 0
	for start := lo; start <= hi; start += width {
		count := 0
		for _, b := range buckets {
			if b.Value >= start && b.Value < start+width {
				count += b.Count
			}
		}
		label := fmt.Sprintf("%d", start)
		if width > 1 {
			label = fmt.Sprintf("%d-%d", start, start+width-1)
		}
		labels = append(labels, quote(label))
		values = append(values, fmt.Sprintf("%d", count))
		maxVal = max(maxVal, count)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"%s\"\n", title))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"%s\" 0 --> %d\n", yLabel, int(math.Ceil(float64(maxVal)*1.1))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

func subsampleRate(n int) int {
	if n > maxPoints {
		return int(math.Ceil(float64(n) / maxPoints))
	}
	return 1
}

// quote wraps a label for the x-axis; Mermaid has no escape for double quotes.
func quote(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "'") + "\""
}
