package stats

import (
	"fmt"
	"time"

	"flowcast/internal/dates"
)

// Bucket sizes for aggregated run charts.
const (
	BucketDay   = "day"
	BucketWeek  = "week"
	BucketMonth = "month"
)

// BucketPoint is an aggregated slice of a daily run.
type BucketPoint struct {
	Start time.Time `json:"-"`
	Label string    `json:"label"`
	Count int       `json:"count"`
	Days  int       `json:"days"`
}

// WindowThroughput returns the part of a daily run between start and end,
// both inclusive. A nil bound leaves that side open.
func WindowThroughput(run []RunPoint, start, end *time.Time) []RunPoint {
	var out []RunPoint
	for _, p := range run {
		if start != nil && p.Date.Before(dates.Truncate(*start)) {
			continue
		}
		if end != nil && p.Date.After(dates.Truncate(*end)) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SnapToStart normalizes a day to the beginning of its bucket.
func SnapToStart(t time.Time, bucket string) time.Time {
	t = dates.Truncate(t)
	switch bucket {
	case BucketMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case BucketWeek:
		// Snap to Monday
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday -> 7
		}
		return t.AddDate(0, 0, 1-weekday)
	default:
		return t
	}
}

// GenerateLabel returns a human-readable label for a bucket (e.g., "Jan 2024" or "2024-W01").
func GenerateLabel(t time.Time, bucket string) string {
	switch bucket {
	case BucketMonth:
		return t.Format("Jan 2006")
	case BucketWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	default:
		return dates.Format(t)
	}
}

// Aggregate sums a daily run into day, week or month buckets. The first and
// last buckets may be partial; Days tells how many days each one covers.
func Aggregate(run []RunPoint, bucket string) []BucketPoint {
	var out []BucketPoint
	for _, p := range run {
		start := SnapToStart(p.Date, bucket)
		if len(out) == 0 || !out[len(out)-1].Start.Equal(start) {
			out = append(out, BucketPoint{Start: start, Label: GenerateLabel(start, bucket)})
		}
		last := &out[len(out)-1]
		last.Count += p.Count
		last.Days++
	}
	return out
}
