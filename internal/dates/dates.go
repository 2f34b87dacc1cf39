package dates

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// Layout is the canonical calendar-day rendering used everywhere in flowcast.
	Layout = "2006-01-02"

	// MinYear and MaxYear bound the accepted calendar years. Anything outside is
	// treated as a data-entry error and dropped.
	MinYear = 1990
	MaxYear = 2100

	day = 24 * time.Hour
)

var (
	isoPattern   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:[T ].*)?$`)
	slashPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// Parse converts a raw cell into a UTC calendar day.
// It accepts YYYY-MM-DD (optionally followed by a time portion) and M/D/YYYY.
// Dates that a naive constructor would silently roll over (2024-02-30) are rejected.
func Parse(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if m := isoPattern.FindStringSubmatch(value); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)

		// Round-trip check: the rendered date must equal the input's date portion.
		if t.Format(Layout) != value[:10] {
			return time.Time{}, false
		}
		return checkYear(t, value)
	}

	if m := slashPattern.FindStringSubmatch(value); m != nil {
		mo, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if mo < 1 || mo > 12 || d < 1 || d > 31 {
			return time.Time{}, false
		}

		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
			return time.Time{}, false
		}
		return checkYear(t, value)
	}

	return time.Time{}, false
}

func checkYear(t time.Time, raw string) (time.Time, bool) {
	if t.Year() < MinYear || t.Year() > MaxYear {
		log.Debug().Str("value", raw).Int("year", t.Year()).Msg("Dropped date outside accepted year range")
		return time.Time{}, false
	}
	return t, true
}

// ParseValue accepts a time.Time, *time.Time or string.
// Times pass through truncated to their UTC calendar day.
func ParseValue(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return time.Time{}, false
		}
		return Truncate(val), true
	case *time.Time:
		if val == nil || val.IsZero() {
			return time.Time{}, false
		}
		return Truncate(*val), true
	case string:
		return Parse(val)
	default:
		return time.Time{}, false
	}
}

// Truncate snaps t to 00:00 UTC of its UTC calendar day.
func Truncate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns round((b - a) / 1 day). The bool is false if either side is nil.
func DaysBetween(a, b *time.Time) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	return int(math.Round(b.Sub(*a).Hours() / 24)), true
}

// EachDay returns every calendar day from start to end inclusive.
func EachDay(start, end time.Time) []time.Time {
	start, end = Truncate(start), Truncate(end)
	if start.After(end) {
		return nil
	}

	days := make([]time.Time, 0, int(end.Sub(start)/day)+1)
	for current := start; !current.After(end); current = current.AddDate(0, 0, 1) {
		days = append(days, current)
	}
	return days
}

// Format renders the UTC calendar day of t as YYYY-MM-DD.
// A zero time is a caller bug, not a data problem, so it panics.
func Format(t time.Time) string {
	if t.IsZero() {
		panic("dates.Format: zero time is not a date")
	}
	return t.UTC().Format(Layout)
}

// FormatPtr renders an optional date, returning "" for nil.
func FormatPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return Format(*t)
}

// Span returns the earliest and latest non-nil dates.
func Span(values ...*time.Time) (time.Time, time.Time, bool) {
	var lo, hi time.Time
	found := false
	for _, v := range values {
		if v == nil {
			continue
		}
		if !found || v.Before(lo) {
			lo = *v
		}
		if !found || v.After(hi) {
			hi = *v
		}
		found = true
	}
	return lo, hi, found
}

// Ptr returns a pointer to a copy of t.
func Ptr(t time.Time) *time.Time {
	return &t
}

// MustParse is a test and fixture helper that panics on invalid input.
func MustParse(value string) time.Time {
	t, ok := Parse(value)
	if !ok {
		panic(fmt.Sprintf("dates.MustParse: invalid date %q", value))
	}
	return t
}
