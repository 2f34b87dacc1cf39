package dates

import (
	"testing"
	"time"
)

func TestParse_ISORoundTrip(t *testing.T) {
	inputs := []string{"2024-01-01", "2024-02-29", "1999-12-31", "2050-06-15"}
	for _, in := range inputs {
		d, ok := Parse(in)
		if !ok {
			t.Fatalf("Expected %q to parse", in)
		}
		if got := Format(d); got != in {
			t.Errorf("Round trip mismatch: %q -> %q", in, got)
		}
	}
}

func TestParse_RejectsRollover(t *testing.T) {
	for _, in := range []string{"2024-02-30", "2023-02-29", "2024-13-01", "2/32/2025", "13/1/2025", "2/30/2024", "0/10/2024"} {
		if _, ok := Parse(in); ok {
			t.Errorf("Expected %q to be rejected", in)
		}
	}
}

func TestParse_SlashAndTimePortion(t *testing.T) {
	cases := map[string]string{
		"1/5/2024":             "2024-01-05",
		"01/05/2024":           "2024-01-05",
		"12/31/2024":           "2024-12-31",
		"2024-03-10T14:22:00Z": "2024-03-10",
		"2024-03-10 08:00":     "2024-03-10",
		"  2024-03-10  ":       "2024-03-10",
	}
	for in, want := range cases {
		d, ok := Parse(in)
		if !ok {
			t.Errorf("Expected %q to parse", in)
			continue
		}
		if got := Format(d); got != want {
			t.Errorf("Parse(%q) = %s, want %s", in, got, want)
		}
		if d.Location() != time.UTC || d.Hour() != 0 {
			t.Errorf("Parse(%q) should be UTC midnight, got %v", in, d)
		}
	}
}

func TestParse_RejectsGarbageAndOutOfRange(t *testing.T) {
	for _, in := range []string{"", "   ", "n/a", "2024/01/01", "1/1/1989", "2101-01-01", "1850-05-05"} {
		if _, ok := Parse(in); ok {
			t.Errorf("Expected %q to be rejected", in)
		}
	}
}

func TestParseValue_PassThrough(t *testing.T) {
	in := time.Date(2024, 5, 6, 23, 30, 0, 0, time.UTC)
	d, ok := ParseValue(in)
	if !ok || Format(d) != "2024-05-06" || d.Hour() != 0 {
		t.Errorf("Expected truncated pass-through, got %v (%v)", d, ok)
	}
	if _, ok := ParseValue(42); ok {
		t.Errorf("Expected unsupported type to be rejected")
	}
	var nilPtr *time.Time
	if _, ok := ParseValue(nilPtr); ok {
		t.Errorf("Expected nil pointer to be rejected")
	}
}

func TestDaysBetween(t *testing.T) {
	a := MustParse("2024-01-01")
	b := MustParse("2024-01-11")

	if d, ok := DaysBetween(&a, &a); !ok || d != 0 {
		t.Errorf("Expected 0 for identical dates, got %d", d)
	}
	ab, _ := DaysBetween(&a, &b)
	ba, _ := DaysBetween(&b, &a)
	if ab != 10 || ba != -10 {
		t.Errorf("Expected antisymmetry 10/-10, got %d/%d", ab, ba)
	}
	if _, ok := DaysBetween(nil, &b); ok {
		t.Errorf("Expected nil input to yield no result")
	}
}

func TestEachDay_Length(t *testing.T) {
	start := MustParse("2024-02-27")
	end := MustParse("2024-03-02")

	days := EachDay(start, end)
	want, _ := DaysBetween(&start, &end)
	if len(days) != want+1 {
		t.Fatalf("Expected %d days, got %d", want+1, len(days))
	}
	if Format(days[2]) != "2024-02-29" {
		t.Errorf("Expected leap day in sequence, got %s", Format(days[2]))
	}
	if got := EachDay(end, start); len(got) != 0 {
		t.Errorf("Expected empty range when start > end, got %d", len(got))
	}
}

func TestFormat_PanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Expected Format to panic on the zero time")
		}
	}()
	_ = Format(time.Time{})
}

func TestSpan(t *testing.T) {
	a := MustParse("2024-01-05")
	b := MustParse("2024-01-01")
	lo, hi, ok := Span(&a, nil, &b)
	if !ok || Format(lo) != "2024-01-01" || Format(hi) != "2024-01-05" {
		t.Errorf("Unexpected span %v..%v (%v)", lo, hi, ok)
	}
	if _, _, ok := Span(nil, nil); ok {
		t.Errorf("Expected no span for nil inputs")
	}
}
