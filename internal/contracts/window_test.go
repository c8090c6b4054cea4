package contracts

import (
	"testing"
	"time"
)

func TestWindow_Timeframe(t *testing.T) {
	w := DayWindow(day("2017-01-01"), day("2017-09-27"))
	if got := w.Timeframe(); got != "2017-01-01 2017-09-27" {
		t.Errorf("Timeframe() = %q", got)
	}

	recent := RecentWindow(time.Date(2020, 5, 10, 13, 0, 0, 0, time.UTC))
	if got := recent.Timeframe(); got != "now 7-d" {
		t.Errorf("Timeframe() = %q, want now 7-d", got)
	}
	if recent.Granularity.SamplesPerDay() != 24 {
		t.Errorf("hourly SamplesPerDay() = %d", recent.Granularity.SamplesPerDay())
	}
}

func TestWindow_Days(t *testing.T) {
	tests := []struct {
		from, to string
		want     int
	}{
		{"2020-01-01", "2020-01-01", 1},
		{"2017-01-01", "2017-09-26", 269},
		{"2020-02-28", "2020-03-01", 3}, // leap year
	}

	for _, tt := range tests {
		t.Run(tt.from+"_"+tt.to, func(t *testing.T) {
			if got := DayWindow(day(tt.from), day(tt.to)).Days(); got != tt.want {
				t.Errorf("Days() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWindow_Intersect(t *testing.T) {
	w1 := DayWindow(day("2017-01-01"), day("2017-09-27"))
	w2 := DayWindow(day("2017-07-20"), day("2018-04-16"))

	got, ok := w1.Intersect(w2)
	if !ok {
		t.Fatal("expected overlap")
	}
	if got.From != day("2017-07-20") || got.To != day("2017-09-27") {
		t.Errorf("Intersect() = %v", got)
	}

	w3 := DayWindow(day("2018-05-01"), day("2018-06-01"))
	if _, ok := w1.Intersect(w3); ok {
		t.Error("disjoint windows should not intersect")
	}
}

func TestWindow_Contains(t *testing.T) {
	w := DayWindow(day("2020-01-01"), day("2020-01-02"))

	if !w.Contains(day("2020-01-02").Add(23 * time.Hour)) {
		t.Error("last day should be fully included")
	}
	if w.Contains(day("2020-01-03")) {
		t.Error("day after To should be excluded")
	}
}

func TestParseDate(t *testing.T) {
	if _, err := ParseDate("2020-13-01"); err == nil {
		t.Error("expected error for invalid month")
	}
	got, err := ParseDate("2020-02-29")
	if err != nil || got.Location() != time.UTC {
		t.Errorf("ParseDate() = %v, %v", got, err)
	}
}

func TestFrame_Column(t *testing.T) {
	f := &Frame{Columns: []Column{{Name: "iPhone", Values: []float64{1}}}}

	if _, ok := f.Column("iPhone"); !ok {
		t.Error("exact match failed")
	}
	if _, ok := f.Column("iphone"); !ok {
		t.Error("case-insensitive match failed")
	}
	if _, ok := f.Column("android"); ok {
		t.Error("unexpected match")
	}
}
