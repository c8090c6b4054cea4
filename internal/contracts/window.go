package contracts

import (
	"fmt"
	"time"
)

// DateLayout is the day format used in timeframes, CLI flags and exports
const DateLayout = "2006-01-02"

// RecentTimeframe is the source's rolling high-resolution window
const RecentTimeframe = "now 7-d"

// Granularity is the sampling resolution of a window
type Granularity int

const (
	Daily Granularity = iota
	Hourly
)

func (g Granularity) String() string {
	switch g {
	case Daily:
		return "daily"
	case Hourly:
		return "hourly"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// SamplesPerDay is the number of samples a complete day holds
func (g Granularity) SamplesPerDay() int {
	if g == Hourly {
		return 24
	}
	return 1
}

// Window is an inclusive day range fetched in one request
type Window struct {
	From        time.Time   `json:"from"`
	To          time.Time   `json:"to"`
	Granularity Granularity `json:"granularity"`
}

// DayWindow builds a daily window over [from, to], both truncated to UTC days
func DayWindow(from, to time.Time) Window {
	return Window{From: Day(from), To: Day(to), Granularity: Daily}
}

// RecentWindow is the rolling hourly window ending at now
func RecentWindow(now time.Time) Window {
	to := Day(now)
	return Window{From: to.AddDate(0, 0, -7), To: to, Granularity: Hourly}
}

// Timeframe renders the window the way the source expects it
func (w Window) Timeframe() string {
	if w.Granularity == Hourly {
		return RecentTimeframe
	}
	return w.From.Format(DateLayout) + " " + w.To.Format(DateLayout)
}

// Days returns the number of calendar days covered
func (w Window) Days() int {
	return int(w.To.Sub(w.From).Hours()/24) + 1
}

// End is the exclusive upper bound of the window (midnight after To)
func (w Window) End() time.Time {
	return w.To.AddDate(0, 0, 1)
}

// Contains reports whether t falls on one of the window's days
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.End())
}

// Intersect returns the days shared by w and o
func (w Window) Intersect(o Window) (Window, bool) {
	from := w.From
	if o.From.After(from) {
		from = o.From
	}
	to := w.To
	if o.To.Before(to) {
		to = o.To
	}
	if to.Before(from) {
		return Window{}, false
	}
	return Window{From: from, To: to, Granularity: w.Granularity}, true
}

func (w Window) String() string {
	return w.From.Format(DateLayout) + ".." + w.To.Format(DateLayout)
}

// Day truncates t to midnight UTC of its calendar day
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}
