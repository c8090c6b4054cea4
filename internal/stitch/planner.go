package stitch

import (
	"iter"
	"slices"
	"time"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
)

// PlannedWindow is one step of a plan. Previous is the newer window fetched
// just before this one (nil for the first).
type PlannedWindow struct {
	Index    int
	Window   contracts.Window
	Previous *contracts.Window
}

// WindowPlan covers [start, end] with inclusive daily windows of length days,
// newest first, each starting step days before the previous one.
type WindowPlan struct {
	start  time.Time
	end    time.Time
	length int
	step   int
}

// Plan validates the parameters and returns the plan.
// maxLength is the longest window the source still answers at daily resolution.
func Plan(start, end time.Time, length, step, maxLength int) (*WindowPlan, error) {
	start, end = contracts.Day(start), contracts.Day(end)

	switch {
	case end.Before(start):
		return nil, newError(KindInvalidPlan, "end %s before start %s",
			end.Format(contracts.DateLayout), start.Format(contracts.DateLayout))
	case length < 1 || length > maxLength:
		return nil, newError(KindInvalidPlan, "window length %d outside [1, %d]", length, maxLength)
	case step < 1 || step > length:
		return nil, newError(KindInvalidPlan, "advance step %d outside [1, %d]", step, length)
	}

	return &WindowPlan{start: start, end: end, length: length, step: step}, nil
}

// All yields the windows newest first. Each call restarts from the end.
func (p *WindowPlan) All() iter.Seq[PlannedWindow] {
	return func(yield func(PlannedWindow) bool) {
		var prev *contracts.Window
		for i := 0; ; i++ {
			w, last := p.window(i)
			if !yield(PlannedWindow{Index: i, Window: w, Previous: prev}) || last {
				return
			}
			prev = &w
		}
	}
}

// Windows collects the plan
func (p *WindowPlan) Windows() []contracts.Window {
	var out []contracts.Window
	for pw := range p.All() {
		out = append(out, pw.Window)
	}
	return slices.Clip(out)
}

// OverlapDays is the number of days adjacent windows share
func (p *WindowPlan) OverlapDays() int {
	return p.length - p.step
}

// window computes window i in closed form; last reports that it reaches start
func (p *WindowPlan) window(i int) (contracts.Window, bool) {
	to := p.end.AddDate(0, 0, -i*p.step)
	from := to.AddDate(0, 0, -(p.length - 1))
	if !from.After(p.start) {
		return contracts.DayWindow(p.start, to), true
	}
	return contracts.DayWindow(from, to), false
}
