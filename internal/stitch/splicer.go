package stitch

import (
	"slices"
	"time"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
)

type entry struct {
	Time   time.Time
	Values []float64
}

// Accumulator is the running union of spliced windows. It is a value:
// Splice returns a new Accumulator and never mutates its input.
type Accumulator struct {
	entries   []entry
	anchor    contracts.Series // first (newest) window
	reference contracts.Series // last spliced window
	windows   int
}

// Splice merges s into acc by timestamp. Shared timestamps keep every
// contribution until finalization. s becomes the new scaling reference.
func Splice(acc Accumulator, s contracts.Series) Accumulator {
	merged := make([]entry, 0, len(acc.entries)+s.Len())
	i, j := 0, 0
	for i < len(acc.entries) || j < s.Len() {
		switch {
		case j == s.Len() || (i < len(acc.entries) && acc.entries[i].Time.Before(s.Points[j].Time)):
			merged = append(merged, acc.entries[i])
			i++
		case i == len(acc.entries) || s.Points[j].Time.Before(acc.entries[i].Time):
			p := s.Points[j]
			merged = append(merged, entry{Time: p.Time, Values: []float64{p.Value}})
			j++
		default:
			// Clip forces append to copy, so older accumulators stay intact
			e := acc.entries[i]
			merged = append(merged, entry{Time: e.Time, Values: append(slices.Clip(e.Values), s.Points[j].Value)})
			i++
			j++
		}
	}

	out := Accumulator{entries: merged, anchor: acc.anchor, reference: s, windows: acc.windows + 1}
	if acc.windows == 0 {
		out.anchor = s
	}
	return out
}

// Len is the number of distinct timestamps
func (a Accumulator) Len() int { return len(a.entries) }

// Windows is the number of series spliced so far
func (a Accumulator) Windows() int { return a.windows }

// Anchor is the first spliced series
func (a Accumulator) Anchor() contracts.Series { return a.anchor }

// Reference is the most recently spliced series
func (a Accumulator) Reference() contracts.Series { return a.reference }

// LastTime is the newest timestamp held
func (a Accumulator) LastTime() (time.Time, bool) {
	if len(a.entries) == 0 {
		return time.Time{}, false
	}
	return a.entries[len(a.entries)-1].Time, true
}

// Times lists the held timestamps in order
func (a Accumulator) Times() []time.Time {
	out := make([]time.Time, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Time
	}
	return out
}

// Contributions returns a copy of the values spliced at t
func (a Accumulator) Contributions(t time.Time) []float64 {
	if i, ok := a.find(t); ok {
		return slices.Clone(a.entries[i].Values)
	}
	return nil
}

// Overlapping reports whether at least two windows contributed at t
func (a Accumulator) Overlapping(t time.Time) bool {
	i, ok := a.find(t)
	return ok && len(a.entries[i].Values) >= 2
}

func (a Accumulator) find(t time.Time) (int, bool) {
	return slices.BinarySearchFunc(a.entries, t, func(e entry, t time.Time) int {
		return e.Time.Compare(t)
	})
}
