package contracts

import (
	"math"
	"slices"
	"sort"
	"time"
)

// Point is one observation of a series
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series is a labelled sequence of points, strictly ascending by time.
// Series values are treated as immutable: every transform returns a copy.
// ⭐ SSOT: 시계열 표현은 여기서만 정의
type Series struct {
	Label  string  `json:"label"`
	Points []Point `json:"points"`
}

// NewSeries sorts pts by time and keeps the last value of any duplicated
// timestamp.
func NewSeries(label string, pts []Point) Series {
	out := slices.Clone(pts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	dedup := out[:0]
	for _, p := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time.Equal(p.Time) {
			dedup[n-1] = p
			continue
		}
		dedup = append(dedup, p)
	}
	return Series{Label: label, Points: dedup}
}

// Len returns the number of points
func (s Series) Len() int { return len(s.Points) }

// Empty reports whether the series has no points
func (s Series) Empty() bool { return len(s.Points) == 0 }

// First returns the oldest point
func (s Series) First() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	return s.Points[0], true
}

// Last returns the newest point
func (s Series) Last() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Times returns the timestamps in order
func (s Series) Times() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Time
	}
	return out
}

// Values returns the values in time order
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// At looks up the value at exactly t
func (s Series) At(t time.Time) (float64, bool) {
	i := s.search(t)
	if i < len(s.Points) && s.Points[i].Time.Equal(t) {
		return s.Points[i].Value, true
	}
	return 0, false
}

// Between returns the points with from <= Time <= to
func (s Series) Between(from, to time.Time) Series {
	lo := s.search(from)
	hi := lo
	for hi < len(s.Points) && !s.Points[hi].Time.After(to) {
		hi++
	}
	return Series{Label: s.Label, Points: slices.Clone(s.Points[lo:hi])}
}

// Max returns the largest value with from <= Time <= to.
// ok is false when no point falls in the range.
func (s Series) Max(from, to time.Time) (m float64, ok bool) {
	m = math.Inf(-1)
	for i := s.search(from); i < len(s.Points) && !s.Points[i].Time.After(to); i++ {
		if v := s.Points[i].Value; v > m {
			m = v
		}
		ok = true
	}
	if !ok {
		return 0, false
	}
	return m, true
}

// MaxAt returns the largest value over the given timestamps that exist in s
func (s Series) MaxAt(times []time.Time) (m float64, ok bool) {
	m = math.Inf(-1)
	for _, t := range times {
		if v, found := s.At(t); found {
			if v > m {
				m = v
			}
			ok = true
		}
	}
	if !ok {
		return 0, false
	}
	return m, true
}

// Scale multiplies every value by coef
func (s Series) Scale(coef float64) Series {
	return s.Map(func(v float64) float64 { return v * coef })
}

// Map applies fn to every value
func (s Series) Map(fn func(float64) float64) Series {
	out := make([]Point, len(s.Points))
	for i, p := range s.Points {
		out[i] = Point{Time: p.Time, Value: fn(p.Value)}
	}
	return Series{Label: s.Label, Points: out}
}

// WithLabel returns a copy relabelled
func (s Series) WithLabel(label string) Series {
	return Series{Label: label, Points: s.Points}
}

// search returns the index of the first point at or after t
func (s Series) search(t time.Time) int {
	return sort.Search(len(s.Points), func(i int) bool { return !s.Points[i].Time.Before(t) })
}
