package stitch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
)

var epoch = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

func d(s string) time.Time {
	t, err := contracts.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// truth is an integer signal in [1, 100] that reaches 100 once every 100 days
func truth(t time.Time) float64 {
	i := int(contracts.Day(t).Sub(epoch).Hours() / 24)
	if i < 0 {
		i = -i
	}
	return 1 + float64((i*37)%100)
}

// fakeSource answers like the real source: every window is rescaled so
// its own maximum is 100, daily data stops at lastDaily and the rolling
// hourly window spans [hourlyFrom, hourlyTo].
type fakeSource struct {
	signal     func(time.Time) float64
	lastDaily  time.Time
	hourlyFrom time.Time
	hourlyTo   time.Time
	fail       map[string]error

	mu    sync.Mutex
	calls []contracts.Query
}

func newFakeSource() *fakeSource {
	return &fakeSource{signal: truth, lastDaily: d("2030-01-01")}
}

func (f *fakeSource) InterestOverTime(ctx context.Context, q contracts.Query) (*contracts.Frame, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	f.mu.Unlock()

	if err := f.fail[q.Timeframe]; err != nil {
		return nil, err
	}

	var (
		index []time.Time
		raw   []float64
	)
	if q.Timeframe == contracts.RecentTimeframe {
		for t := f.hourlyFrom; !t.After(f.hourlyTo); t = t.Add(time.Hour) {
			index = append(index, t)
			raw = append(raw, f.signal(t)/24)
		}
	} else {
		parts := strings.Fields(q.Timeframe)
		if len(parts) != 2 {
			return nil, fmt.Errorf("bad timeframe %q", q.Timeframe)
		}
		from, to := d(parts[0]), d(parts[1])
		if to.After(f.lastDaily) {
			to = f.lastDaily
		}
		for t := from; !t.After(to); t = t.AddDate(0, 0, 1) {
			index = append(index, t)
			raw = append(raw, f.signal(t))
		}
	}

	peak := 0.0
	for _, v := range raw {
		peak = max(peak, v)
	}
	values := make([]float64, len(raw))
	for i, v := range raw {
		if peak > 0 {
			values[i] = v * 100 / peak
		}
	}

	partial := make([]bool, len(index))
	if n := len(partial); n > 0 {
		partial[n-1] = true
	}
	return &contracts.Frame{
		Index:   index,
		Columns: []contracts.Column{{Name: q.Keywords[0], Values: values}},
		Partial: partial,
	}, nil
}

func (f *fakeSource) timeframes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, q := range f.calls {
		out[i] = q.Timeframe
	}
	return out
}

// recorder collects observer events
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func noSleep(context.Context, time.Duration) error { return nil }

func series(label string, start time.Time, values ...float64) contracts.Series {
	pts := make([]contracts.Point, len(values))
	for i, v := range values {
		pts[i] = contracts.Point{Time: start.AddDate(0, 0, i), Value: v}
	}
	return contracts.Series{Label: label, Points: pts}
}
