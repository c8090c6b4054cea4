package stitch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
	"github.com/Denis-Evseev/google-daily-trends/pkg/config"
	"github.com/Denis-Evseev/google-daily-trends/pkg/logger"
	"github.com/Denis-Evseev/google-daily-trends/pkg/metrics"
)

// yearFixture stitches 2019 with five 120-day windows; daily data lags
// three days behind and the hourly window starts mid-day.
func yearFixture() (*fakeSource, Params, time.Time, time.Time) {
	src := newFakeSource()
	src.lastDaily = d("2019-12-28")
	src.hourlyFrom = time.Date(2019, 12, 24, 6, 0, 0, 0, time.UTC)
	src.hourlyTo = time.Date(2019, 12, 31, 23, 0, 0, 0, time.UTC)

	p := DefaultParams()
	p.WindowDays = 120
	p.OverlapDays = 40
	p.RoundBackfill = false
	return src, p, d("2019-01-01"), d("2019-12-31")
}

func newTestStitcher(src contracts.TrendsFetcher, opts ...Option) *Stitcher {
	n := 0
	base := []Option{
		WithClock(func() time.Time { return time.Date(2019, 12, 31, 12, 0, 0, 0, time.UTC) }),
		WithSleeper(noSleep),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("run-%d", n)
		}),
	}
	return New(src, append(base, opts...)...)
}

func TestOverlapped_RecoversSignal(t *testing.T) {
	src, p, start, end := yearFixture()
	rec := &recorder{}
	s := newTestStitcher(src, WithObserver(rec))

	res, err := s.Overlapped(context.Background(), "iphone", start, end, p)
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.False(t, res.Partial)
	require.Len(t, res.Windows, 5)
	assert.Len(t, res.Splices, 4)
	require.NotNil(t, res.Backfill)
	require.NotNil(t, res.Backfill.Dropped)
	assert.Equal(t, d("2019-12-24"), *res.Backfill.Dropped)
	assert.Equal(t, 3, res.Backfill.Added)

	// every day of the range, in order, equal to the underlying signal
	require.Len(t, res.Rows, 365)
	for i, r := range res.Rows {
		day := start.AddDate(0, 0, i)
		require.Equal(t, day, r.Time)
		assert.Equal(t, truth(day), r.Value, "day %s", day.Format(contracts.DateLayout))
	}

	for _, sp := range res.Splices {
		assert.Greater(t, sp.Coefficient, 0.0)
		assert.Equal(t, p.OverlapDays, sp.Overlap.Days())
	}

	var want []EventType
	want = append(want, EventRunStarted, EventWindowFetched)
	for range 4 {
		want = append(want, EventWindowFetched, EventWindowScaled)
	}
	want = append(want, EventWindowFetched, EventBackfilled, EventRunFinished)
	assert.Equal(t, want, rec.types())

	calls := src.timeframes()
	require.Len(t, calls, 6)
	assert.Equal(t, "2019-09-03 2019-12-31", calls[0])
	assert.Equal(t, contracts.RecentTimeframe, calls[5])
}

func TestOverlapped_OverlapMask(t *testing.T) {
	src, p, start, end := yearFixture()
	res, err := newTestStitcher(src).Overlapped(context.Background(), "iphone", start, end, p)
	require.NoError(t, err)

	backfilled := contracts.DayWindow(d("2019-12-25"), d("2019-12-31"))
	for _, r := range res.Rows {
		n := 0
		for _, w := range res.Windows {
			if w.Contains(r.Time) && !r.Time.After(src.lastDaily) {
				n++
			}
		}
		if backfilled.Contains(r.Time) {
			n++
		}
		assert.Equal(t, n >= 2, r.Overlap, "day %s covered %d times", r.Time.Format(contracts.DateLayout), n)
	}
}

func TestOverlapped_Idempotent(t *testing.T) {
	src, p, start, end := yearFixture()
	s := newTestStitcher(src)

	first, err := s.Overlapped(context.Background(), "iphone", start, end, p)
	require.NoError(t, err)
	second, err := s.Overlapped(context.Background(), "iphone", start, end, p)
	require.NoError(t, err)

	assert.Equal(t, first.Rows, second.Rows)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestOverlapped_RoundedBackfill(t *testing.T) {
	src, p, start, end := yearFixture()
	p.RoundBackfill = true

	res, err := newTestStitcher(src).Overlapped(context.Background(), "iphone", start, end, p)
	require.NoError(t, err)
	require.Len(t, res.Rows, 365)

	peak := 0.0
	for _, r := range res.Rows {
		peak = max(peak, r.Value)
		assert.Equal(t, math.Trunc(r.Value), r.Value)
	}
	assert.Equal(t, 100.0, peak)
}

func TestSingleWindow_EqualsRawWindow(t *testing.T) {
	src := newFakeSource()
	src.signal = func(t time.Time) float64 { return 0.37*truth(t) + 2 }

	p := DefaultParams()
	p.TZOffset = 480
	start, end := d("2019-03-01"), d("2019-05-31")

	res, err := newTestStitcher(src).Overlapped(context.Background(), "iphone", start, end, p)
	require.NoError(t, err)
	assert.Empty(t, res.Splices)
	assert.Nil(t, res.Backfill)
	require.Len(t, res.Windows, 1)

	raw, err := src.InterestOverTime(context.Background(), contracts.Query{
		Keywords:  []string{"iphone"},
		Timeframe: "2019-03-01 2019-05-31",
	})
	require.NoError(t, err)
	values := raw.Columns[0].Values
	peak := 0.0
	for _, v := range values {
		peak = max(peak, v)
	}

	require.Len(t, res.Rows, len(values))
	for i, r := range res.Rows {
		assert.Equal(t, raw.Index[i].Add(8*time.Hour), r.Time)
		assert.Equal(t, math.RoundToEven(values[i]*100/peak), r.Value)
		assert.False(t, r.Overlap)
	}
}

func TestOriginal_ContiguousWindows(t *testing.T) {
	src, p, start, end := yearFixture()
	rec := &recorder{}

	res, err := newTestStitcher(src, WithObserver(rec)).Original(context.Background(), "iphone", start, end, p)
	require.NoError(t, err)
	assert.Equal(t, ModeOriginal, res.Mode)
	assert.Empty(t, res.Splices)
	assert.NotContains(t, rec.types(), EventWindowScaled)

	for i := 1; i < len(res.Windows); i++ {
		assert.Equal(t, res.Windows[i-1].From, res.Windows[i].To.AddDate(0, 0, 1))
	}

	require.Len(t, res.Rows, 365)
	for i, r := range res.Rows {
		assert.Equal(t, start.AddDate(0, 0, i), r.Time)
		// only the backfilled days shared with daily data overlap
		shared := !r.Time.Before(d("2019-12-25")) && !r.Time.After(d("2019-12-28"))
		assert.Equal(t, shared, r.Overlap, "day %s", r.Time.Format(contracts.DateLayout))
	}
}

func TestReference_SingleRequest(t *testing.T) {
	src, p, start, end := yearFixture()

	res, err := newTestStitcher(src).Run(context.Background(), ModeReference, "iphone", start, end, p)
	require.NoError(t, err)
	assert.Equal(t, ModeReference, res.Mode)
	assert.Equal(t, []string{"2019-01-01 2019-12-31"}, src.timeframes())

	// the reference path does not backfill past the lagging daily data
	require.Len(t, res.Rows, 362)
	for _, r := range res.Rows {
		assert.Equal(t, truth(r.Time), r.Value)
	}
}

func TestOverlapped_ZeroOverlapFails(t *testing.T) {
	src := newFakeSource()
	src.signal = func(t time.Time) float64 {
		if t.Before(d("2019-04-22")) {
			return 0
		}
		return truth(t)
	}
	rec := &recorder{}

	p := DefaultParams()
	p.WindowDays = 100
	p.OverlapDays = 30

	_, err := newTestStitcher(src, WithObserver(rec)).Overlapped(context.Background(), "iphone", d("2019-01-01"), d("2019-06-30"), p)
	require.Error(t, err)

	var se *StitchError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, KindZeroDenominator, se.Kind)
	assert.Equal(t, "iphone", se.Keyword)
	require.NotNil(t, se.Window)
	require.NotNil(t, se.Previous)
	assert.Equal(t, "2019-01-12 2019-04-21", se.Window.Timeframe())
	assert.Equal(t, "2019-03-23 2019-06-30", se.Previous.Timeframe())

	types := rec.types()
	assert.Equal(t, EventRunFailed, types[len(types)-1])
}

func TestOverlapped_FetchFailure(t *testing.T) {
	boom := errors.New("boom")
	setup := func() (*fakeSource, Params) {
		src, p, _, _ := yearFixture()
		src.fail = map[string]error{"2019-06-15 2019-10-12": boom}
		return src, p
	}

	t.Run("fails the run by default", func(t *testing.T) {
		src, p := setup()
		_, err := newTestStitcher(src).Overlapped(context.Background(), "iphone", d("2019-01-01"), d("2019-12-31"), p)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		kind, _ := KindOf(err)
		assert.Equal(t, KindFetch, kind)
	})

	t.Run("allow partial keeps accumulated windows", func(t *testing.T) {
		src, p := setup()
		p.AllowPartial = true
		res, err := newTestStitcher(src).Overlapped(context.Background(), "iphone", d("2019-01-01"), d("2019-12-31"), p)
		require.NoError(t, err)

		assert.True(t, res.Partial)
		assert.Contains(t, res.Failure, "boom")
		assert.Nil(t, res.Backfill)
		require.NotEmpty(t, res.Rows)
		assert.Equal(t, d("2019-09-03"), res.Rows[0].Time)
		assert.Equal(t, d("2019-12-28"), res.Rows[len(res.Rows)-1].Time)
	})

	t.Run("allow partial cannot save the first window", func(t *testing.T) {
		src, p := setup()
		src.fail = map[string]error{"2019-09-03 2019-12-31": boom}
		p.AllowPartial = true
		_, err := newTestStitcher(src).Overlapped(context.Background(), "iphone", d("2019-01-01"), d("2019-12-31"), p)
		assert.ErrorIs(t, err, boom)
	})
}

func TestRun_InvalidInput(t *testing.T) {
	src, p, start, end := yearFixture()
	s := newTestStitcher(src)

	tests := []struct {
		name    string
		mode    Mode
		keyword string
		p       Params
		start   time.Time
		end     time.Time
	}{
		{"empty keyword", ModeOverlapped, "  ", p, start, end},
		{"overlap not below window", ModeOverlapped, "iphone", Params{WindowDays: 50, OverlapDays: 50, MaxWindowDays: 269}, start, end},
		{"window above threshold", ModeOriginal, "iphone", Params{WindowDays: 300, MaxWindowDays: 269}, start, end},
		{"reversed range", ModeReference, "iphone", p, end, start},
		{"unknown mode", Mode("weekly"), "iphone", p, start, end},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Run(context.Background(), tt.mode, tt.keyword, tt.start, tt.end, tt.p)
			kind, ok := KindOf(err)
			require.True(t, ok, "expected StitchError, got %v", err)
			assert.Equal(t, KindInvalidPlan, kind)
		})
	}
	assert.Empty(t, src.timeframes())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeOverlapped, m)

	m, err = ParseMode("Reference")
	require.NoError(t, err)
	assert.Equal(t, ModeReference, m)

	_, err = ParseMode("weekly")
	assert.Error(t, err)
}

func TestResult_Run(t *testing.T) {
	src, p, start, end := yearFixture()
	p.Geo = "US"
	res, err := newTestStitcher(src).Overlapped(context.Background(), "iphone", start, end, p)
	require.NoError(t, err)

	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	run := res.Run(created)
	assert.Equal(t, res.RunID, run.ID)
	assert.Equal(t, "overlapped", run.Mode)
	assert.Equal(t, "US", run.Geo)
	assert.Equal(t, created, run.CreatedAt)
	assert.Len(t, run.Rows, 365)
}

func TestMetricsObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewWithRegistry(reg, reg)

	src, p, start, end := yearFixture()
	s := newTestStitcher(src, WithObserver(MetricsObserver(rec)))
	_, err := s.Overlapped(context.Background(), "iphone", start, end, p)
	require.NoError(t, err)

	src.fail = map[string]error{"2019-09-03 2019-12-31": errors.New("boom")}
	_, err = s.Overlapped(context.Background(), "iphone", start, end, p)
	require.Error(t, err)

	expected := `
# HELP trends_stitch_runs_total Total number of stitch runs by mode and status
# TYPE trends_stitch_runs_total counter
trends_stitch_runs_total{mode="overlapped",status="failed"} 1
trends_stitch_runs_total{mode="overlapped",status="success"} 1
# HELP trends_errors_total Total number of stitch failures by kind
# TYPE trends_errors_total counter
trends_errors_total{kind="fetch"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"trends_stitch_runs_total", "trends_errors_total"))
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&config.Config{Env: "test", LogLevel: "info", LogFormat: "json"}, &buf)

	src, p, start, end := yearFixture()
	_, err := newTestStitcher(src, WithObserver(LogObserver(log))).Overlapped(context.Background(), "iphone", start, end, p)
	require.NoError(t, err)

	var messages []string
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		assert.Equal(t, "stitcher", m["component"])
		assert.Equal(t, "iphone", m["keyword"])
		messages = append(messages, m["message"].(string))
	}

	assert.Equal(t, "Stitch run started", messages[0])
	assert.Contains(t, messages, "Normalized by overlapping period")
	assert.Contains(t, messages, "Recent days backfilled")
	assert.Equal(t, "Stitch run finished", messages[len(messages)-1])
}

func TestParamsFromConfig(t *testing.T) {
	cfg := &config.Config{Stitch: config.StitchConfig{
		WindowDays:    200,
		OverlapDays:   50,
		MaxWindowDays: 269,
		Sleep:         2 * time.Second,
		TZMinutes:     -300,
	}}

	p := ParamsFromConfig(cfg)
	assert.Equal(t, 200, p.WindowDays)
	assert.Equal(t, 50, p.OverlapDays)
	assert.Equal(t, 2*time.Second, p.Sleep)
	assert.Equal(t, -300, p.TZOffset)
	assert.False(t, p.RoundBackfill)
	assert.False(t, p.AllowPartial)
}

func TestTee(t *testing.T) {
	src, p, start, end := yearFixture()
	base, extra := &recorder{}, &recorder{}
	s := newTestStitcher(src, WithObserver(base))

	_, err := s.Tee(extra).Overlapped(context.Background(), "iphone", start, end, p)
	require.NoError(t, err)
	assert.Equal(t, base.types(), extra.types())

	_, err = s.Overlapped(context.Background(), "iphone", start, end, p)
	require.NoError(t, err)
	assert.Len(t, base.types(), 2*len(extra.types()))
}
