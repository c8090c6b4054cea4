package stitch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
)

// Mode selects how windows are combined
type Mode string

const (
	// ModeOverlapped scales each window onto its newer neighbour
	ModeOverlapped Mode = "overlapped"
	// ModeOriginal concatenates contiguous windows without scaling
	ModeOriginal Mode = "original"
	// ModeReference is a single request over the whole range
	ModeReference Mode = "reference"
)

// ParseMode accepts the mode names used on the CLI and API
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case ModeOverlapped, ModeOriginal, ModeReference:
		return m, nil
	case "":
		return ModeOverlapped, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Params are the per-run knobs
type Params struct {
	Category int    `json:"category"`
	Geo      string `json:"geo"`
	Property string `json:"property"`

	WindowDays    int `json:"window_days"`
	OverlapDays   int `json:"overlap_days"`
	MaxWindowDays int `json:"max_window_days"`

	Sleep    time.Duration `json:"sleep"`
	TZOffset int           `json:"tz_offset"` // minutes

	// RoundBackfill rounds backfilled days to whole numbers (half-to-even)
	RoundBackfill bool `json:"round_backfill"`
	// AllowPartial finalizes what was accumulated when a later fetch fails
	AllowPartial bool `json:"allow_partial"`
}

// DefaultParams mirrors the source's documented constants
func DefaultParams() Params {
	return Params{
		WindowDays:    269,
		OverlapDays:   100,
		MaxWindowDays: 269,
		RoundBackfill: true,
	}
}

// SpliceRecord describes one scaled window
type SpliceRecord struct {
	Window      contracts.Window `json:"window"`
	Previous    contracts.Window `json:"previous"`
	Overlap     contracts.Window `json:"overlap"`
	Coefficient float64          `json:"coefficient"`
}

// Result is a finalized run
type Result struct {
	RunID    string             `json:"run_id"`
	Keyword  string             `json:"keyword"`
	Mode     Mode               `json:"mode"`
	Start    time.Time          `json:"start"`
	End      time.Time          `json:"end"`
	Params   Params             `json:"params"`
	Windows  []contracts.Window `json:"windows"`
	Splices  []SpliceRecord     `json:"splices"`
	Backfill *BackfillReport    `json:"backfill,omitempty"`
	Rows     []contracts.Row    `json:"rows"`

	// Partial is set when AllowPartial kept a run alive past a fetch failure
	Partial bool   `json:"partial"`
	Failure string `json:"failure,omitempty"`
}

// Run converts the result into its stored form
func (r *Result) Run(createdAt time.Time) *contracts.Run {
	return &contracts.Run{
		ID:        r.RunID,
		Keyword:   r.Keyword,
		Mode:      string(r.Mode),
		Geo:       r.Params.Geo,
		Category:  r.Params.Category,
		Property:  r.Params.Property,
		Start:     r.Start,
		End:       r.End,
		Partial:   r.Partial,
		Failure:   r.Failure,
		CreatedAt: createdAt,
		Rows:      r.Rows,
	}
}

// Stitcher runs the fetch / scale / splice / backfill / finalize pipeline.
// A Stitcher holds no per-run state and may serve concurrent runs.
type Stitcher struct {
	adapter  *Adapter
	observer Observer
	now      func() time.Time
	newID    func() string
}

// Option configures a Stitcher
type Option func(*Stitcher)

// WithObserver sets the event sink
func WithObserver(o Observer) Option {
	return func(s *Stitcher) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Stitcher) { s.now = now }
}

// WithSleeper overrides the inter-request wait
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Stitcher) { s.adapter.sleep = sleep }
}

// WithIDGenerator overrides run ID generation
func WithIDGenerator(fn func() string) Option {
	return func(s *Stitcher) { s.newID = fn }
}

// New creates a Stitcher on top of fetcher
func New(fetcher contracts.TrendsFetcher, opts ...Option) *Stitcher {
	s := &Stitcher{
		adapter:  NewAdapter(fetcher),
		observer: nopObserver{},
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tee returns a Stitcher that also reports to o. The receiver is unchanged.
func (s *Stitcher) Tee(o Observer) *Stitcher {
	cp := *s
	cp.observer = Observers(s.observer, o)
	return &cp
}

// Run dispatches on mode
func (s *Stitcher) Run(ctx context.Context, mode Mode, keyword string, start, end time.Time, p Params) (*Result, error) {
	switch mode {
	case ModeOverlapped, "":
		return s.Overlapped(ctx, keyword, start, end, p)
	case ModeOriginal:
		return s.Original(ctx, keyword, start, end, p)
	case ModeReference:
		return s.Reference(ctx, keyword, start, end, p)
	default:
		return nil, newError(KindInvalidPlan, "unknown mode %q", mode)
	}
}

// Overlapped stitches windows that share p.OverlapDays days, scaling each
// older window onto the newer one before it.
func (s *Stitcher) Overlapped(ctx context.Context, keyword string, start, end time.Time, p Params) (*Result, error) {
	return s.stitch(ctx, ModeOverlapped, keyword, start, end, p, p.WindowDays-p.OverlapDays, true)
}

// Original concatenates contiguous windows without scaling. Values where
// windows meet are averaged during finalization.
func (s *Stitcher) Original(ctx context.Context, keyword string, start, end time.Time, p Params) (*Result, error) {
	return s.stitch(ctx, ModeOriginal, keyword, start, end, p, p.WindowDays, false)
}

// Reference fetches [start, end] in a single request. Long ranges come back
// at weekly or monthly resolution; the result is only finalized.
func (s *Stitcher) Reference(ctx context.Context, keyword string, start, end time.Time, p Params) (*Result, error) {
	res, run, err := s.begin(ModeReference, keyword, start, end, p)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, s.fail(run, newError(KindInvalidPlan, "end before start"))
	}

	w := contracts.DayWindow(res.Start, res.End)
	res.Windows = []contracts.Window{w}

	series, err := s.fetch(ctx, run, w)
	if err != nil {
		return nil, s.fail(run, err)
	}
	return s.finish(run, res, Splice(Accumulator{}, series))
}

// stitch is the shared skeleton of both window paths
func (s *Stitcher) stitch(ctx context.Context, mode Mode, keyword string, start, end time.Time, p Params, step int, scale bool) (*Result, error) {
	res, run, err := s.begin(mode, keyword, start, end, p)
	if err != nil {
		return nil, err
	}

	plan, err := Plan(res.Start, res.End, p.WindowDays, step, p.MaxWindowDays)
	if err != nil {
		return nil, s.fail(run, annotate(err, run.keyword, nil, nil))
	}

	var acc Accumulator
	for pw := range plan.All() {
		w := pw.Window
		res.Windows = append(res.Windows, w)

		series, err := s.fetch(ctx, run, w)
		if err != nil {
			if s.keepPartial(ctx, p, acc, err) {
				res.Partial, res.Failure = true, err.Error()
				break
			}
			return nil, s.fail(run, err)
		}

		if scale && pw.Previous != nil {
			overlap, _ := w.Intersect(*pw.Previous)
			scaled, coef, err := Scale(series, acc.Reference(), overlap)
			if err != nil {
				return nil, s.fail(run, annotate(err, run.keyword, &w, pw.Previous))
			}
			series = scaled
			res.Splices = append(res.Splices, SpliceRecord{Window: w, Previous: *pw.Previous, Overlap: overlap, Coefficient: coef})
			run.emit(Event{Type: EventWindowScaled, Window: &w, Previous: pw.Previous, Coefficient: coef})
		}
		acc = Splice(acc, series)
	}

	if last, ok := acc.LastTime(); ok && last.Before(res.End) && !res.Partial {
		acc, err = s.backfill(ctx, run, res, acc)
		if err != nil {
			if !s.keepPartial(ctx, p, acc, err) {
				return nil, s.fail(run, err)
			}
			res.Partial, res.Failure = true, err.Error()
		}
	}

	return s.finish(run, res, acc)
}

// backfill completes the most recent days from the hourly window
func (s *Stitcher) backfill(ctx context.Context, run *runState, res *Result, acc Accumulator) (Accumulator, error) {
	w := contracts.RecentWindow(s.now())

	hourly, err := s.fetch(ctx, run, w)
	if err != nil {
		return acc, err
	}

	next, report, err := Backfill(acc, hourly, w.Granularity.SamplesPerDay(), run.params.RoundBackfill)
	if err != nil {
		return acc, annotate(err, run.keyword, &w, nil)
	}

	res.Backfill = &report
	run.emit(Event{Type: EventBackfilled, Window: &w, Coefficient: report.Coefficient, Points: report.Added})
	return next, nil
}

// keepPartial decides whether a fetch failure may end the run early
func (s *Stitcher) keepPartial(ctx context.Context, p Params, acc Accumulator, err error) bool {
	if !p.AllowPartial || acc.Len() == 0 || ctx.Err() != nil {
		return false
	}
	k, _ := KindOf(err)
	return k == KindFetch
}

// runState carries per-run bookkeeping for event emission
type runState struct {
	id       string
	keyword  string
	mode     Mode
	params   Params
	started  time.Time
	observer Observer
	now      func() time.Time
}

func (r *runState) emit(e Event) {
	e.RunID, e.Keyword, e.Mode = r.id, r.keyword, r.mode
	e.Time = r.now()
	if e.Err != nil {
		e.Error = e.Err.Error()
	}
	r.observer.Observe(e)
}

func (s *Stitcher) begin(mode Mode, keyword string, start, end time.Time, p Params) (*Result, *runState, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, nil, newError(KindInvalidPlan, "empty keyword")
	}

	run := &runState{
		id:       s.newID(),
		keyword:  keyword,
		mode:     mode,
		params:   p,
		started:  s.now(),
		observer: s.observer,
		now:      s.now,
	}
	res := &Result{
		RunID:   run.id,
		Keyword: keyword,
		Mode:    mode,
		Start:   contracts.Day(start),
		End:     contracts.Day(end),
		Params:  p,
	}
	run.emit(Event{Type: EventRunStarted})
	return res, run, nil
}

func (s *Stitcher) fetch(ctx context.Context, run *runState, w contracts.Window) (contracts.Series, error) {
	began := s.now()
	series, err := s.adapter.Fetch(ctx, run.keyword, w, run.params)
	run.emit(Event{Type: EventWindowFetched, Window: &w, Points: series.Len(), Elapsed: s.now().Sub(began), Err: err})
	return series, err
}

func (s *Stitcher) finish(run *runState, res *Result, acc Accumulator) (*Result, error) {
	rows, err := Finalize(acc, FinalizeOptions{Start: res.Start, End: res.End, TZOffset: run.params.TZOffset})
	if err != nil {
		return nil, s.fail(run, annotate(err, run.keyword, nil, nil))
	}
	res.Rows = rows

	run.emit(Event{Type: EventRunFinished, Points: len(rows), Partial: res.Partial, Elapsed: s.now().Sub(run.started)})
	return res, nil
}

func (s *Stitcher) fail(run *runState, err error) error {
	var se *StitchError
	if !errors.As(err, &se) {
		err = &StitchError{Kind: KindFetch, Keyword: run.keyword, Err: err}
	}
	run.emit(Event{Type: EventRunFailed, Err: err, Elapsed: s.now().Sub(run.started)})
	return err
}
