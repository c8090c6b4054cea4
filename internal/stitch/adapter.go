package stitch

import (
	"context"
	"fmt"
	"time"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
)

// Adapter turns one source frame into a single labelled series
type Adapter struct {
	fetcher contracts.TrendsFetcher
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewAdapter wraps a fetcher
func NewAdapter(fetcher contracts.TrendsFetcher) *Adapter {
	return &Adapter{fetcher: fetcher, sleep: sleepCtx}
}

// Fetch requests window w for keyword. The result is labelled with the
// window's timeframe and carries no partial-period flags. After a
// successful call it waits p.Sleep before returning.
func (a *Adapter) Fetch(ctx context.Context, keyword string, w contracts.Window, p Params) (contracts.Series, error) {
	frame, err := a.fetcher.InterestOverTime(ctx, contracts.Query{
		Keywords:  []string{keyword},
		Timeframe: w.Timeframe(),
		Category:  p.Category,
		Geo:       p.Geo,
		Property:  p.Property,
	})
	if err != nil {
		return contracts.Series{}, &StitchError{Kind: KindFetch, Keyword: keyword, Window: &w, Err: err}
	}

	series, err := frameSeries(frame, keyword, w.Timeframe())
	if err != nil {
		return contracts.Series{}, &StitchError{Kind: KindShape, Keyword: keyword, Window: &w, Err: err}
	}

	if err := a.sleep(ctx, p.Sleep); err != nil {
		return contracts.Series{}, &StitchError{Kind: KindFetch, Keyword: keyword, Window: &w, Err: err}
	}
	return series, nil
}

// frameSeries picks the keyword's value column and drops the partial flags
func frameSeries(f *contracts.Frame, keyword, label string) (contracts.Series, error) {
	if f == nil || f.Len() == 0 {
		return contracts.Series{Label: label}, nil
	}

	col, ok := f.Column(keyword)
	if !ok {
		if len(f.Columns) != 1 {
			return contracts.Series{}, fmt.Errorf("no column for %q among %d columns", keyword, len(f.Columns))
		}
		col = f.Columns[0]
	}
	if len(col.Values) != f.Len() {
		return contracts.Series{}, fmt.Errorf("column %q has %d values for %d rows", col.Name, len(col.Values), f.Len())
	}

	pts := make([]contracts.Point, f.Len())
	for i, t := range f.Index {
		pts[i] = contracts.Point{Time: t.UTC(), Value: col.Values[i]}
	}
	return contracts.NewSeries(label, pts), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
