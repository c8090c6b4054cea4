package stitch

import (
	"math"
	"time"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
)

// FinalizeOptions bounds and shifts the finalized series
type FinalizeOptions struct {
	Start    time.Time
	End      time.Time // inclusive day
	TZOffset int       // minutes added to every timestamp
}

// Finalize averages contributions, flags overlaps, shifts by the timezone
// offset, clips to [Start, End+1d) and renormalizes so the maximum is 100
// (half-to-even rounding).
func Finalize(acc Accumulator, opts FinalizeOptions) ([]contracts.Row, error) {
	lo := contracts.Day(opts.Start)
	hi := contracts.Day(opts.End).AddDate(0, 0, 1)
	shift := time.Duration(opts.TZOffset) * time.Minute

	rows := make([]contracts.Row, 0, acc.Len())
	peak := 0.0
	for _, e := range acc.entries {
		t := e.Time.Add(shift)
		if t.Before(lo) || !t.Before(hi) {
			continue
		}
		v := mean(e.Values)
		if v > peak {
			peak = v
		}
		rows = append(rows, contracts.Row{Time: t, Value: v, Overlap: len(e.Values) >= 2})
	}

	if len(rows) == 0 {
		return nil, newError(KindZeroMaximum, "no values between %s and %s",
			lo.Format(contracts.DateLayout), contracts.Day(opts.End).Format(contracts.DateLayout))
	}
	if peak == 0 {
		return nil, newError(KindZeroMaximum, "series maximum is 0 over %d days", len(rows))
	}

	for i := range rows {
		rows[i].Value = math.RoundToEven(rows[i].Value * 100 / peak)
	}
	return rows, nil
}

func mean(vs []float64) float64 {
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
