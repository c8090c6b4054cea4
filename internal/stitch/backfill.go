package stitch

import (
	"math"
	"time"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
)

// AggregateDaily sums hourly samples per UTC calendar day.
// counts[i] is the number of samples that went into daily.Points[i].
func AggregateDaily(hourly contracts.Series) (daily contracts.Series, counts []int) {
	var pts []contracts.Point
	for _, p := range hourly.Points {
		d := contracts.Day(p.Time)
		if n := len(pts); n > 0 && pts[n-1].Time.Equal(d) {
			pts[n-1].Value += p.Value
			counts[n-1]++
			continue
		}
		pts = append(pts, contracts.Point{Time: d, Value: p.Value})
		counts = append(counts, 1)
	}
	return contracts.Series{Label: hourly.Label, Points: pts}, counts
}

// BackfillReport describes how the recent days were aligned
type BackfillReport struct {
	Coefficient float64 `json:"coefficient"`
	// Days shared with the accumulated series
	Days []time.Time `json:"days"`
	// Dropped is the incomplete leading day, if any
	Dropped *time.Time `json:"dropped,omitempty"`
	// Added counts days not previously accumulated
	Added int `json:"added"`
}

// Backfill aggregates the high-resolution recent series to days, drops an
// incomplete leading day, scales the rest onto the anchor window using the
// shared days and splices it in. round applies half-to-even rounding to the
// scaled values.
func Backfill(acc Accumulator, hourly contracts.Series, samplesPerDay int, round bool) (Accumulator, BackfillReport, error) {
	var report BackfillReport

	daily, counts := AggregateDaily(hourly)
	if len(counts) > 0 && counts[0] < samplesPerDay {
		dropped := daily.Points[0].Time
		report.Dropped = &dropped
		daily = contracts.Series{Label: daily.Label, Points: daily.Points[1:]}
	}

	for _, p := range daily.Points {
		if _, ok := acc.find(p.Time); ok {
			report.Days = append(report.Days, p.Time)
		} else {
			report.Added++
		}
	}

	yAcc, okAcc := acc.Anchor().MaxAt(report.Days)
	yNew, okNew := daily.MaxAt(report.Days)
	if !okAcc || !okNew {
		return acc, report, newError(KindEmptyOverlap,
			"recent days do not intersect the accumulated series (%d aggregated days)", daily.Len())
	}

	coef, err := coefficient(yAcc, yNew)
	if err != nil {
		return acc, report, err
	}
	report.Coefficient = coef

	scaled := daily.Scale(coef)
	if round {
		scaled = scaled.Map(math.RoundToEven)
	}
	return Splice(acc, scaled), report, nil
}
