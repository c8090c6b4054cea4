package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
	"github.com/Denis-Evseev/google-daily-trends/internal/export"
	"github.com/Denis-Evseev/google-daily-trends/internal/stitch"
)

// runFlags are shared by every command that performs a stitch
type runFlags struct {
	start    string
	end      string
	geo      string
	property string
	category int
	window   int
	overlap  int
	tz       int
	sleep    time.Duration
	partial  bool
	round    bool
	formats  []string
	outDir   string
	save     bool
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	fl := cmd.Flags()
	fl.StringVar(&f.start, "start", "", "first day YYYY-MM-DD (default: end - 365 days)")
	fl.StringVar(&f.end, "end", "", "last day YYYY-MM-DD (default: today)")
	fl.StringVar(&f.geo, "geo", "", "geography, e.g. US (default: worldwide)")
	fl.StringVar(&f.property, "gprop", "", "property: images, news, youtube, froogle")
	fl.IntVar(&f.category, "cat", 0, "category id")
	fl.IntVar(&f.window, "window", 0, "window length in days (default: STITCH_WINDOW_DAYS)")
	fl.IntVar(&f.overlap, "overlap", 0, "overlap in days (default: STITCH_OVERLAP_DAYS)")
	fl.IntVar(&f.tz, "tz", 0, "timezone offset in minutes applied to output timestamps")
	fl.DurationVar(&f.sleep, "sleep", 0, "wait after each request")
	fl.BoolVar(&f.partial, "partial", false, "keep what was stitched when a later window fails")
	fl.BoolVar(&f.round, "round-backfill", true, "round backfilled days half-to-even")
	fl.StringSliceVar(&f.formats, "format", []string{"csv"}, "export formats: csv, parquet, json")
	fl.StringVar(&f.outDir, "out", "", "export directory (default: EXPORT_DIR)")
	fl.BoolVar(&f.save, "save", false, "store the run in the configured storage")
}

// dates resolves --start/--end relative to now
func (f *runFlags) dates(now time.Time) (time.Time, time.Time, error) {
	end := contracts.Day(now)
	if f.end != "" {
		var err error
		if end, err = contracts.ParseDate(f.end); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--end: %w", err)
		}
	}
	start := end.AddDate(0, 0, -365)
	if f.start != "" {
		var err error
		if start, err = contracts.ParseDate(f.start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--start: %w", err)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--end %s is before --start %s",
			end.Format(contracts.DateLayout), start.Format(contracts.DateLayout))
	}
	return start, end, nil
}

// params overlays explicitly set flags on base
func (f *runFlags) params(cmd *cobra.Command, base stitch.Params) stitch.Params {
	p := base
	fl := cmd.Flags()
	p.Geo = strings.ToUpper(f.geo)
	p.Property = f.property
	p.Category = f.category
	if fl.Changed("window") {
		p.WindowDays = f.window
	}
	if fl.Changed("overlap") {
		p.OverlapDays = f.overlap
	}
	if fl.Changed("tz") {
		p.TZOffset = f.tz
	}
	if fl.Changed("sleep") {
		p.Sleep = f.sleep
	}
	if fl.Changed("round-backfill") {
		p.RoundBackfill = f.round
	}
	p.AllowPartial = f.partial
	return p
}

// exportFormats parses --format, dropping duplicates
func (f *runFlags) exportFormats() ([]export.Format, error) {
	var out []export.Format
	seen := map[export.Format]bool{}
	for _, s := range f.formats {
		format, err := export.ParseFormat(s)
		if err != nil {
			return nil, err
		}
		if !seen[format] {
			seen[format] = true
			out = append(out, format)
		}
	}
	return out, nil
}
