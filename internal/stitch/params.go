package stitch

import "github.com/Denis-Evseev/google-daily-trends/pkg/config"

// ParamsFromConfig builds run parameters from the stitch section of cfg.
// Geo, category and property are per-request and left empty.
func ParamsFromConfig(cfg *config.Config) Params {
	p := DefaultParams()
	s := cfg.Stitch
	if s.WindowDays > 0 {
		p.WindowDays = s.WindowDays
	}
	if s.OverlapDays >= 0 && s.OverlapDays < p.WindowDays {
		p.OverlapDays = s.OverlapDays
	}
	if s.MaxWindowDays > 0 {
		p.MaxWindowDays = s.MaxWindowDays
	}
	p.Sleep = s.Sleep
	p.TZOffset = s.TZMinutes
	p.RoundBackfill = s.RoundBackfill
	return p
}
