package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
	"github.com/Denis-Evseev/google-daily-trends/internal/stitch"
)

// defaultLookbackDays is used when a request has no start date
const defaultLookbackDays = 365

// StitchRequest is a parsed on-demand stitch request
type StitchRequest struct {
	Keyword string
	Mode    stitch.Mode
	Start   time.Time
	End     time.Time
	Params  stitch.Params
	Save    bool
}

// parseStitchRequest reads the keyword from the route (or ?keyword=) and the
// query parameters start, end, geo, cat, gprop, window, overlap, tz, mode,
// partial and save on top of defaults
func parseStitchRequest(r *http.Request, defaults stitch.Params, now time.Time) (StitchRequest, error) {
	q := r.URL.Query()

	req := StitchRequest{Keyword: strings.TrimSpace(mux.Vars(r)["keyword"]), Params: defaults}
	if req.Keyword == "" {
		req.Keyword = strings.TrimSpace(q.Get("keyword"))
	}
	if req.Keyword == "" {
		return req, fmt.Errorf("keyword is required")
	}

	var err error
	if req.Mode, err = stitch.ParseMode(q.Get("mode")); err != nil {
		return req, err
	}

	req.End = contracts.Day(now)
	if v := q.Get("end"); v != "" {
		if req.End, err = contracts.ParseDate(v); err != nil {
			return req, fmt.Errorf("end: %w", err)
		}
	}
	req.Start = req.End.AddDate(0, 0, -defaultLookbackDays)
	if v := q.Get("start"); v != "" {
		if req.Start, err = contracts.ParseDate(v); err != nil {
			return req, fmt.Errorf("start: %w", err)
		}
	}

	p := &req.Params
	if v, ok := lookup(q, "geo"); ok {
		p.Geo = strings.ToUpper(v)
	}
	if v, ok := lookup(q, "gprop"); ok {
		p.Property = v
	}
	for name, dst := range map[string]*int{
		"cat":     &p.Category,
		"window":  &p.WindowDays,
		"overlap": &p.OverlapDays,
		"tz":      &p.TZOffset,
	} {
		v, ok := lookup(q, name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%s: %q is not an integer", name, v)
		}
		*dst = n
	}
	for name, dst := range map[string]*bool{
		"partial": &p.AllowPartial,
		"save":    &req.Save,
	} {
		v, ok := lookup(q, name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("%s: %q is not a boolean", name, v)
		}
		*dst = b
	}
	return req, nil
}

func lookup(q url.Values, key string) (string, bool) {
	if !q.Has(key) {
		return "", false
	}
	return strings.TrimSpace(q.Get(key)), true
}
