package gtrends

import (
	"encoding/json"
	"strconv"
)

// explore request payload (the "req" query parameter)
type exploreRequest struct {
	ComparisonItem []comparisonItem `json:"comparisonItem"`
	Category       int              `json:"category"`
	Property       string           `json:"property"`
}

type comparisonItem struct {
	Keyword string `json:"keyword"`
	Time    string `json:"time"`
	Geo     string `json:"geo"`
}

// exploreResponse lists the widgets of an explore page. Only the
// TIMESERIES widget is used; its request is echoed back verbatim.
type exploreResponse struct {
	Widgets []widget `json:"widgets"`
}

type widget struct {
	ID      string          `json:"id"`
	Token   string          `json:"token"`
	Request json.RawMessage `json:"request"`
}

// multilineResponse is the interest-over-time payload
type multilineResponse struct {
	Default struct {
		TimelineData []timelinePoint `json:"timelineData"`
	} `json:"default"`
}

type timelinePoint struct {
	Time      unixSeconds `json:"time"`
	Value     []float64   `json:"value"`
	HasData   []bool      `json:"hasData"`
	IsPartial bool        `json:"isPartial"`
}

// unixSeconds accepts "1577836800" as well as 1577836800
type unixSeconds int64

func (u *unixSeconds) UnmarshalJSON(b []byte) error {
	s := string(b)
	if n := len(s); n >= 2 && s[0] == '"' && s[n-1] == '"' {
		s = s[1 : n-1]
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*u = unixSeconds(v)
	return nil
}
