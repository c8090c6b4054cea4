package gtrends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
	"github.com/Denis-Evseev/google-daily-trends/pkg/httputil"
	"github.com/Denis-Evseev/google-daily-trends/pkg/logger"
)

var (
	// ErrRateLimited means the source kept answering 429 after all retries
	ErrRateLimited = errors.New("gtrends: rate limited")
	// ErrResponse covers any other unusable answer
	ErrResponse = errors.New("gtrends: bad response")
	// ErrNoWidget means the explore page had no TIMESERIES widget
	ErrNoWidget = errors.New("gtrends: no timeseries widget")
)

const (
	explorePath   = "/trends/api/explore"
	multilinePath = "/trends/api/widgetdata/multiline"

	// Responses are prefixed with an XSSI guard: ")]}'" and ")]}',"
	exploreTrim   = 4
	multilineTrim = 5
)

// Options holds the session parameters sent with every request
type Options struct {
	BaseURL string
	HL      string
	TZ      int
}

// Client talks to the Google Trends widget API
// ⭐ SSOT: Google Trends 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	opts       Options

	mu      sync.Mutex
	session bool
}

var _ contracts.TrendsFetcher = (*Client)(nil)

// NewClient creates a new Google Trends client
func NewClient(httpClient *httputil.Client, opts Options, log *logger.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://trends.google.com"
	}
	if opts.HL == "" {
		opts.HL = "en-US"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("gtrends"),
		opts:       opts,
	}
}

// InterestOverTime resolves the TIMESERIES widget for q and downloads it
func (c *Client) InterestOverTime(ctx context.Context, q contracts.Query) (*contracts.Frame, error) {
	if len(q.Keywords) == 0 {
		return nil, fmt.Errorf("%w: no keywords", ErrResponse)
	}
	if err := c.ensureSession(ctx, q.Geo); err != nil {
		return nil, err
	}

	w, err := c.explore(ctx, q)
	if err != nil {
		return nil, err
	}

	frame, err := c.multiline(ctx, w, q.Keywords)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"keywords":  q.Keywords,
		"timeframe": q.Timeframe,
		"rows":      frame.Len(),
	}).Debug("Fetched interest over time")
	return frame, nil
}

// ensureSession picks up the NID cookie once per client
func (c *Client) ensureSession(ctx context.Context, geo string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session {
		return nil
	}

	if geo == "" {
		geo = "US"
		if n := len(c.opts.HL); n >= 2 {
			geo = c.opts.HL[n-2:]
		}
	}
	if _, err := c.httpClient.GetBytes(ctx, c.opts.BaseURL+"/trends/explore", url.Values{"geo": {geo}}); err != nil {
		return c.classify("session", err)
	}
	c.session = true
	return nil
}

func (c *Client) explore(ctx context.Context, q contracts.Query) (*widget, error) {
	req := exploreRequest{Category: q.Category, Property: q.Property}
	for _, kw := range q.Keywords {
		req.ComparisonItem = append(req.ComparisonItem, comparisonItem{Keyword: kw, Time: q.Timeframe, Geo: q.Geo})
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal explore request: %w", err)
	}

	body, err := c.httpClient.GetBytes(ctx, c.opts.BaseURL+explorePath, url.Values{
		"hl":  {c.opts.HL},
		"tz":  {strconv.Itoa(c.opts.TZ)},
		"req": {string(payload)},
	})
	if err != nil {
		return nil, c.classify("explore", err)
	}

	var resp exploreResponse
	if err := decodeGuarded(body, exploreTrim, &resp); err != nil {
		return nil, fmt.Errorf("%w: explore: %w", ErrResponse, err)
	}
	for i := range resp.Widgets {
		if resp.Widgets[i].ID == "TIMESERIES" {
			return &resp.Widgets[i], nil
		}
	}
	return nil, ErrNoWidget
}

func (c *Client) multiline(ctx context.Context, w *widget, keywords []string) (*contracts.Frame, error) {
	body, err := c.httpClient.GetBytes(ctx, c.opts.BaseURL+multilinePath, url.Values{
		"hl":    {c.opts.HL},
		"tz":    {strconv.Itoa(c.opts.TZ)},
		"req":   {string(w.Request)},
		"token": {w.Token},
	})
	if err != nil {
		return nil, c.classify("multiline", err)
	}

	var resp multilineResponse
	if err := decodeGuarded(body, multilineTrim, &resp); err != nil {
		return nil, fmt.Errorf("%w: multiline: %w", ErrResponse, err)
	}
	return buildFrame(resp.Default.TimelineData, keywords)
}

// buildFrame turns timeline points into one column per keyword plus the
// partial flag. An empty timeline yields an empty frame.
func buildFrame(points []timelinePoint, keywords []string) (*contracts.Frame, error) {
	frame := &contracts.Frame{
		Index:   make([]time.Time, 0, len(points)),
		Columns: make([]contracts.Column, len(keywords)),
		Partial: make([]bool, 0, len(points)),
	}
	for i, kw := range keywords {
		frame.Columns[i] = contracts.Column{Name: kw, Values: make([]float64, 0, len(points))}
	}

	for _, p := range points {
		if len(p.Value) != len(keywords) {
			return nil, fmt.Errorf("%w: %d values for %d keywords at %d", ErrResponse, len(p.Value), len(keywords), p.Time)
		}
		frame.Index = append(frame.Index, time.Unix(int64(p.Time), 0).UTC())
		frame.Partial = append(frame.Partial, p.IsPartial)
		for i, v := range p.Value {
			frame.Columns[i].Values = append(frame.Columns[i].Values, v)
		}
	}
	return frame, nil
}

// decodeGuarded strips the XSSI prefix and decodes JSON
func decodeGuarded(body []byte, trim int, v interface{}) error {
	if len(body) < trim {
		return fmt.Errorf("body too short (%d bytes)", len(body))
	}
	return json.Unmarshal(body[trim:], v)
}

// classify maps transport errors onto the package sentinels
func (c *Client) classify(step string, err error) error {
	var se *httputil.StatusError
	if errors.As(err, &se) && se.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s: %w", ErrRateLimited, step, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrResponse, step, err)
}
