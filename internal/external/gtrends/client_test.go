package gtrends

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
	"github.com/Denis-Evseev/google-daily-trends/pkg/config"
	"github.com/Denis-Evseev/google-daily-trends/pkg/httputil"
	"github.com/Denis-Evseev/google-daily-trends/pkg/logger"
	"github.com/Denis-Evseev/google-daily-trends/pkg/redis"
)

const multilineBody = `)]}',
{"default":{"timelineData":[
 {"time":"1577836800","formattedTime":"Jan 1, 2020","value":[40],"hasData":[true]},
 {"time":"1577923200","formattedTime":"Jan 2, 2020","value":[100],"hasData":[true]},
 {"time":"1578009600","formattedTime":"Jan 3, 2020","value":[55],"hasData":[true],"isPartial":true}
]}}`

// fakeTrends mimics the three endpoints the client touches
type fakeTrends struct {
	t          *testing.T
	sessions   int32
	explores   int32
	multilines int32
	exploreReq exploreRequest
	status     int
}

func (f *fakeTrends) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/trends/explore", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.sessions, 1)
		http.SetCookie(w, &http.Cookie{Name: "NID", Value: "session", Path: "/"})
	})
	mux.HandleFunc(explorePath, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.explores, 1)
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		if _, err := r.Cookie("NID"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.NoError(f.t, json.Unmarshal([]byte(r.URL.Query().Get("req")), &f.exploreReq))
		assert.Equal(f.t, "en-US", r.URL.Query().Get("hl"))
		assert.Equal(f.t, "360", r.URL.Query().Get("tz"))
		w.Write([]byte(`)]}'{"widgets":[{"id":"RELATED_QUERIES","token":"x","request":{}},` +
			`{"id":"TIMESERIES","token":"tok-1","request":{"time":"2020-01-01 2020-01-03"}}]}`))
	})
	mux.HandleFunc(multilinePath, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.multilines, 1)
		assert.Equal(f.t, "tok-1", r.URL.Query().Get("token"))
		assert.JSONEq(f.t, `{"time":"2020-01-01 2020-01-03"}`, r.URL.Query().Get("req"))
		w.Write([]byte(multilineBody))
	})
	return mux
}

func newTestClient(t *testing.T, baseURL string) *Client {
	cfg := &config.Config{Env: "test", Trends: config.TrendsConfig{Timeout: 5 * time.Second}}
	hc := httputil.New(cfg, logger.Nop())
	return NewClient(hc, Options{BaseURL: baseURL, HL: "en-US", TZ: 360}, logger.Nop())
}

func TestInterestOverTime(t *testing.T) {
	fake := &fakeTrends{t: t}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	q := contracts.Query{Keywords: []string{"iphone"}, Timeframe: "2020-01-01 2020-01-03", Geo: "US", Category: 7}

	frame, err := c.InterestOverTime(context.Background(), q)
	require.NoError(t, err)

	require.Equal(t, 3, frame.Len())
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), frame.Index[0])
	col, ok := frame.Column("iphone")
	require.True(t, ok)
	assert.Equal(t, []float64{40, 100, 55}, col.Values)
	assert.Equal(t, []bool{false, false, true}, frame.Partial)

	assert.Equal(t, 7, fake.exploreReq.Category)
	require.Len(t, fake.exploreReq.ComparisonItem, 1)
	assert.Equal(t, comparisonItem{Keyword: "iphone", Time: "2020-01-01 2020-01-03", Geo: "US"}, fake.exploreReq.ComparisonItem[0])

	// second call reuses the session cookie
	_, err = c.InterestOverTime(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.sessions))
	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.multilines))
}

func TestInterestOverTime_RateLimited(t *testing.T) {
	fake := &fakeTrends{t: t, status: http.StatusTooManyRequests}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.InterestOverTime(context.Background(), contracts.Query{Keywords: []string{"x"}, Timeframe: "now 7-d"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited), "got %v", err)
}

func TestInterestOverTime_BadStatus(t *testing.T) {
	fake := &fakeTrends{t: t, status: http.StatusBadRequest}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.InterestOverTime(context.Background(), contracts.Query{Keywords: []string{"x"}, Timeframe: "now 7-d"})

	assert.True(t, errors.Is(err, ErrResponse), "got %v", err)
}

func TestInterestOverTime_NoKeywords(t *testing.T) {
	c := newTestClient(t, "http://unused.invalid")
	_, err := c.InterestOverTime(context.Background(), contracts.Query{})
	assert.ErrorIs(t, err, ErrResponse)
}

func TestBuildFrame(t *testing.T) {
	tests := []struct {
		name     string
		points   []timelinePoint
		keywords []string
		wantRows int
		wantErr  bool
	}{
		{"empty timeline", nil, []string{"a"}, 0, false},
		{"two keywords", []timelinePoint{{Time: 1, Value: []float64{1, 2}}}, []string{"a", "b"}, 1, false},
		{"shape mismatch", []timelinePoint{{Time: 1, Value: []float64{1}}}, []string{"a", "b"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildFrame(tt.points, tt.keywords)
			if (err != nil) != tt.wantErr {
				t.Fatalf("buildFrame() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got.Len() != tt.wantRows {
				t.Errorf("buildFrame() rows = %d, want %d", got.Len(), tt.wantRows)
			}
		})
	}
}

func TestUnixSecondsUnmarshal(t *testing.T) {
	var p timelinePoint
	require.NoError(t, json.Unmarshal([]byte(`{"time":"1577836800","value":[1]}`), &p))
	assert.Equal(t, unixSeconds(1577836800), p.Time)

	require.NoError(t, json.Unmarshal([]byte(`{"time":1577836800,"value":[1]}`), &p))
	assert.Equal(t, unixSeconds(1577836800), p.Time)
}

type countingFetcher struct {
	calls int
	frame *contracts.Frame
}

func (f *countingFetcher) InterestOverTime(ctx context.Context, q contracts.Query) (*contracts.Frame, error) {
	f.calls++
	return f.frame, nil
}

func TestCachedClient_DisabledPassesThrough(t *testing.T) {
	next := &countingFetcher{frame: &contracts.Frame{Index: []time.Time{time.Unix(0, 0)}}}
	c := NewCachedClient(next, redis.NewCache(redis.Disabled(), "test"), 0, logger.Nop())

	for i := 0; i < 2; i++ {
		_, err := c.InterestOverTime(context.Background(), contracts.Query{Keywords: []string{"a"}, Timeframe: "now 7-d"})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, next.calls)
}

func TestCachedClient_TTL(t *testing.T) {
	c := NewCachedClient(&countingFetcher{}, redis.NewCache(redis.Disabled(), "test"), 48*time.Hour, logger.Nop())

	assert.Equal(t, redis.TTLHourly, c.ttlFor("now 7-d"))
	assert.Equal(t, 48*time.Hour, c.ttlFor("2020-01-01 2020-09-26"))
}
