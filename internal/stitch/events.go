package stitch

import (
	"time"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
	"github.com/Denis-Evseev/google-daily-trends/pkg/logger"
	"github.com/Denis-Evseev/google-daily-trends/pkg/metrics"
)

// EventType names a step of a run
type EventType string

const (
	EventRunStarted    EventType = "run_started"
	EventWindowFetched EventType = "window_fetched"
	EventWindowScaled  EventType = "window_scaled"
	EventBackfilled    EventType = "backfilled"
	EventRunFinished   EventType = "run_finished"
	EventRunFailed     EventType = "run_failed"
)

// Event is emitted to the run's Observer. Err is set on failures.
type Event struct {
	Type        EventType         `json:"type"`
	RunID       string            `json:"run_id"`
	Keyword     string            `json:"keyword"`
	Mode        Mode              `json:"mode"`
	Window      *contracts.Window `json:"window,omitempty"`
	Previous    *contracts.Window `json:"previous,omitempty"`
	Coefficient float64           `json:"coefficient,omitempty"`
	Points      int               `json:"points,omitempty"`
	Partial     bool              `json:"partial,omitempty"`
	Elapsed     time.Duration     `json:"elapsed"`
	Time        time.Time         `json:"time"`
	Err         error             `json:"-"`
	Error       string            `json:"error,omitempty"`
}

// Observer receives run events. Implementations must not block for long:
// events are delivered synchronously on the run's goroutine.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

type multiObserver []Observer

func (m multiObserver) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}

// Observers fans events out to every non-nil observer
func Observers(obs ...Observer) Observer {
	var out multiObserver
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}

// LogObserver writes events as structured log entries
func LogObserver(log *logger.Logger) Observer {
	log = log.WithComponent("stitcher")
	return ObserverFunc(func(e Event) {
		l := log.WithFields(map[string]interface{}{
			"run_id":  e.RunID,
			"keyword": e.Keyword,
			"mode":    string(e.Mode),
		})
		if e.Window != nil {
			l = l.WithField("window", e.Window.Timeframe())
		}

		switch e.Type {
		case EventRunStarted:
			l.Info("Stitch run started")
		case EventWindowFetched:
			if e.Err != nil {
				l.WithError(e.Err).Warn("Window fetch failed")
				return
			}
			l.WithFields(map[string]interface{}{"points": e.Points, "elapsed": e.Elapsed}).Info("Window fetched")
		case EventWindowScaled:
			l.WithFields(map[string]interface{}{
				"previous":    e.Previous.Timeframe(),
				"coefficient": e.Coefficient,
			}).Info("Normalized by overlapping period")
		case EventBackfilled:
			l.WithFields(map[string]interface{}{"coefficient": e.Coefficient, "points": e.Points}).Info("Recent days backfilled")
		case EventRunFinished:
			l.WithFields(map[string]interface{}{
				"rows":    e.Points,
				"partial": e.Partial,
				"elapsed": e.Elapsed,
			}).Info("Stitch run finished")
		case EventRunFailed:
			l.WithError(e.Err).Error("Stitch run failed")
		}
	})
}

// MetricsObserver feeds the Prometheus recorder
func MetricsObserver(rec *metrics.Recorder) Observer {
	return ObserverFunc(func(e Event) {
		switch e.Type {
		case EventWindowFetched:
			g := contracts.Daily
			if e.Window != nil {
				g = e.Window.Granularity
			}
			rec.RecordWindow(g.String(), e.Err == nil, e.Elapsed)
		case EventWindowScaled, EventBackfilled:
			rec.RecordCoefficient(e.Coefficient)
		case EventRunFinished:
			status := "success"
			if e.Partial {
				status = "partial"
			}
			rec.RecordRun(string(e.Mode), status, e.Elapsed)
		case EventRunFailed:
			rec.RecordRun(string(e.Mode), "failed", e.Elapsed)
			kind := "unknown"
			if k, ok := KindOf(e.Err); ok {
				kind = k.String()
			}
			rec.RecordError(kind)
		}
	})
}
