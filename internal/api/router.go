package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Denis-Evseev/google-daily-trends/internal/api/handlers"
	"github.com/Denis-Evseev/google-daily-trends/pkg/logger"
	"github.com/Denis-Evseev/google-daily-trends/pkg/metrics"
)

// NewRouter creates and configures the HTTP router. rec may be nil, in
// which case /metrics is not served.
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(trends *handlers.TrendsHandler, stream *handlers.StreamHandler, rec *metrics.Recorder, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if rec != nil {
		r.Handle("/metrics", rec.Handler()).Methods("GET")
	}

	// API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/trends/{keyword}", trends.Stitch).Methods("GET")
	api.HandleFunc("/trends/{keyword}/latest", trends.Latest).Methods("GET")
	api.HandleFunc("/runs", trends.ListRuns).Methods("GET")

	// Streaming
	r.HandleFunc("/ws/stitch", stream.Stitch).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log, rec))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "google-daily-trends",
	})
}

// statusRecorder captures the response code for logs and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the hijacker for websockets
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// loggingMiddleware logs HTTP requests and records them when rec is set
func loggingMiddleware(log *logger.Logger, rec *metrics.Recorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// websocket upgrades need the original writer
			if r.Header.Get("Upgrade") != "" {
				next.ServeHTTP(w, r)
			} else {
				next.ServeHTTP(sw, r)
			}

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			if rec != nil {
				rec.RecordHTTP(route, r.Method, sw.status, time.Since(start))
			}

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   sw.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
