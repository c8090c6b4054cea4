package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
	"github.com/Denis-Evseev/google-daily-trends/internal/export"
	"github.com/Denis-Evseev/google-daily-trends/internal/stitch"
	"github.com/Denis-Evseev/google-daily-trends/pkg/logger"
)

// TrendsHandler serves stitched series
// ⭐ SSOT: 트렌드 API 핸들러는 이 구조체에서만
type TrendsHandler struct {
	stitcher *stitch.Stitcher
	repo     contracts.SeriesRepository
	defaults stitch.Params
	logger   *logger.Logger
	now      func() time.Time
}

// NewTrendsHandler creates a new trends handler
func NewTrendsHandler(st *stitch.Stitcher, repo contracts.SeriesRepository, defaults stitch.Params, log *logger.Logger) *TrendsHandler {
	return &TrendsHandler{
		stitcher: st,
		repo:     repo,
		defaults: defaults,
		logger:   log.WithComponent("api"),
		now:      time.Now,
	}
}

// Stitch runs a stitch on demand
// GET /api/trends/{keyword}?start=&end=&geo=&cat=&gprop=&window=&overlap=&tz=&mode=&partial=&save=&format=
func (h *TrendsHandler) Stitch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := parseStitchRequest(r, h.defaults, h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	format, err := parseFormat(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.stitcher.Run(ctx, req.Mode, req.Keyword, req.Start, req.End, req.Params)
	if err != nil {
		h.respondStitchError(w, req.Keyword, err)
		return
	}

	run := res.Run(h.now())
	if req.Save {
		if err := h.repo.SaveRun(ctx, run); err != nil {
			h.logger.WithKeyword(req.Keyword).WithError(err).Error("Failed to save run")
			respondError(w, http.StatusInternalServerError, "Failed to save run")
			return
		}
	}

	if format == export.FormatJSON {
		respondJSON(w, http.StatusOK, res)
		return
	}
	writeExport(w, format, run)
}

// Latest returns the most recent stored run for a keyword
// GET /api/trends/{keyword}/latest?format=
func (h *TrendsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	keyword := mux.Vars(r)["keyword"]
	format, err := parseFormat(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := h.repo.GetLatest(r.Context(), keyword)
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No stored run for "+strconv.Quote(keyword))
		return
	}
	if err != nil {
		h.logger.WithKeyword(keyword).WithError(err).Error("Failed to get latest run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve run")
		return
	}

	if format == export.FormatJSON {
		respondJSON(w, http.StatusOK, run)
		return
	}
	writeExport(w, format, run)
}

// ListRuns lists stored runs, newest first
// GET /api/runs?keyword=&limit=
func (h *TrendsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	runs, err := h.repo.ListRuns(r.Context(), r.URL.Query().Get("keyword"), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	if runs == nil {
		runs = []contracts.RunSummary{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// respondStitchError maps failure kinds to status codes
func (h *TrendsHandler) respondStitchError(w http.ResponseWriter, keyword string, err error) {
	kind, _ := stitch.KindOf(err)
	status := statusFor(kind)

	log := h.logger.WithKeyword(keyword).WithError(err)
	if status >= http.StatusInternalServerError {
		log.Error("Stitch failed")
	} else {
		log.Warn("Stitch rejected")
	}

	resp := ErrorResponse{Error: err.Error()}
	if kind != 0 {
		resp.Kind = kind.String()
	}
	respondJSON(w, status, resp)
}

func statusFor(kind stitch.Kind) int {
	switch kind {
	case stitch.KindInvalidPlan:
		return http.StatusBadRequest
	case stitch.KindEmptyOverlap, stitch.KindZeroDenominator, stitch.KindZeroMaximum:
		return http.StatusUnprocessableEntity
	case stitch.KindFetch, stitch.KindShape:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseFormat(r *http.Request) (export.Format, error) {
	v := r.URL.Query().Get("format")
	if v == "" {
		return export.FormatJSON, nil
	}
	return export.ParseFormat(v)
}

// writeExport streams run as a file download
func writeExport(w http.ResponseWriter, f export.Format, run *contracts.Run) {
	contentType := "text/csv; charset=utf-8"
	if f == export.FormatParquet {
		contentType = "application/vnd.apache.parquet"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		`attachment; filename="`+export.Filename(run.Keyword, run.CreatedAt, f)+`"`)
	w.WriteHeader(http.StatusOK)
	export.Write(w, f, run)
}
