package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Denis-Evseev/google-daily-trends/internal/collector"
	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
	"github.com/Denis-Evseev/google-daily-trends/internal/export"
	"github.com/Denis-Evseev/google-daily-trends/internal/stitch"
	"github.com/Denis-Evseev/google-daily-trends/pkg/config"
	"github.com/Denis-Evseev/google-daily-trends/pkg/logger"
)

// RefreshJob re-stitches the configured keywords over the lookback window
// and stores every result
// ⭐ SSOT: 키워드 갱신 스케줄은 이 Job에서만
type RefreshJob struct {
	collector *collector.Collector
	config    *config.Config
	logger    *logger.Logger
	now       func() time.Time
}

// NewRefreshJob creates a new refresh job
func NewRefreshJob(col *collector.Collector, cfg *config.Config, log *logger.Logger) *RefreshJob {
	return &RefreshJob{
		collector: col,
		config:    cfg,
		logger:    log.WithComponent("refresh_job"),
		now:       time.Now,
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "trends_refresh"
}

// Schedule returns the configured cron expression (default 06:00 daily)
func (j *RefreshJob) Schedule() string {
	return j.config.Schedule.Cron
}

// Request is the batch request for a run starting now
func (j *RefreshJob) Request() collector.Request {
	end := contracts.Day(j.now())
	start := end.AddDate(0, 0, -j.config.Schedule.LookbackDays)

	p := stitch.ParamsFromConfig(j.config)
	p.Geo = j.config.Schedule.Geo
	p.AllowPartial = true

	req := collector.Request{
		Mode:    stitch.ModeOverlapped,
		Start:   start,
		End:     end,
		Params:  p,
		Workers: 1,
		Persist: true,
	}
	if j.config.ExportDir != "" {
		req.ExportDir = j.config.ExportDir
		req.Formats = []export.Format{export.FormatCSV}
	}
	return req
}

// Run executes the refresh. It fails only when no keyword succeeded so
// the scheduler retries the whole batch.
func (j *RefreshJob) Run(ctx context.Context) error {
	keywords := collector.ParseKeywords(j.config.Schedule.Keywords)
	if len(keywords) == 0 {
		j.logger.Warn("No keywords configured, nothing to refresh")
		return nil
	}

	req := j.Request()
	j.logger.WithFields(map[string]interface{}{
		"keywords": len(keywords),
		"from":     req.Start.Format(contracts.DateLayout),
		"to":       req.End.Format(contracts.DateLayout),
	}).Info("Starting scheduled refresh")

	report, err := j.collector.Run(ctx, keywords, req)
	if err != nil {
		return fmt.Errorf("run collector: %w", err)
	}

	for _, r := range report.Results {
		if r.Error != nil {
			j.logger.WithKeyword(r.Keyword.Keyword).WithError(r.Error).Warn("Keyword refresh failed")
		}
	}
	if report.Succeeded == 0 {
		return fmt.Errorf("all %d keywords failed: %w", report.Failed, report.Results[0].Error)
	}

	j.logger.WithFields(map[string]interface{}{
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"elapsed":   report.Elapsed,
	}).Info("Scheduled refresh completed")
	return nil
}
