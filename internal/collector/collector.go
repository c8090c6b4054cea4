package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
	"github.com/Denis-Evseev/google-daily-trends/internal/export"
	"github.com/Denis-Evseev/google-daily-trends/internal/stitch"
	"github.com/Denis-Evseev/google-daily-trends/pkg/logger"
)

// Collector stitches a list of keywords, exporting and storing each result
// ⭐ SSOT: 배치 키워드 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	stitcher *stitch.Stitcher
	repo     contracts.SeriesRepository
	logger   *logger.Logger
	now      func() time.Time
}

// Request holds batch configuration
type Request struct {
	Mode    stitch.Mode
	Start   time.Time
	End     time.Time
	Params  stitch.Params
	Workers int // Number of concurrent keywords (default 1)

	// ExportDir enables file output, one file per keyword and format
	ExportDir string
	Formats   []export.Format

	// Persist stores every successful run in the repository
	Persist bool
}

// KeywordResult is the outcome for one keyword
type KeywordResult struct {
	Keyword Keyword
	Result  *stitch.Result
	Files   []string
	Error   error
}

// Report summarizes a batch
type Report struct {
	Results   []KeywordResult
	Succeeded int
	Failed    int
	StartedAt time.Time
	Elapsed   time.Duration
}

// NewCollector creates a new Collector instance. repo may be nil when
// nothing is persisted.
func NewCollector(st *stitch.Stitcher, repo contracts.SeriesRepository, log *logger.Logger) *Collector {
	return &Collector{
		stitcher: st,
		repo:     repo,
		logger:   log.WithField("module", "collector"),
		now:      time.Now,
	}
}

type job struct {
	index   int
	keyword Keyword
}

// Run processes every keyword. A failing keyword is recorded in its
// KeywordResult and never aborts the batch; results keep input order.
func (c *Collector) Run(ctx context.Context, keywords []Keyword, req Request) (*Report, error) {
	if req.Persist && c.repo == nil {
		return nil, fmt.Errorf("persist requested without a repository")
	}
	workers := req.Workers
	if workers < 1 {
		workers = 1
	}
	if req.ExportDir != "" && len(req.Formats) == 0 {
		req.Formats = []export.Format{export.FormatCSV}
	}

	report := &Report{Results: make([]KeywordResult, len(keywords)), StartedAt: c.now()}

	c.logger.WithFields(map[string]interface{}{
		"keyword_count": len(keywords),
		"mode":          string(req.Mode),
		"from":          req.Start.Format(contracts.DateLayout),
		"to":            req.End.Format(contracts.DateLayout),
		"workers":       workers,
	}).Info("Starting keyword collection")

	// 1. Create worker pool
	jobCh := make(chan job, len(keywords))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.worker(ctx, workerID, jobCh, req, report)
		}(i)
	}

	// 2. Send keywords to workers
	for i, k := range keywords {
		jobCh <- job{index: i, keyword: k}
	}
	close(jobCh)

	// 3. Wait for all workers to complete
	wg.Wait()

	for _, r := range report.Results {
		if r.Error != nil {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}
	report.Elapsed = c.now().Sub(report.StartedAt)

	c.logger.WithFields(map[string]interface{}{
		"success": report.Succeeded,
		"failed":  report.Failed,
		"total":   len(report.Results),
	}).Info("Keyword collection completed")

	return report, nil
}

// worker writes into its own result slots only
func (c *Collector) worker(ctx context.Context, workerID int, jobCh <-chan job, req Request, report *Report) {
	for j := range jobCh {
		log := c.logger.WithFields(map[string]interface{}{
			"worker":  workerID,
			"ticker":  j.keyword.Ticker,
			"keyword": j.keyword.Keyword,
		})

		if err := ctx.Err(); err != nil {
			report.Results[j.index] = KeywordResult{Keyword: j.keyword, Error: err}
			continue
		}

		log.Info("Processing keyword")
		report.Results[j.index] = c.process(ctx, j.keyword, req, report.StartedAt)
		if err := report.Results[j.index].Error; err != nil {
			log.WithError(err).Error("Keyword failed")
		}
	}
}

func (c *Collector) process(ctx context.Context, k Keyword, req Request, batchTime time.Time) KeywordResult {
	out := KeywordResult{Keyword: k}

	res, err := c.stitcher.Run(ctx, req.Mode, k.Keyword, req.Start, req.End, req.Params)
	if err != nil {
		out.Error = err
		return out
	}
	out.Result = res

	run := res.Run(c.now())
	if req.Persist {
		if err := c.repo.SaveRun(ctx, run); err != nil {
			out.Error = fmt.Errorf("save run %s: %w", run.ID, err)
			return out
		}
	}

	for _, f := range req.Formats {
		if req.ExportDir == "" {
			break
		}
		path, err := export.WriteFile(req.ExportDir, k.Ticker, batchTime, f, run)
		if err != nil {
			out.Error = err
			return out
		}
		out.Files = append(out.Files, path)
	}
	return out
}
