package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Denis-Evseev/google-daily-trends/internal/collector"
	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
	"github.com/Denis-Evseev/google-daily-trends/internal/stitch"
)

var (
	batchFlags    runFlags
	batchKeywords []string
	batchWorkers  int
	batchMode     string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [keywords-file]",
	Short: "키워드 목록 일괄 복원",
	Long: `키워드 목록(ticker,keyword CSV 또는 YAML)의 각 키워드를 복원하고
키워드마다 "<ticker> <timestamp>.csv" 파일을 내보냅니다.
실패한 키워드는 기록만 하고 나머지는 계속 진행합니다.

Example:
  go run ./cmd/trends batch keywords.csv --start 2019-01-01 --out ./exports
  go run ./cmd/trends batch --keyword AAPL=apple --keyword TSLA=tesla --save
  go run ./cmd/trends batch keywords.yaml --workers 2 --format csv,parquet`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	addRunFlags(batchCmd, &batchFlags)
	batchCmd.Flags().StringArrayVar(&batchKeywords, "keyword", nil, "keyword as TICKER=keyword (repeatable)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 1, "keywords processed concurrently")
	batchCmd.Flags().StringVar(&batchMode, "mode", string(stitch.ModeOverlapped), "overlapped, original or reference")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Resolve keywords
	var keywords []collector.Keyword
	if len(args) == 1 {
		loaded, err := collector.LoadKeywords(args[0])
		if err != nil {
			return err
		}
		keywords = loaded
	}
	keywords = append(keywords, collector.ParseKeywords(batchKeywords)...)
	if len(keywords) == 0 {
		return fmt.Errorf("no keywords: pass a keywords file or --keyword")
	}

	mode, err := stitch.ParseMode(batchMode)
	if err != nil {
		return err
	}
	start, end, err := batchFlags.dates(time.Now())
	if err != nil {
		return err
	}
	formats, err := batchFlags.exportFormats()
	if err != nil {
		return err
	}

	// 2. Wire dependencies
	rt, err := newRuntime(ctx, runtimeOptions{storage: batchFlags.save})
	if err != nil {
		return err
	}
	defer rt.Close()

	dir := batchFlags.outDir
	if dir == "" {
		dir = rt.cfg.ExportDir
	}
	req := collector.Request{
		Mode:      mode,
		Start:     start,
		End:       end,
		Params:    batchFlags.params(cmd, stitch.ParamsFromConfig(rt.cfg)),
		Workers:   batchWorkers,
		ExportDir: dir,
		Formats:   formats,
		Persist:   batchFlags.save,
	}

	PrintHeader("Batch stitch ("+string(mode)+")",
		"Period", start.Format(contracts.DateLayout)+" ~ "+end.Format(contracts.DateLayout),
		"Keywords", strconv.Itoa(len(keywords)),
		"Workers", strconv.Itoa(max(batchWorkers, 1)),
		"Output", dir,
	)

	// 3. Run collector
	col := collector.NewCollector(rt.stitcher, rt.repo, rt.log)
	report, err := col.Run(ctx, keywords, req)
	if err != nil {
		return err
	}

	// 4. Report
	fmt.Println()
	widths := []int{10, 24, 7, 40}
	PrintTableHeader([]string{"Ticker", "Keyword", "Rows", "Result"}, widths)
	for _, r := range report.Results {
		rows, result := "-", ""
		switch {
		case r.Error != nil:
			result = "❌ " + r.Error.Error()
		case r.Result.Partial:
			rows = strconv.Itoa(len(r.Result.Rows))
			result = "⚠️  partial: " + r.Result.Failure
		default:
			rows = strconv.Itoa(len(r.Result.Rows))
			result = "✅ " + strings.Join(r.Files, ", ")
		}
		PrintTableRow([]string{r.Keyword.Ticker, r.Keyword.Keyword, rows, result}, widths)
	}

	fmt.Println()
	PrintSeparator()
	fmt.Printf("  %d succeeded, %d failed in %s\n", report.Succeeded, report.Failed, report.Elapsed.Round(time.Second))
	PrintSeparator()

	if report.Succeeded == 0 {
		return fmt.Errorf("all %d keywords failed", report.Failed)
	}
	return nil
}
