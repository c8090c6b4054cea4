package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
	"github.com/Denis-Evseev/google-daily-trends/internal/export"
	"github.com/Denis-Evseev/google-daily-trends/internal/stitch"
)

var (
	stitchFlags    runFlags
	originalFlags  runFlags
	referenceFlags runFlags

	stitchTicker string
)

// stitchCmd represents the stitch command
var stitchCmd = &cobra.Command{
	Use:   "stitch [keyword]",
	Short: "겹치는 구간으로 일별 시계열 복원",
	Long: `겹치는 윈도우를 newest-first로 조회하고 각 윈도우를 직전 윈도우의
겹치는 구간 최대값 비율로 스케일링해 하나의 일별 시계열로 합칩니다.
최근 며칠은 시간별 데이터로 보충(backfill)하고, 최대값이 100이 되도록 정규화합니다.

Example:
  go run ./cmd/trends stitch iphone --start 2019-01-01 --end 2020-12-31
  go run ./cmd/trends stitch bitcoin --geo US --window 200 --overlap 60 --format csv,parquet`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSingle(cmd, stitch.ModeOverlapped, args[0], &stitchFlags)
	},
}

// originalCmd represents the original command
var originalCmd = &cobra.Command{
	Use:   "original [keyword]",
	Short: "스케일링 없이 연속 윈도우를 이어붙임",
	Long: `겹치지 않는 연속 윈도우를 스케일링 없이 이어붙입니다.
비교용 기준선으로 사용합니다.

Example:
  go run ./cmd/trends original iphone --start 2019-01-01`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSingle(cmd, stitch.ModeOriginal, args[0], &originalFlags)
	},
}

// referenceCmd represents the reference command
var referenceCmd = &cobra.Command{
	Use:   "reference [keyword]",
	Short: "전체 기간을 한 번에 조회 (주간/월간 해상도)",
	Long: `전체 기간을 단일 요청으로 조회합니다. 긴 기간은 주간 또는 월간
해상도로 반환되므로 복원 결과와의 비교용입니다.

Example:
  go run ./cmd/trends reference iphone --start 2015-01-01`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSingle(cmd, stitch.ModeReference, args[0], &referenceFlags)
	},
}

func init() {
	rootCmd.AddCommand(stitchCmd)
	rootCmd.AddCommand(originalCmd)
	rootCmd.AddCommand(referenceCmd)

	addRunFlags(stitchCmd, &stitchFlags)
	addRunFlags(originalCmd, &originalFlags)
	addRunFlags(referenceCmd, &referenceFlags)

	for _, c := range []*cobra.Command{stitchCmd, originalCmd, referenceCmd} {
		c.Flags().StringVar(&stitchTicker, "ticker", "", "file name prefix (default: keyword)")
	}
}

func runSingle(cmd *cobra.Command, mode stitch.Mode, keyword string, f *runFlags) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start, end, err := f.dates(time.Now())
	if err != nil {
		return err
	}
	formats, err := f.exportFormats()
	if err != nil {
		return err
	}

	rt, err := newRuntime(ctx, runtimeOptions{storage: f.save})
	if err != nil {
		return err
	}
	defer rt.Close()

	p := f.params(cmd, stitch.ParamsFromConfig(rt.cfg))

	PrintHeader(fmt.Sprintf("Stitch %q (%s)", keyword, mode),
		"Period", start.Format(contracts.DateLayout)+" ~ "+end.Format(contracts.DateLayout),
		"Window", fmt.Sprintf("%d days, overlap %d", p.WindowDays, p.OverlapDays),
		"Geo", orWorldwide(p.Geo),
	)

	res, err := rt.stitcher.Run(ctx, mode, keyword, start, end, p)
	if err != nil {
		PrintError(err.Error())
		return err
	}
	printResult(res)

	run := res.Run(time.Now())
	if f.save {
		if err := rt.repo.SaveRun(ctx, run); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		PrintSuccess("Run saved: " + run.ID)
	}

	dir := f.outDir
	if dir == "" {
		dir = rt.cfg.ExportDir
	}
	ticker := stitchTicker
	if ticker == "" {
		ticker = keyword
	}
	for _, format := range formats {
		path, err := export.WriteFile(dir, ticker, run.CreatedAt, format, run)
		if err != nil {
			return err
		}
		PrintSuccess("Exported " + path)
	}
	return nil
}

// printResult prints the run summary and the most recent rows
func printResult(res *stitch.Result) {
	fmt.Println()
	PrintKeyValue("Run ID", res.RunID, 10)
	PrintKeyValue("Windows", strconv.Itoa(len(res.Windows)), 10)
	PrintKeyValue("Splices", strconv.Itoa(len(res.Splices)), 10)
	PrintKeyValue("Rows", strconv.Itoa(len(res.Rows)), 10)
	if res.Backfill != nil {
		PrintKeyValue("Backfill", fmt.Sprintf("coef %.4f, %d new days", res.Backfill.Coefficient, res.Backfill.Added), 10)
	}
	if res.Partial {
		PrintWarning("Partial result: " + res.Failure)
	}

	if len(res.Splices) > 0 {
		fmt.Println()
		widths := []int{23, 23, 12}
		PrintTableHeader([]string{"Window", "Previous", "Coefficient"}, widths)
		for _, s := range res.Splices {
			PrintTableRow([]string{s.Window.String(), s.Previous.String(), fmt.Sprintf("%.4f", s.Coefficient)}, widths)
		}
	}

	tail := res.Rows
	if len(tail) > 7 {
		tail = tail[len(tail)-7:]
	}
	if len(tail) > 0 {
		fmt.Println()
		widths := []int{19, 7, 7}
		PrintTableHeader([]string{"Date", "Value", "Overlap"}, widths)
		for _, r := range tail {
			PrintTableRow([]string{r.Time.Format("2006-01-02 15:04:05"), strconv.FormatFloat(r.Value, 'f', -1, 64), strconv.FormatBool(r.Overlap)}, widths)
		}
	}
	fmt.Println()
}

func orWorldwide(geo string) string {
	if geo == "" {
		return "worldwide"
	}
	return geo
}
