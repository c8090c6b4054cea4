package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Denis-Evseev/google-daily-trends/internal/collector"
	"github.com/Denis-Evseev/google-daily-trends/internal/scheduler"
	"github.com/Denis-Evseev/google-daily-trends/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `설정된 키워드(SCHEDULE_KEYWORDS)를 주기적으로 다시 복원해 저장합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/trends scheduler start
  go run ./cmd/trends scheduler list
  go run ./cmd/trends scheduler run trends_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- trends_refresh: SCHEDULE_CRON (기본 매일 06:00), SCHEDULE_LOOKBACK_DAYS 기간 복원 후 저장

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Google Daily Trends Scheduler ===")

	sched, rt, err := initScheduler(context.Background())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer rt.Close()

	// Start scheduler
	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Printf("   Keywords: %s\n", strings.Join(rt.cfg.Schedule.Keywords, ", "))
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	printStats(sched)
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, rt, err := initScheduler(context.Background())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer rt.Close()

	printJobs(sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, rt, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer rt.Close()

	fmt.Printf("Running job: %s\n", jobName)

	result, err := sched.RunJob(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !result.Success {
		PrintError(fmt.Sprintf("%s failed after %d attempts: %s", jobName, result.Attempts, result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess(fmt.Sprintf("%s completed in %s", jobName, result.Duration.Round(time.Second)))
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	fmt.Println("\nRegistered jobs:")
	stats := sched.GetJobStats()
	for _, jobName := range sched.GetAllJobs() {
		line := fmt.Sprintf("  - %s (%s)", jobName, stats[jobName].Schedule)
		if next, err := sched.NextRun(jobName); err == nil && !next.IsZero() {
			line += ", next " + next.Format("2006-01-02 15:04:05")
		}
		fmt.Println(line)
	}
}

func printStats(sched *scheduler.Scheduler) {
	for _, jobName := range sched.GetAllJobs() {
		stat := sched.GetJobStats()[jobName]
		if stat.TotalRuns == 0 {
			continue
		}
		fmt.Printf("📊 %s\n", jobName)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)
		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
	}
}

func initScheduler(ctx context.Context) (*scheduler.Scheduler, *runtime, error) {
	// 1-8. Config, logger, metrics, redis, trends client, stitcher, storage
	rt, err := newRuntime(ctx, runtimeOptions{storage: true})
	if err != nil {
		return nil, nil, err
	}

	// 9. Create collector
	col := collector.NewCollector(rt.stitcher, rt.repo, rt.log)

	// 10. Create scheduler
	sched := scheduler.New(rt.log, scheduler.WithRetry(2, 5*time.Minute))

	// 11. Register jobs
	if err := sched.AddJob(jobs.NewRefreshJob(col, rt.cfg, rt.log)); err != nil {
		rt.Close()
		return nil, nil, err
	}

	return sched, rt, nil
}
