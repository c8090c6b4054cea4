package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Denis-Evseev/google-daily-trends/internal/api"
	"github.com/Denis-Evseev/google-daily-trends/internal/api/handlers"
	"github.com/Denis-Evseev/google-daily-trends/internal/collector"
	"github.com/Denis-Evseev/google-daily-trends/internal/scheduler"
	"github.com/Denis-Evseev/google-daily-trends/internal/scheduler/jobs"
	"github.com/Denis-Evseev/google-daily-trends/internal/stitch"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                        - Health check
  GET  /metrics                       - Prometheus metrics
  GET  /api/trends/{keyword}          - 요청 시 복원 (json, csv, parquet)
  GET  /api/trends/{keyword}/latest   - 저장된 최신 결과
  GET  /api/runs                      - 저장된 실행 목록
  GET  /ws/stitch?keyword=            - 복원 진행 이벤트 스트림 (websocket)

Example:
  go run ./cmd/trends api
  go run ./cmd/trends api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "run the refresh scheduler in the same process")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Google Daily Trends API Server ===")

	// 1-8. Config, logger, metrics, redis, trends client, stitcher, storage
	rt, err := newRuntime(context.Background(), runtimeOptions{storage: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg, log := rt.cfg, rt.log

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 9. Create handlers
	defaults := stitch.ParamsFromConfig(cfg)
	trendsHandler := handlers.NewTrendsHandler(rt.stitcher, rt.repo, defaults, log)
	streamHandler := handlers.NewStreamHandler(rt.stitcher, defaults, log)

	// 10. Create router
	router := api.NewRouter(trendsHandler, streamHandler, rt.metrics, log)

	// 11. Create server
	server := api.New(cfg, log, router)

	// 12. Optional in-process scheduler
	var sched *scheduler.Scheduler
	if apiWithScheduler {
		sched = scheduler.New(log, scheduler.WithRetry(2, time.Minute))
		col := collector.NewCollector(rt.stitcher, rt.repo, log)
		if err := sched.AddJob(jobs.NewRefreshJob(col, cfg, log)); err != nil {
			return fmt.Errorf("add refresh job: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// 13. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	if rt.metrics != nil {
		fmt.Println("  GET  /metrics")
	}
	fmt.Println("  GET  /api/trends/{keyword}")
	fmt.Println("  GET  /api/trends/{keyword}/latest")
	fmt.Println("  GET  /api/runs")
	fmt.Println("  GET  /ws/stitch")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
