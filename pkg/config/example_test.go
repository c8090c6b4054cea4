package config_test

import (
	"fmt"

	"github.com/Denis-Evseev/google-daily-trends/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Storage driver: %s\n", cfg.Storage.Driver)
	fmt.Printf("Window: %d days, overlap: %d days\n", cfg.Stitch.WindowDays, cfg.Stitch.OverlapDays)
	fmt.Printf("Retry: %d x (%s + n*%s)\n", cfg.Trends.RetryMax, cfg.Trends.RetryBase, cfg.Trends.RetryStep)
}
