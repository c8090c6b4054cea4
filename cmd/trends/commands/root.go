package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trends",
	Short: "Google Trends daily series stitcher",
	Long: `Google Daily Trends CLI

Google Trends는 짧은 구간에서만 일별 데이터를 제공합니다.
겹치는 구간의 최대값으로 각 구간을 스케일링해 긴 일별 시계열을 복원합니다.

Usage:
  go run ./cmd/trends [command]

Examples:
  go run ./cmd/trends stitch iphone --start 2019-01-01
  go run ./cmd/trends original iphone --start 2019-01-01
  go run ./cmd/trends batch keywords.csv --out ./exports
  go run ./cmd/trends api
  go run ./cmd/trends scheduler start
  go run ./cmd/trends test-db`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Values loaded here win over .env because godotenv never overrides
		if configFile != "" {
			if err := godotenv.Load(configFile); err != nil {
				return fmt.Errorf("load %s: %w", configFile, err)
			}
		}
		if cmd.Flags().Changed("env") {
			os.Setenv("ENV", env)
		}
		if verbose {
			os.Setenv("LOG_LEVEL", "debug")
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file loaded before .env")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production|test)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
