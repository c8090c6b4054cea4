package main

import (
	"os"

	"github.com/Denis-Evseev/google-daily-trends/cmd/trends/commands"
)

// main is the entry point for the trends CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/trends [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
