// Package main is a one-shot batch runner: it loads the CSV inputs,
// rebalances every portfolio, persists the runs, and prints a summary.
// Useful for cron-less environments and for inspecting a dataset without
// starting the HTTP service.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/aristath/rebalance/internal/config"
	"github.com/aristath/rebalance/internal/di"
	"github.com/aristath/rebalance/pkg/logger"
)

func main() {
	var inputDir string
	flag.StringVar(&inputDir, "input-dir", "", "CSV input directory (overrides INPUT_DIR environment variable)")
	flag.Parse()

	if inputDir != "" {
		os.Setenv("INPUT_DIR", inputDir)
	}

	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	if err := container.Scheduler.RunNow(container.BatchRebalanceJob); err != nil {
		log.Fatal().Err(err).Msg("Batch rebalance failed")
	}

	fmt.Println("Batch rebalance complete; results persisted to", container.DB.Path())
}
