package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"carrental/internal/config"
	"carrental/internal/database"
	"carrental/internal/export"
	"carrental/internal/logging"
	"carrental/internal/models"
)

// One-shot report generation, meant for cron and manual runs.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to config file")
		startStr   = flag.String("start", "", "period start (YYYY-MM-DD), defaults to today")
		endStr     = flag.String("end", "", "period end (YYYY-MM-DD), defaults to start+30d")
	)
	flag.Parse()

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" && *configPath == "configs/config.yaml" {
		*configPath = envPath
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}
	logger := baseLogger.With().Str("component", "export-main").Logger()

	start, end, err := parsePeriod(*startStr, *endStr)
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetCars(cfg.Cars)

	exporter := export.NewExporter(db, cfg.Exports.Path, &logger)
	path, err := exporter.WriteSchedule(context.Background(), start, end)
	if err != nil {
		return err
	}

	fmt.Println(path)
	return nil
}

func parsePeriod(startStr, endStr string) (time.Time, time.Time, error) {
	start := time.Now().Truncate(24 * time.Hour)
	if startStr != "" {
		parsed, err := time.Parse(models.DateLayout, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -start: %w", err)
		}
		start = parsed
	}

	end := start.AddDate(0, 0, 30)
	if endStr != "" {
		parsed, err := time.Parse(models.DateLayout, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -end: %w", err)
		}
		end = parsed
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("period start %s is after end %s",
			start.Format(models.DateLayout), end.Format(models.DateLayout))
	}
	return start, end, nil
}
