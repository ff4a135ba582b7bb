package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"go.uber.org/zap"

	"demand-forecast/internal/chart"
	"demand-forecast/internal/client"
	"demand-forecast/internal/config"
	"demand-forecast/internal/forecast"
	"demand-forecast/internal/logging"
)

func main() {
	config.LoadEnvFiles()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	startDate string
	startTime string
	endDate   string
	endTime   string
	url       string
	chartPath string
	verbose   bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("forecast", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.startDate, "start-date", "", "start date, e.g. 2026-11-20")
	fs.StringVar(&opts.startTime, "start-time", "00:00", "start time (HH:MM)")
	fs.StringVar(&opts.endDate, "end-date", "", "end date, e.g. 2026-11-21")
	fs.StringVar(&opts.endTime, "end-time", "23:59", "end time (HH:MM)")
	fs.StringVar(&opts.url, "url", "", "prediction service base URL (default $PREDICT_SERVICE_URL)")
	fs.StringVar(&opts.chartPath, "chart", "", "write the Chart.js config to this file")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

// run executes one forecast and prints the output text. It returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "forecast: %v\n", err)
		return 2
	}
	if opts.url != "" {
		cfg.PredictServiceURL = opts.url
	}

	var logger *zap.SugaredLogger
	if opts.verbose {
		logger, err = logging.New(false)
	} else {
		logger, err = logging.NewQuiet()
	}
	if err != nil {
		log.Printf("forecast: %v", err)
		logger = zap.NewNop().Sugar()
	}
	defer func() { _ = logger.Sync() }()

	panel := forecast.NewPanel()
	panel.Set(forecast.FieldStartDate, opts.startDate)
	panel.Set(forecast.FieldStartTime, opts.startTime)
	panel.Set(forecast.FieldEndDate, opts.endDate)
	panel.Set(forecast.FieldEndTime, opts.endTime)

	board := chart.NewBoard()
	predictor := client.NewClient(cfg.PredictServiceURL, cfg.PredictTimeout, logger)
	adapter := forecast.NewAdapter(panel, panel, predictor, forecast.NewRenderer(panel, board), logger)

	res := adapter.Fetch(context.Background())
	fmt.Fprintln(stdout, panel.Text())

	if !res.Outcome.OK() {
		return 1
	}
	if opts.chartPath != "" && res.Chart != nil {
		if err := writeChart(opts.chartPath, res.Chart.Config); err != nil {
			fmt.Fprintf(stderr, "forecast: %v\n", err)
			return 1
		}
	}
	return 0
}

func writeChart(path string, cfg chart.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}
