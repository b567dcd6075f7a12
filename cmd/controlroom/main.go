// Command controlroom is the interactive terminal front end: gauges that
// can be dragged with the mouse, and a process overview whose readings
// drift with simulated telemetry.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dd0wney/cluso-controlroom/pkg/config"
	"github.com/dd0wney/cluso-controlroom/pkg/engine"
	"github.com/dd0wney/cluso-controlroom/pkg/logging"
	"github.com/dd0wney/cluso-controlroom/pkg/metrics"
	"github.com/zoobzio/capitan"
)

func main() {
	configPath := flag.String("config", "", "YAML config file, reloaded on change")
	description := flag.String("description", "", "Load description file (JSON, YAML or HCL) instead of the built-in diagrams")
	seed := flag.Uint64("seed", 0, "Random seed (0 keeps the configured seed)")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	logFile := flag.String("log-file", "", "Write JSON logs to this file")
	flag.Parse()

	if err := run(*configPath, *description, *seed, *metricsAddr, *logFile); err != nil {
		fmt.Fprintf(os.Stderr, "controlroom: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, description string, seed uint64, metricsAddr, logFile string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if description != "" {
		cfg.Description = description
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}

	// The terminal belongs to the UI, so logs go to a file or nowhere.
	var out io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	logger := logging.NewJSONLogger(out, logging.ParseLevel(strings.ToUpper(cfg.LogLevel)))
	logging.SetDefaultLogger(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := metrics.NewRegistry()
	tabs, err := openTabs(ctx, cfg, engine.WithLogger(logger), engine.WithRecorder(reg))
	if err != nil {
		return err
	}
	defer closeTabs(tabs)

	if cfg.Metrics.Addr != "" {
		go serveMetrics(ctx, cfg.Metrics.Addr, reg, logger)
	}
	if configPath != "" {
		if err := watchTabs(ctx, configPath, tabs, logger); err != nil {
			logger.Warn("config reload disabled", logging.Error(err))
		}
	}

	wait := runTabs(ctx, tabs, logger)

	p := tea.NewProgram(newUI(ctx, tabs), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()

	cancel()
	wait()
	capitan.Shutdown()
	return err
}

func serveMetrics(ctx context.Context, addr string, reg *metrics.Registry, logger logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", logging.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", logging.Error(err))
	}
}
