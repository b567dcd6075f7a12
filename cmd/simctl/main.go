// Command simctl runs the simulation without a terminal UI. In batch mode it
// steps both jobs on a virtual timeline and writes every change set to
// stdout as one JSON object per line; with -i it opens a command prompt.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dd0wney/cluso-controlroom/pkg/config"
	"github.com/dd0wney/cluso-controlroom/pkg/engine"
	"github.com/dd0wney/cluso-controlroom/pkg/gesture"
	"github.com/dd0wney/cluso-controlroom/pkg/logging"
	"github.com/dd0wney/cluso-controlroom/pkg/metrics"
	"github.com/zoobzio/capitan"
)

// valueProjector treats the pointer's X as the value itself.
var valueProjector = gesture.ProjectorFunc(func(_, _ string, p gesture.Point) (float64, error) {
	return p.X, nil
})

func main() {
	configPath := flag.String("config", "", "YAML config file")
	description := flag.String("description", "", "Load description file (JSON, YAML or HCL)")
	diagram := flag.String("diagram", "", "Built-in diagram name (gauges, steam-plant)")
	ticks := flag.Int("ticks", 20, "Number of ticks to run in batch mode")
	seed := flag.Uint64("seed", 0, "Random seed (0 keeps the configured seed)")
	interactive := flag.Bool("i", false, "Open an interactive prompt instead of running ticks")
	dumpMetrics := flag.Bool("metrics", false, "Print Prometheus metrics to stderr on exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simctl: %v\n", err)
		os.Exit(1)
	}
	if *description != "" {
		cfg.Description = *description
	}
	if *diagram != "" {
		cfg.Diagram = *diagram
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	logger := logging.DefaultLogger()
	logger.SetLevel(logging.ParseLevel(strings.ToUpper(cfg.LogLevel)))
	reg := metrics.DefaultRegistry()

	e, err := engine.New(cfg,
		engine.WithLogger(logger),
		engine.WithRecorder(reg),
		engine.WithProjector(valueProjector),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simctl: %v\n", err)
		os.Exit(1)
	}
	defer e.Close()
	defer capitan.Shutdown()

	ctx := context.Background()
	if *interactive {
		r := &REPL{engine: e, scanner: bufio.NewScanner(os.Stdin), out: os.Stdout}
		r.run(ctx)
	} else if err := runBatch(ctx, e, *ticks, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "simctl: %v\n", err)
		os.Exit(1)
	}

	if *dumpMetrics {
		if err := writeMetrics(reg, os.Stderr); err != nil {
			fmt.Fprintf(os.Stderr, "simctl: %v\n", err)
		}
	}
}
