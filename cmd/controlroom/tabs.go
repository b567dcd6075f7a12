package main

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dd0wney/cluso-controlroom/pkg/config"
	"github.com/dd0wney/cluso-controlroom/pkg/diagrams"
	"github.com/dd0wney/cluso-controlroom/pkg/engine"
	"github.com/dd0wney/cluso-controlroom/pkg/logging"
	"github.com/dd0wney/cluso-controlroom/pkg/pubsub"
	"github.com/dd0wney/cluso-controlroom/pkg/txn"
)

// tab is one diagram with its own engine.
type tab struct {
	title  string
	engine *engine.Engine
	layout *layout
	sub    *pubsub.Subscription[*txn.ChangeSet]
	snap   engine.Snapshot

	// derive adapts the shared config to this tab.
	derive func(*config.Config) *config.Config
}

// tabSpecs lists the tabs for cfg. A custom description gets a single tab
// running both jobs; otherwise the flow job animates the gauges and the
// telemetry job animates the process overview.
func tabSpecs(cfg *config.Config) []*tab {
	if cfg.Description != "" {
		return []*tab{{
			title:  "Diagram",
			derive: func(c *config.Config) *config.Config { return c },
		}}
	}
	return []*tab{
		{
			title: "Gauges",
			derive: func(c *config.Config) *config.Config {
				d := *c
				d.Diagram = diagrams.NameGauges
				d.Telemetry.Enabled = false
				return &d
			},
		},
		{
			title: "Process",
			derive: func(c *config.Config) *config.Config {
				d := *c
				d.Diagram = diagrams.NameSteamPlant
				d.Flow.Enabled = false
				return &d
			},
		},
	}
}

// openTabs builds an engine per tab and subscribes to its change feed.
func openTabs(ctx context.Context, cfg *config.Config, opts ...engine.Option) ([]*tab, error) {
	tabs := tabSpecs(cfg)
	for _, t := range tabs {
		t.layout = newLayout()
		e, err := engine.New(t.derive(cfg), append(slices.Clone(opts), engine.WithProjector(t.layout))...)
		if err != nil {
			closeTabs(tabs)
			return nil, fmt.Errorf("failed to start %s: %w", t.title, err)
		}
		t.engine = e
		t.snap = e.Snapshot()
		t.sub, err = e.Subscribe(ctx)
		if err != nil {
			closeTabs(tabs)
			return nil, fmt.Errorf("failed to subscribe to %s: %w", t.title, err)
		}
	}
	return tabs, nil
}

func closeTabs(tabs []*tab) {
	for _, t := range tabs {
		if t.engine != nil {
			t.engine.Close()
		}
	}
}

// runTabs starts every engine's jobs and returns a wait function.
func runTabs(ctx context.Context, tabs []*tab, logger logging.Logger) func() {
	var wg sync.WaitGroup
	for _, t := range tabs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := t.engine.Run(ctx); err != nil {
				logger.Error("engine stopped", logging.String("tab", t.title), logging.Error(err))
			}
		}()
	}
	return wg.Wait
}

// watchTabs applies every valid reload of the config file to all tabs.
func watchTabs(ctx context.Context, path string, tabs []*tab, logger logging.Logger) error {
	updates, err := config.Watch(ctx, path, logger)
	if err != nil {
		return err
	}
	go func() {
		for cfg := range updates {
			for _, t := range tabs {
				if err := t.engine.Reconfigure(ctx, t.derive(cfg)); err != nil {
					logger.Warn("reconfigure failed", logging.String("tab", t.title), logging.Error(err))
				}
			}
		}
	}()
	return nil
}
