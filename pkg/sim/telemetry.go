package sim

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/dd0wney/cluso-controlroom/pkg/logging"
	"github.com/dd0wney/cluso-controlroom/pkg/model"
	"github.com/dd0wney/cluso-controlroom/pkg/txn"
)

// Flip toggles one status indicator between two palette states.
type Flip struct {
	Index int    `yaml:"index"`
	On    string `yaml:"on"`
	Off   string `yaml:"off"`
}

// TelemetryConfig tunes the telemetry job.
type TelemetryConfig struct {
	// Sensors are nodes whose primary value is jittered every tick.
	Sensors     []string
	SensorNoise Range
	// Controls are monitor nodes whose sub-values and statuses are jittered.
	Controls     []string
	ControlNoise []Range
	// ControlGate is the probability that the control phase runs.
	ControlGate float64
	// StatusSkip is the probability that the status phase is skipped.
	StatusSkip float64
	Flips      []Flip
	// Places is the number of decimals readings are rounded to.
	Places int
}

// DefaultTelemetryConfig matches the steam plant diagram.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Sensors:     []string{"S1", "S2"},
		SensorNoise: Range{Lo: -0.5, Hi: 0.55},
		Controls:    []string{"cTCV102", "cFCV101", "cFM102", "cFM103"},
		ControlNoise: []Range{
			{Lo: -0.5, Hi: 0.55},
			{Lo: -0.3, Hi: 0.35},
			{Lo: -0.2, Hi: 0.2},
		},
		ControlGate: 0.5,
		StatusSkip:  1.0 / 15,
		Flips: []Flip{
			{Index: 0, On: "green", Off: "white"},
			{Index: 1, On: "yellow", Off: "white"},
		},
		Places: 1,
	}
}

func (c TelemetryConfig) clone() TelemetryConfig {
	c.Sensors = slices.Clone(c.Sensors)
	c.Controls = slices.Clone(c.Controls)
	c.ControlNoise = slices.Clone(c.ControlNoise)
	c.Flips = slices.Clone(c.Flips)
	return c
}

// TelemetryScheduler jitters sensor readings, control panel readings and
// control panel status lights. A tick runs up to three ephemeral
// transactions, one per phase.
type TelemetryScheduler struct {
	manager *txn.Manager
	rng     Rand
	logger  logging.Logger

	mu  sync.Mutex
	cfg TelemetryConfig
}

// NewTelemetryScheduler creates the telemetry job.
func NewTelemetryScheduler(m *txn.Manager, rng Rand, cfg TelemetryConfig, opts ...Option) *TelemetryScheduler {
	o := buildOptions("telemetry", opts)
	return &TelemetryScheduler{
		manager: m,
		rng:     rng,
		logger:  o.logger,
		cfg:     cfg.clone(),
	}
}

// Config returns a copy of the current configuration.
func (s *TelemetryScheduler) Config() TelemetryConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.clone()
}

// SetConfig replaces the configuration from the next tick on.
func (s *TelemetryScheduler) SetConfig(cfg TelemetryConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg.clone()
}

// Tick runs the sensor phase, then the control phase if the control gate
// passes, then the status phase unless the status skip hits. A phase whose
// batch is rejected for leaving a node's bounds does not stop later phases;
// those rejections are joined into the returned error. Any other error ends
// the tick.
func (s *TelemetryScheduler) Tick(ctx context.Context) ([]*txn.ChangeSet, error) {
	cfg := s.Config()

	var (
		out      []*txn.ChangeSet
		rejected []error
	)
	run := func(phase string, fn txn.Mutator) error {
		cs, err := s.manager.Commit(ctx, txn.Ephemeral, fn)
		if errors.Is(err, model.ErrInvariantViolation) {
			s.logger.Debug("telemetry phase rejected", logging.Operation(phase), logging.Error(err))
			rejected = append(rejected, err)
			return nil
		}
		if err != nil {
			return err
		}
		if cs != nil {
			out = append(out, cs)
		}
		return nil
	}

	if err := run("sensors", func(tx *txn.Tx) error {
		return s.perturbSensors(tx, cfg)
	}); err != nil {
		return out, err
	}

	if s.rng.Float64() >= cfg.ControlGate {
		return out, errors.Join(rejected...)
	}
	if err := run("controls", func(tx *txn.Tx) error {
		return s.perturbControls(tx, cfg)
	}); err != nil {
		return out, err
	}

	if s.rng.Float64() < cfg.StatusSkip {
		return out, errors.Join(rejected...)
	}
	if err := run("statuses", func(tx *txn.Tx) error {
		return s.flipStatuses(tx, cfg)
	}); err != nil {
		return out, err
	}

	return out, errors.Join(rejected...)
}

func (s *TelemetryScheduler) perturbSensors(tx *txn.Tx, cfg TelemetryConfig) error {
	for _, id := range cfg.Sensors {
		n, err := tx.Get(id)
		if err != nil {
			return err
		}
		v, ok := n.Value.AsNumber()
		if !ok {
			continue
		}
		next := RoundAndFloor(v+uniform(s.rng, cfg.SensorNoise), cfg.Places)
		if err := tx.SetValue(id, next); err != nil {
			return err
		}
	}
	return nil
}

func (s *TelemetryScheduler) perturbControls(tx *txn.Tx, cfg TelemetryConfig) error {
	for _, id := range cfg.Controls {
		n, err := tx.Get(id)
		if err != nil {
			return err
		}
		for i, noise := range cfg.ControlNoise {
			if i >= len(n.SubValues) {
				break
			}
			next := RoundAndFloor(n.SubValues[i].Value+uniform(s.rng, noise), cfg.Places)
			if err := tx.SetSubValue(id, i, next); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *TelemetryScheduler) flipStatuses(tx *txn.Tx, cfg TelemetryConfig) error {
	for _, id := range cfg.Controls {
		n, err := tx.Get(id)
		if err != nil {
			return err
		}
		for _, f := range cfg.Flips {
			if f.Index < 0 || f.Index >= len(n.Statuses) {
				continue
			}
			state := f.Off
			if s.rng.Float64() > 0.5 {
				state = f.On
			}
			if err := tx.SetStatus(id, f.Index, state); err != nil {
				return err
			}
		}
	}
	return nil
}
