// Package config loads engine settings from YAML, an optional .env file and
// CONTROLROOM_* environment variables, in that order of precedence from low
// to high.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dd0wney/cluso-controlroom/pkg/diagrams"
	"github.com/dd0wney/cluso-controlroom/pkg/sim"
	"github.com/dd0wney/cluso-controlroom/pkg/validation"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of a simulation run.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// Description is a path to a JSON, YAML or HCL description. When empty
	// the built-in Diagram is loaded.
	Description string `yaml:"description"`
	Diagram     string `yaml:"diagram"`

	// Seed drives every random draw. Zero picks a seed at start-up.
	Seed uint64 `yaml:"seed"`

	Flow      FlowConfig      `yaml:"flow"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	History   HistoryConfig   `yaml:"history"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// FlowConfig configures the flow job.
type FlowConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Period          time.Duration `yaml:"period"`
	SkipProbability float64       `yaml:"skip_probability"`
	Policy          string        `yaml:"policy"`
}

// TelemetryConfig configures the telemetry job.
type TelemetryConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Period       time.Duration `yaml:"period"`
	Sensors      []string      `yaml:"sensors"`
	SensorNoise  sim.Range     `yaml:"sensor_noise"`
	Controls     []string      `yaml:"controls"`
	ControlNoise []sim.Range   `yaml:"control_noise"`
	ControlGate  float64       `yaml:"control_gate"`
	StatusSkip   float64       `yaml:"status_skip"`
	Flips        []sim.Flip    `yaml:"flips"`
	Places       int           `yaml:"places"`
}

// HistoryConfig caps the undo history. Negative is unlimited, zero turns
// recording off.
type HistoryConfig struct {
	MaxLength int `yaml:"max_length"`
}

// MetricsConfig configures the Prometheus endpoint. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the settings of the original demo.
func Default() *Config {
	flow := sim.DefaultFlowConfig()
	tel := sim.DefaultTelemetryConfig()
	return &Config{
		LogLevel: "INFO",
		Diagram:  diagrams.NameGauges,
		Flow: FlowConfig{
			Enabled:         true,
			Period:          500 * time.Millisecond,
			SkipProbability: flow.SkipProbability,
			Policy:          string(flow.Policy),
		},
		Telemetry: TelemetryConfig{
			Enabled:      true,
			Period:       550 * time.Millisecond,
			Sensors:      tel.Sensors,
			SensorNoise:  tel.SensorNoise,
			Controls:     tel.Controls,
			ControlNoise: tel.ControlNoise,
			ControlGate:  tel.ControlGate,
			StatusSkip:   tel.StatusSkip,
			Flips:        tel.Flips,
			Places:       tel.Places,
		},
		History: HistoryConfig{MaxLength: -1},
	}
}

// SimFlow converts to the scheduler's configuration.
func (c *Config) SimFlow() sim.FlowConfig {
	return sim.FlowConfig{
		SkipProbability: c.Flow.SkipProbability,
		Policy:          sim.FlowPolicy(c.Flow.Policy),
	}
}

// SimTelemetry converts to the scheduler's configuration.
func (c *Config) SimTelemetry() sim.TelemetryConfig {
	return sim.TelemetryConfig{
		Sensors:      slices.Clone(c.Telemetry.Sensors),
		SensorNoise:  c.Telemetry.SensorNoise,
		Controls:     slices.Clone(c.Telemetry.Controls),
		ControlNoise: slices.Clone(c.Telemetry.ControlNoise),
		ControlGate:  c.Telemetry.ControlGate,
		StatusSkip:   c.Telemetry.StatusSkip,
		Flips:        slices.Clone(c.Telemetry.Flips),
		Places:       c.Telemetry.Places,
	}
}

var (
	logLevels = []string{"DEBUG", "INFO", "WARN", "WARNING", "ERROR"}
	policies  = []string{string(sim.FlowSerialized), string(sim.FlowSnapshot)}
)

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	cv := validation.NewConfigValidator("Config").
		OneOf("LogLevel", strings.ToUpper(c.LogLevel), logLevels).
		When(c.Description == "", func(v *validation.ConfigValidator) {
			v.OneOf("Diagram", c.Diagram, diagrams.Names())
		}).
		When(c.Flow.Enabled, func(v *validation.ConfigValidator) {
			v.MinDuration("Flow.Period", c.Flow.Period, time.Millisecond)
		}).
		Probability("Flow.SkipProbability", c.Flow.SkipProbability).
		OneOf("Flow.Policy", c.Flow.Policy, policies).
		When(c.Telemetry.Enabled, func(v *validation.ConfigValidator) {
			v.MinDuration("Telemetry.Period", c.Telemetry.Period, time.Millisecond)
		}).
		Probability("Telemetry.ControlGate", c.Telemetry.ControlGate).
		Probability("Telemetry.StatusSkip", c.Telemetry.StatusSkip).
		NonNegative("Telemetry.Places", c.Telemetry.Places).
		Custom("Telemetry.SensorNoise", func() error {
			return checkRange(c.Telemetry.SensorNoise)
		}).
		Custom("Telemetry.ControlNoise", func() error {
			for i, r := range c.Telemetry.ControlNoise {
				if err := checkRange(r); err != nil {
					return fmt.Errorf("[%d]: %w", i, err)
				}
			}
			return nil
		}).
		Custom("Telemetry.Flips", func() error {
			for i, f := range c.Telemetry.Flips {
				if f.Index < 0 {
					return fmt.Errorf("[%d]: negative index %d", i, f.Index)
				}
				if f.On == "" || f.Off == "" {
					return fmt.Errorf("[%d]: on and off states are required", i)
				}
			}
			return nil
		})
	return cv.Validate()
}

func checkRange(r sim.Range) error {
	if r.Lo > r.Hi {
		return fmt.Errorf("lo %g is above hi %g", r.Lo, r.Hi)
	}
	return nil
}

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	envFiles []string
}

// WithEnvFiles sets the .env files read before environment overrides.
// Missing files are skipped. The default is ".env".
func WithEnvFiles(files ...string) Option {
	return func(o *loadOptions) {
		o.envFiles = files
	}
}

// Load builds a Config from defaults, the YAML file at path (if any), .env
// files and the environment, then validates it.
func Load(path string, opts ...Option) (*Config, error) {
	o := loadOptions{envFiles: []string{".env"}}
	for _, opt := range opts {
		opt(&o)
	}

	for _, f := range o.envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	return load(path)
}

func load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. The
// environment is not consulted.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	// Keys present but left blank mean "use the default".
	def := Default()
	c.LogLevel = validation.DefaultOr(c.LogLevel, def.LogLevel)
	c.Diagram = validation.DefaultOr(c.Diagram, def.Diagram)
	c.Flow.Policy = validation.DefaultOr(c.Flow.Policy, def.Flow.Policy)
	return nil
}
