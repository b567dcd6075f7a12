package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONTROLROOM_"

// applyEnv overlays CONTROLROOM_* variables and LOG_LEVEL. Malformed values
// are collected and reported together.
func (c *Config) applyEnv() error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	list := func(name string, dst *[]string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = splitAndTrim(v, ",")
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = f
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	str("LOG_LEVEL", &c.LogLevel)
	str("DESCRIPTION", &c.Description)
	str("DIAGRAM", &c.Diagram)
	if v, ok := os.LookupEnv(EnvPrefix + "SEED"); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSEED: %w", EnvPrefix, err))
		} else {
			c.Seed = seed
		}
	}

	boolean("FLOW_ENABLED", &c.Flow.Enabled)
	duration("FLOW_PERIOD", &c.Flow.Period)
	float("FLOW_SKIP_PROBABILITY", &c.Flow.SkipProbability)
	str("FLOW_POLICY", &c.Flow.Policy)

	boolean("TELEMETRY_ENABLED", &c.Telemetry.Enabled)
	duration("TELEMETRY_PERIOD", &c.Telemetry.Period)
	list("TELEMETRY_SENSORS", &c.Telemetry.Sensors)
	list("TELEMETRY_CONTROLS", &c.Telemetry.Controls)
	float("TELEMETRY_CONTROL_GATE", &c.Telemetry.ControlGate)
	float("TELEMETRY_STATUS_SKIP", &c.Telemetry.StatusSkip)

	integer("HISTORY_MAX_LENGTH", &c.History.MaxLength)
	str("METRICS_ADDR", &c.Metrics.Addr)

	return errors.Join(errs...)
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
