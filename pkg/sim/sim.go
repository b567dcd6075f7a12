// Package sim holds the periodic jobs that perturb the graph: the flow job
// that moves one unit along edges, and the telemetry job that jitters sensor
// and control readings. Each tick commits ephemerally through a txn.Manager.
package sim

import (
	"github.com/dd0wney/cluso-controlroom/pkg/logging"
)

// Rand is the random source a scheduler draws from. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
}

// Range is a half-open interval [Lo, Hi) for uniform draws.
type Range struct {
	Lo float64 `yaml:"lo"`
	Hi float64 `yaml:"hi"`
}

func uniform(rng Rand, r Range) float64 {
	return rng.Float64()*(r.Hi-r.Lo) + r.Lo
}

// Option configures a scheduler.
type Option func(*options)

type options struct {
	logger logging.Logger
}

// WithLogger sets the scheduler's logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(job string, opts []Option) options {
	o := options{logger: logging.DefaultLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With(logging.Job(job))
	return o
}
