package engine

import (
	"time"

	"github.com/dd0wney/cluso-controlroom/pkg/description"
	"github.com/dd0wney/cluso-controlroom/pkg/gesture"
	"github.com/dd0wney/cluso-controlroom/pkg/logging"
	"github.com/dd0wney/cluso-controlroom/pkg/sim"
	"github.com/dd0wney/cluso-controlroom/pkg/txn"
	"github.com/zoobzio/clockz"
)

// Recorder receives every metric the engine and its parts produce.
// *metrics.Registry satisfies it.
type Recorder interface {
	txn.Recorder
	gesture.Recorder
	RecordTick(job, status string, d time.Duration)
	RecordModel(nodes, edges int)
	SetNodeValue(nodeID string, value float64)
	RecordEngineState(running bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordTransaction(string, string, time.Duration) {}
func (nopRecorder) RecordHistoryDepth(int, int)                     {}
func (nopRecorder) RecordGesture(string)                            {}
func (nopRecorder) RecordTick(string, string, time.Duration)        {}
func (nopRecorder) RecordModel(int, int)                            {}
func (nopRecorder) SetNodeValue(string, float64)                    {}
func (nopRecorder) RecordEngineState(bool)                          {}

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger    logging.Logger
	clock     clockz.Clock
	recorder  Recorder
	rng       sim.Rand
	projector gesture.Projector
	desc      *description.Description
	feed      int
}

// WithLogger sets the logger shared by every part of the engine.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock sets the clock driving the jobs and timestamps.
// Use clockz.FakeClock for deterministic tests.
func WithClock(clock clockz.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithRand replaces the seeded generator. The configured seed is then
// ignored.
func WithRand(rng sim.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// WithProjector sets the drag projector.
func WithProjector(p gesture.Projector) Option {
	return func(o *options) {
		o.projector = p
	}
}

// WithDescription loads d instead of the configured description or diagram.
func WithDescription(d *description.Description) Option {
	return func(o *options) {
		o.desc = d
	}
}

// WithFeedBuffer sets the per-subscriber change feed buffer.
func WithFeedBuffer(n int) Option {
	return func(o *options) {
		o.feed = n
	}
}
