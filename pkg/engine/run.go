package engine

import (
	"context"
	"sync"
	"time"

	"github.com/dd0wney/cluso-controlroom/pkg/logging"
	"github.com/dd0wney/cluso-controlroom/pkg/model"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// Run drives the flow and telemetry jobs on independent timers until ctx is
// cancelled. Tick failures are logged and counted, never returned.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer e.running.Store(false)
	e.recorder.RecordEngineState(true)
	defer e.recorder.RecordEngineState(false)

	cfg := e.Config()
	capitan.Emit(ctx, EngineStarted,
		KeySession.Field(e.session),
		KeyPeriod.Field(cfg.Flow.Period),
	)
	e.logger.Info("engine started",
		logging.Duration("flow_period", cfg.Flow.Period),
		logging.Duration("telemetry_period", cfg.Telemetry.Period))

	var wg sync.WaitGroup
	for _, job := range []string{JobFlow, JobTelemetry} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.loop(ctx, job)
		}()
	}
	wg.Wait()

	capitan.Emit(context.WithoutCancel(ctx), EngineStopped,
		KeySession.Field(e.session),
	)
	e.logger.Info("engine stopped")
	return nil
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

func (e *Engine) schedule(job string) (time.Duration, bool) {
	cfg := e.Config()
	if job == JobFlow {
		return cfg.Flow.Period, cfg.Flow.Enabled
	}
	return cfg.Telemetry.Period, cfg.Telemetry.Enabled
}

// loop fires one job every period. A wake-up from Reconfigure re-reads the
// schedule and restarts the period. Each wait gets its own timer, since a
// fired timer is not re-armed by every clock implementation.
func (e *Engine) loop(ctx context.Context, job string) {
	for {
		period, enabled := e.schedule(job)

		var timer clockz.Timer
		var timerC <-chan time.Time
		if enabled {
			timer = e.clock.NewTimer(period)
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return
		case <-e.wake[job]:
			stopTimer(timer)
		case <-timerC:
			e.runJob(ctx, job)
		}
	}
}

func stopTimer(t clockz.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (e *Engine) runJob(ctx context.Context, job string) {
	var err error
	if job == JobFlow {
		_, err = e.FlowTick(ctx)
	} else {
		_, err = e.TelemetryTick(ctx)
	}
	switch {
	case err == nil, ctx.Err() != nil:
	case model.IsInvariantViolation(err):
		e.logger.Debug("tick rejected", logging.Job(job), logging.Error(err))
	default:
		e.logger.Warn("tick failed", logging.Job(job), logging.Error(err))
	}
}
