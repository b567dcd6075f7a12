package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dd0wney/cluso-controlroom/pkg/engine"
	"github.com/dd0wney/cluso-controlroom/pkg/metrics"
	"github.com/dd0wney/cluso-controlroom/pkg/model"
	"github.com/dd0wney/cluso-controlroom/pkg/txn"
)

// job is one periodic job on the virtual timeline.
type job struct {
	name   string
	period time.Duration
	next   time.Duration
	tick   func(context.Context) ([]*txn.ChangeSet, error)
}

// record is one line of batch output.
type record struct {
	At     string         `json:"t"`
	Job    string         `json:"job"`
	Change *txn.ChangeSet `json:"change,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// timeline lists the enabled jobs of e, each first due after one period.
func timeline(e *engine.Engine) []*job {
	cfg := e.Config()
	var jobs []*job
	if cfg.Flow.Enabled {
		jobs = append(jobs, &job{
			name:   engine.JobFlow,
			period: cfg.Flow.Period,
			next:   cfg.Flow.Period,
			tick: func(ctx context.Context) ([]*txn.ChangeSet, error) {
				cs, err := e.FlowTick(ctx)
				if cs == nil {
					return nil, err
				}
				return []*txn.ChangeSet{cs}, err
			},
		})
	}
	if cfg.Telemetry.Enabled {
		jobs = append(jobs, &job{
			name:   engine.JobTelemetry,
			period: cfg.Telemetry.Period,
			next:   cfg.Telemetry.Period,
			tick:   e.TelemetryTick,
		})
	}
	return jobs
}

// due returns the job that fires next. Ties go to the earlier job in the
// list.
func due(jobs []*job) *job {
	var next *job
	for _, j := range jobs {
		if next == nil || j.next < next.next {
			next = j
		}
	}
	return next
}

// runBatch fires n ticks in timeline order and writes one record per change
// set. Rejected ticks are written with their error and do not stop the run.
func runBatch(ctx context.Context, e *engine.Engine, n int, w io.Writer) error {
	jobs := timeline(e)
	if len(jobs) == 0 {
		return errors.New("no jobs enabled")
	}

	enc := json.NewEncoder(w)
	for range n {
		j := due(jobs)
		at := j.next
		j.next += j.period

		sets, err := j.tick(ctx)
		for _, cs := range sets {
			if err := enc.Encode(record{At: at.String(), Job: j.name, Change: cs}); err != nil {
				return err
			}
		}
		if err != nil {
			if !model.IsInvariantViolation(err) {
				return fmt.Errorf("%s tick at %s: %w", j.name, at, err)
			}
			if err := enc.Encode(record{At: at.String(), Job: j.name, Error: err.Error()}); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeMetrics prints every counter and gauge sample as name{labels} value.
func writeMetrics(reg *metrics.Registry, w io.Writer) error {
	families, err := reg.GetPrometheusRegistry().Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var v float64
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			default:
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			sort.Strings(labels)
			fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), v)
		}
	}
	return nil
}
