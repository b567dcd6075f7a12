// Package engine wires the graph, the transaction manager, the drag
// controller and the two periodic jobs into one simulation. Every entry point
// takes the engine mutex, so exactly one transaction is in flight at a time.
package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/dd0wney/cluso-controlroom/pkg/config"
	"github.com/dd0wney/cluso-controlroom/pkg/description"
	"github.com/dd0wney/cluso-controlroom/pkg/diagrams"
	"github.com/dd0wney/cluso-controlroom/pkg/gesture"
	"github.com/dd0wney/cluso-controlroom/pkg/logging"
	"github.com/dd0wney/cluso-controlroom/pkg/model"
	"github.com/dd0wney/cluso-controlroom/pkg/pubsub"
	"github.com/dd0wney/cluso-controlroom/pkg/sim"
	"github.com/dd0wney/cluso-controlroom/pkg/txn"
	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// Job names used in logs, metrics and signals.
const (
	JobFlow      = "flow"
	JobTelemetry = "telemetry"
)

// Tick statuses passed to Recorder.RecordTick.
const (
	TickStatusOK       = "ok"
	TickStatusNoop     = "noop"
	TickStatusRejected = "rejected"
	TickStatusError    = "error"
)

// ErrRunning is returned by Run when the jobs are already running.
var ErrRunning = errors.New("engine is already running")

// Engine is a running simulation over one loaded diagram.
type Engine struct {
	mu        sync.Mutex
	cfg       config.Config
	graph     *model.Graph
	manager   *txn.Manager
	gestures  *gesture.Controller
	flow      *sim.FlowScheduler
	telemetry *sim.TelemetryScheduler

	clock    clockz.Clock
	seed     uint64
	session  string
	logger   logging.Logger
	recorder Recorder

	running atomic.Bool
	wake    map[string]chan struct{}
}

// Snapshot is a consistent copy of the whole graph.
type Snapshot struct {
	Nodes []model.Node
	Edges []model.Edge
}

// New loads the diagram named by cfg and builds an engine around it. The
// jobs do not start until Run is called.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, model.NewError("new engine").Cause(model.ErrConfig).Context("%v", err).Err()
	}

	o := options{
		logger:   logging.DefaultLogger(),
		clock:    clockz.RealClock,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	session := uuid.New().String()
	logger := o.logger.With(logging.Component("engine"), logging.String("session", session))

	desc := o.desc
	if desc == nil {
		var err error
		desc, err = loadDescription(cfg, logger)
		if err != nil {
			return nil, err
		}
	}
	g, err := model.Load(desc, logger)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	rng := o.rng
	if rng == nil {
		if seed == 0 {
			seed = uint64(o.clock.Now().UnixNano())
			logger.Info("picked random seed", logging.Uint64("seed", seed))
		}
		rng = rand.New(rand.NewPCG(seed, ^seed))
	}

	m := txn.NewManager(g,
		txn.WithLogger(logger),
		txn.WithClock(o.clock),
		txn.WithRecorder(o.recorder),
		txn.WithMaxHistory(cfg.History.MaxLength),
		txn.WithFeedBuffer(o.feed),
	)

	e := &Engine{
		cfg:     *cfg,
		graph:   g,
		manager: m,
		gestures: gesture.NewController(m, o.projector,
			gesture.WithLogger(logger),
			gesture.WithRecorder(o.recorder)),
		flow: sim.NewFlowScheduler(m, rng, cfg.SimFlow(),
			sim.WithLogger(logger)),
		telemetry: sim.NewTelemetryScheduler(m, rng, telemetryFor(g, cfg, logger),
			sim.WithLogger(logger)),
		clock:    o.clock,
		seed:     seed,
		session:  session,
		logger:   logger,
		recorder: o.recorder,
		wake: map[string]chan struct{}{
			JobFlow:      make(chan struct{}, 1),
			JobTelemetry: make(chan struct{}, 1),
		},
	}

	e.recorder.RecordModel(g.Len(), len(g.Edges()))
	for _, n := range g.Nodes() {
		if v, ok := n.Value.AsNumber(); ok {
			e.recorder.SetNodeValue(n.ID, v)
		}
	}

	logger.Info("engine ready",
		logging.Count(g.Len()),
		logging.Int("edges", len(g.Edges())),
		logging.Uint64("seed", seed))
	return e, nil
}

func loadDescription(cfg *config.Config, logger logging.Logger) (*description.Description, error) {
	if cfg.Description != "" {
		return description.LoadFile(cfg.Description, description.WithLogger(logger))
	}
	return diagrams.ByName(cfg.Diagram, description.WithLogger(logger))
}

// telemetryFor drops sensors and controls the loaded diagram does not have,
// so one configuration serves every diagram.
func telemetryFor(g *model.Graph, cfg *config.Config, logger logging.Logger) sim.TelemetryConfig {
	tc := cfg.SimTelemetry()
	present := func(ids []string) []string {
		kept := ids[:0]
		for _, id := range ids {
			if _, err := g.Get(id); model.IsNotFound(err) {
				logger.Debug("telemetry target not in diagram", logging.NodeID(id))
				continue
			}
			kept = append(kept, id)
		}
		return kept
	}
	tc.Sensors = present(tc.Sensors)
	tc.Controls = present(tc.Controls)
	return tc
}

// Session identifies this engine instance in logs and signals.
func (e *Engine) Session() string {
	return e.session
}

// Seed is the seed of the generator, or the configured seed when a custom
// generator was injected.
func (e *Engine) Seed() uint64 {
	return e.seed
}

// Config returns a copy of the active settings.
func (e *Engine) Config() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Get returns a copy of one node.
func (e *Engine) Get(id string) (model.Node, error) {
	return e.graph.Get(id)
}

// Snapshot returns every node and edge, taken between transactions.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{Nodes: e.graph.Nodes(), Edges: e.graph.Edges()}
}

// Subscribe returns a subscription to every change set the engine commits.
// A subscriber that falls behind loses messages and should re-read Snapshot.
func (e *Engine) Subscribe(ctx context.Context) (*pubsub.Subscription[*txn.ChangeSet], error) {
	return e.manager.Subscribe(ctx)
}

// History returns copies of the undo and redo stacks, oldest first.
func (e *Engine) History() (undo, redo []txn.Entry) {
	return e.manager.History()
}

// CanUndo reports whether Undo would do anything.
func (e *Engine) CanUndo() bool {
	return e.manager.CanUndo()
}

// CanRedo reports whether Redo would do anything.
func (e *Engine) CanRedo() bool {
	return e.manager.CanRedo()
}

// Close ends every change feed subscription.
func (e *Engine) Close() {
	e.manager.Close()
}

// SetProjector replaces the drag projector.
func (e *Engine) SetProjector(p gesture.Projector) {
	e.gestures.SetProjector(p)
}

// GestureState reports whether a node is being dragged.
func (e *Engine) GestureState(nodeID string) (gesture.State, gesture.Drag) {
	return e.gestures.State(nodeID)
}

// PointerDown starts dragging a node.
func (e *Engine) PointerDown(ctx context.Context, nodeID, portID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gestures.PointerDown(ctx, nodeID, portID)
}

// PointerMove previews the drag without recording it.
func (e *Engine) PointerMove(ctx context.Context, nodeID string, p gesture.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.gestures.PointerMove(ctx, nodeID, p)
	e.refreshNode(nodeID)
	return err
}

// PointerUp commits the drag as one undo step.
func (e *Engine) PointerUp(ctx context.Context, nodeID string, p gesture.Point) (*txn.ChangeSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cs, err := e.gestures.PointerUp(ctx, nodeID, p)
	if err != nil || cs == nil {
		e.refreshNode(nodeID)
		return cs, err
	}
	e.observe(cs)
	capitan.Emit(ctx, GestureCommitted,
		KeySession.Field(e.session),
		KeyNodeID.Field(nodeID),
		KeyLabel.Field(cs.Label),
	)
	return cs, nil
}

// PointerCancel abandons the drag and restores the original value.
func (e *Engine) PointerCancel(ctx context.Context, nodeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.gestures.PointerCancel(ctx, nodeID)
	e.refreshNode(nodeID)
	return err
}

// Undo reverts the most recent recorded change. It returns nil when the
// graph already held the values being restored; the entry still moves to
// the redo stack.
func (e *Engine) Undo(ctx context.Context) (*txn.ChangeSet, error) {
	return e.moveHistory(ctx, txn.KindUndo, e.manager.Undo)
}

// Redo reapplies the most recently undone change.
func (e *Engine) Redo(ctx context.Context) (*txn.ChangeSet, error) {
	return e.moveHistory(ctx, txn.KindRedo, e.manager.Redo)
}

func (e *Engine) moveHistory(ctx context.Context, kind txn.Kind, step func(context.Context) (*txn.ChangeSet, error)) (*txn.ChangeSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cs, err := step(ctx)
	if err != nil || cs == nil {
		return nil, err
	}
	e.observe(cs)
	capitan.Emit(ctx, HistoryMoved,
		KeySession.Field(e.session),
		KeyDirection.Field(string(kind)),
		KeyLabel.Field(cs.Label),
		KeyDeltas.Field(len(cs.Deltas)),
	)
	return cs, nil
}

// FlowTick runs one flow step now. It returns nil when nothing moved.
func (e *Engine) FlowTick(ctx context.Context) (*txn.ChangeSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	op := logging.StartTimer(e.logger, e.clock, "tick", logging.Job(JobFlow))
	cs, err := e.flow.Tick(ctx)
	e.finishTick(ctx, op, JobFlow, err, cs)
	return cs, err
}

// TelemetryTick runs one telemetry step now and returns the change set of
// every phase that changed something.
func (e *Engine) TelemetryTick(ctx context.Context) ([]*txn.ChangeSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	op := logging.StartTimer(e.logger, e.clock, "tick", logging.Job(JobTelemetry))
	out, err := e.telemetry.Tick(ctx)
	e.finishTick(ctx, op, JobTelemetry, err, out...)
	return out, err
}

func (e *Engine) finishTick(ctx context.Context, op *logging.TimedOperation, job string, err error, sets ...*txn.ChangeSet) {
	changed := 0
	for _, cs := range sets {
		if cs != nil {
			e.observe(cs)
			changed++
		}
	}

	status := TickStatusOK
	switch {
	case model.IsInvariantViolation(err):
		status = TickStatusRejected
		capitan.Emit(ctx, TickRejected,
			KeySession.Field(e.session),
			KeyJob.Field(job),
			KeyError.Field(err.Error()),
		)
	case err != nil:
		status = TickStatusError
		capitan.Emit(ctx, TickFailed,
			KeySession.Field(e.session),
			KeyJob.Field(job),
			KeyError.Field(err.Error()),
		)
	case changed == 0:
		status = TickStatusNoop
	}
	e.recorder.RecordTick(job, status, op.Elapsed())
	op.EndWithLevel(logging.DebugLevel, logging.String("status", status), logging.Count(changed))
}

// observe mirrors the value deltas of a committed change set into metrics.
func (e *Engine) observe(cs *txn.ChangeSet) {
	for _, d := range cs.Deltas {
		if d.Field != model.FieldValue {
			continue
		}
		if v, ok := d.New.AsNumber(); ok {
			e.recorder.SetNodeValue(d.NodeID, v)
		}
	}
}

// refreshNode updates the value gauge of a node changed outside a tick or a
// recorded commit.
func (e *Engine) refreshNode(nodeID string) {
	n, err := e.graph.Get(nodeID)
	if err != nil {
		return
	}
	if v, ok := n.Value.AsNumber(); ok {
		e.recorder.SetNodeValue(nodeID, v)
	}
}

// Reconfigure replaces the tunable settings of a live engine: scheduler
// parameters, job periods and the history cap. Description, diagram and seed
// only take effect on a new engine.
func (e *Engine) Reconfigure(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return model.NewError("reconfigure").Cause(model.ErrConfig).Context("nil config").Err()
	}
	if err := cfg.Validate(); err != nil {
		return model.NewError("reconfigure").Cause(model.ErrConfig).Context("%v", err).Err()
	}

	e.mu.Lock()
	old := e.cfg
	e.cfg = *cfg
	e.flow.SetConfig(cfg.SimFlow())
	e.telemetry.SetConfig(telemetryFor(e.graph, cfg, e.logger))
	e.manager.SetMaxHistory(cfg.History.MaxLength)
	e.mu.Unlock()

	if old.Description != cfg.Description || old.Diagram != cfg.Diagram || old.Seed != cfg.Seed {
		e.logger.Warn("description and seed changes need a restart",
			logging.Path(cfg.Description),
			logging.String("diagram", cfg.Diagram))
	}

	for _, ch := range e.wake {
		select {
		case ch <- struct{}{}:
		default:
		}
	}

	capitan.Emit(ctx, Reconfigured,
		KeySession.Field(e.session),
		KeyPeriod.Field(cfg.Flow.Period),
	)
	e.logger.Info("engine reconfigured",
		logging.Duration("flow_period", cfg.Flow.Period),
		logging.Duration("telemetry_period", cfg.Telemetry.Period),
		logging.Int("max_history", cfg.History.MaxLength))
	return nil
}
