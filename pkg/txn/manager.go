// Package txn serializes every mutation of the graph into transactions.
// Recorded transactions become undo entries; ephemeral ones are applied and
// published but never enter history.
package txn

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-controlroom/pkg/logging"
	"github.com/dd0wney/cluso-controlroom/pkg/model"
	"github.com/dd0wney/cluso-controlroom/pkg/pubsub"
	"github.com/google/uuid"
	"github.com/zoobzio/clockz"
)

// Manager owns the write path to a graph. At most one transaction is in
// flight; an overlapping or nested Commit fails with ErrReentrant rather
// than blocking.
type Manager struct {
	graph    *model.Graph
	feed     *pubsub.Feed[*ChangeSet]
	clock    clockz.Clock
	logger   logging.Logger
	recorder Recorder

	busy   atomic.Bool
	nextID atomic.Uint64

	histMu     sync.Mutex
	maxHistory int
	undo       []Entry
	redo       []Entry
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock sets the clock used for timestamps and durations.
func WithClock(clock clockz.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

// WithMaxHistory caps the undo history. Negative means unlimited and zero
// disables recording.
func WithMaxHistory(n int) Option {
	return func(m *Manager) {
		m.maxHistory = n
	}
}

// WithFeedBuffer sets the per-subscriber change feed buffer.
func WithFeedBuffer(n int) Option {
	return func(m *Manager) {
		m.feed = pubsub.NewFeed[*ChangeSet](n)
	}
}

// NewManager creates a manager for g.
func NewManager(g *model.Graph, opts ...Option) *Manager {
	m := &Manager{
		graph:      g,
		clock:      clockz.RealClock,
		logger:     logging.DefaultLogger(),
		recorder:   nopRecorder{},
		maxHistory: -1,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.feed == nil {
		m.feed = pubsub.NewFeed[*ChangeSet](pubsub.DefaultBuffer)
	}
	return m
}

// Graph returns the managed graph for reads.
func (m *Manager) Graph() *model.Graph {
	return m.graph
}

// Subscribe returns a subscription to the change feed.
func (m *Manager) Subscribe(ctx context.Context) (*pubsub.Subscription[*ChangeSet], error) {
	return m.feed.Subscribe(ctx)
}

// Close shuts down the change feed.
func (m *Manager) Close() {
	m.feed.Shutdown()
}

// SetMaxHistory changes the history cap, trimming the oldest entries.
func (m *Manager) SetMaxHistory(n int) {
	m.histMu.Lock()
	m.maxHistory = n
	m.trimLocked()
	undo, redo := len(m.undo), len(m.redo)
	m.histMu.Unlock()
	m.recorder.RecordHistoryDepth(undo, redo)
}

func (m *Manager) acquire(kind string) error {
	if !m.busy.CompareAndSwap(false, true) {
		m.recorder.RecordTransaction(kind, StatusReentrant, 0)
		return ErrReentrant
	}
	return nil
}

func (m *Manager) release() {
	m.busy.Store(false)
}

func modeKind(mode Mode) string {
	if mode.Recorded {
		return "recorded"
	}
	return "ephemeral"
}

// Commit runs fn against a fresh transaction and applies the staged writes
// as one atomic batch. It returns the published change set, or nil when the
// batch changed nothing. A batch that breaks a node's bounds is rejected as
// a whole with model.ErrInvariantViolation.
func (m *Manager) Commit(ctx context.Context, mode Mode, fn Mutator) (*ChangeSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kind := modeKind(mode)
	if err := m.acquire(kind); err != nil {
		return nil, err
	}
	defer m.release()

	start := m.clock.Now()
	tx := newTx(m.graph)
	err := fn(tx)
	tx.done = true
	if err != nil {
		m.recorder.RecordTransaction(kind, StatusAborted, m.clock.Since(start))
		return nil, err
	}

	deltas, err := m.graph.Apply(tx.writes)
	if err != nil {
		m.recorder.RecordTransaction(kind, StatusRejected, m.clock.Since(start))
		m.logger.Debug("transaction rejected",
			logging.Label(mode.Label),
			logging.Recorded(mode.Recorded),
			logging.Int("writes", tx.Writes()),
			logging.Error(err))
		return nil, err
	}
	if len(deltas) == 0 {
		m.recorder.RecordTransaction(kind, StatusNoop, m.clock.Since(start))
		return nil, nil
	}

	if mode.Recorded {
		m.pushUndo(Entry{
			ID:     uuid.NewString(),
			Label:  mode.Label,
			Deltas: deltas,
			At:     start,
		})
	}

	cs := m.publish(KindCommit, mode, deltas, start)
	m.recorder.RecordTransaction(kind, StatusCommitted, m.clock.Since(start))
	return cs, nil
}

func (m *Manager) publish(kind Kind, mode Mode, deltas []model.Delta, at time.Time) *ChangeSet {
	cs := &ChangeSet{
		TxID:     m.nextID.Add(1),
		Kind:     kind,
		Label:    mode.Label,
		Recorded: mode.Recorded,
		Deltas:   deltas,
		At:       at,
	}
	m.logger.Debug("model changed",
		logging.TxID(cs.TxID),
		logging.String("kind", string(kind)),
		logging.Label(cs.Label),
		logging.Recorded(cs.Recorded),
		logging.Count(len(deltas)))
	m.feed.Publish(cs)
	return cs
}

func (m *Manager) pushUndo(e Entry) {
	m.histMu.Lock()
	if m.maxHistory == 0 {
		m.histMu.Unlock()
		return
	}
	m.undo = append(m.undo, e)
	m.redo = nil
	m.trimLocked()
	undo, redo := len(m.undo), len(m.redo)
	m.histMu.Unlock()
	m.recorder.RecordHistoryDepth(undo, redo)
}

func (m *Manager) trimLocked() {
	if m.maxHistory < 0 {
		return
	}
	if over := len(m.undo) - m.maxHistory; over > 0 {
		m.undo = slices.Delete(m.undo, 0, over)
	}
	if over := len(m.redo) - m.maxHistory; over > 0 {
		m.redo = slices.Delete(m.redo, 0, over)
	}
}
