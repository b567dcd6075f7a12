// Package gesture turns pointer input on a gauge into transactions: a stream
// of ephemeral previews while dragging and one recorded step on release.
package gesture

import (
	"context"
	"errors"
	"sync"

	"github.com/dd0wney/cluso-controlroom/pkg/logging"
	"github.com/dd0wney/cluso-controlroom/pkg/model"
	"github.com/dd0wney/cluso-controlroom/pkg/txn"
)

// Controller tracks at most one drag per node.
type Controller struct {
	manager   *txn.Manager
	projector Projector
	logger    logging.Logger
	recorder  Recorder
	label     string

	mu    sync.Mutex
	drags map[string]Drag
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithRecorder sets the gesture metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithLabel overrides the undo label of a completed drag.
func WithLabel(label string) Option {
	return func(c *Controller) {
		c.label = label
	}
}

// NewController creates a controller committing through m and projecting
// pointer positions with p.
func NewController(m *txn.Manager, p Projector, opts ...Option) *Controller {
	c := &Controller{
		manager:   m,
		projector: p,
		logger:    logging.DefaultLogger(),
		recorder:  nopRecorder{},
		label:     DefaultLabel,
		drags:     make(map[string]Drag),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logging.Component("gesture"))
	return c
}

// SetProjector replaces the projector. The presentation layer calls this
// when its geometry changes.
func (c *Controller) SetProjector(p Projector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projector = p
}

// State reports the gesture state of a node.
func (c *Controller) State(nodeID string) (State, Drag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.drags[nodeID]; ok {
		return Dragging, d
	}
	return Idle, Drag{}
}

// Active returns the number of gestures in progress.
func (c *Controller) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.drags)
}

// PointerDown starts a drag on nodeID and remembers its current value.
func (c *Controller) PointerDown(ctx context.Context, nodeID, portID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.drags[nodeID]; busy {
		return model.NewError("pointer down").Node(nodeID).Cause(txn.ErrReentrant).
			Context("gesture already in progress").Err()
	}

	n, err := c.manager.Graph().Get(nodeID)
	if err != nil {
		return err
	}
	if !n.Editable {
		return model.NewError("pointer down").Node(nodeID).Cause(ErrNotEditable).Err()
	}
	v, ok := n.Value.AsNumber()
	if !ok {
		return model.NewError("pointer down").Node(nodeID).Field(model.FieldValue).Cause(model.ErrFieldNotFound).Err()
	}

	c.drags[nodeID] = Drag{NodeID: nodeID, PortID: portID, OriginalValue: v}
	c.recorder.RecordGesture(OutcomeStarted)
	c.logger.Debug("drag started", logging.NodeID(nodeID), logging.Float64("original", v))
	return nil
}

// PointerMove previews the projected value. A value outside the node's
// bounds is ignored. Moves on an idle node are ignored.
func (c *Controller) PointerMove(ctx context.Context, nodeID string, p Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.drags[nodeID]
	if !ok {
		return nil
	}
	val, err := c.project(d, p)
	if err != nil {
		return err
	}

	_, err = c.manager.Commit(ctx, txn.Ephemeral, func(tx *txn.Tx) error {
		return tx.SetValue(nodeID, val)
	})
	if errors.Is(err, model.ErrInvariantViolation) {
		c.recorder.RecordGesture(OutcomeIgnored)
		return nil
	}
	if err != nil {
		return err
	}
	c.recorder.RecordGesture(OutcomePreview)
	return nil
}

// PointerUp ends the drag. The preview is first reset to the original value
// ephemerally, then the final value is committed as one recorded step, so
// the undo entry is exactly original -> final. It returns the recorded
// change set, or nil if the release changed nothing or was out of bounds.
func (c *Controller) PointerUp(ctx context.Context, nodeID string, p Point) (*txn.ChangeSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.drags[nodeID]
	if !ok {
		return nil, nil
	}
	delete(c.drags, nodeID)

	val, projErr := c.project(d, p)

	if err := c.restore(ctx, d); err != nil {
		return nil, err
	}
	if projErr != nil {
		c.recorder.RecordGesture(OutcomeCancelled)
		return nil, projErr
	}

	cs, err := c.manager.Commit(ctx, txn.Recorded(c.label), func(tx *txn.Tx) error {
		return tx.SetValue(nodeID, val)
	})
	if errors.Is(err, model.ErrInvariantViolation) {
		c.recorder.RecordGesture(OutcomeRejected)
		c.logger.Debug("drag released out of bounds", logging.NodeID(nodeID), logging.Float64("value", val))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.recorder.RecordGesture(OutcomeCommitted)
	c.logger.Debug("drag committed",
		logging.NodeID(nodeID),
		logging.Float64("original", d.OriginalValue),
		logging.Float64("value", val))
	return cs, nil
}

// PointerCancel ends the drag and restores the original value without
// recording anything.
func (c *Controller) PointerCancel(ctx context.Context, nodeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.drags[nodeID]
	if !ok {
		return nil
	}
	delete(c.drags, nodeID)

	if err := c.restore(ctx, d); err != nil {
		return err
	}
	c.recorder.RecordGesture(OutcomeCancelled)
	return nil
}

func (c *Controller) project(d Drag, p Point) (float64, error) {
	if c.projector == nil {
		return 0, model.NewError("project").Node(d.NodeID).Cause(ErrNoProjector).Err()
	}
	v, err := c.projector.ProjectPointToValue(d.NodeID, d.PortID, p)
	if err != nil {
		return 0, model.NewError("project").Node(d.NodeID).Cause(err).Err()
	}
	return round(v), nil
}

func (c *Controller) restore(ctx context.Context, d Drag) error {
	_, err := c.manager.Commit(ctx, txn.Ephemeral, func(tx *txn.Tx) error {
		return tx.SetValue(d.NodeID, d.OriginalValue)
	})
	return err
}
