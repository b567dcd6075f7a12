package gesture

import "math"

// Point is a pointer position in the presentation layer's coordinates.
type Point struct {
	X, Y float64
}

// Projector maps a pointer position on a node's port to a value on that
// node's scale. It is owned by the presentation layer.
type Projector interface {
	ProjectPointToValue(nodeID, portID string, p Point) (float64, error)
}

// ProjectorFunc adapts a function to Projector.
type ProjectorFunc func(nodeID, portID string, p Point) (float64, error)

func (f ProjectorFunc) ProjectPointToValue(nodeID, portID string, p Point) (float64, error) {
	return f(nodeID, portID, p)
}

// State of a node's gesture.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Drag is an in-progress gesture.
type Drag struct {
	NodeID        string
	PortID        string
	OriginalValue float64
}

// Recorder receives gesture outcomes.
type Recorder interface {
	RecordGesture(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordGesture(string) {}

// Gesture outcomes passed to Recorder.
const (
	OutcomeStarted   = "started"
	OutcomePreview   = "preview"
	OutcomeIgnored   = "ignored"
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeCancelled = "cancelled"
)

// DefaultLabel labels the undo entry of a completed drag.
const DefaultLabel = "dragged slider"

// round rounds to the nearest integer with halves going up, so -2.5 becomes
// -2, the way JavaScript's Math.round does. The fraction is compared exactly
// so values just below a half never round up.
func round(x float64) float64 {
	f := math.Floor(x)
	if x-f >= 0.5 {
		return f + 1
	}
	return f
}
