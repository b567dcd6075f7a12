package engine

import "github.com/zoobzio/capitan"

// Lifecycle signals emitted by the engine.
var (
	EngineStarted    = capitan.NewSignal("controlroom.engine.started", "Engine jobs started")
	EngineStopped    = capitan.NewSignal("controlroom.engine.stopped", "Engine jobs stopped")
	TickRejected     = capitan.NewSignal("controlroom.tick.rejected", "Tick batch left a node out of bounds")
	TickFailed       = capitan.NewSignal("controlroom.tick.failed", "Tick ended with an error")
	GestureCommitted = capitan.NewSignal("controlroom.gesture.committed", "Drag recorded as one undo step")
	HistoryMoved     = capitan.NewSignal("controlroom.history.moved", "Undo or redo applied")
	Reconfigured     = capitan.NewSignal("controlroom.engine.reconfigured", "Engine settings replaced")
)

// Field keys for engine events.
var (
	KeySession   = capitan.NewStringKey("session")
	KeyJob       = capitan.NewStringKey("job")
	KeyNodeID    = capitan.NewStringKey("node")
	KeyLabel     = capitan.NewStringKey("label")
	KeyDirection = capitan.NewStringKey("direction")
	KeyError     = capitan.NewStringKey("error")
	KeyPeriod    = capitan.NewDurationKey("period")
	KeyDeltas    = capitan.NewIntKey("deltas")
)
