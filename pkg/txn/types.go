package txn

import (
	"time"

	"github.com/dd0wney/cluso-controlroom/pkg/model"
)

// Mode selects whether a commit enters the undo history.
type Mode struct {
	Recorded bool
	Label    string
}

// Ephemeral commits are applied and published but never recorded.
var Ephemeral = Mode{}

// Recorded returns a mode whose commit becomes one undo entry.
func Recorded(label string) Mode {
	return Mode{Recorded: true, Label: label}
}

// Kind says what produced a change set.
type Kind string

const (
	KindCommit Kind = "commit"
	KindUndo   Kind = "undo"
	KindRedo   Kind = "redo"
)

// ChangeSet is published once per transaction that changed something.
type ChangeSet struct {
	TxID     uint64        `json:"tx"`
	Kind     Kind          `json:"kind"`
	Label    string        `json:"label,omitempty"`
	Recorded bool          `json:"recorded"`
	Deltas   []model.Delta `json:"deltas"`
	At       time.Time     `json:"at"`
}

// Entry is one step of undo history.
type Entry struct {
	ID     string
	Label  string
	Deltas []model.Delta
	At     time.Time
}

// Mutator stages writes on a transaction. Returning an error aborts the
// transaction and nothing is applied.
type Mutator func(tx *Tx) error

// Recorder receives transaction metrics.
type Recorder interface {
	RecordTransaction(kind, status string, d time.Duration)
	RecordHistoryDepth(undo, redo int)
}

type nopRecorder struct{}

func (nopRecorder) RecordTransaction(string, string, time.Duration) {}
func (nopRecorder) RecordHistoryDepth(int, int)                     {}

// Transaction status labels passed to Recorder.
const (
	StatusCommitted = "committed"
	StatusNoop      = "noop"
	StatusRejected  = "rejected"
	StatusAborted   = "aborted"
	StatusReentrant = "reentrant"
)
