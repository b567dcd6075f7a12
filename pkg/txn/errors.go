package txn

import "errors"

var (
	// ErrReentrant is returned when a commit starts while another is in
	// flight, including a mutator calling Commit on its own manager.
	ErrReentrant     = errors.New("transaction already in progress")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrTxDone        = errors.New("transaction has already been committed or aborted")
)
