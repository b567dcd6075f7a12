package gesture

import "errors"

// ErrNotEditable is returned when a gesture starts on a node that does not
// accept edits.
var ErrNotEditable = errors.New("node is not editable")

// ErrNoProjector is returned when a pointer position arrives before a
// projector has been set.
var ErrNoProjector = errors.New("no projector configured")
