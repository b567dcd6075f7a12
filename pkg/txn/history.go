package txn

import (
	"context"
	"slices"

	"github.com/dd0wney/cluso-controlroom/pkg/model"
)

// Undo reverts the most recent recorded transaction and moves it to the
// redo stack.
func (m *Manager) Undo(ctx context.Context) (*ChangeSet, error) {
	return m.step(ctx, KindUndo)
}

// Redo re-applies the most recently undone transaction.
func (m *Manager) Redo(ctx context.Context) (*ChangeSet, error) {
	return m.step(ctx, KindRedo)
}

func (m *Manager) step(ctx context.Context, kind Kind) (*ChangeSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.acquire(string(kind)); err != nil {
		return nil, err
	}
	defer m.release()

	start := m.clock.Now()

	m.histMu.Lock()
	from, to := &m.undo, &m.redo
	empty := ErrNothingToUndo
	if kind == KindRedo {
		from, to = &m.redo, &m.undo
		empty = ErrNothingToRedo
	}
	if len(*from) == 0 {
		m.histMu.Unlock()
		return nil, empty
	}
	entry := (*from)[len(*from)-1]
	m.histMu.Unlock()

	deltas, err := m.graph.Apply(entryWrites(entry, kind))
	if err != nil {
		m.recorder.RecordTransaction(string(kind), StatusRejected, m.clock.Since(start))
		return nil, err
	}

	m.histMu.Lock()
	*from = (*from)[:len(*from)-1]
	*to = append(*to, entry)
	m.trimLocked()
	undo, redo := len(m.undo), len(m.redo)
	m.histMu.Unlock()
	m.recorder.RecordHistoryDepth(undo, redo)

	if len(deltas) == 0 {
		m.recorder.RecordTransaction(string(kind), StatusNoop, m.clock.Since(start))
		return nil, nil
	}
	cs := m.publish(kind, Recorded(entry.Label), deltas, start)
	m.recorder.RecordTransaction(string(kind), StatusCommitted, m.clock.Since(start))
	return cs, nil
}

// entryWrites restores Old values in reverse order for undo and New values
// in forward order for redo.
func entryWrites(e Entry, kind Kind) []model.Write {
	writes := make([]model.Write, 0, len(e.Deltas))
	if kind == KindUndo {
		for i := len(e.Deltas) - 1; i >= 0; i-- {
			d := e.Deltas[i]
			writes = append(writes, model.Write{NodeID: d.NodeID, Field: d.Field, Value: d.Old})
		}
		return writes
	}
	for _, d := range e.Deltas {
		writes = append(writes, model.Write{NodeID: d.NodeID, Field: d.Field, Value: d.New})
	}
	return writes
}

// History returns copies of the undo and redo stacks, oldest first.
func (m *Manager) History() (undo, redo []Entry) {
	m.histMu.Lock()
	defer m.histMu.Unlock()
	return slices.Clone(m.undo), slices.Clone(m.redo)
}

// CanUndo reports whether Undo has an entry to revert.
func (m *Manager) CanUndo() bool {
	m.histMu.Lock()
	defer m.histMu.Unlock()
	return len(m.undo) > 0
}

// CanRedo reports whether Redo has an entry to re-apply.
func (m *Manager) CanRedo() bool {
	m.histMu.Lock()
	defer m.histMu.Unlock()
	return len(m.redo) > 0
}
