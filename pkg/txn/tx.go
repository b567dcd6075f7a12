package txn

import (
	"github.com/dd0wney/cluso-controlroom/pkg/model"
)

// Tx is the mutable view handed to a Mutator. Reads see the transaction's
// own staged writes; nothing reaches the graph until the commit applies.
type Tx struct {
	graph  *model.Graph
	staged map[string]*model.Node
	writes []model.Write
	done   bool
}

func newTx(g *model.Graph) *Tx {
	return &Tx{
		graph:  g,
		staged: make(map[string]*model.Node),
	}
}

// Get returns the node as this transaction currently sees it.
func (tx *Tx) Get(id string) (model.Node, error) {
	if n, ok := tx.staged[id]; ok {
		return n.Clone(), nil
	}
	return tx.graph.Get(id)
}

// Set stages a write. Unknown nodes, missing fields and wrong value kinds
// fail immediately; bounds are checked when the batch is applied.
func (tx *Tx) Set(id string, field model.Field, v model.Value) error {
	if tx.done {
		return ErrTxDone
	}

	n, ok := tx.staged[id]
	if !ok {
		cur, err := tx.graph.Get(id)
		if err != nil {
			return err
		}
		n = &cur
		tx.staged[id] = n
	}
	if err := n.SetField(field, v); err != nil {
		return model.NewError("set").Node(id).Field(field).Cause(err).Err()
	}

	tx.writes = append(tx.writes, model.Write{NodeID: id, Field: field, Value: v})
	return nil
}

// SetValue stages a write of the node's primary value.
func (tx *Tx) SetValue(id string, v float64) error {
	return tx.Set(id, model.FieldValue, model.NumberValue(v))
}

// SetSubValue stages a write of the i-th monitor row.
func (tx *Tx) SetSubValue(id string, i int, v float64) error {
	return tx.Set(id, model.SubValueField(i), model.NumberValue(v))
}

// SetStatus stages a write of the i-th status indicator.
func (tx *Tx) SetStatus(id string, i int, state string) error {
	return tx.Set(id, model.StatusField(i), model.StatusValue(state))
}

// Writes returns the number of staged writes.
func (tx *Tx) Writes() int {
	return len(tx.writes)
}
