package sim

import (
	"testing"

	"github.com/dd0wney/cluso-controlroom/pkg/description"
	"github.com/dd0wney/cluso-controlroom/pkg/logging"
	"github.com/dd0wney/cluso-controlroom/pkg/model"
	"github.com/dd0wney/cluso-controlroom/pkg/txn"
	"github.com/stretchr/testify/require"
)

// scripted returns its values in order, then keeps returning the last one.
type scripted struct {
	vals  []float64
	draws int
}

func seq(vals ...float64) *scripted {
	return &scripted{vals: vals}
}

func (s *scripted) Float64() float64 {
	i := s.draws
	s.draws++
	if i >= len(s.vals) {
		return s.vals[len(s.vals)-1]
	}
	return s.vals[i]
}

func newManager(t *testing.T, desc *description.Description) *txn.Manager {
	t.Helper()
	g, err := model.Load(desc, logging.NewNopLogger())
	require.NoError(t, err)
	m := txn.NewManager(g, txn.WithLogger(logging.NewNopLogger()))
	t.Cleanup(m.Close)
	return m
}

func gauge(key string, value float64) description.NodeRecord {
	return description.NodeRecord{Key: description.StringKey(key), Value: description.Num(value)}
}

func link(from, to string) description.EdgeRecord {
	return description.EdgeRecord{From: description.StringKey(from), To: description.StringKey(to)}
}

func valueOf(t *testing.T, m *txn.Manager, id string) float64 {
	t.Helper()
	n, err := m.Graph().Get(id)
	require.NoError(t, err)
	return n.Value.Float()
}
