package sim

import (
	"context"
	"testing"

	"github.com/dd0wney/cluso-controlroom/pkg/description"
	"github.com/dd0wney/cluso-controlroom/pkg/logging"
	"github.com/dd0wney/cluso-controlroom/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowTick_Boundary(t *testing.T) {
	m := newManager(t, &description.Description{
		Nodes: []description.NodeRecord{gauge("src", 1), gauge("dst", 99)},
		Edges: []description.EdgeRecord{link("src", "dst")},
	})
	s := NewFlowScheduler(m, seq(0.5), DefaultFlowConfig(), WithLogger(logging.NewNopLogger()))

	cs, err := s.Tick(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cs)
	assert.False(t, cs.Recorded)
	assert.Equal(t, 0.0, valueOf(t, m, "src"))
	assert.Equal(t, 100.0, valueOf(t, m, "dst"))

	// Source at its minimum and target at its maximum: never fires.
	for i := 0; i < 5; i++ {
		cs, err = s.Tick(context.Background())
		require.NoError(t, err)
		assert.Nil(t, cs)
	}
	assert.False(t, m.CanUndo())
}

func TestFlowTick_SourceAtMinNeverFires(t *testing.T) {
	src := gauge("src", 10)
	src.Min = description.Num(10)
	m := newManager(t, &description.Description{
		Nodes: []description.NodeRecord{src, gauge("dst", 50)},
		Edges: []description.EdgeRecord{link("src", "dst")},
	})

	for _, roll := range []float64{0, 0.2, 0.5, 0.99} {
		s := NewFlowScheduler(m, seq(roll), DefaultFlowConfig(), WithLogger(logging.NewNopLogger()))
		cs, err := s.Tick(context.Background())
		require.NoError(t, err)
		assert.Nil(t, cs, "roll %v", roll)
	}
	assert.Equal(t, 10.0, valueOf(t, m, "src"))
	assert.Equal(t, 50.0, valueOf(t, m, "dst"))
}

func TestFlowTick_SkipRoll(t *testing.T) {
	m := newManager(t, &description.Description{
		Nodes: []description.NodeRecord{gauge("a", 50), gauge("b", 50), gauge("c", 50)},
		Edges: []description.EdgeRecord{link("a", "b"), link("b", "c")},
	})
	// First edge skipped (0.1 < 0.2), second fires.
	rng := seq(0.1, 0.2)
	s := NewFlowScheduler(m, rng, DefaultFlowConfig(), WithLogger(logging.NewNopLogger()))

	_, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rng.draws, "one draw per edge")
	assert.Equal(t, 50.0, valueOf(t, m, "a"))
	assert.Equal(t, 49.0, valueOf(t, m, "b"))
	assert.Equal(t, 51.0, valueOf(t, m, "c"))
}

func TestFlowTick_Policies(t *testing.T) {
	desc := func() *description.Description {
		return &description.Description{
			Nodes: []description.NodeRecord{gauge("a", 1), gauge("b", 10), gauge("c", 10)},
			Edges: []description.EdgeRecord{link("a", "b"), link("a", "c")},
		}
	}

	t.Run("serialized sees earlier edges", func(t *testing.T) {
		m := newManager(t, desc())
		s := NewFlowScheduler(m, seq(0.5), FlowConfig{SkipProbability: 0.2, Policy: FlowSerialized},
			WithLogger(logging.NewNopLogger()))

		cs, err := s.Tick(context.Background())
		require.NoError(t, err)
		require.NotNil(t, cs)
		assert.Equal(t, 0.0, valueOf(t, m, "a"))
		assert.Equal(t, 11.0, valueOf(t, m, "b"))
		assert.Equal(t, 10.0, valueOf(t, m, "c"))
	})

	t.Run("snapshot over-drains and is rejected", func(t *testing.T) {
		m := newManager(t, desc())
		s := NewFlowScheduler(m, seq(0.5), FlowConfig{SkipProbability: 0.2, Policy: FlowSnapshot},
			WithLogger(logging.NewNopLogger()))

		_, err := s.Tick(context.Background())
		assert.ErrorIs(t, err, model.ErrInvariantViolation)
		assert.Equal(t, 1.0, valueOf(t, m, "a"))
		assert.Equal(t, 10.0, valueOf(t, m, "b"))
		assert.Equal(t, 10.0, valueOf(t, m, "c"))
	})
}

func TestFlowTick_SkipsValuelessNodes(t *testing.T) {
	m := newManager(t, &description.Description{
		Nodes: []description.NodeRecord{
			{Key: description.StringKey("tank")},
			gauge("g", 5),
		},
		Edges: []description.EdgeRecord{link("tank", "g"), link("g", "tank")},
	})
	rng := seq(0.5)
	s := NewFlowScheduler(m, rng, DefaultFlowConfig(), WithLogger(logging.NewNopLogger()))

	cs, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cs)
	assert.Equal(t, 2, rng.draws)
	assert.Equal(t, 5.0, valueOf(t, m, "g"))
}

func TestFlowScheduler_SetConfig(t *testing.T) {
	m := newManager(t, &description.Description{
		Nodes: []description.NodeRecord{gauge("a", 50), gauge("b", 50)},
		Edges: []description.EdgeRecord{link("a", "b")},
	})
	s := NewFlowScheduler(m, seq(0.5), DefaultFlowConfig(), WithLogger(logging.NewNopLogger()))
	s.SetConfig(FlowConfig{SkipProbability: 1, Policy: FlowSerialized})
	assert.Equal(t, 1.0, s.Config().SkipProbability)

	cs, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cs)
}
