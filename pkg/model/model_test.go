package model

import (
	"bytes"
	"encoding/json"
	"math"
	"sync"
	"testing"

	"github.com/dd0wney/cluso-controlroom/pkg/description"
	"github.com/dd0wney/cluso-controlroom/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescription() *description.Description {
	return &description.Description{
		Nodes: []description.NodeRecord{
			{Key: description.IntKey(1), Value: description.Num(87), Editable: true, Extra: map[string]any{"color": "yellow"}},
			{Key: description.IntKey(2), Value: description.Num(23)},
			{Key: description.IntKey(4), Value: description.Num(16), Max: description.Num(120)},
			{
				Key:      description.StringKey("cTCV102"),
				Category: "monitor",
				Values: []description.SubValueRecord{
					{Label: "SV", Unit: "°C", Value: 12},
					{Label: "PV", Unit: "°C", Value: 12},
				},
				Statuses: []description.StatusRecord{{Fill: "green"}, {Fill: "white"}},
			},
			{Key: description.StringKey("MHWT"), Ports: []description.PortRecord{{Name: "SensorR"}}},
		},
		Edges: []description.EdgeRecord{
			{Key: description.IntKey(-1), From: description.IntKey(1), To: description.IntKey(2)},
			{Key: description.IntKey(-2), From: description.IntKey(2), To: description.IntKey(4), Extra: map[string]any{"fromEndSeg": 25.0}},
		},
	}
}

func loadTestGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := Load(testDescription(), logging.NewNopLogger())
	require.NoError(t, err)
	return g
}

func TestLoad_Defaults(t *testing.T) {
	g := loadTestGraph(t)
	assert.Equal(t, 5, g.Len())

	n1, err := g.Get("1")
	require.NoError(t, err)
	assert.Equal(t, NumberValue(87), n1.Value)
	assert.Equal(t, 0.0, n1.Min)
	assert.Equal(t, 100.0, n1.Max)
	assert.True(t, n1.Editable)
	assert.Equal(t, "yellow", n1.Meta["color"])

	n4, err := g.Get("4")
	require.NoError(t, err)
	assert.Equal(t, 120.0, n4.Max)

	tank, err := g.Get("MHWT")
	require.NoError(t, err)
	assert.Equal(t, KindNone, tank.Value.Kind())
	assert.Equal(t, []Port{{ID: "SensorR"}}, tank.Ports)

	monitor, err := g.Get("cTCV102")
	require.NoError(t, err)
	assert.Equal(t, []SubValue{{Label: "SV", Unit: "°C", Value: 12}, {Label: "PV", Unit: "°C", Value: 12}}, monitor.SubValues)
	assert.Equal(t, []string{"green", "white"}, monitor.Statuses)

	edges := g.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, "-1", edges[0].ID)
	assert.Equal(t, "2", edges[1].From)
	assert.Equal(t, "4", edges[1].To)
	assert.Equal(t, 25.0, edges[1].Meta["fromEndSeg"])

	_, err = g.Edge("-9")
	assert.True(t, IsNotFound(err))
}

func TestLoad_KeylessEdges(t *testing.T) {
	key := description.IntKey
	desc := &description.Description{
		Nodes: []description.NodeRecord{{Key: key(1)}, {Key: key(2)}, {Key: key(3)}},
		Edges: []description.EdgeRecord{
			{From: key(1), To: key(2)},
			{Key: key(-2), From: key(2), To: key(3)},
			{From: key(3), To: key(1)},
		},
	}

	g, err := Load(desc, logging.NewNopLogger())
	require.NoError(t, err)

	edges := g.Edges()
	require.Len(t, edges, 3)
	assert.Equal(t, "-1", edges[0].ID)
	assert.Equal(t, "-2", edges[1].ID)
	assert.Equal(t, "-3", edges[2].ID)

	e, err := g.Edge("-3")
	require.NoError(t, err)
	assert.Equal(t, "3", e.From)
	assert.True(t, desc.Edges[0].Key.IsZero(), "Load must not modify the description")
}

func TestLoad_ClampsOutOfRangeValues(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewJSONLogger(&buf, logging.WarnLevel)

	desc := &description.Description{
		Nodes: []description.NodeRecord{
			{Key: description.IntKey(1), Value: description.Num(150)},
			{Key: description.IntKey(2), Value: description.Num(-3), Min: description.Num(0)},
		},
	}
	g, err := Load(desc, logger)
	require.NoError(t, err)

	n1, _ := g.Get("1")
	n2, _ := g.Get("2")
	assert.Equal(t, NumberValue(100), n1.Value)
	assert.Equal(t, NumberValue(0), n2.Value)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var entry logging.LogEntry
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, "1", entry.Fields["node_id"])
}

func TestLoad_ConfigErrors(t *testing.T) {
	key := description.IntKey
	tests := []struct {
		name string
		desc *description.Description
	}{
		{"nil description", nil},
		{
			name: "duplicate node",
			desc: &description.Description{Nodes: []description.NodeRecord{{Key: key(1)}, {Key: key(1)}}},
		},
		{
			name: "duplicate edge",
			desc: &description.Description{
				Nodes: []description.NodeRecord{{Key: key(1)}, {Key: key(2)}},
				Edges: []description.EdgeRecord{{Key: key(-1), From: key(1), To: key(2)}, {Key: key(-1), From: key(2), To: key(1)}},
			},
		},
		{
			name: "unknown source",
			desc: &description.Description{
				Nodes: []description.NodeRecord{{Key: key(1)}},
				Edges: []description.EdgeRecord{{Key: key(-1), From: key(9), To: key(1)}},
			},
		},
		{
			name: "unknown target",
			desc: &description.Description{
				Nodes: []description.NodeRecord{{Key: key(1)}},
				Edges: []description.EdgeRecord{{Key: key(-1), From: key(1), To: key(9)}},
			},
		},
		{
			name: "inverted bounds",
			desc: &description.Description{Nodes: []description.NodeRecord{{Key: key(1), Min: description.Num(10), Max: description.Num(5)}}},
		},
		{
			name: "NaN value",
			desc: &description.Description{Nodes: []description.NodeRecord{{Key: key(1), Value: description.Num(math.NaN())}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Load(tt.desc, logging.NewNopLogger())
			assert.ErrorIs(t, err, ErrConfig)
			assert.Nil(t, g)
		})
	}
}

func TestGraph_GetReturnsCopy(t *testing.T) {
	g := loadTestGraph(t)

	n, err := g.Get("cTCV102")
	require.NoError(t, err)
	n.Statuses[0] = "red"
	n.SubValues[0].Value = 99

	again, err := g.Get("cTCV102")
	require.NoError(t, err)
	assert.Equal(t, "green", again.Statuses[0])
	assert.Equal(t, 12.0, again.SubValues[0].Value)

	_, err = g.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGraph_Apply(t *testing.T) {
	g := loadTestGraph(t)

	deltas, err := g.Apply([]Write{
		{NodeID: "1", Field: FieldValue, Value: NumberValue(50)},
		{NodeID: "1", Field: FieldValue, Value: NumberValue(60)},
		{NodeID: "2", Field: FieldValue, Value: NumberValue(23)},
		{NodeID: "cTCV102", Field: SubValueField(1), Value: NumberValue(12.4)},
		{NodeID: "cTCV102", Field: StatusField(1), Value: StatusValue("yellow")},
	})
	require.NoError(t, err)

	assert.Equal(t, []Delta{
		{NodeID: "1", Field: FieldValue, Old: NumberValue(87), New: NumberValue(60)},
		{NodeID: "cTCV102", Field: SubValueField(1), Old: NumberValue(12), New: NumberValue(12.4)},
		{NodeID: "cTCV102", Field: StatusField(1), Old: StatusValue("white"), New: StatusValue("yellow")},
	}, deltas)

	n1, _ := g.Get("1")
	assert.Equal(t, NumberValue(60), n1.Value)
	monitor, _ := g.Get("cTCV102")
	assert.Equal(t, "yellow", monitor.Statuses[1])

	deltas, err = g.Apply(nil)
	assert.NoError(t, err)
	assert.Empty(t, deltas)
}

func TestGraph_ApplyRejectsWholeBatch(t *testing.T) {
	g := loadTestGraph(t)
	before := g.Nodes()

	_, err := g.Apply([]Write{
		{NodeID: "1", Field: FieldValue, Value: NumberValue(10)},
		{NodeID: "2", Field: FieldValue, Value: NumberValue(101)},
	})
	require.Error(t, err)
	assert.True(t, IsInvariantViolation(err))
	assert.Equal(t, before, g.Nodes())

	// A later write in the same batch may bring a node back into range.
	_, err = g.Apply([]Write{
		{NodeID: "2", Field: FieldValue, Value: NumberValue(101)},
		{NodeID: "2", Field: FieldValue, Value: NumberValue(100)},
	})
	assert.NoError(t, err)
}

func TestGraph_ApplyErrors(t *testing.T) {
	tests := []struct {
		name  string
		write Write
		want  error
	}{
		{"unknown node", Write{NodeID: "zzz", Field: FieldValue, Value: NumberValue(1)}, ErrNotFound},
		{"no primary value", Write{NodeID: "MHWT", Field: FieldValue, Value: NumberValue(1)}, ErrFieldNotFound},
		{"sub-value index", Write{NodeID: "cTCV102", Field: SubValueField(5), Value: NumberValue(1)}, ErrFieldNotFound},
		{"status index", Write{NodeID: "cTCV102", Field: StatusField(-1), Value: StatusValue("green")}, ErrFieldNotFound},
		{"status kind", Write{NodeID: "cTCV102", Field: StatusField(0), Value: NumberValue(1)}, ErrInvalidValue},
		{"value kind", Write{NodeID: "1", Field: FieldValue, Value: StatusValue("green")}, ErrInvalidValue},
		{"NaN", Write{NodeID: "1", Field: FieldValue, Value: NumberValue(math.NaN())}, ErrInvalidValue},
		{"Inf", Write{NodeID: "cTCV102", Field: SubValueField(0), Value: NumberValue(math.Inf(1))}, ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := loadTestGraph(t)
			before := g.Nodes()

			_, err := g.Apply([]Write{tt.write})
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, g.Nodes())
		})
	}
}

func TestGraph_ReadersNeverSeeHalfBatches(t *testing.T) {
	g := loadTestGraph(t)
	const total = 87.0 + 23.0

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			n1, _ := g.Get("1")
			n2, _ := g.Get("2")
			a, b := n1.Value.Float(), n2.Value.Float()
			if a <= 0 || b >= 100 {
				a, b = 87, 23
			} else {
				a, b = a-1, b+1
			}
			_, err := g.Apply([]Write{
				{NodeID: "1", Field: FieldValue, Value: NumberValue(a)},
				{NodeID: "2", Field: FieldValue, Value: NumberValue(b)},
			})
			assert.NoError(t, err)
		}
		close(stop)
	}()

	for {
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
		nodes := g.Nodes()
		sum := nodes[0].Value.Float() + nodes[1].Value.Float()
		require.Equal(t, total, sum)
	}
}

func TestValue(t *testing.T) {
	assert.True(t, NumberValue(1.5).Equal(NumberValue(1.5)))
	assert.False(t, NumberValue(1).Equal(StatusValue("1")))
	assert.False(t, NumberValue(math.NaN()).Equal(NumberValue(math.NaN())))
	assert.True(t, Value{}.Equal(Value{}))

	assert.Equal(t, "12.3", NumberValue(12.3).String())
	assert.Equal(t, "green", StatusValue("green").String())
	assert.Equal(t, "<none>", Value{}.String())

	data, err := json.Marshal(Delta{NodeID: "S1", Field: StatusField(1), Old: StatusValue("white"), New: StatusValue("yellow")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"node":"S1","field":"statuses[1].fill","old":"white","new":"yellow"}`, string(data))
}
