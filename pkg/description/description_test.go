package description

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/dd0wney/cluso-controlroom/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gaugesJSON = `{
  "nodeDataArray": [
    {"key": 1, "value": 87, "text": "Vertical", "category": "Vertical", "loc": "30 0", "editable": true, "color": "yellow"},
    {"key": 4, "value": 16, "max": 120, "category": "Horizontal", "editable": true},
    {"key": 5, "value": 23, "max": 200, "unit": 5, "category": "BarMeter"}
  ],
  "linkDataArray": [
    {"from": 1, "to": 4},
    {"key": -1, "from": 4, "to": 5},
    {"from": 1, "to": 5, "fromEndSeg": 25}
  ]
}`

func TestDecode_JSON(t *testing.T) {
	d, err := Decode([]byte(gaugesJSON), FormatJSON, WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	require.Len(t, d.Nodes, 3)
	require.Len(t, d.Edges, 3)

	first := d.Nodes[0]
	assert.Equal(t, IntKey(1), first.Key)
	assert.Equal(t, "Vertical", first.Category)
	assert.Equal(t, 87.0, first.Value.Float(0))
	assert.Nil(t, first.Min)
	assert.True(t, first.Editable)
	assert.Equal(t, map[string]any{"text": "Vertical", "loc": "30 0", "color": "yellow"}, first.Extra)

	assert.Equal(t, 120.0, d.Nodes[1].Max.Float(100))
	assert.Equal(t, Text("5"), d.Nodes[2].Unit)

	t.Run("keyless links get fresh negative keys", func(t *testing.T) {
		assert.Equal(t, IntKey(-2), d.Edges[0].Key)
		assert.Equal(t, IntKey(-1), d.Edges[1].Key)
		assert.Equal(t, IntKey(-3), d.Edges[2].Key)
	})

	assert.Equal(t, map[string]any{"fromEndSeg": 25.0}, d.Edges[2].Extra)
}

func TestDecode_JSONStringNumbers(t *testing.T) {
	data := `{
	  "nodeDataArray": [
	    {"key": "S1", "category": "sensor", "value": "12.0", "unit": "°C", "pos": "385 68"},
	    {"key": "cTCV102", "category": "monitor",
	     "values": [{"label": "SV", "unit": "°C", "value": "12.0"}, {"label": "OP", "unit": "%", "value": "25.0"}],
	     "statuses": [{"fill": "green"}, {"fill": "white"}]}
	  ],
	  "linkDataArray": []
	}`

	d, err := Decode([]byte(data), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, StringKey("S1"), d.Nodes[0].Key)
	assert.Equal(t, 12.0, d.Nodes[0].Value.Float(0))
	assert.Equal(t, Text("°C"), d.Nodes[0].Unit)

	monitor := d.Nodes[1]
	require.Len(t, monitor.Values, 2)
	assert.Equal(t, SubValueRecord{Label: "OP", Unit: "%", Value: 25}, monitor.Values[1])
	assert.Equal(t, []StatusRecord{{Fill: "green"}, {Fill: "white"}}, monitor.Statuses)
}

func TestDecode_JSONRepair(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewJSONLogger(&buf, logging.DebugLevel)

	malformed := `{
	  nodeDataArray: [
	    {key: 1, value: 10,},
	    {key: 2, value: 20,},
	  ],
	  linkDataArray: [{from: 1, to: 2},],
	}`

	d, err := Decode([]byte(malformed), FormatJSON, WithLogger(logger))
	require.NoError(t, err)
	assert.Len(t, d.Nodes, 2)
	assert.Len(t, d.Edges, 1)

	var entry logging.LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry.Level)
}

func TestDecode_YAML(t *testing.T) {
	data := `
nodeDataArray:
  - key: 1
    value: 87
    category: Vertical
    editable: true
    color: yellow
  - key: "S2"
    category: sensor
    value: "12.0"
    ports:
      - p: SensorB
        type: sensor
linkDataArray:
  - from: 1
    to: "S2"
    toPort: SensorB
`
	d, err := Decode([]byte(data), FormatYAML)
	require.NoError(t, err)
	require.Len(t, d.Nodes, 2)

	assert.Equal(t, IntKey(1), d.Nodes[0].Key)
	assert.Equal(t, "yellow", d.Nodes[0].Extra["color"])
	assert.Equal(t, StringKey("S2"), d.Nodes[1].Key)
	assert.Equal(t, 12.0, d.Nodes[1].Value.Float(0))
	require.Len(t, d.Nodes[1].Ports, 1)
	assert.Equal(t, "SensorB", d.Nodes[1].Ports[0].Name)
	assert.Equal(t, "sensor", d.Nodes[1].Ports[0].Extra["type"])

	edge := d.Edges[0]
	assert.Equal(t, IntKey(-1), edge.Key)
	assert.Equal(t, IntKey(1), edge.From)
	assert.Equal(t, StringKey("S2"), edge.To)
	assert.Equal(t, "SensorB", edge.ToPort)
}

func TestDecode_HCL(t *testing.T) {
	data := `
node "S1" {
  category = "sensor"
  value    = 12.0
  unit     = "°C"
  pos      = "385 68"
}

node "MHT" {
  port "SensorB" {
    type = "sensor"
  }
}

node "cFM102" {
  category = "monitor"
  reading {
    label = "PV"
    unit  = "KG/hr"
    value = 0.0
  }
  status {
    fill = "white"
  }
}

link {
  category = "sensor"
  from     = "S1"
  to       = "MHT"
  to_port  = "SensorB"
}

link {
  key        = -7
  from       = "MHT"
  to         = "S1"
  fromEndSeg = 25
}
`
	d, err := Decode([]byte(data), FormatHCL)
	require.NoError(t, err)
	require.Len(t, d.Nodes, 3)
	require.Len(t, d.Edges, 2)

	s1 := d.Nodes[0]
	assert.Equal(t, StringKey("S1"), s1.Key)
	assert.Equal(t, 12.0, s1.Value.Float(0))
	assert.Equal(t, Text("°C"), s1.Unit)
	assert.Equal(t, map[string]any{"pos": "385 68"}, s1.Extra)

	mht := d.Nodes[1]
	assert.Nil(t, mht.Value)
	require.Len(t, mht.Ports, 1)
	assert.Equal(t, PortRecord{Name: "SensorB", Extra: map[string]any{"type": "sensor"}}, mht.Ports[0])

	monitor := d.Nodes[2]
	assert.Equal(t, []SubValueRecord{{Label: "PV", Unit: "KG/hr", Value: 0}}, monitor.Values)
	assert.Equal(t, []StatusRecord{{Fill: "white"}}, monitor.Statuses)

	assert.Equal(t, IntKey(-1), d.Edges[0].Key)
	assert.Equal(t, "SensorB", d.Edges[0].ToPort)
	assert.Equal(t, "sensor", d.Edges[0].Category)
	assert.Equal(t, IntKey(-7), d.Edges[1].Key)
	assert.Equal(t, map[string]any{"fromEndSeg": 25.0}, d.Edges[1].Extra)
}

func TestDecode_HCLBlocksBesideExtraAttributes(t *testing.T) {
	data := `
node "MHWT" {
  tankType = "tank3"
  color    = "black"

  port "BL1" {
    a = "0 1 0 -50"
  }

  port "BR" {
    a  = "1 1 0 -30"
    fs = "RightSide"
  }
}

node "cTCV102" {
  category = "monitor"
  title    = "TCV-102"
  reading {
    label = "SV"
    unit  = "%"
    value = 12.0
  }
  status { fill = "green" }
  status { fill = "yellow" }
}
`
	d, err := Decode([]byte(data), FormatHCL)
	require.NoError(t, err)
	require.Len(t, d.Nodes, 2)

	tank := d.Nodes[0]
	assert.Equal(t, map[string]any{"tankType": "tank3", "color": "black"}, tank.Extra)
	require.Len(t, tank.Ports, 2)
	assert.Equal(t, PortRecord{Name: "BR", Extra: map[string]any{"a": "1 1 0 -30", "fs": "RightSide"}}, tank.Ports[1])

	monitor := d.Nodes[1]
	assert.Equal(t, "monitor", monitor.Category)
	assert.Equal(t, map[string]any{"title": "TCV-102"}, monitor.Extra)
	assert.Len(t, monitor.Values, 1)
	assert.Equal(t, []StatusRecord{{Fill: "green"}, {Fill: "yellow"}}, monitor.Statuses)
}

func TestDecode_HCLErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", `node "A" {`},
		{"missing link target", `link { from = "A" }`},
		{"bool key", `link {
  from = true
  to   = "A"
}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), FormatHCL)
			assert.Error(t, err)
		})
	}
}

func TestDescription_Validate(t *testing.T) {
	tests := []struct {
		name string
		desc Description
	}{
		{
			name: "node without key",
			desc: Description{Nodes: []NodeRecord{{Category: "tank"}}},
		},
		{
			name: "port without name",
			desc: Description{Nodes: []NodeRecord{{Key: StringKey("MHWT"), Ports: []PortRecord{{}}}}},
		},
		{
			name: "status without fill",
			desc: Description{Nodes: []NodeRecord{{Key: StringKey("cFM103"), Statuses: []StatusRecord{{}}}}},
		},
		{
			name: "link without source",
			desc: Description{Edges: []EdgeRecord{{Key: IntKey(-1), To: IntKey(1)}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	valid := Description{
		Nodes: []NodeRecord{{Key: IntKey(1)}, {Key: IntKey(2)}},
		Edges: []EdgeRecord{{Key: IntKey(-1), From: IntKey(1), To: IntKey(2)}},
	}
	assert.NoError(t, valid.Validate())
}

func TestEncode_RoundTrip(t *testing.T) {
	original, err := Decode([]byte(gaugesJSON), FormatJSON)
	require.NoError(t, err)

	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			data, err := Encode(original, format)
			require.NoError(t, err)

			decoded, err := Decode(data, format)
			require.NoError(t, err)

			require.Len(t, decoded.Nodes, len(original.Nodes))
			for i := range original.Nodes {
				assert.Equal(t, original.Nodes[i].Key, decoded.Nodes[i].Key)
				assert.Equal(t, original.Nodes[i].Value, decoded.Nodes[i].Value)
				assert.Equal(t, original.Nodes[i].Max, decoded.Nodes[i].Max)
				assert.Equal(t, original.Nodes[i].Unit, decoded.Nodes[i].Unit)
				assert.Equal(t, len(original.Nodes[i].Extra), len(decoded.Nodes[i].Extra))
			}
			for i := range original.Edges {
				assert.Equal(t, original.Edges[i].Key, decoded.Edges[i].Key)
				assert.Equal(t, original.Edges[i].From, decoded.Edges[i].From)
				assert.Equal(t, original.Edges[i].To, decoded.Edges[i].To)
			}
		})
	}

	_, err = Encode(original, FormatHCL)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"plant.json", FormatJSON, false},
		{"plant.YAML", FormatYAML, false},
		{"plant.yml", FormatYAML, false},
		{"plant.hcl", FormatHCL, false},
		{"plant.toml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gauges.json")
	require.NoError(t, os.WriteFile(path, []byte(gaugesJSON), 0o600))

	d, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, d.Nodes, 3)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
