package description

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

var (
	nodeFields = []string{"key", "category", "value", "min", "max", "unit", "editable", "ports", "values", "statuses"}
	portFields = []string{"p"}
	edgeFields = []string{"key", "from", "to", "fromPort", "toPort", "category"}
)

func isQuoted(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '"'
}

func (k *Key) UnmarshalJSON(data []byte) error {
	if isQuoted(data) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = Key{Text: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("key must be a string or number: %w", err)
	}
	*k = Key{Text: n.String(), Numeric: n != ""}
	return nil
}

func (k Key) MarshalJSON() ([]byte, error) {
	if k.Numeric {
		if _, err := strconv.ParseFloat(k.Text, 64); err == nil {
			return []byte(k.Text), nil
		}
	}
	return json.Marshal(k.Text)
}

func (n *Number) UnmarshalJSON(data []byte) error {
	if isQuoted(data) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("number %q: %w", s, err)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

func (t *Text) UnmarshalJSON(data []byte) error {
	if isQuoted(data) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	trimmed := string(bytes.TrimSpace(data))
	if trimmed == "null" {
		*t = ""
		return nil
	}
	*t = Text(trimmed)
	return nil
}

func (r *NodeRecord) UnmarshalJSON(data []byte) error {
	type plain NodeRecord
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraFields(data, nodeFields)
	if err != nil {
		return err
	}
	*r = NodeRecord(p)
	r.Extra = extra
	return nil
}

func (r NodeRecord) MarshalJSON() ([]byte, error) {
	type plain NodeRecord
	return marshalWithExtra(plain(r), r.Extra)
}

func (r *PortRecord) UnmarshalJSON(data []byte) error {
	type plain PortRecord
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraFields(data, portFields)
	if err != nil {
		return err
	}
	*r = PortRecord(p)
	r.Extra = extra
	return nil
}

func (r PortRecord) MarshalJSON() ([]byte, error) {
	type plain PortRecord
	return marshalWithExtra(plain(r), r.Extra)
}

func (r *EdgeRecord) UnmarshalJSON(data []byte) error {
	type plain EdgeRecord
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraFields(data, edgeFields)
	if err != nil {
		return err
	}
	*r = EdgeRecord(p)
	r.Extra = extra
	return nil
}

func (r EdgeRecord) MarshalJSON() ([]byte, error) {
	type plain EdgeRecord
	return marshalWithExtra(plain(r), r.Extra)
}

// extraFields returns every top-level key of a JSON object not in known.
func extraFields(data []byte, known []string) (map[string]any, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	extra := make(map[string]any, len(raw))
	for k, v := range raw {
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		extra[k] = val
	}
	return extra, nil
}

// marshalWithExtra encodes v and merges extra keys into the resulting object.
// Declared fields win over extras of the same name.
func marshalWithExtra(v any, extra map[string]any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, val := range extra {
		if _, ok := fields[k]; ok {
			continue
		}
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		fields[k] = raw
	}
	return json.Marshal(fields)
}
