package description

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

func scalar(value *yaml.Node, what string) (string, error) {
	if value.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("line %d: %s must be a scalar", value.Line, what)
	}
	return value.Value, nil
}

func (k *Key) UnmarshalYAML(value *yaml.Node) error {
	s, err := scalar(value, "key")
	if err != nil {
		return err
	}
	*k = Key{Text: s, Numeric: value.Tag == "!!int" || value.Tag == "!!float"}
	return nil
}

func (k Key) MarshalYAML() (any, error) {
	if k.Numeric {
		if i, err := strconv.ParseInt(k.Text, 10, 64); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(k.Text, 64); err == nil {
			return f, nil
		}
	}
	return k.Text, nil
}

func (n *Number) UnmarshalYAML(value *yaml.Node) error {
	s, err := scalar(value, "number")
	if err != nil {
		return err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("line %d: number %q: %w", value.Line, s, err)
	}
	*n = Number(f)
	return nil
}

func (t *Text) UnmarshalYAML(value *yaml.Node) error {
	s, err := scalar(value, "text")
	if err != nil {
		return err
	}
	*t = Text(s)
	return nil
}
