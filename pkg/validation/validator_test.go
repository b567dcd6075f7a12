package validation

import (
	"strings"
	"testing"
)

type portFixture struct {
	Name string `validate:"required"`
}

type nodeFixture struct {
	Key   string        `validate:"required"`
	Mode  string        `validate:"omitempty,oneof=serialized snapshot"`
	Ports []portFixture `validate:"dive"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name       string
		value      any
		expectErr  bool
		errorField string
	}{
		{
			name:  "valid",
			value: &nodeFixture{Key: "S1", Ports: []portFixture{{Name: "SensorR"}}},
		},
		{
			name:       "missing key",
			value:      &nodeFixture{},
			expectErr:  true,
			errorField: "Key",
		},
		{
			name:       "missing nested port name",
			value:      &nodeFixture{Key: "MHWT", Ports: []portFixture{{}}},
			expectErr:  true,
			errorField: "Ports[0].Name",
		},
		{
			name:       "bad enum",
			value:      &nodeFixture{Key: "A", Mode: "other"},
			expectErr:  true,
			errorField: "Mode",
		},
		{
			name:      "nil",
			value:     nil,
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.value)
			if tt.expectErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.errorField != "" && !strings.Contains(err.Error(), tt.errorField) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.errorField)
			}
		})
	}
}
