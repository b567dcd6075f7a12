package validation

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestConfigValidator_MinDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    time.Duration
		hasError bool
	}{
		{"zero", 0, true},
		{"below minimum", 500 * time.Microsecond, true},
		{"at minimum", time.Millisecond, false},
		{"flow period", 500 * time.Millisecond, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("Flow")
			cv.MinDuration("Period", tt.value, time.Millisecond)
			if cv.HasErrors() != tt.hasError {
				t.Errorf("MinDuration(%v) hasError = %v, want %v", tt.value, cv.HasErrors(), tt.hasError)
			}
		})
	}
}

func TestConfigValidator_Probability(t *testing.T) {
	tests := []struct {
		value    float64
		hasError bool
	}{
		{0, false},
		{0.2, false},
		{1, false},
		{-0.01, true},
		{1.01, true},
		{math.NaN(), true},
	}

	for _, tt := range tests {
		cv := NewConfigValidator("Flow")
		cv.Probability("SkipProbability", tt.value)
		if cv.HasErrors() != tt.hasError {
			t.Errorf("Probability(%v) hasError = %v, want %v", tt.value, cv.HasErrors(), tt.hasError)
		}
	}
}

func TestConfigValidator_OneOf(t *testing.T) {
	cv := NewConfigValidator("Flow")
	cv.OneOf("Policy", "bogus", []string{"serialized", "snapshot"})
	if !cv.HasErrors() {
		t.Error("Expected error for value not in allowed list")
	}

	cv2 := NewConfigValidator("Flow")
	cv2.OneOf("Policy", "snapshot", []string{"serialized", "snapshot"})
	if cv2.HasErrors() {
		t.Error("Expected no error for allowed value")
	}
}

func TestConfigValidator_CustomAndWhen(t *testing.T) {
	sentinel := errors.New("boom")

	cv := NewConfigValidator("Telemetry")
	cv.Custom("Sensors", func() error { return sentinel })
	if !errors.Is(cv.Validate(), sentinel) {
		t.Errorf("Validate() = %v, want wrapped sentinel", cv.Validate())
	}

	cv2 := NewConfigValidator("Telemetry")
	cv2.When(false, func(v *ConfigValidator) {
		v.NonNegative("Places", -1)
	})
	if cv2.HasErrors() {
		t.Error("When(false) should not apply validations")
	}
}

func TestConfigValidator_MultipleErrors(t *testing.T) {
	cv := NewConfigValidator("Config").
		OneOf("Diagram", "plant", []string{"gauges", "steam-plant"}).
		Probability("Skip", 2).
		NonNegative("MaxLength", -1)

	if got := len(cv.Errors()); got != 3 {
		t.Fatalf("expected 3 errors, got %d", got)
	}
	if cv.Validate() == nil {
		t.Error("Validate() should return an error")
	}
}

func TestDefaultOr(t *testing.T) {
	if got := DefaultOr("", "serialized"); got != "serialized" {
		t.Errorf("DefaultOr(\"\") = %q", got)
	}
	if got := DefaultOr("snapshot", "serialized"); got != "snapshot" {
		t.Errorf("DefaultOr(snapshot) = %q", got)
	}
}
