package validation

import (
	"fmt"
	"math"
	"time"
)

// ConfigValidator provides a fluent interface for validating configuration values.
// It collects all validation errors rather than failing on the first one.
type ConfigValidator struct {
	errors []error
	name   string // config struct name for error messages
}

// NewConfigValidator creates a new config validator with the given config name.
func NewConfigValidator(configName string) *ConfigValidator {
	return &ConfigValidator{
		name:   configName,
		errors: make([]error, 0),
	}
}

// NonNegative validates that an int field is non-negative (>= 0).
func (cv *ConfigValidator) NonNegative(field string, value int) *ConfigValidator {
	if value < 0 {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: value %d must be non-negative", cv.name, field, value))
	}
	return cv
}

// MinDuration validates that a duration is at least the minimum.
func (cv *ConfigValidator) MinDuration(field string, value, min time.Duration) *ConfigValidator {
	if value < min {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: duration %v is below minimum %v", cv.name, field, value, min))
	}
	return cv
}

// RangeFloat validates that a float field is within [min, max]. NaN always fails.
func (cv *ConfigValidator) RangeFloat(field string, value, min, max float64) *ConfigValidator {
	if math.IsNaN(value) || value < min || value > max {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: value %g is outside range [%g, %g]", cv.name, field, value, min, max))
	}
	return cv
}

// Probability validates that a float field is a probability in [0, 1].
func (cv *ConfigValidator) Probability(field string, value float64) *ConfigValidator {
	return cv.RangeFloat(field, value, 0, 1)
}

// OneOf validates that a string field is one of the allowed values.
func (cv *ConfigValidator) OneOf(field, value string, allowed []string) *ConfigValidator {
	for _, a := range allowed {
		if value == a {
			return cv
		}
	}
	cv.errors = append(cv.errors, fmt.Errorf("%s.%s: value %q must be one of %v", cv.name, field, value, allowed))
	return cv
}

// Custom applies a custom validation function.
func (cv *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: %w", cv.name, field, err))
	}
	return cv
}

// When conditionally applies validations if the condition is true.
func (cv *ConfigValidator) When(condition bool, validations func(*ConfigValidator)) *ConfigValidator {
	if condition {
		validations(cv)
	}
	return cv
}

// HasErrors returns true if any validation errors occurred.
func (cv *ConfigValidator) HasErrors() bool {
	return len(cv.errors) > 0
}

// Errors returns all validation errors.
func (cv *ConfigValidator) Errors() []error {
	return cv.errors
}

// Validate returns a combined error if any validations failed.
func (cv *ConfigValidator) Validate() error {
	if len(cv.errors) == 0 {
		return nil
	}
	if len(cv.errors) == 1 {
		return cv.errors[0]
	}
	return fmt.Errorf("%s validation failed with %d errors: %v", cv.name, len(cv.errors), cv.errors[0])
}

// DefaultOr returns the value if it's non-zero, otherwise returns the default.
func DefaultOr[T comparable](value, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}
