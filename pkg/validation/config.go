package validation

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"time"
)

// ConfigValidator collects every configuration problem instead of stopping
// at the first one.
type ConfigValidator struct {
	errors []error
	name   string
}

// NewConfigValidator creates a validator whose messages are prefixed with section.
func NewConfigValidator(section string) *ConfigValidator {
	return &ConfigValidator{name: section}
}

func (cv *ConfigValidator) addf(field, format string, args ...any) *ConfigValidator {
	cv.errors = append(cv.errors, fmt.Errorf("%s.%s: "+format, append([]any{cv.name, field}, args...)...))
	return cv
}

// Required validates that a string field is not empty.
func (cv *ConfigValidator) Required(field, value string) *ConfigValidator {
	if value == "" {
		return cv.addf(field, "required field is empty")
	}
	return cv
}

// Positive validates that an int field is > 0.
func (cv *ConfigValidator) Positive(field string, value int) *ConfigValidator {
	if value <= 0 {
		return cv.addf(field, "value %d must be positive", value)
	}
	return cv
}

// NonNegative validates that an int field is >= 0.
func (cv *ConfigValidator) NonNegative(field string, value int) *ConfigValidator {
	if value < 0 {
		return cv.addf(field, "value %d must be non-negative", value)
	}
	return cv
}

// RangeInt validates that an int field is within [lo, hi].
func (cv *ConfigValidator) RangeInt(field string, value, lo, hi int) *ConfigValidator {
	if value < lo || value > hi {
		return cv.addf(field, "value %d is outside range [%d, %d]", value, lo, hi)
	}
	return cv
}

// AtMost validates that value does not exceed limit, naming the limiting field.
func (cv *ConfigValidator) AtMost(field string, value int, limitField string, limit int) *ConfigValidator {
	if value > limit {
		return cv.addf(field, "value %d exceeds %s (%d)", value, limitField, limit)
	}
	return cv
}

// RangeDuration validates that a duration is within [lo, hi].
func (cv *ConfigValidator) RangeDuration(field string, value, lo, hi time.Duration) *ConfigValidator {
	if value < lo || value > hi {
		return cv.addf(field, "duration %v is outside range [%v, %v]", value, lo, hi)
	}
	return cv
}

// FiniteNonNegative validates that a float is a finite number >= 0.
func (cv *ConfigValidator) FiniteNonNegative(field string, value float64) *ConfigValidator {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return cv.addf(field, "value %v must be a finite non-negative number", value)
	}
	return cv
}

// OneOf validates that a string field is one of the allowed values.
func (cv *ConfigValidator) OneOf(field, value string, allowed []string) *ConfigValidator {
	if !slices.Contains(allowed, value) {
		return cv.addf(field, "value %q must be one of %v", value, allowed)
	}
	return cv
}

// URL validates that value parses as an absolute URL with one of schemes.
func (cv *ConfigValidator) URL(field, value string, schemes ...string) *ConfigValidator {
	u, err := url.Parse(value)
	if err != nil {
		return cv.addf(field, "invalid URL: %v", err)
	}
	if !slices.Contains(schemes, u.Scheme) {
		return cv.addf(field, "URL scheme %q must be one of %v", u.Scheme, schemes)
	}
	return cv
}

// Custom applies a custom validation function.
func (cv *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: %w", cv.name, field, err))
	}
	return cv
}

// When applies validations only if condition holds.
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

// Validate returns all collected errors joined, or nil.
func (cv *ConfigValidator) Validate() error {
	return errors.Join(cv.errors...)
}
