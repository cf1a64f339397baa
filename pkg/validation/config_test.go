package validation

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidator_CollectsAllErrors(t *testing.T) {
	cv := NewConfigValidator("routing").
		Positive("default_k", 0).
		RangeInt("default_max_hops", 9, 1, 8).
		NonNegative("max_expansions", -1).
		RangeDuration("timeout", 0, time.Millisecond, time.Minute)

	require.True(t, cv.HasErrors())
	assert.Len(t, cv.Errors(), 4)

	err := cv.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "routing.default_k")
	assert.Contains(t, err.Error(), "routing.timeout")
}

func TestConfigValidator_NoErrors(t *testing.T) {
	cv := NewConfigValidator("server").
		Required("port", "8080").
		RangeInt("workers", 4, 1, 64).
		OneOf("level", "info", []string{"debug", "info"}).
		AtMost("default_k", 3, "max_k", 10).
		URL("predictor_url", "https://model.internal/predict", "http", "https")

	assert.False(t, cv.HasErrors())
	assert.NoError(t, cv.Validate())
}

func TestConfigValidator_Checks(t *testing.T) {
	tests := []struct {
		name string
		run  func(cv *ConfigValidator)
	}{
		{"required", func(cv *ConfigValidator) { cv.Required("source", "") }},
		{"at most", func(cv *ConfigValidator) { cv.AtMost("default_k", 11, "max_k", 10) }},
		{"nan", func(cv *ConfigValidator) { cv.FiniteNonNegative("weight", math.NaN()) }},
		{"negative float", func(cv *ConfigValidator) { cv.FiniteNonNegative("weight", -0.1) }},
		{"one of", func(cv *ConfigValidator) { cv.OneOf("level", "loud", []string{"info"}) }},
		{"url scheme", func(cv *ConfigValidator) { cv.URL("predictor_url", "ftp://x", "http", "https") }},
		{"custom", func(cv *ConfigValidator) { cv.Custom("source", func() error { return errors.New("bad") }) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("cfg")
			tt.run(cv)
			assert.True(t, cv.HasErrors())
		})
	}
}

func TestConfigValidator_When(t *testing.T) {
	cv := NewConfigValidator("auth").When(false, func(cv *ConfigValidator) {
		cv.Required("jwt_secret", "")
	})
	assert.False(t, cv.HasErrors())

	cv.When(true, func(cv *ConfigValidator) {
		cv.Required("jwt_secret", "")
	})
	assert.True(t, cv.HasErrors())
}

func TestConfigValidator_CustomWrapsError(t *testing.T) {
	sentinel := errors.New("unreadable")
	err := NewConfigValidator("graph").Custom("source", func() error { return sentinel }).Validate()
	assert.ErrorIs(t, err, sentinel)
}
