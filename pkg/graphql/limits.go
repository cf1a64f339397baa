package graphql

import "fmt"

// LimitConfig bounds list results.
type LimitConfig struct {
	DefaultLimit int // used when no limit is given
	MaxLimit     int
}

// DefaultLimitConfig returns the list limits used by the server.
func DefaultLimitConfig() LimitConfig {
	return LimitConfig{DefaultLimit: 100, MaxLimit: 1000}
}

// ValidateLimitConfig validates the limit configuration
func ValidateLimitConfig(config *LimitConfig) error {
	if config.MaxLimit <= 0 {
		return fmt.Errorf("max limit must be greater than 0, got %d", config.MaxLimit)
	}
	if config.DefaultLimit <= 0 {
		return fmt.Errorf("default limit must be greater than 0, got %d", config.DefaultLimit)
	}
	if config.DefaultLimit > config.MaxLimit {
		return fmt.Errorf("default limit (%d) cannot exceed max limit (%d)", config.DefaultLimit, config.MaxLimit)
	}
	return nil
}

// applyLimit maps a requested limit onto the configured bounds. Negative
// means "not given"; zero returns nothing.
func applyLimit(requested int, config *LimitConfig) int {
	switch {
	case requested < 0:
		return config.DefaultLimit
	case requested > config.MaxLimit:
		return config.MaxLimit
	default:
		return requested
	}
}
