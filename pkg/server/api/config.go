package api

import (
	"errors"
	"time"
)

// ErrInvalidTimeout is returned when a timeout value is negative.
var ErrInvalidTimeout = errors.New("invalid timeout: must be >= 0")

// Config holds API-level configuration.
type Config struct {
	// HandlerTimeout bounds how long a handler may wait, e.g. for a worker
	// to be launched. It only applies when the request context has no
	// earlier deadline. Zero disables it.
	HandlerTimeout time.Duration
}

// DefaultConfig returns the default API configuration.
func DefaultConfig() Config {
	return Config{
		HandlerTimeout: 30 * time.Second,
	}
}

// Validate checks that the configuration is valid.
func (c Config) Validate() error {
	if c.HandlerTimeout < 0 {
		return ErrInvalidTimeout
	}
	return nil
}
