package config

import (
	"fmt"
	"time"
)

// RetryConfig bounds the retrying fetcher. Durations are strings so the YAML
// stays readable ("250ms", "2s").
type RetryConfig struct {
	MaxAttempts    int    `yaml:"max_attempts"`    // total attempts per page, including the first
	MinThrottle    string `yaml:"min_throttle"`    // minimum spacing between any two calls
	BackoffStep    string `yaml:"backoff_step"`    // linear backoff increment per attempt
	BackoffCeiling string `yaml:"backoff_ceiling"` // cap on linear backoff
	AttemptTimeout string `yaml:"attempt_timeout"` // hard cap on a single attempt
}

// Validate checks the retry policy.
func (r RetryConfig) Validate() error {
	if r.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1")
	}
	if r.GetBackoffCeiling() < r.GetBackoffStep() {
		return fmt.Errorf("retry.backoff_ceiling must be >= retry.backoff_step")
	}
	return nil
}

func (r RetryConfig) GetMinThrottle() time.Duration {
	return parseDuration(r.MinThrottle, 250*time.Millisecond)
}

func (r RetryConfig) GetBackoffStep() time.Duration {
	return parseDuration(r.BackoffStep, 2*time.Second)
}

func (r RetryConfig) GetBackoffCeiling() time.Duration {
	return parseDuration(r.BackoffCeiling, 30*time.Second)
}

func (r RetryConfig) GetAttemptTimeout() time.Duration {
	return parseDuration(r.AttemptTimeout, 45*time.Second)
}
