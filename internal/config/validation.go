package config

import (
	"errors"
	"fmt"
)

// Validation errors returned by Config.Validate.
var (
	ErrInvalidBatchConfig   = errors.New("invalid batch configuration")
	ErrInvalidHIBPConfig    = errors.New("invalid breach lookup configuration")
	ErrInvalidScoringConfig = errors.New("invalid scoring configuration")
	ErrInvalidStorageConfig = errors.New("invalid storage configuration")
)

// Validate checks the merged configuration for values the scheduler and
// scorer cannot work with.
func (c *Config) Validate() error {
	var errs []error

	b := c.Batch
	if b.RequestsPerMinute < 1 {
		errs = append(errs, fmt.Errorf("%w: requests per minute must be positive, got %d", ErrInvalidBatchConfig, b.RequestsPerMinute))
	}
	if b.Size < 1 || b.Size > b.RequestsPerMinute {
		errs = append(errs, fmt.Errorf("%w: batch size must be between 1 and requests per minute (%d), got %d", ErrInvalidBatchConfig, b.RequestsPerMinute, b.Size))
	}
	if b.DelayBetweenRequests < 0 || b.DelayBetweenBatches < 0 {
		errs = append(errs, fmt.Errorf("%w: delays must not be negative", ErrInvalidBatchConfig))
	}
	if b.WatchInterval <= 0 {
		errs = append(errs, fmt.Errorf("%w: watch interval must be positive", ErrInvalidBatchConfig))
	}

	if c.HIBP.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%w: max retries must not be negative, got %d", ErrInvalidHIBPConfig, c.HIBP.MaxRetries))
	}
	if c.HIBP.BaseURL == "" {
		errs = append(errs, fmt.Errorf("%w: base URL is empty", ErrInvalidHIBPConfig))
	}
	if c.HIBP.Timeout <= 0 || c.HIBP.RetryBaseDelay < 0 {
		errs = append(errs, fmt.Errorf("%w: timeout must be positive and retry delay not negative", ErrInvalidHIBPConfig))
	}

	s := c.Scoring
	for name, w := range map[string]int{
		"compromised": s.Compromised, "per_breach": s.PerBreach, "breach_cap": s.BreachCap,
		"critical": s.Critical, "stale": s.Stale, "weak": s.Weak, "duplicate": s.Duplicate,
	} {
		if w < 0 {
			errs = append(errs, fmt.Errorf("%w: weight %s is negative", ErrInvalidScoringConfig, name))
		}
	}
	if s.StaleAfter <= 0 {
		errs = append(errs, fmt.Errorf("%w: stale_after must be positive", ErrInvalidScoringConfig))
	}

	if c.DBPath == "" {
		errs = append(errs, fmt.Errorf("%w: db path is empty", ErrInvalidStorageConfig))
	}

	return errors.Join(errs...)
}
