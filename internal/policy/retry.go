package policy

import (
	"errors"
	"math"
	"time"

	"github.com/GoSim-25-26J-441/nlo-screen/pkg/config"
)

// permanentError marks a failure that a retry cannot fix
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that ShouldRetry refuses to retry it
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// retryPolicy implements RetryPolicy
type retryPolicy struct {
	enabled    bool
	maxRetries int
	backoff    string
	baseMs     int
}

// NewRetryPolicyFromConfig creates a retry policy from config
func NewRetryPolicyFromConfig(cfg *config.CallbackRetry) RetryPolicy {
	return &retryPolicy{
		enabled:    cfg.Enabled,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		baseMs:     cfg.BaseMs,
	}
}

// NewRetryPolicy creates a retry policy with explicit parameters
func NewRetryPolicy(enabled bool, maxRetries int, backoff string, baseMs int) RetryPolicy {
	return &retryPolicy{
		enabled:    enabled,
		maxRetries: maxRetries,
		backoff:    backoff,
		baseMs:     baseMs,
	}
}

func (p *retryPolicy) Enabled() bool {
	return p.enabled
}

func (p *retryPolicy) Name() string {
	return "retry"
}

func (p *retryPolicy) ShouldRetry(attempt int, err error) bool {
	if !p.enabled || err == nil {
		return false
	}
	if attempt >= p.maxRetries {
		return false
	}
	return !IsPermanent(err)
}

func (p *retryPolicy) GetBackoffDuration(attempt int) time.Duration {
	if !p.enabled || attempt <= 0 {
		return 0
	}

	var durationMs int
	switch p.backoff {
	case config.BackoffLinear:
		durationMs = p.baseMs * attempt
	case config.BackoffConstant:
		durationMs = p.baseMs
	default:
		// baseMs * 2^(attempt-1)
		durationMs = p.baseMs * int(math.Pow(2, float64(attempt-1)))
	}
	return time.Duration(durationMs) * time.Millisecond
}

func (p *retryPolicy) GetMaxRetries() int {
	if !p.enabled {
		return 0
	}
	return p.maxRetries
}
