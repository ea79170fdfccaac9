package policy

import (
	"time"

	"github.com/GoSim-25-26J-441/nlo-screen/pkg/config"
)

// Policy represents a generic policy interface
type Policy interface {
	// Enabled returns whether the policy is enabled
	Enabled() bool
	// Name returns the policy name for identification
	Name() string
}

// RateLimitingPolicy bounds how often a client may submit work
type RateLimitingPolicy interface {
	Policy
	// AllowRequest consumes one token for the client if one is available
	AllowRequest(clientID string, requestTime time.Time) bool
	// GetRemainingQuota returns the tokens left for the client, -1 when unlimited
	GetRemainingQuota(clientID string, now time.Time) int
	// RetryAfter returns how long the client must wait for the next token
	RetryAfter(clientID string, now time.Time) time.Duration
}

// RetryPolicy handles redelivery of failed callback notifications
type RetryPolicy interface {
	Policy
	// ShouldRetry determines if a delivery should be attempted again
	ShouldRetry(attempt int, err error) bool
	// GetBackoffDuration calculates the backoff duration for a retry attempt
	GetBackoffDuration(attempt int) time.Duration
	// GetMaxRetries returns the maximum number of retries allowed
	GetMaxRetries() int
}

// Default callback retry settings, used when server.callbacks is absent
const (
	DefaultCallbackRetries = 3
	DefaultCallbackBaseMs  = 1000
)

// Manager holds the request policies of the daemon
type Manager struct {
	rateLimiting RateLimitingPolicy
	retry        RetryPolicy
}

// NewPolicyManager creates a policy manager from the server configuration.
// Callback retries default to exponential backoff; rate limiting is off
// unless configured.
func NewPolicyManager(server *config.Server) *Manager {
	pm := &Manager{
		retry: NewRetryPolicy(true, DefaultCallbackRetries, config.BackoffExponential, DefaultCallbackBaseMs),
	}
	if server == nil {
		return pm
	}
	if server.RateLimit != nil && server.RateLimit.Enabled {
		pm.rateLimiting = NewRateLimitingPolicyFromConfig(server.RateLimit)
	}
	if server.Callbacks != nil {
		pm.retry = NewRetryPolicyFromConfig(server.Callbacks)
	}
	return pm
}

// GetRateLimiting returns the rate limiting policy if enabled
func (pm *Manager) GetRateLimiting() RateLimitingPolicy {
	return pm.rateLimiting
}

// GetRetry returns the callback retry policy
func (pm *Manager) GetRetry() RetryPolicy {
	return pm.retry
}
