package policy

import (
	"math"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/nlo-screen/pkg/config"
)

// rateLimitingPolicy implements RateLimitingPolicy with one token bucket per client
type rateLimitingPolicy struct {
	enabled bool
	rate    float64 // tokens per second
	burst   int
	buckets map[string]*tokenBucket
	mu      sync.Mutex
}

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// NewRateLimitingPolicyFromConfig creates a rate limiting policy from config.
// A zero burst allows one second worth of requests at once.
func NewRateLimitingPolicyFromConfig(cfg *config.RateLimit) RateLimitingPolicy {
	return NewRateLimitingPolicy(cfg.Enabled, cfg.RequestsPerSecond, cfg.Burst)
}

// NewRateLimitingPolicy creates a new rate limiting policy
func NewRateLimitingPolicy(enabled bool, requestsPerSecond, burst int) RateLimitingPolicy {
	if burst <= 0 {
		burst = requestsPerSecond
	}
	return &rateLimitingPolicy{
		enabled: enabled,
		rate:    float64(requestsPerSecond),
		burst:   burst,
		buckets: make(map[string]*tokenBucket),
	}
}

func (p *rateLimitingPolicy) Enabled() bool {
	return p.enabled
}

func (p *rateLimitingPolicy) Name() string {
	return "rate_limiting"
}

// bucket returns the client's bucket refilled up to now. Callers hold p.mu.
func (p *rateLimitingPolicy) bucket(clientID string, now time.Time) *tokenBucket {
	b, ok := p.buckets[clientID]
	if !ok {
		b = &tokenBucket{tokens: float64(p.burst), lastRefill: now}
		p.buckets[clientID] = b
		return b
	}
	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		b.tokens = math.Min(float64(p.burst), b.tokens+elapsed.Seconds()*p.rate)
		b.lastRefill = now
	}
	return b
}

func (p *rateLimitingPolicy) AllowRequest(clientID string, requestTime time.Time) bool {
	if !p.enabled {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	b := p.bucket(clientID, requestTime)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (p *rateLimitingPolicy) GetRemainingQuota(clientID string, now time.Time) int {
	if !p.enabled {
		return -1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.bucket(clientID, now).tokens)
}

func (p *rateLimitingPolicy) RetryAfter(clientID string, now time.Time) time.Duration {
	if !p.enabled || p.rate <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	b := p.bucket(clientID, now)
	if b.tokens >= 1 {
		return 0
	}
	missing := 1 - b.tokens
	return time.Duration(math.Ceil(missing / p.rate * float64(time.Second)))
}
