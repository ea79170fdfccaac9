package policy

import (
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/nlo-screen/pkg/config"
)

func TestNewRateLimitingPolicy(t *testing.T) {
	policy := NewRateLimitingPolicy(true, 10, 0)
	if !policy.Enabled() {
		t.Fatalf("expected policy to be enabled")
	}
	if policy.Name() != "rate_limiting" {
		t.Fatalf("expected name to be 'rate_limiting', got %s", policy.Name())
	}
	if q := policy.GetRemainingQuota("10.0.0.1", time.Now()); q != 10 {
		t.Fatalf("expected zero burst to default to the rate, got quota %d", q)
	}
}

func TestRateLimitingPolicyAllowRequest(t *testing.T) {
	policy := NewRateLimitingPolicy(true, 2, 0)
	now := time.Now()

	if !policy.AllowRequest("client", now) {
		t.Fatalf("expected first request to be allowed")
	}
	if !policy.AllowRequest("client", now) {
		t.Fatalf("expected second request to be allowed")
	}
	if policy.AllowRequest("client", now) {
		t.Fatalf("expected third request to be rejected")
	}
	if !policy.AllowRequest("client", now.Add(600*time.Millisecond)) {
		t.Fatalf("expected a token to be refilled after 600ms")
	}
	if policy.AllowRequest("client", now.Add(700*time.Millisecond)) {
		t.Fatalf("expected fractional refill to be insufficient after another 100ms")
	}
}

func TestRateLimitingPolicyBurst(t *testing.T) {
	policy := NewRateLimitingPolicy(true, 1, 3)
	now := time.Now()
	for i := range 3 {
		if !policy.AllowRequest("client", now) {
			t.Fatalf("expected burst request %d to be allowed", i)
		}
	}
	if policy.AllowRequest("client", now) {
		t.Fatalf("expected request beyond burst to be rejected")
	}
	// refill never exceeds the burst
	if q := policy.GetRemainingQuota("client", now.Add(time.Hour)); q != 3 {
		t.Fatalf("expected quota capped at burst 3, got %d", q)
	}
}

func TestRateLimitingPolicyDifferentClients(t *testing.T) {
	policy := NewRateLimitingPolicy(true, 1, 1)
	now := time.Now()

	if !policy.AllowRequest("a", now) {
		t.Fatalf("expected request for a to be allowed")
	}
	if !policy.AllowRequest("b", now) {
		t.Fatalf("expected request for b to be allowed")
	}
	if policy.AllowRequest("a", now) {
		t.Fatalf("expected second request for a to be rejected")
	}
}

func TestRateLimitingPolicyRetryAfter(t *testing.T) {
	policy := NewRateLimitingPolicy(true, 2, 1)
	now := time.Now()

	if d := policy.RetryAfter("client", now); d != 0 {
		t.Fatalf("expected no wait with tokens available, got %v", d)
	}
	policy.AllowRequest("client", now)
	if d := policy.RetryAfter("client", now); d != 500*time.Millisecond {
		t.Fatalf("expected 500ms wait at 2 req/s, got %v", d)
	}
	if d := policy.RetryAfter("client", now.Add(250*time.Millisecond)); d != 250*time.Millisecond {
		t.Fatalf("expected 250ms wait after partial refill, got %v", d)
	}
}

func TestRateLimitingPolicyDisabled(t *testing.T) {
	policy := NewRateLimitingPolicy(false, 1, 1)
	now := time.Now()
	for range 5 {
		if !policy.AllowRequest("client", now) {
			t.Fatalf("expected disabled policy to allow every request")
		}
	}
	if q := policy.GetRemainingQuota("client", now); q != -1 {
		t.Fatalf("expected unlimited quota -1, got %d", q)
	}
	if d := policy.RetryAfter("client", now); d != 0 {
		t.Fatalf("expected no wait when disabled, got %v", d)
	}
}

func TestNewRateLimitingPolicyFromConfig(t *testing.T) {
	policy := NewRateLimitingPolicyFromConfig(&config.RateLimit{Enabled: true, RequestsPerSecond: 4, Burst: 8})
	if q := policy.GetRemainingQuota("client", time.Now()); q != 8 {
		t.Fatalf("expected configured burst 8, got %d", q)
	}
}
