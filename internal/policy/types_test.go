package policy

import (
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/nlo-screen/pkg/config"
)

func TestNewPolicyManager(t *testing.T) {
	pm := NewPolicyManager(nil)
	if pm.GetRateLimiting() != nil {
		t.Fatalf("expected no rate limiting without configuration")
	}
	retry := pm.GetRetry()
	if retry == nil || !retry.Enabled() {
		t.Fatalf("expected default callback retry policy")
	}
	if retry.GetMaxRetries() != DefaultCallbackRetries {
		t.Fatalf("expected %d default retries, got %d", DefaultCallbackRetries, retry.GetMaxRetries())
	}
	if d := retry.GetBackoffDuration(2); d != 2*DefaultCallbackBaseMs*time.Millisecond {
		t.Fatalf("expected exponential default backoff, got %v", d)
	}

	pm = NewPolicyManager(&config.Server{
		RateLimit: &config.RateLimit{Enabled: true, RequestsPerSecond: 5},
		Callbacks: &config.CallbackRetry{Enabled: true, MaxRetries: 1, Backoff: config.BackoffConstant, BaseMs: 5},
	})
	if pm.GetRateLimiting() == nil || !pm.GetRateLimiting().Enabled() {
		t.Fatalf("expected rate limiting policy to be created")
	}
	if pm.GetRetry().GetMaxRetries() != 1 {
		t.Fatalf("expected configured retries, got %d", pm.GetRetry().GetMaxRetries())
	}
}

func TestNewPolicyManagerWithDisabledPolicies(t *testing.T) {
	pm := NewPolicyManager(&config.Server{
		RateLimit: &config.RateLimit{Enabled: false, RequestsPerSecond: 5},
		Callbacks: &config.CallbackRetry{Enabled: false, MaxRetries: 3},
	})
	if pm.GetRateLimiting() != nil {
		t.Fatalf("expected no rate limiting policy when disabled")
	}
	if pm.GetRetry().Enabled() {
		t.Fatalf("expected disabled callback retries to stay disabled")
	}
}
