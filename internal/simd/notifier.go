package simd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/policy"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/logger"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
)

const callbackSecretHeader = "X-NLOScreen-Callback-Secret"

var (
	ErrInvalidURL       = errors.New("invalid callback url")
	ErrMetadataEndpoint = errors.New("callback url targets a cloud metadata endpoint")
	ErrInternalHost     = errors.New("callback url targets an internal address")
)

// NotificationPayload is the JSON body posted to a search's callback URL
type NotificationPayload struct {
	RunID           string              `json:"run_id"`
	Status          RunStatus           `json:"status"`
	Strategy        string              `json:"strategy"`
	Objective       string              `json:"objective"`
	CreatedAtUnixMs int64               `json:"created_at_unix_ms"`
	StartedAtUnixMs int64               `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64               `json:"ended_at_unix_ms,omitempty"`
	Error           string              `json:"error,omitempty"`
	Evaluated       int                 `json:"evaluated"`
	Failed          int                 `json:"failed"`
	Best            *models.ScoreRecord `json:"best,omitempty"`
	Timestamp       int64               `json:"timestamp"`
}

// Notifier posts search completion notifications with retries
type Notifier struct {
	httpClient *http.Client
	retry      policy.RetryPolicy
	wg         sync.WaitGroup
}

// NewNotifier returns a notifier with the default callback retry policy
func NewNotifier() *Notifier {
	return NewNotifierWithRetry(policy.NewPolicyManager(nil).GetRetry())
}

func NewNotifierWithRetry(retry policy.RetryPolicy) *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry: retry,
	}
}

// Notify sends the notification in the background and returns immediately.
// Invalid or internal callback URLs are rejected without a request.
func (n *Notifier) Notify(callbackURL, callbackSecret string, rec *RunRecord) {
	if callbackURL == "" {
		return
	}
	if rec == nil {
		logger.Warn("cannot notify: nil run record", "callback_url", callbackURL)
		return
	}

	finalURL := strings.ReplaceAll(callbackURL, "{run_id}", rec.Run.ID)
	if err := validateCallbackURL(finalURL); err != nil {
		logger.Warn("callback url rejected", "run_id", rec.Run.ID, "callback_url", finalURL, "error", err)
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.sendNotification(finalURL, callbackSecret, buildPayload(rec))
	}()
}

// Wait blocks until in-flight notifications finish
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func buildPayload(rec *RunRecord) NotificationPayload {
	payload := NotificationPayload{
		RunID:           rec.Run.ID,
		Status:          rec.Run.Status,
		Strategy:        rec.Run.Strategy,
		Objective:       rec.Run.Objective,
		CreatedAtUnixMs: rec.Run.CreatedAtUnixMs,
		StartedAtUnixMs: rec.Run.StartedAtUnixMs,
		EndedAtUnixMs:   rec.Run.EndedAtUnixMs,
		Error:           rec.Run.Error,
		Timestamp:       time.Now().UTC().UnixMilli(),
	}
	if rec.Result != nil {
		payload.Evaluated = rec.Result.Evaluated
		payload.Failed = rec.Result.Failed
		if rec.Result.Best != nil {
			best := *rec.Result.Best
			best.KPIs = nil
			payload.Best = &best
		}
	}
	return payload
}

func (n *Notifier) sendNotification(callbackURL, callbackSecret string, payload NotificationPayload) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal notification payload", "run_id", payload.RunID, "error", err)
		return
	}

	var lastErr error
	attempt := 0
	for {
		if attempt > 0 {
			delay := n.retry.GetBackoffDuration(attempt)
			logger.Debug("retrying notification", "run_id", payload.RunID, "attempt", attempt, "delay", delay)
			time.Sleep(delay)
		}

		lastErr = n.deliver(callbackURL, callbackSecret, payloadJSON)
		if lastErr == nil {
			logger.Info("notification sent", "run_id", payload.RunID, "status", payload.Status)
			return
		}
		logger.Warn("notification attempt failed", "run_id", payload.RunID, "attempt", attempt+1, "error", lastErr)
		if !n.retry.ShouldRetry(attempt, lastErr) {
			break
		}
		attempt++
	}

	logger.Error("failed to send notification",
		"callback_url", callbackURL,
		"run_id", payload.RunID,
		"attempts", attempt+1,
		"last_error", lastErr)
}

// deliver posts the payload once. Client errors other than 408 and 429 are
// permanent.
func (n *Notifier) deliver(callbackURL, callbackSecret string, payloadJSON []byte) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, callbackURL, bytes.NewReader(payloadJSON))
	if err != nil {
		return policy.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "nlo-screen/1.0")
	if callbackSecret != "" {
		req.Header.Set(callbackSecretHeader, callbackSecret)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	err = fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
		resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
		return policy.Permanent(err)
	}
	return err
}

// validateCallbackURL rejects non-HTTP schemes, cloud metadata endpoints and
// literal internal IPs. The hostname "localhost" is allowed for development.
func validateCallbackURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if host == "metadata.google.internal" || host == "169.254.169.254" {
		return fmt.Errorf("%w: %s", ErrMetadataEndpoint, host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsUnspecified() || isPrivateIP(ip) {
			return fmt.Errorf("%w: %s", ErrInternalHost, host)
		}
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}
