// Package notify pushes fire and lifecycle events to an external webhook.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kingwingfly/cradle-system/internal/platform/httpclient"
	"github.com/kingwingfly/cradle-system/pkg/retry"
)

// Event is the JSON payload delivered to the webhook endpoint.
type Event struct {
	Kind    string `json:"kind"` // "fired", "aborted", "stopped"
	Trigger string `json:"trigger,omitempty"`
	Elapsed uint64 `json:"elapsed"`
	Error   string `json:"error,omitempty"`
	At      string `json:"at"` // RFC3339
}

// Webhook delivers events over HTTP with retries on transient failures.
// Delivery errors are logged, never propagated: notification problems must
// not disturb the timer loop.
type Webhook struct {
	client *httpclient.Client
	url    string
	log    *slog.Logger
	retry  retry.Config
}

// NewWebhook creates a notifier posting to url.
func NewWebhook(url string, client *httpclient.Client, log *slog.Logger) *Webhook {
	if client == nil {
		client = httpclient.New()
	}
	if log == nil {
		log = slog.Default()
	}
	cfg := retry.DefaultConfig()
	cfg.OnRetry = func(attempt int, err error, nextDelay time.Duration) {
		log.Debug("webhook delivery retry", "attempt", attempt, "error", err, "next_delay", nextDelay)
	}
	return &Webhook{client: client, url: url, log: log, retry: cfg}
}

// Fired reports a trigger fire.
func (w *Webhook) Fired(ctx context.Context, trigger string, elapsed uint64) {
	w.deliver(ctx, Event{Kind: "fired", Trigger: trigger, Elapsed: elapsed})
}

// Aborted reports a trigger error terminating the loop.
func (w *Webhook) Aborted(ctx context.Context, elapsed uint64, err error) {
	w.deliver(ctx, Event{Kind: "aborted", Elapsed: elapsed, Error: err.Error()})
}

// Stopped reports a clean shutdown.
func (w *Webhook) Stopped(ctx context.Context, elapsed uint64) {
	w.deliver(ctx, Event{Kind: "stopped", Elapsed: elapsed})
}

func (w *Webhook) deliver(ctx context.Context, event Event) {
	event.At = time.Now().UTC().Format(time.RFC3339)

	err := retry.DoWithRetryable(ctx, w.retry, func(ctx context.Context) error {
		return w.client.PostJSON(ctx, w.url, event)
	}, isTransient)
	if err != nil {
		w.log.Warn("webhook delivery failed", "kind", event.Kind, "trigger", event.Trigger, "error", err)
	}
}

// isTransient treats network errors and retryable statuses as worth another
// attempt; a 4xx other than 429 means the payload or endpoint is wrong.
func isTransient(err error) bool {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	return true
}
