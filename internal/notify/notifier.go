// Package notify delivers fire-and-forget pipeline outcome
// notifications. Delivery failures are logged and never propagated; the
// notifier can never change a pipeline outcome.
package notify

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/trailmesh/traceflow/internal/domain"
	"github.com/trailmesh/traceflow/internal/logger"
)

// Notifier reports a stage failure or terminal outcome for a document.
type Notifier interface {
	Notify(ctx context.Context, documentID string, stage domain.Stage, detail string)
}

// Config holds webhook notifier configuration.
type Config struct {
	WebhookURL string
	Timeout    time.Duration
}

// WebhookNotifier posts notifications to a configured webhook.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	log    *logger.Logger
}

// NewWebhookNotifier creates a webhook notifier.
// Parameters:
//   - cfg: webhook configuration.
//   - log: logger for delivery failures.
// Returns:
//   - *WebhookNotifier: initialized notifier.
func NewWebhookNotifier(cfg *Config, log *logger.Logger) *WebhookNotifier {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	client.SetTimeout(timeout)

	return &WebhookNotifier{client: client, url: cfg.WebhookURL, log: log}
}

type notification struct {
	DocumentID string `json:"document_id"`
	Stage      string `json:"stage"`
	Detail     string `json:"detail,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// Notify posts the notification. Errors are logged, never returned.
func (n *WebhookNotifier) Notify(ctx context.Context, documentID string, stage domain.Stage, detail string) {
	payload := notification{
		DocumentID: documentID,
		Stage:      string(stage),
		Detail:     detail,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(n.url)
	if err != nil {
		n.log.WithError(err).WithField("document_id", documentID).Warn("Failed to deliver notification")
		return
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		n.log.WithFields(logger.Fields{
			"document_id": documentID,
			"status":      resp.StatusCode(),
		}).Warn("Notification webhook rejected payload")
	}
}

// LogNotifier writes notifications to the structured log. Used when no
// webhook is configured.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify logs the notification.
func (n *LogNotifier) Notify(ctx context.Context, documentID string, stage domain.Stage, detail string) {
	n.log.WithFields(logger.Fields{
		"document_id": documentID,
		"stage":       string(stage),
		"detail":      detail,
	}).Info("Pipeline notification")
}
