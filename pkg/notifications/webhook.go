// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/soothill/battery-watcher/pkg/errors"
	"github.com/soothill/battery-watcher/pkg/logger"
	"github.com/soothill/battery-watcher/pkg/metrics"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	webhookTimeout         = 10 * time.Second
	breakerOpenTimeout     = 30 * time.Second
	breakerFailureTrip     = 3
	notificationsPerMinute = 6
	notificationBurst      = 3
)

// WebhookNotifier POSTs alerts as JSON to a configured HTTP endpoint.
// Delivery runs behind a circuit breaker, so an unreachable endpoint trips
// open after a few consecutive failures instead of adding a 10 second stall
// to every alert, and behind a rate limiter that drops floods caused by
// oscillating battery status.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	enabled bool
}

// WebhookPayload is the JSON body sent to the endpoint.
type WebhookPayload struct {
	Level     string `json:"level"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Timestamp int64  `json:"ts"`
}

// NewWebhookNotifier creates a webhook notifier. An empty URL yields a
// disabled notifier whose sends are silent no-ops.
func NewWebhookNotifier(url string) *WebhookNotifier {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "webhook",
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).
				Msg("Webhook circuit breaker state changed")
		},
	})

	return &WebhookNotifier{
		url:     url,
		client:  &http.Client{Timeout: webhookTimeout},
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(notificationsPerMinute)/60, notificationBurst),
		enabled: url != "",
	}
}

// IsEnabled returns true if a webhook URL is configured.
func (w *WebhookNotifier) IsEnabled() bool {
	return w.enabled
}

// SendAlert delivers one alert. Rate-limited alerts are dropped with a debug
// log rather than queued; battery alerts lose their value when delayed.
func (w *WebhookNotifier) SendAlert(ctx context.Context, level, title, message string) error {
	if !w.enabled {
		return nil
	}

	if !w.limiter.Allow() {
		logger.Debug().Str("title", title).Msg("Webhook alert dropped by rate limiter")
		return nil
	}

	_, err := w.breaker.Execute(func() (interface{}, error) {
		return nil, w.post(ctx, level, title, message)
	})
	if err != nil {
		metrics.NotificationErrors.WithLabelValues("webhook").Inc()
		return apperrors.NewNotificationError("webhook", err)
	}
	metrics.NotificationsSent.WithLabelValues("webhook").Inc()
	return nil
}

func (w *WebhookNotifier) post(ctx context.Context, level, title, message string) error {
	payload := WebhookPayload{
		Level:     level,
		Title:     title,
		Message:   message,
		Timestamp: time.Now().Unix(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Debug().Err(closeErr).Msg("Failed to close webhook response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
