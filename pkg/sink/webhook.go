package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/rehttp"

	"github.com/logrelay/logrelay/internal/model"
)

// WebhookConfig configures the HTTP delivery sink.
type WebhookConfig struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
	// Retries bounds transport-level retry attempts for transient failures.
	Retries int
}

// WebhookSink POSTs batches as JSON arrays to an HTTP endpoint. Transient
// transport failures are retried with jittered exponential backoff; HTTP
// error statuses are surfaced to the breaker.
type WebhookSink struct {
	cfg    WebhookConfig
	client *http.Client
}

// NewWebhookSink creates a webhook sink.
func NewWebhookSink(cfg WebhookConfig) *WebhookSink {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	return &WebhookSink{cfg: cfg}
}

// Name implements Sink.
func (s *WebhookSink) Name() string { return "webhook" }

// Start builds the retrying HTTP client.
func (s *WebhookSink) Start(ctx context.Context) error {
	transport := rehttp.NewTransport(
		nil,
		rehttp.RetryAll(
			rehttp.RetryMaxRetries(s.cfg.Retries),
			rehttp.RetryAny(
				rehttp.RetryTemporaryErr(),
				rehttp.RetryStatuses(http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable),
			),
		),
		rehttp.ExpJitterDelay(100*time.Millisecond, 2*time.Second),
	)
	s.client = &http.Client{
		Transport: transport,
		Timeout:   s.cfg.Timeout,
	}
	return nil
}

// Write implements Sink.
func (s *WebhookSink) Write(ctx context.Context, ev *model.Event) error {
	return s.WriteBatch(ctx, model.Batch{ev})
}

// WriteBatch implements BatchSink.
func (s *WebhookSink) WriteBatch(ctx context.Context, batch model.Batch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Stop releases idle connections. It tolerates a Start that never ran.
func (s *WebhookSink) Stop(ctx context.Context) error {
	if s.client != nil {
		s.client.CloseIdleConnections()
	}
	return nil
}
