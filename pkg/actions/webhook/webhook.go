// Package webhook calls external HTTP endpoints for the webhook action kind.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/caseflow/pkg/actions"
)

const defaultTimeoutSeconds = 30

var (
	// ErrURLRequired is returned when the configuration has no url.
	ErrURLRequired = errors.New("webhook url is required")
	// ErrStatus is returned when the endpoint answers with a status of 400 or above.
	ErrStatus = errors.New("webhook returned error status")
)

// Request is the resolved form of one webhook action configuration.
type Request struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
	Retry   RetryConfig
}

// RetryConfig controls repeated attempts on transport errors and 5xx answers.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// Caller performs webhook requests. The zero value is not usable; use New.
type Caller struct {
	logger *slog.Logger
	client *http.Client
}

// New creates a Caller. A nil client uses a fresh http.Client whose timeout is
// set per request.
func New(logger *slog.Logger, client *http.Client) *Caller {
	if client == nil {
		client = &http.Client{}
	}

	return &Caller{
		logger: logger.With("module", "webhook_action"),
		client: client,
	}
}

// ParseRequest builds a Request from an interpolated action config. When no
// body is configured the event data is sent as JSON.
func ParseRequest(config map[string]any, eventData map[string]any) (*Request, error) {
	url := strings.TrimSpace(actions.String(config, "url"))
	if url == "" {
		return nil, ErrURLRequired
	}

	method := strings.ToUpper(actions.String(config, "method"))
	if method == "" {
		method = http.MethodPost
	}

	headers := make(map[string]string)
	for key, value := range actions.Map(config, "headers") {
		if value != nil {
			headers[key] = fmt.Sprint(value)
		}
	}

	body, err := encodeBody(config["body"], eventData)
	if err != nil {
		return nil, err
	}

	retry := RetryConfig{Attempts: 1}
	if retryConfig := actions.Map(config, "retry"); retryConfig != nil {
		retry.Attempts = max(actions.Int(retryConfig, "attempts", 1), 1)
		retry.Delay = time.Duration(actions.Int(retryConfig, "delay", 0)) * time.Millisecond
	}

	return &Request{
		URL:     url,
		Method:  method,
		Headers: headers,
		Body:    body,
		Timeout: time.Duration(actions.Int(config, "timeout", defaultTimeoutSeconds)) * time.Second,
		Retry:   retry,
	}, nil
}

func encodeBody(body any, eventData map[string]any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		if eventData == nil {
			return nil, nil
		}

		encoded, err := json.Marshal(eventData)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event data: %w", err)
		}

		return encoded, nil
	case string:
		return []byte(b), nil
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}

		return encoded, nil
	}
}

// Handle implements actions.Handler.
func (c *Caller) Handle(ctx context.Context, config map[string]any, eventData map[string]any) (any, error) {
	req, err := ParseRequest(config, eventData)
	if err != nil {
		return nil, err
	}

	return c.Do(ctx, req)
}

// Do sends the request, retrying on transport errors and server errors while
// attempts remain.
func (c *Caller) Do(ctx context.Context, r *Request) (map[string]any, error) {
	var (
		lastErr error
		resp    *http.Response
	)

	for attempt := 1; attempt <= r.Retry.Attempts; attempt++ {
		if attempt > 1 {
			c.logger.InfoContext(ctx, "Retrying webhook", "attempt", attempt, "max_attempts", r.Retry.Attempts)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.Retry.Delay):
			}
		}

		var err error

		resp, err = c.send(ctx, r)
		if err != nil {
			lastErr = err
			resp = nil

			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError && attempt < r.Retry.Attempts {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
			resp = nil

			continue
		}

		break
	}

	if resp == nil {
		return nil, fmt.Errorf("webhook request failed: %w", lastErr)
	}

	return c.processResponse(ctx, resp)
}

func (c *Caller) send(ctx context.Context, r *Request) (*http.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.Timeout)

	req, err := http.NewRequestWithContext(reqCtx, r.Method, r.URL, bytes.NewReader(r.Body))
	if err != nil {
		cancel()

		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	if len(r.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}

	c.logger.DebugContext(ctx, "Sending webhook", "method", r.Method, "url", r.URL)

	resp, err := c.client.Do(req)
	if err != nil {
		cancel()

		return nil, fmt.Errorf("http request failed: %w", err)
	}

	resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}

	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b cancelOnClose) Close() error {
	defer b.cancel()

	return b.ReadCloser.Close()
}

func (c *Caller) processResponse(ctx context.Context, resp *http.Response) (map[string]any, error) {
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var body any

	err = json.Unmarshal(bodyBytes, &body)
	if err != nil {
		body = string(bodyBytes)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	headers := make(map[string]any, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	c.logger.InfoContext(ctx, "Webhook completed", "status_code", resp.StatusCode, "body_length", len(bodyBytes))

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        body,
		"headers":     headers,
	}, nil
}
