package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rgpulse/landing-leads/pkg/logging"
)

var tracer = otel.Tracer("landing.internal.webhook")

const maxBodyBytes = 64 << 10

// ErrMissingURL is returned when no webhook endpoint is configured.
var ErrMissingURL = errors.New("webhook: url is required")

// StatusError reports a non-2xx reply from the webhook.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("webhook returned status %d", e.StatusCode)
}

// Response is a decoded 2xx reply.
type Response struct {
	StatusCode int
	Ack        map[string]any
}

// Config controls the webhook client.
type Config struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// Client posts lead payloads to the capture webhook.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *logging.Logger
}

// New builds a webhook client. Timeout defaults to 30s and bounds calls
// whose caller has stopped waiting.
func New(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.URL)
	if endpoint == "" {
		return nil, ErrMissingURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{url: endpoint, httpClient: httpClient, logger: logger}, nil
}

// Post sends payload as a single JSON POST. Non-2xx replies return a
// *StatusError carrying the server message when the body has one.
func (c *Client) Post(ctx context.Context, payload map[string]any) (*Response, error) {
	ctx, span := tracer.Start(ctx, "webhook.post")
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Message: extractMessage(raw)}
		span.RecordError(statusErr)
		c.logger.Warn("webhook rejected lead", "status", resp.StatusCode, "message", statusErr.Message)
		return nil, statusErr
	}
	return &Response{StatusCode: resp.StatusCode, Ack: decodeAck(raw)}, nil
}

func decodeAck(raw []byte) map[string]any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return map[string]any{}
	}
	var ack map[string]any
	if err := json.Unmarshal(trimmed, &ack); err == nil && ack != nil {
		return ack
	}
	return map[string]any{"raw": string(trimmed)}
}

// extractMessage pulls a human readable message out of an error body. JSON
// bodies are searched for message, error and details; other bodies are used
// as-is.
func extractMessage(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	var parsed map[string]any
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		if trimmed[0] == '{' || trimmed[0] == '[' {
			return ""
		}
		return truncate(string(trimmed), 512)
	}
	for _, key := range []string{"message", "error", "details"} {
		switch v := parsed[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if msg, ok := v["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
