// Package webhook delivers outbound webhook calls for workflow actions.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/campaignhq/automation/pkg/otelhelper"
	"github.com/campaignhq/automation/pkg/protocol"
)

const maxResponseBody = 4096

// HTTPError is returned when the endpoint answers with a non 2xx status.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Client posts JSON payloads over HTTP.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a webhook client. A nil httpClient uses http.DefaultClient.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		httpClient: httpClient,
		userAgent:  "campaign-automation/1.0",
	}
}

// Post sends request as JSON. Deadlines come from ctx.
func (c *Client) Post(ctx context.Context, request protocol.WebhookRequest) (int, error) {
	body, err := json.Marshal(request.Payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	method := strings.ToUpper(request.Method)
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, request.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	for key, value := range request.Headers {
		req.Header.Set(key, value)
	}

	otelhelper.InjectHeaders(ctx, req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
		}
	}

	return resp.StatusCode, nil
}
