// Package senders implements protocol.ChannelSender against a messaging gateway.
package senders

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

	"github.com/campaignhq/automation/pkg/log"
	"github.com/campaignhq/automation/pkg/models"
	"github.com/campaignhq/automation/pkg/otelhelper"
)

// Channel names used in gateway paths.
const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseBody = 64 * 1024
)

var ErrMissingMessageID = errors.New("gateway response has no message id")

// GatewayError is returned when the gateway answers with a non 2xx status.
type GatewayError struct {
	Channel    string
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s gateway returned HTTP %d: %s", e.Channel, e.StatusCode, e.Message)
}

type messageRequest struct {
	ContactID  string         `json:"contact_id"`
	TemplateID string         `json:"template_id,omitempty"`
	Subject    string         `json:"subject,omitempty"`
	Body       string         `json:"body,omitempty"`
	Variables  map[string]any `json:"variables,omitempty"`
}

type messageResponse struct {
	MessageID string `json:"message_id"`
}

// GatewaySender posts messages to <baseURL>/messages/<channel>.
type GatewaySender struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGatewaySender creates a sender for the gateway at baseURL. A nil httpClient gets a 30s timeout client.
func NewGatewaySender(baseURL string, httpClient *http.Client) *GatewaySender {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &GatewaySender{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     log.WithModule("gateway_sender"),
	}
}

func (s *GatewaySender) SendEmail(ctx context.Context, contactID string, config models.MessageConfig) (string, error) {
	return s.send(ctx, ChannelEmail, contactID, config)
}

func (s *GatewaySender) SendSMS(ctx context.Context, contactID string, config models.MessageConfig) (string, error) {
	return s.send(ctx, ChannelSMS, contactID, config)
}

func (s *GatewaySender) SendWhatsApp(ctx context.Context, contactID string, config models.MessageConfig) (string, error) {
	return s.send(ctx, ChannelWhatsApp, contactID, config)
}

func (s *GatewaySender) send(ctx context.Context, channel, contactID string, config models.MessageConfig) (string, error) {
	body, err := json.Marshal(messageRequest{
		ContactID:  contactID,
		TemplateID: config.TemplateID,
		Subject:    config.Subject,
		Body:       config.Body,
		Variables:  config.Variables,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s message: %w", channel, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages/"+channel, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create %s request: %w", channel, err)
	}

	req.Header.Set("Content-Type", "application/json")
	otelhelper.InjectHeaders(ctx, req.Header)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s gateway request failed: %w", channel, err)
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.logger.WarnContext(ctx, "failed to close response body", "error", closeErr)
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("failed to read %s gateway response: %w", channel, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &GatewayError{
			Channel:    channel,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
		}
	}

	var decoded messageResponse

	err = json.Unmarshal(respBody, &decoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s gateway response: %w", channel, err)
	}

	if decoded.MessageID == "" {
		return "", fmt.Errorf("%s: %w", channel, ErrMissingMessageID)
	}

	s.logger.DebugContext(ctx, "message accepted", "channel", channel, "contact_id", contactID, "message_id", decoded.MessageID)

	return decoded.MessageID, nil
}
