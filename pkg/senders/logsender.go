package senders

import (
	"context"
	"log/slog"

	"github.com/campaignhq/automation/pkg/log"
	"github.com/campaignhq/automation/pkg/models"
	"github.com/google/uuid"
)

// LogSender writes messages to the log instead of delivering them. Used for local runs.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender() *LogSender {
	return &LogSender{logger: log.WithModule("log_sender")}
}

func (s *LogSender) SendEmail(ctx context.Context, contactID string, config models.MessageConfig) (string, error) {
	return s.send(ctx, ChannelEmail, contactID, config), nil
}

func (s *LogSender) SendSMS(ctx context.Context, contactID string, config models.MessageConfig) (string, error) {
	return s.send(ctx, ChannelSMS, contactID, config), nil
}

func (s *LogSender) SendWhatsApp(ctx context.Context, contactID string, config models.MessageConfig) (string, error) {
	return s.send(ctx, ChannelWhatsApp, contactID, config), nil
}

func (s *LogSender) send(ctx context.Context, channel, contactID string, config models.MessageConfig) string {
	messageID := "log-" + uuid.NewString()

	s.logger.InfoContext(ctx, "message sent",
		"channel", channel,
		"contact_id", contactID,
		"template_id", config.TemplateID,
		"subject", config.Subject,
		"message_id", messageID,
	)

	return messageID
}
