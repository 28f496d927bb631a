package service

import (
	"context"

	"samsariya-backend/service/interfaces"

	"github.com/rs/zerolog"
)

// LogMessenger writes outgoing messages to the log instead of a chat
// platform. Used in development when LINE is disabled.
type LogMessenger struct {
	logger zerolog.Logger
}

func NewLogMessenger(logger zerolog.Logger) *LogMessenger {
	return &LogMessenger{
		logger: logger.With().Str("module", "log_messenger").Logger(),
	}
}

func (m *LogMessenger) Send(ctx context.Context, customerID string, text string) error {
	m.logger.Info().
		Str("customer_id", customerID).
		Str("text", text).
		Msg("Outgoing message")
	return nil
}

func (m *LogMessenger) EditLast(ctx context.Context, customerID string, text string) error {
	return interfaces.ErrEditNotSupported
}
