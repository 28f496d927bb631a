package service

import (
	"context"

	"samsariya-backend/service/interfaces"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/rs/zerolog"
)

// LineMessenger delivers flow and status messages over the LINE Messaging
// API. LINE pushes are append-only, so EditLast always reports
// ErrEditNotSupported and callers fall back to a fresh push.
type LineMessenger struct {
	logger zerolog.Logger
	client *messaging_api.MessagingApiAPI
}

func NewLineMessenger(logger zerolog.Logger, channelToken string) (*LineMessenger, error) {
	client, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, err
	}
	return &LineMessenger{
		logger: logger.With().Str("module", "line_messenger").Logger(),
		client: client,
	}, nil
}

func (m *LineMessenger) Send(ctx context.Context, customerID string, text string) error {
	request := &messaging_api.PushMessageRequest{
		To: customerID,
		Messages: []messaging_api.MessageInterface{
			&messaging_api.TextMessage{
				Text: text,
			},
		},
	}

	_, err := m.client.PushMessage(request, "")
	if err != nil {
		m.logger.Error().
			Err(err).
			Str("customer_id", customerID).
			Msg("Failed to push LINE message")
		return &DeliveryError{CustomerID: customerID, Err: err}
	}
	return nil
}

func (m *LineMessenger) EditLast(ctx context.Context, customerID string, text string) error {
	return interfaces.ErrEditNotSupported
}
