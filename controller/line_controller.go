package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"samsariya-backend/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/rs/zerolog"
)

// LineController receives LINE webhook events and feeds them into the order
// flow as text or action inputs.
type LineController struct {
	logger        zerolog.Logger
	channelSecret string
	flowService   *service.OrderFlowService
}

func NewLineController(logger zerolog.Logger, channelSecret string, flowService *service.OrderFlowService) *LineController {
	return &LineController{
		logger:        logger.With().Str("module", "line_controller").Logger(),
		channelSecret: channelSecret,
		flowService:   flowService,
	}
}

// WebhookInput carries the raw body so the LINE signature can be checked
// before anything is parsed.
type WebhookInput struct {
	XLineSignature string `header:"X-Line-Signature"`

	BodyBytes []byte `doc:"-"`
}

// Resolve implements huma.Resolver.
func (i *WebhookInput) Resolve(ctx huma.Context) []error {
	if i.XLineSignature == "" {
		return []error{huma.NewError(http.StatusBadRequest, "missing X-Line-Signature header")}
	}
	body, err := io.ReadAll(ctx.BodyReader())
	if err != nil {
		return []error{huma.NewError(http.StatusInternalServerError, "failed to read request body", err)}
	}
	i.BodyBytes = body
	return nil
}

type WebhookOutput struct {
	Body string
}

func (lc *LineController) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "line-webhook",
		Method:      http.MethodPost,
		Path:        "/line/webhook",
		Summary:     "LINE Bot Webhook",
		Description: "Receives message and postback events from the LINE Platform.",
		Tags:        []string{"LINE"},
	}, lc.Webhook)
}

// Webhook validates the signature and acknowledges immediately; event
// handling runs in the background so LINE never sees a slow response.
func (lc *LineController) Webhook(ctx context.Context, input *WebhookInput) (*WebhookOutput, error) {
	if !webhook.ValidateSignature(lc.channelSecret, input.XLineSignature, input.BodyBytes) {
		lc.logger.Warn().Msg("Rejected webhook with invalid signature")
		return nil, huma.NewError(http.StatusUnauthorized, "invalid signature")
	}

	var rawData map[string]interface{}
	if err := json.Unmarshal(input.BodyBytes, &rawData); err != nil {
		lc.logger.Error().Err(err).Msg("Failed to parse webhook body")
		return nil, huma.NewError(http.StatusBadRequest, "failed to parse request body")
	}

	go lc.handleEvents(context.Background(), rawData)

	return &WebhookOutput{Body: "OK"}, nil
}

func (lc *LineController) handleEvents(ctx context.Context, data map[string]interface{}) {
	events, ok := data["events"].([]interface{})
	if !ok {
		lc.logger.Warn().Msg("Webhook payload has no events array")
		return
	}

	for _, eventData := range events {
		eventMap, ok := eventData.(map[string]interface{})
		if !ok {
			continue
		}

		switch eventMap["type"] {
		case "message":
			lc.handleMessageEvent(ctx, eventMap)
		case "postback":
			lc.handlePostbackEvent(ctx, eventMap)
		}
	}
}

func (lc *LineController) handleMessageEvent(ctx context.Context, eventMap map[string]interface{}) {
	customerID := eventUserID(eventMap)
	if customerID == "" {
		lc.logger.Warn().Msg("Message event without a user source")
		return
	}

	message, ok := eventMap["message"].(map[string]interface{})
	if !ok {
		return
	}
	text, ok := message["text"].(string)
	if !ok {
		messageType, _ := message["type"].(string)
		lc.logger.Debug().
			Str("customer_id", customerID).
			Str("message_type", messageType).
			Msg("Ignoring non-text LINE message")
		return
	}

	lc.logger.Info().
		Str("customer_id", customerID).
		Str("message", text).
		Msg("Received LINE text message")

	lc.flowService.HandleInput(ctx, customerID, service.TextInput(text))
}

// handlePostbackEvent decodes postback data in query-string form, e.g.
// "action=select_item&item=samsa_beef".
func (lc *LineController) handlePostbackEvent(ctx context.Context, eventMap map[string]interface{}) {
	customerID := eventUserID(eventMap)
	if customerID == "" {
		lc.logger.Warn().Msg("Postback event without a user source")
		return
	}

	postback, ok := eventMap["postback"].(map[string]interface{})
	if !ok {
		return
	}
	data, _ := postback["data"].(string)

	values, err := url.ParseQuery(data)
	if err != nil || values.Get("action") == "" {
		lc.logger.Warn().
			Str("customer_id", customerID).
			Str("data", data).
			Msg("Ignoring malformed postback data")
		return
	}

	action := values.Get("action")
	item := values.Get("item")

	lc.logger.Info().
		Str("customer_id", customerID).
		Str("action", action).
		Str("item", item).
		Msg("Received LINE postback")

	lc.flowService.HandleInput(ctx, customerID, service.ActionInput(action, item))
}

func eventUserID(eventMap map[string]interface{}) string {
	source, ok := eventMap["source"].(map[string]interface{})
	if !ok {
		return ""
	}
	userID, _ := source["userId"].(string)
	return userID
}
