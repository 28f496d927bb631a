package controller

import (
	"context"

	"samsariya-backend/data-models/order"
	"samsariya-backend/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderController exposes the admin-facing order API. Status transitions
// made here enqueue the matching customer notification as a side effect of
// the service call.
type OrderController struct {
	logger       zerolog.Logger
	orderService *service.OrderService
}

func NewOrderController(logger zerolog.Logger, orderService *service.OrderService) *OrderController {
	return &OrderController{
		logger:       logger.With().Str("module", "order_controller").Logger(),
		orderService: orderService,
	}
}

func (c *OrderController) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-orders",
		Method:      "GET",
		Path:        "/orders",
		Summary:     "List recent orders",
		Tags:        []string{"orders"},
	}, func(ctx context.Context, input *order.GetOrdersInput) (*order.OrdersResponse, error) {
		orders, err := c.orderService.List(ctx, input.Limit)
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to list orders")
			return nil, huma.Error500InternalServerError("failed to list orders", err)
		}
		return &order.OrdersResponse{Body: orders}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-order-by-id",
		Method:      "GET",
		Path:        "/orders/{orderID}",
		Summary:     "Get a single order",
		Tags:        []string{"orders"},
	}, func(ctx context.Context, input *order.OrderIDInput) (*order.OrderResponse, error) {
		id, err := primitive.ObjectIDFromHex(input.OrderID)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid order id", err)
		}
		o, err := c.orderService.GetByID(ctx, id)
		if err != nil {
			c.logger.Error().Err(err).Str("order_id", input.OrderID).Msg("Failed to load order")
			return nil, huma.Error500InternalServerError("failed to load order", err)
		}
		if o == nil {
			return nil, huma.Error404NotFound("order not found")
		}
		return &order.OrderResponse{Body: o}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-order-status",
		Method:      "PUT",
		Path:        "/orders/{orderID}/status",
		Summary:     "Update order status",
		Description: "Applies an admin status transition and queues the customer-facing status notification.",
		Tags:        []string{"orders"},
	}, func(ctx context.Context, input *order.UpdateOrderStatusInput) (*order.OrderResponse, error) {
		id, err := primitive.ObjectIDFromHex(input.OrderID)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid order id", err)
		}
		o, err := c.orderService.UpdateStatus(ctx, id, input.Body.Status)
		if err != nil {
			c.logger.Error().Err(err).
				Str("order_id", input.OrderID).
				Str("status", string(input.Body.Status)).
				Msg("Failed to update order status")
			return nil, huma.Error400BadRequest("failed to update order status", err)
		}
		if o == nil {
			return nil, huma.Error404NotFound("order not found")
		}
		return &order.OrderResponse{Body: o}, nil
	})
}
