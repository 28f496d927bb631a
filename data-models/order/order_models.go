package order

import "samsariya-backend/model"

// GetOrdersInput lists recent orders, newest first.
type GetOrdersInput struct {
	Limit int64 `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Maximum number of orders to return"`
}

type OrdersResponse struct {
	Body []*model.Order
}

// OrderIDInput addresses a single order by its Mongo hex ID.
type OrderIDInput struct {
	OrderID string `path:"orderID" doc:"Order ObjectID (hex)"`
}

type OrderResponse struct {
	Body *model.Order
}

// UpdateOrderStatusInput carries the admin status transition.
type UpdateOrderStatusInput struct {
	OrderID string `path:"orderID" doc:"Order ObjectID (hex)"`
	Body    struct {
		Status model.OrderStatus `json:"status" enum:"new,payment_failed,confirmed,preparing,ready,delivered,cancelled" doc:"New order status"`
	}
}
