package model

// OrderStatus covers the statuses written by this service plus the ones the
// external admin system pushes back through the status API.
type OrderStatus string

const (
	OrderStatusNew           OrderStatus = "new"
	OrderStatusPaymentFailed OrderStatus = "payment_failed"
	OrderStatusConfirmed     OrderStatus = "confirmed"
	OrderStatusPreparing     OrderStatus = "preparing"
	OrderStatusReady         OrderStatus = "ready"
	OrderStatusDelivered     OrderStatus = "delivered"
	OrderStatusCancelled     OrderStatus = "cancelled"
)

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodCard PaymentMethod = "card"
)

// DeliveryMethod is how the order reaches the customer.
type DeliveryMethod string

const (
	DeliveryMethodDelivery DeliveryMethod = "delivery"
	DeliveryMethodPickup   DeliveryMethod = "pickup"
)

// Category splits the catalog into the two fixed product groups.
type Category string

const (
	CategorySamsa     Category = "samsa"
	CategoryPackaging Category = "packaging"
)

// NotificationStatus labels a notification document. Admin-only kinds are
// never delivered to customers by the dispatcher.
type NotificationStatus string

const (
	NotificationStatusPreorder         NotificationStatus = "preorder"
	NotificationStatusCardVerification NotificationStatus = "card_payment_verification"
)

// AdminOnlyNotificationStatuses lists the kinds excluded from customer delivery.
func AdminOnlyNotificationStatuses() []string {
	return []string{
		string(NotificationStatusPreorder),
		string(NotificationStatusCardVerification),
	}
}
