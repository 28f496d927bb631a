package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is authored by the admin system (or the status API) and
// consumed by the dispatcher. The dispatcher owns Sent, SentAt, FailedAt
// and Error; it never rewrites Message.
type Notification struct {
	ID          *primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	CustomerID  string              `json:"customer_id" bson:"customer_id"`
	OrderID     *primitive.ObjectID `json:"order_id,omitempty" bson:"order_id,omitempty"`
	Status      string              `json:"status,omitempty" bson:"status,omitempty" doc:"Order status this notification announces"`
	Message     string              `json:"message" bson:"message"`
	EditMessage bool                `json:"edit_message" bson:"edit_message" doc:"Prefer editing the prior status message over sending a new one"`
	Sent        bool                `json:"sent" bson:"sent"`
	CreatedAt   time.Time           `json:"created_at" bson:"created_at"`
	SentAt      *time.Time          `json:"sent_at,omitempty" bson:"sent_at,omitempty"`
	FailedAt    *time.Time          `json:"failed_at,omitempty" bson:"failed_at,omitempty"`
	Error       string              `json:"error,omitempty" bson:"error,omitempty"`
}
