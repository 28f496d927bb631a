package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order is written once at flow completion. Only Status and UpdatedAt are
// mutated afterwards, and only through the admin status API.
type Order struct {
	ID              *primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty" doc:"Order ID"`
	ShortID         string              `json:"short_id,omitempty" bson:"short_id,omitempty" example:"#4F2A" doc:"Short order ID"`
	CustomerID      string              `json:"customer_id" bson:"customer_id" doc:"Messaging channel user ID"`
	Items           map[string]int      `json:"items" bson:"items" doc:"Item key to quantity"`
	Total           int                 `json:"total" bson:"total" example:"32000" doc:"Total in sum"`
	CustomerName    string              `json:"customer_name" bson:"customer_name"`
	CustomerPhone   string              `json:"customer_phone" bson:"customer_phone"`
	CustomerAddress string              `json:"customer_address" bson:"customer_address"`
	Delivery        DeliveryMethod      `json:"delivery" bson:"delivery" example:"delivery"`
	Time            string              `json:"time" bson:"time" example:"14:30" doc:"Requested time, free text or asap"`
	Method          PaymentMethod       `json:"method" bson:"method" example:"cash"`
	Summary         string              `json:"summary,omitempty" bson:"summary,omitempty" doc:"Human-readable order summary"`
	Status          OrderStatus         `json:"status" bson:"status" example:"new"`
	PaymentVerified bool                `json:"payment_verified" bson:"payment_verified" doc:"Card amount reported in time; admin still verifies the transfer"`
	PaymentAmount   int                 `json:"payment_amount" bson:"payment_amount"`
	IsPreorder      bool                `json:"is_preorder" bson:"is_preorder" doc:"Placed during night hours"`
	CreatedAt       *time.Time          `json:"created_at,omitempty" bson:"created_at,omitempty"`
	UpdatedAt       *time.Time          `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}
