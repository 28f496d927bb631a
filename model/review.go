package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is one customer feedback message.
type Review struct {
	ID         *primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	CustomerID string              `json:"customer_id" bson:"customer_id"`
	// Author is the display name if one was collected; empty otherwise.
	Author    string    `json:"author" bson:"author"`
	Text      string    `json:"text" bson:"text"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
