package model

import "time"

// Cart is the durable snapshot of a customer's in-progress selections.
// One document per customer in temp_carts (unique index on customer_id,
// TTL index on created_at).
type Cart struct {
	CustomerID   string         `json:"customer_id" bson:"customer_id" doc:"Messaging channel user ID"`
	Items        map[string]int `json:"items" bson:"items" doc:"Item key to quantity"`
	Total        int            `json:"total" bson:"total" doc:"Derived total in sum"`
	HasSamsa     bool           `json:"has_samsa" bson:"has_samsa"`
	HasPackaging bool           `json:"has_packaging" bson:"has_packaging"`
	CreatedAt    time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" bson:"updated_at"`
}

// IsMeaningful reports whether the cart holds at least one item of either
// category with qty > 0. Empty carts are treated as absent.
func (c *Cart) IsMeaningful() bool {
	if c == nil {
		return false
	}
	for _, qty := range c.Items {
		if qty > 0 {
			return true
		}
	}
	return false
}
