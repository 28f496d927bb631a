package model

import "time"

// Product is one document per catalog item in the products collection.
type Product struct {
	Key         string    `json:"key" bson:"key" example:"samsa_beef" doc:"Catalog key"`
	DisplayName string    `json:"display_name" bson:"display_name"`
	ShortName   string    `json:"short_name" bson:"short_name"`
	Price       int       `json:"price" bson:"price" doc:"Non-negative price in sum"`
	Category    Category  `json:"category" bson:"category" example:"samsa"`
	CreatedAt   time.Time `json:"created_at,omitempty" bson:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// Availability is the single availability document (_id: "availability").
type Availability struct {
	ID       string          `json:"_id" bson:"_id"`
	Items    map[string]bool `json:"items" bson:"items"`
	SyncedAt time.Time       `json:"synced_at,omitempty" bson:"synced_at,omitempty"`
}
