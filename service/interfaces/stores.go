package interfaces

import (
	"context"

	"samsariya-backend/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartStore is the durable per-customer cart contract. Save is an idempotent
// replace-by-customer-key upsert; Load returns nil when nothing is stored.
type CartStore interface {
	Save(ctx context.Context, customerID string, cart *model.Cart) error
	Load(ctx context.Context, customerID string) (*model.Cart, error)
	Delete(ctx context.Context, customerID string) error
}

// OrderStore persists finalized orders. Status is the only field mutated
// after creation.
type OrderStore interface {
	Create(ctx context.Context, order *model.Order) (*model.Order, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error)
	List(ctx context.Context, limit int64) ([]*model.Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status model.OrderStatus) (*model.Order, error)
}

// ReviewStore persists customer reviews. Recent returns at most n reviews,
// newest first.
type ReviewStore interface {
	Save(ctx context.Context, review *model.Review) error
	Recent(ctx context.Context, n int64) ([]*model.Review, error)
}

// NotificationStore is consumed by the dispatcher (pending fetch, outcome
// marking) and written to by the status update path.
type NotificationStore interface {
	Insert(ctx context.Context, n *model.Notification) error
	FetchPending(ctx context.Context) ([]*model.Notification, error)
	MarkSent(ctx context.Context, id primitive.ObjectID) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, deliveryErr error) error
}
