package service

import (
	"context"
	"time"

	"samsariya-backend/infra"
	"samsariya-backend/model"
	"samsariya-backend/utils"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const cartOpTimeout = 5 * time.Second

// CartService is the MongoDB CartStore. At most one document per customer
// (unique index on customer_id); saves are replace-by-key upserts, so
// retrying a failed save is safe.
type CartService struct {
	logger  zerolog.Logger
	mongoDB *infra.MongoDB
}

func NewCartService(logger zerolog.Logger, mongoDB *infra.MongoDB) *CartService {
	return &CartService{
		logger:  logger.With().Str("module", "cart_service").Logger(),
		mongoDB: mongoDB,
	}
}

func (s *CartService) collection() *mongo.Collection {
	return s.mongoDB.GetCollection(infra.CollectionTempCarts)
}

// Save upserts the customer's cart snapshot, last write wins.
func (s *CartService) Save(ctx context.Context, customerID string, cart *model.Cart) error {
	ctx, cancel := context.WithTimeout(ctx, cartOpTimeout)
	defer cancel()

	now := utils.NowUTC()
	update := bson.M{
		"$set": bson.M{
			"customer_id":   customerID,
			"items":         cart.Items,
			"total":         cart.Total,
			"has_samsa":     cart.HasSamsa,
			"has_packaging": cart.HasPackaging,
			"updated_at":    now,
		},
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}

	_, err := s.collection().UpdateOne(ctx,
		bson.M{"customer_id": customerID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		s.logger.Error().Err(err).Str("customer_id", customerID).Msg("Failed to save cart")
		return &PersistenceError{Op: "cart save", Err: err}
	}
	return nil
}

// Load returns the stored cart, or nil when the customer has none.
func (s *CartService) Load(ctx context.Context, customerID string) (*model.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, cartOpTimeout)
	defer cancel()

	var cart model.Cart
	err := s.collection().FindOne(ctx, bson.M{"customer_id": customerID}).Decode(&cart)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("customer_id", customerID).Msg("Failed to load cart")
		return nil, &PersistenceError{Op: "cart load", Err: err}
	}
	return &cart, nil
}

// Delete removes the stored cart. Deleting an absent cart is not an error.
func (s *CartService) Delete(ctx context.Context, customerID string) error {
	ctx, cancel := context.WithTimeout(ctx, cartOpTimeout)
	defer cancel()

	_, err := s.collection().DeleteOne(ctx, bson.M{"customer_id": customerID})
	if err != nil {
		s.logger.Error().Err(err).Str("customer_id", customerID).Msg("Failed to delete cart")
		return &PersistenceError{Op: "cart delete", Err: err}
	}
	return nil
}
