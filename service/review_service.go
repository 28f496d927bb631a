package service

import (
	"context"
	"time"

	"samsariya-backend/infra"
	"samsariya-backend/model"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const reviewOpTimeout = 5 * time.Second

// ReviewService is the MongoDB ReviewStore. Reviews are append-only; the
// flow shows the newest few on request.
type ReviewService struct {
	logger  zerolog.Logger
	mongoDB *infra.MongoDB
}

func NewReviewService(logger zerolog.Logger, mongoDB *infra.MongoDB) *ReviewService {
	return &ReviewService{
		logger:  logger.With().Str("module", "review_service").Logger(),
		mongoDB: mongoDB,
	}
}

func (s *ReviewService) collection() *mongo.Collection {
	return s.mongoDB.GetCollection(infra.CollectionReviews)
}

func (s *ReviewService) Save(ctx context.Context, review *model.Review) error {
	ctx, cancel := context.WithTimeout(ctx, reviewOpTimeout)
	defer cancel()

	result, err := s.collection().InsertOne(ctx, review)
	if err != nil {
		s.logger.Error().Err(err).Str("customer_id", review.CustomerID).Msg("Failed to save review")
		return &PersistenceError{Op: "review save", Err: err}
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		review.ID = &id
	}
	return nil
}

// Recent returns up to n reviews, newest first.
func (s *ReviewService) Recent(ctx context.Context, n int64) ([]*model.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, reviewOpTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(n)

	cursor, err := s.collection().Find(ctx, bson.M{}, opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list reviews")
		return nil, &PersistenceError{Op: "review list", Err: err}
	}
	defer cursor.Close(ctx)

	var reviews []*model.Review
	if err := cursor.All(ctx, &reviews); err != nil {
		s.logger.Error().Err(err).Msg("Failed to decode reviews")
		return nil, &PersistenceError{Op: "review list", Err: err}
	}
	return reviews, nil
}
