package service

import (
	"context"
	"time"

	"samsariya-backend/infra"
	"samsariya-backend/model"
	"samsariya-backend/utils"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const notificationOpTimeout = 5 * time.Second

// NotificationService is the MongoDB NotificationStore. Producers (the admin
// system and the status API) insert documents with sent=false; the
// dispatcher fetches and marks them.
type NotificationService struct {
	logger  zerolog.Logger
	mongoDB *infra.MongoDB
}

func NewNotificationService(logger zerolog.Logger, mongoDB *infra.MongoDB) *NotificationService {
	return &NotificationService{
		logger:  logger.With().Str("module", "notification_service").Logger(),
		mongoDB: mongoDB,
	}
}

func (s *NotificationService) collection() *mongo.Collection {
	return s.mongoDB.GetCollection(infra.CollectionNotifications)
}

func (s *NotificationService) Insert(ctx context.Context, n *model.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, notificationOpTimeout)
	defer cancel()

	if n.CreatedAt.IsZero() {
		n.CreatedAt = utils.NowUTC()
	}
	_, err := s.collection().InsertOne(ctx, n)
	if err != nil {
		s.logger.Error().Err(err).Str("customer_id", n.CustomerID).Msg("Failed to insert notification")
		return &PersistenceError{Op: "notification insert", Err: err}
	}
	return nil
}

// FetchPending returns unsent non-admin notifications, oldest first.
func (s *NotificationService) FetchPending(ctx context.Context) ([]*model.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, notificationOpTimeout)
	defer cancel()

	filter := bson.M{
		"sent":   false,
		"status": bson.M{"$nin": model.AdminOnlyNotificationStatuses()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := s.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, &PersistenceError{Op: "notification fetch", Err: err}
	}
	var pending []*model.Notification
	if err := cursor.All(ctx, &pending); err != nil {
		return nil, &PersistenceError{Op: "notification decode", Err: err}
	}
	return pending, nil
}

func (s *NotificationService) MarkSent(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, notificationOpTimeout)
	defer cancel()

	_, err := s.collection().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"sent":    true,
			"sent_at": utils.NowUTC(),
		}},
	)
	if err != nil {
		return &PersistenceError{Op: "notification mark sent", Err: err}
	}
	return nil
}

// MarkFailed records the error and leaves sent=false so the next tick
// retries the delivery.
func (s *NotificationService) MarkFailed(ctx context.Context, id primitive.ObjectID, deliveryErr error) error {
	ctx, cancel := context.WithTimeout(ctx, notificationOpTimeout)
	defer cancel()

	_, err := s.collection().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"sent":      false,
			"error":     deliveryErr.Error(),
			"failed_at": utils.NowUTC(),
		}},
	)
	if err != nil {
		return &PersistenceError{Op: "notification mark failed", Err: err}
	}
	return nil
}
