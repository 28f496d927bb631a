package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"samsariya-backend/infra"
	"samsariya-backend/metrics"
	"samsariya-backend/model"
	"samsariya-backend/service/interfaces"
	"samsariya-backend/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const orderOpTimeout = 5 * time.Second

// OrderService persists finalized orders, publishes them to the admin queue
// and authors status-change notifications.
type OrderService struct {
	logger        zerolog.Logger
	mongoDB       *infra.MongoDB
	rabbitMQ      *infra.RabbitMQ // optional; nil skips queue publishing
	notifications interfaces.NotificationStore
	texts         interfaces.TextResolver
	locale        string
}

func NewOrderService(logger zerolog.Logger, mongoDB *infra.MongoDB, rabbitMQ *infra.RabbitMQ, notifications interfaces.NotificationStore, texts interfaces.TextResolver) *OrderService {
	return &OrderService{
		logger:        logger.With().Str("module", "order_service").Logger(),
		mongoDB:       mongoDB,
		rabbitMQ:      rabbitMQ,
		notifications: notifications,
		texts:         texts,
		locale:        "ru",
	}
}

func (s *OrderService) collection() *mongo.Collection {
	return s.mongoDB.GetCollection(infra.CollectionOrders)
}

// Create inserts the order and publishes it to orders_queue. The publish is
// best-effort; the admin system also polls the collection.
func (s *OrderService) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	start := time.Now()
	ctx, span := infra.StartSpan(ctx, "order.create",
		infra.AttrString("customer_id", order.CustomerID),
		infra.AttrInt("total", order.Total),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, orderOpTimeout)
	defer cancel()

	now := utils.NowUTC()
	order.CreatedAt = &now
	if order.ShortID == "" {
		order.ShortID = "#" + strings.ToUpper(uuid.New().String()[:4])
	}

	result, err := s.collection().InsertOne(ctx, order)
	if err != nil {
		infra.RecordError(span, err, "order insert failed")
		metrics.RecordOrderOperation(metrics.OperationCreate, metrics.StatusError, time.Since(start))
		return nil, &PersistenceError{Op: "order insert", Err: err}
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		order.ID = &oid
	}

	s.publishOrder(order)

	metrics.RecordOrderOperation(metrics.OperationCreate, metrics.StatusSuccess, time.Since(start))
	infra.MarkSuccess(span, infra.AttrString("short_id", order.ShortID))
	s.logger.Info().
		Str("short_id", order.ShortID).
		Str("customer_id", order.CustomerID).
		Str("status", string(order.Status)).
		Int("total", order.Total).
		Bool("is_preorder", order.IsPreorder).
		Msg("Order created")
	return order, nil
}

func (s *OrderService) publishOrder(order *model.Order) {
	if s.rabbitMQ == nil {
		return
	}
	body, err := json.Marshal(order)
	if err != nil {
		s.logger.Warn().Err(err).Str("short_id", order.ShortID).Msg("Failed to marshal order for queue")
		return
	}
	if err := s.rabbitMQ.PublishMessage(infra.QueueNameOrders.String(), body); err != nil {
		s.logger.Warn().Err(err).Str("short_id", order.ShortID).Msg("Failed to publish order to queue")
	}
}

func (s *OrderService) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, orderOpTimeout)
	defer cancel()

	var order model.Order
	err := s.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "order load", Err: err}
	}
	return &order, nil
}

// List returns recent orders, newest first.
func (s *OrderService) List(ctx context.Context, limit int64) ([]*model.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, orderOpTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cursor, err := s.collection().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, &PersistenceError{Op: "order list", Err: err}
	}
	var orders []*model.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, &PersistenceError{Op: "order list decode", Err: err}
	}
	return orders, nil
}

// UpdateStatus mutates the order status and enqueues an edit-style
// notification announcing the change to the customer.
func (s *OrderService) UpdateStatus(ctx context.Context, id primitive.ObjectID, status model.OrderStatus) (*model.Order, error) {
	start := time.Now()
	ctx, span := infra.StartSpan(ctx, "order.update_status",
		infra.AttrString("order_id", id.Hex()),
		infra.AttrString("status", string(status)),
	)
	defer span.End()

	order, err := s.GetByID(ctx, id)
	if err != nil {
		infra.RecordError(span, err, "order load failed")
		return nil, err
	}
	if order == nil {
		return nil, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, orderOpTimeout)
	defer cancel()

	_, err = s.collection().UpdateOne(opCtx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"status":     status,
			"updated_at": utils.NowUTC(),
		}},
	)
	if err != nil {
		infra.RecordError(span, err, "order status update failed")
		metrics.RecordOrderOperation(metrics.OperationStatusUpdate, metrics.StatusError, time.Since(start))
		return nil, &PersistenceError{Op: "order status update", Err: err}
	}
	order.Status = status

	notification := &model.Notification{
		CustomerID:  order.CustomerID,
		OrderID:     order.ID,
		Status:      string(status),
		Message:     s.buildStatusMessage(order, status),
		EditMessage: true,
		Sent:        false,
		CreatedAt:   utils.NowUTC(),
	}
	if err := s.notifications.Insert(ctx, notification); err != nil {
		// The status change itself stuck; the customer just misses the push.
		s.logger.Error().Err(err).Str("order_id", id.Hex()).Msg("Failed to enqueue status notification")
	}

	metrics.RecordOrderOperation(metrics.OperationStatusUpdate, metrics.StatusSuccess, time.Since(start))
	infra.MarkSuccess(span)
	s.logger.Info().
		Str("short_id", order.ShortID).
		Str("status", string(status)).
		Msg("Order status updated")
	return order, nil
}

// buildStatusMessage composes the full order recap plus the new status line
// so an edited message replaces the previous recap cleanly.
func (s *OrderService) buildStatusMessage(order *model.Order, status model.OrderStatus) string {
	statusLine := s.statusLine(status)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", s.texts.Resolve("order_label", s.locale), order.ShortID)
	fmt.Fprintf(&b, "%s %d сум\n", s.texts.Resolve("total_label", s.locale), order.Total)
	if order.Summary != "" {
		b.WriteString("\n")
		b.WriteString(order.Summary)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n%s %s", s.texts.Resolve("status_label", s.locale), statusLine)
	return b.String()
}

func (s *OrderService) statusLine(status model.OrderStatus) string {
	key := map[model.OrderStatus]string{
		model.OrderStatusPreparing: "status_preparing",
		model.OrderStatusReady:     "status_ready",
		model.OrderStatusDelivered: "status_delivered",
		model.OrderStatusCancelled: "status_cancelled",
		model.OrderStatusConfirmed: "status_confirmed",
	}[status]
	if key == "" {
		return fmt.Sprintf(s.texts.Resolve("status_generic", s.locale), string(status))
	}
	return s.texts.Resolve(key, s.locale)
}
