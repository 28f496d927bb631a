package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync/atomic"
	"time"

	"samsariya-backend/infra"
	"samsariya-backend/model"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	catalogOpTimeout     = 5 * time.Second
	availabilityRedisKey = "catalog:availability"
	availabilityRedisTTL = 5 * time.Minute
)

// catalogSnapshot is an immutable view swapped atomically on refresh, so
// flow reads never block on a refresh in progress.
type catalogSnapshot struct {
	prices     map[string]int
	categories map[string]model.Category
	names      map[string]string
	available  map[string]bool
	samsaKeys  []string
	packKeys   []string
}

// CatalogService reads products and availability from MongoDB into a
// read-mostly in-memory snapshot, mirrored to Redis for other consumers.
// Staleness is bounded by the dispatcher's refresh interval.
type CatalogService struct {
	logger   zerolog.Logger
	mongoDB  *infra.MongoDB
	redis    *infra.Redis // optional; nil disables the Redis mirror
	snapshot atomic.Value // *catalogSnapshot
}

func NewCatalogService(logger zerolog.Logger, mongoDB *infra.MongoDB, redis *infra.Redis) *CatalogService {
	s := &CatalogService{
		logger:  logger.With().Str("module", "catalog_service").Logger(),
		mongoDB: mongoDB,
		redis:   redis,
	}
	s.snapshot.Store(&catalogSnapshot{
		prices:     map[string]int{},
		categories: map[string]model.Category{},
		names:      map[string]string{},
		available:  map[string]bool{},
	})
	return s
}

func (s *CatalogService) current() *catalogSnapshot {
	return s.snapshot.Load().(*catalogSnapshot)
}

// Price returns the item price, reporting whether the key exists.
func (s *CatalogService) Price(key string) (int, bool) {
	price, ok := s.current().prices[key]
	return price, ok
}

// Category returns the item category, reporting whether the key exists.
func (s *CatalogService) Category(key string) (model.Category, bool) {
	category, ok := s.current().categories[key]
	return category, ok
}

// DisplayName returns the product name, or the key when unknown.
func (s *CatalogService) DisplayName(key string) string {
	if name, ok := s.current().names[key]; ok && name != "" {
		return name
	}
	return key
}

// IsAvailable reports availability; unknown keys are unavailable.
func (s *CatalogService) IsAvailable(key string) bool {
	return s.current().available[key]
}

// Keys returns the sorted catalog keys of one category.
func (s *CatalogService) Keys(category model.Category) []string {
	snap := s.current()
	if category == model.CategorySamsa {
		return snap.samsaKeys
	}
	return snap.packKeys
}

// Refresh reloads products and availability from MongoDB and swaps the
// snapshot. Called at startup and on every dispatcher tick.
func (s *CatalogService) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, catalogOpTimeout)
	defer cancel()

	cursor, err := s.mongoDB.GetCollection(infra.CollectionProducts).Find(ctx, bson.M{})
	if err != nil {
		return &PersistenceError{Op: "catalog refresh", Err: err}
	}
	var products []model.Product
	if err := cursor.All(ctx, &products); err != nil {
		return &PersistenceError{Op: "catalog refresh decode", Err: err}
	}

	var availability model.Availability
	err = s.mongoDB.GetCollection(infra.CollectionAvailability).
		FindOne(ctx, bson.M{"_id": "availability"}).
		Decode(&availability)
	if err != nil {
		// Missing availability doc means everything stays unavailable
		// rather than failing the whole refresh.
		s.logger.Warn().Err(err).Msg("Availability document not found, treating all items as unavailable")
		availability.Items = map[string]bool{}
	}

	snap := &catalogSnapshot{
		prices:     make(map[string]int, len(products)),
		categories: make(map[string]model.Category, len(products)),
		names:      make(map[string]string, len(products)),
		available:  make(map[string]bool, len(availability.Items)),
	}
	for _, p := range products {
		snap.prices[p.Key] = p.Price
		snap.categories[p.Key] = p.Category
		snap.names[p.Key] = p.DisplayName
		if p.Category == model.CategorySamsa {
			snap.samsaKeys = append(snap.samsaKeys, p.Key)
		} else {
			snap.packKeys = append(snap.packKeys, p.Key)
		}
	}
	sort.Strings(snap.samsaKeys)
	sort.Strings(snap.packKeys)
	for k, v := range availability.Items {
		snap.available[k] = v
	}

	s.snapshot.Store(snap)
	s.mirrorToRedis(ctx, availability.Items)

	s.logger.Debug().
		Int("products", len(products)).
		Int("availability_items", len(availability.Items)).
		Msg("Catalog snapshot refreshed")
	return nil
}

// mirrorToRedis publishes the availability map for external consumers.
// Best-effort: a Redis failure never fails the refresh.
func (s *CatalogService) mirrorToRedis(ctx context.Context, items map[string]bool) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := s.redis.Client.Set(ctx, availabilityRedisKey, payload, availabilityRedisTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to mirror availability to Redis")
	}
}
