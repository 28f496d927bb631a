package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"samsariya-backend/infra"
	"samsariya-backend/model"
	"samsariya-backend/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v3"
)

type Config struct {
	MongoDB struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongodb"`
}

func main() {
	configPaths := []string{
		"config.yml",
		"../config.yml",
		"../../config.yml",
	}

	var configData []byte
	var err error
	var usedPath string

	for _, path := range configPaths {
		configData, err = os.ReadFile(path)
		if err == nil {
			usedPath = path
			break
		}
	}

	if err != nil {
		log.Fatalf("config.yml not found, tried: %v", configPaths)
	}

	fmt.Printf("Using config: %s\n", usedPath)

	var cfg Config
	if err := yaml.Unmarshal(configData, &cfg); err != nil {
		log.Fatalf("Failed to parse config.yml: %v", err)
	}

	mongoConfig := infra.MongoConfig{
		URI:      cfg.MongoDB.URI,
		Database: cfg.MongoDB.Database,
	}
	mongoDB, err := infra.NewMongoDB(mongoConfig)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Close(context.Background())

	ctx := context.Background()

	fmt.Println("Creating indexes...")
	if err := createIndexes(ctx, mongoDB); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	fmt.Println("Seeding catalog...")
	if err := seedCatalog(ctx, mongoDB); err != nil {
		log.Fatalf("Failed to seed catalog: %v", err)
	}

	fmt.Println("Done")
}

func createIndexes(ctx context.Context, mongoDB *infra.MongoDB) error {
	ordersCollection := mongoDB.GetCollection(infra.CollectionOrders)
	orderIndexes := []mongo.IndexModel{
		// Admin order list and per-customer history.
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("admin_orders_query"),
		},
		{
			Keys: bson.D{
				{Key: "customer_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("customer_orders_query"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("time_range_query"),
		},
	}
	if err := createIndexesSafely(ctx, ordersCollection, orderIndexes, infra.CollectionOrders); err != nil {
		return err
	}

	cartsCollection := mongoDB.GetCollection(infra.CollectionTempCarts)
	cartIndexes := []mongo.IndexModel{
		// One stored cart per customer; Save upserts on this key.
		{
			Keys:    bson.D{{Key: "customer_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_customer_cart"),
		},
		// Abandoned carts expire after a week.
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(7 * 24 * 3600).SetName("cart_ttl"),
		},
	}
	if err := createIndexesSafely(ctx, cartsCollection, cartIndexes, infra.CollectionTempCarts); err != nil {
		return err
	}

	notificationsCollection := mongoDB.GetCollection(infra.CollectionNotifications)
	notificationIndexes := []mongo.IndexModel{
		// The dispatcher polls on sent+status sorted by created_at.
		{
			Keys: bson.D{
				{Key: "sent", Value: 1},
				{Key: "status", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("pending_dispatch_query"),
		},
	}
	if err := createIndexesSafely(ctx, notificationsCollection, notificationIndexes, infra.CollectionNotifications); err != nil {
		return err
	}

	productsCollection := mongoDB.GetCollection(infra.CollectionProducts)
	productIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_product_key"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}},
			Options: options.Index().SetName("category_query"),
		},
	}
	return createIndexesSafely(ctx, productsCollection, productIndexes, infra.CollectionProducts)
}

func createIndexesSafely(ctx context.Context, collection *mongo.Collection, indexes []mongo.IndexModel, collectionName string) error {
	for _, index := range indexes {
		_, err := collection.Indexes().CreateOne(ctx, index)
		if err != nil {
			if strings.Contains(err.Error(), "IndexOptionsConflict") ||
				strings.Contains(err.Error(), "already exists") ||
				strings.Contains(err.Error(), "DuplicateKey") ||
				strings.Contains(err.Error(), "E11000 duplicate key") {
				if name := index.Options.Name; name != nil {
					fmt.Printf("   index %s conflicts, skipping (already exists or duplicate data)\n", *name)
				}
				continue
			}
			return fmt.Errorf("failed to create %s index: %v", collectionName, err)
		}
		if name := index.Options.Name; name != nil {
			fmt.Printf("   index %s created\n", *name)
		}
	}
	return nil
}

// seedCatalog upserts the product catalog and an availability document with
// everything in stock. Existing price overrides are preserved on re-run.
func seedCatalog(ctx context.Context, mongoDB *infra.MongoDB) error {
	products := []model.Product{
		{Key: "samsa_beef", DisplayName: "Самса с говядиной", ShortName: "Говядина", Price: 15000, Category: model.CategorySamsa},
		{Key: "samsa_chicken", DisplayName: "Самса с курицей", ShortName: "Курица", Price: 12000, Category: model.CategorySamsa},
		{Key: "samsa_lamb", DisplayName: "Самса с бараниной", ShortName: "Баранина", Price: 17000, Category: model.CategorySamsa},
		{Key: "samsa_cheese", DisplayName: "Самса с сыром", ShortName: "Сыр", Price: 13000, Category: model.CategorySamsa},
		{Key: "pack_box", DisplayName: "Коробка", ShortName: "Коробка", Price: 2000, Category: model.CategoryPackaging},
		{Key: "pack_bag", DisplayName: "Пакет", ShortName: "Пакет", Price: 500, Category: model.CategoryPackaging},
	}

	collection := mongoDB.GetCollection(infra.CollectionProducts)
	now := utils.NowUTC()
	available := make(map[string]bool, len(products))

	for _, p := range products {
		available[p.Key] = true
		opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := collection.UpdateOne(opCtx,
			bson.M{"key": p.Key},
			bson.M{
				"$setOnInsert": bson.M{
					"key":          p.Key,
					"display_name": p.DisplayName,
					"short_name":   p.ShortName,
					"price":        p.Price,
					"category":     p.Category,
					"created_at":   now,
				},
				"$set": bson.M{"updated_at": now},
			},
			options.Update().SetUpsert(true),
		)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to seed product %s: %v", p.Key, err)
		}
		fmt.Printf("   product %s ready\n", p.Key)
	}

	availabilityCollection := mongoDB.GetCollection(infra.CollectionAvailability)
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := availabilityCollection.UpdateOne(opCtx,
		bson.M{"_id": "availability"},
		bson.M{"$set": bson.M{
			"items":     available,
			"synced_at": now,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to seed availability: %v", err)
	}
	fmt.Println("   availability document ready")
	return nil
}
