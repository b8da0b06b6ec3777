package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// QueryLogCollection stores one document per answered question.
const QueryLogCollection = "query_log"

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Test connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	if err := createIndexes(ctx, client, cfg.DBName); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return client, nil
}

func createIndexes(ctx context.Context, client *mongo.Client, dbName string) error {
	queryLog := client.Database(dbName).Collection(QueryLogCollection)
	_, err := queryLog.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "source", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}
