package services

import (
	"context"
	"time"

	"krishi-mitra-backend/internal/config"
	"krishi-mitra-backend/internal/logger"
	"krishi-mitra-backend/models"
	"krishi-mitra-backend/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoQueryLog stores every resolved question in the query_log collection.
type MongoQueryLog struct {
	collection *mongo.Collection
}

func NewMongoQueryLog(db *mongo.Database) *MongoQueryLog {
	return &MongoQueryLog{collection: db.Collection(config.QueryLogCollection)}
}

// NewQueryLogEntry converts a query result into its persisted form.
func NewQueryLogEntry(requestID string, result *models.QueryResult, at time.Time) models.QueryLog {
	return models.QueryLog{
		RequestID:  requestID,
		Question:   result.Question,
		Answer:     result.Answer,
		Source:     result.Source,
		Cached:     result.Cached,
		Committed:  result.Committed,
		Chunks:     result.Chunks,
		DurationMS: result.Duration.Milliseconds(),
		CreatedAt:  at.UTC(),
	}
}

// RecordQuery inserts the result. The write outlives a cancelled request.
func (l *MongoQueryLog) RecordQuery(ctx context.Context, result *models.QueryResult) {
	entry := NewQueryLogEntry(utils.RequestIDFrom(ctx), result, time.Now())

	ctx, cancel := utils.WithShortTimeout(context.WithoutCancel(ctx))
	defer cancel()

	if _, err := l.collection.InsertOne(ctx, entry); err != nil {
		logger.Warn("Failed to record query", "error", err, "request_id", entry.RequestID)
	}
}

// Recent returns the latest limit entries, newest first.
func (l *MongoQueryLog) Recent(ctx context.Context, limit int64) ([]models.QueryLog, error) {
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cursor, err := l.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []models.QueryLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
