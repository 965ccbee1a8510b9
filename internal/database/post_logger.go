package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"vagonetka-bot/internal/database/models"
)

const postLogCollection = "post_logs"

// MongoPostLogger records published posts in MongoDB.
type MongoPostLogger struct {
	db *mongo.Database
}

// NewMongoPostLogger creates a post logger backed by the given database.
func NewMongoPostLogger(db *mongo.Database) *MongoPostLogger {
	return &MongoPostLogger{db: db}
}

// LogPublishedPost implements PostLogger.
func (l *MongoPostLogger) LogPublishedPost(entry models.PostLog) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := l.db.Collection(postLogCollection).InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert post log: %w", err)
	}
	return nil
}
