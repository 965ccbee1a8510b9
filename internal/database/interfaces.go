package database

import "vagonetka-bot/internal/database/models"

// PostLogger defines the interface for recording published posts.
type PostLogger interface {
	// LogPublishedPost records information about a post published to the channel.
	LogPublishedPost(log models.PostLog) error
}

// NopPostLogger discards post records. Used when no database is configured.
type NopPostLogger struct{}

// LogPublishedPost implements PostLogger.
func (NopPostLogger) LogPublishedPost(models.PostLog) error { return nil }
