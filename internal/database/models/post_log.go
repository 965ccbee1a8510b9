package models

import "time"

// PostLog stores information about a post published to the channel.
type PostLog struct {
	OriginChatID    int64     `bson:"origin_chat_id"`
	Caption         string    `bson:"caption,omitempty"`
	MessageType     string    `bson:"message_type"` // e.g. "media_group", "photo", "message"
	ItemCount       int       `bson:"item_count"`
	PublishedAt     time.Time `bson:"published_at"`
	Scheduled       bool      `bson:"scheduled,omitempty"`
	ChannelID       int64     `bson:"channel_id"`
	OriginMessageID int       `bson:"origin_message_id,omitempty"` // for single messages
	AlbumID         string    `bson:"album_id,omitempty"`          // for media groups
}
