package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	AppEnv    string
	Debug     bool
	Version   string
	BotToken  string
	ChannelID int64
	AdminID   int64

	// SendCron drains one queued post per tick (robfig/cron spec, with seconds).
	SendCron string
	// PurgeCron wipes the admin acknowledgement messages once a day.
	PurgeCron string
	// SettleDelay is applied to every inbound message before classification,
	// giving Telegram time to deliver the rest of a burst.
	SettleDelay time.Duration
	// AlbumDelay is the media group quiescence window.
	AlbumDelay time.Duration
	// UTCOffset is the fixed offset (hours) used to interpret scheduled-post timestamps.
	UTCOffset int
	// DailyTag is exempt from caption-based duplicate matching so the
	// recurring daily post is never blocked.
	DailyTag string

	SentryDSN       string
	MongoDBURI      string
	MongoDBDatabase string
	ServerPort      int
}

// LoadConfig loads configuration from environment variables.
// It attempts to load a .env file if present but prioritizes
// actual environment variables set in the system (e.g., by Docker).
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	debug, _ := strconv.ParseBool(getEnv("DEBUG", "false"))

	channelID, err := parseID("CHANNEL_ID")
	if err != nil {
		return nil, err
	}
	adminID, err := parseID("ADMIN_ID")
	if err != nil {
		return nil, err
	}

	settleDelay, err := time.ParseDuration(getEnv("SETTLE_DELAY", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SETTLE_DELAY: %w", err)
	}
	albumDelay, err := time.ParseDuration(getEnv("ALBUM_DELAY", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid ALBUM_DELAY: %w", err)
	}

	utcOffset, err := strconv.Atoi(getEnv("UTC_OFFSET", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid UTC_OFFSET: %w", err)
	}

	serverPort, err := strconv.Atoi(getEnv("SERVER_PORT", "3000"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	cfg := &Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		Debug:           debug,
		Version:         getEnv("VERSION", "dev"),
		BotToken:        getEnv("TELEGRAM_BOT_TOKEN", ""),
		ChannelID:       channelID,
		AdminID:         adminID,
		SendCron:        getEnv("SEND_CRON", "0 0 * * * *"),
		PurgeCron:       getEnv("PURGE_CRON", "0 0 3 * * *"),
		SettleDelay:     settleDelay,
		AlbumDelay:      albumDelay,
		UTCOffset:       utcOffset,
		DailyTag:        getEnv("DAILY_TAG", "#вагонетка_дня"),
		SentryDSN:       getEnv("SENTRY_DSN", ""),
		MongoDBURI:      getEnv("MONGODB_URI", ""),
		MongoDBDatabase: getEnv("MONGODB_DATABASE", ""),
		ServerPort:      serverPort,
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.ChannelID == 0 {
		return nil, fmt.Errorf("CHANNEL_ID is required")
	}
	if cfg.AdminID == 0 {
		return nil, fmt.Errorf("ADMIN_ID is required")
	}
	if cfg.SentryDSN == "" {
		log.Println("Warning: SENTRY_DSN is not set. Error tracking disabled.")
	}
	if cfg.MongoDBURI == "" {
		log.Println("Warning: MONGODB_URI is not set. Published posts will not be recorded.")
	} else if cfg.MongoDBDatabase == "" {
		return nil, fmt.Errorf("MONGODB_DATABASE is required when MONGODB_URI is set")
	}

	return cfg, nil
}

// Location returns the fixed zone scheduled-post timestamps are parsed in.
func (c *Config) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.UTCOffset), c.UTCOffset*3600)
}

func parseID(key string) (int64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return id, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
