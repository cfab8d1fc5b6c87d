// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-tracks/internal/db"
)

// Supported STORE_DRIVER values.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config holds the service settings.
type Config struct {
	Port string

	StoreDriver       string
	DSN               string
	MongoURI          string
	MongoDB           string
	ConnectAttempts   int
	ConnectRetryDelay time.Duration

	CORSOrigin string
	LogLevel   string
	LogFormat  string

	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string
	MQTTUsername string
	MQTTPassword string

	UploadRateLimit  int
	UploadRateWindow int // seconds
	ContentCacheTTL  time.Duration

	// TrustProxyHeaders keys the upload rate limit on X-Forwarded-For /
	// X-Real-IP instead of the peer address.
	TrustProxyHeaders bool
}

// Load reads a .env file when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to read .env file")
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		StoreDriver:       strings.ToLower(getEnv("STORE_DRIVER", StoreSQLite)),
		DSN:               os.Getenv("DB_DSN"),
		MongoURI:          os.Getenv("MONGO_URI"),
		MongoDB:           getEnv("MONGO_DB", "gpx_tracks"),
		ConnectRetryDelay: 2 * time.Second,
		CORSOrigin:        getEnv("CORS_ORIGIN", "http://localhost:5173"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		MQTTBroker:        os.Getenv("MQTT_BROKER"),
		MQTTClientID:      getEnv("MQTT_CLIENT_ID", "gpx-tracks"),
		MQTTTopic:         getEnv("MQTT_TOPIC", "gpx/trips/ingested"),
		MQTTUsername:      os.Getenv("MQTT_USERNAME"),
		MQTTPassword:      os.Getenv("MQTT_PASSWORD"),
	}

	var err error
	if cfg.ConnectAttempts, err = getEnvInt("DB_CONNECT_ATTEMPTS", 10); err != nil {
		return nil, err
	}
	if cfg.UploadRateLimit, err = getEnvInt("UPLOAD_RATE_LIMIT", 60); err != nil {
		return nil, err
	}
	if cfg.UploadRateWindow, err = getEnvInt("UPLOAD_RATE_WINDOW_SECONDS", 60); err != nil {
		return nil, err
	}
	if cfg.ContentCacheTTL, err = getEnvDuration("CONTENT_CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TrustProxyHeaders, err = getEnvBool("TRUST_PROXY_HEADERS", false); err != nil {
		return nil, err
	}

	switch cfg.StoreDriver {
	case StoreSQLite:
		if cfg.DSN == "" {
			cfg.DSN = db.SQLiteDSN("gpxtracks.db")
		}
	case StorePostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("DB_DSN is required for STORE_DRIVER=%s", cfg.StoreDriver)
		}
	case StoreMongo:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.ConnectAttempts < 1 {
		cfg.ConnectAttempts = 1
	}
	return cfg, nil
}

// ConfigureLogging applies the log level and format to the standard logrus logger.
func (c *Config) ConfigureLogging() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)

	switch strings.ToLower(c.LogFormat) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// getEnvDuration accepts Go durations ("90s") or a plain number of seconds.
func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
