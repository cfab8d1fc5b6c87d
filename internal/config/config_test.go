package config

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"PORT", "STORE_DRIVER", "DB_DSN", "MONGO_URI", "MONGO_DB", "CORS_ORIGIN",
	"LOG_LEVEL", "LOG_FORMAT", "MQTT_BROKER", "MQTT_CLIENT_ID", "MQTT_TOPIC",
	"UPLOAD_RATE_LIMIT", "UPLOAD_RATE_WINDOW_SECONDS", "CONTENT_CACHE_TTL",
	"DB_CONNECT_ATTEMPTS", "TRUST_PROXY_HEADERS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Contains(t, cfg.DSN, "gpxtracks.db")
	assert.Contains(t, cfg.DSN, "_foreign_keys=on")
	assert.Equal(t, 10, cfg.ConnectAttempts)
	assert.Equal(t, 60, cfg.UploadRateLimit)
	assert.Equal(t, 10*time.Minute, cfg.ContentCacheTTL)
	assert.Empty(t, cfg.MQTTBroker)
	assert.False(t, cfg.TrustProxyHeaders)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DB_DSN", "host=db user=gpx dbname=gpx sslmode=disable")
	t.Setenv("CONTENT_CACHE_TTL", "90s")
	t.Setenv("UPLOAD_RATE_LIMIT", "5")
	t.Setenv("DB_CONNECT_ATTEMPTS", "0")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, "host=db user=gpx dbname=gpx sslmode=disable", cfg.DSN)
	assert.Equal(t, 90*time.Second, cfg.ContentCacheTTL)
	assert.Equal(t, 5, cfg.UploadRateLimit)
	assert.Equal(t, 1, cfg.ConnectAttempts)
	assert.True(t, cfg.TrustProxyHeaders)
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORE_DRIVER": "oracle"}},
		{"postgres without dsn", map[string]string{"STORE_DRIVER": "postgres"}},
		{"bad rate limit", map[string]string{"UPLOAD_RATE_LIMIT": "many"}},
		{"bad cache ttl", map[string]string{"CONTENT_CACHE_TTL": "soon"}},
		{"bad proxy flag", map[string]string{"TRUST_PROXY_HEADERS": "sometimes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestConfigureLogging(t *testing.T) {
	defer log.SetLevel(log.GetLevel())
	defer log.SetFormatter(log.StandardLogger().Formatter)

	cfg := &Config{LogLevel: "debug", LogFormat: "json"}
	require.NoError(t, cfg.ConfigureLogging())
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	assert.Error(t, (&Config{LogLevel: "loud", LogFormat: "text"}).ConfigureLogging())
	assert.Error(t, (&Config{LogLevel: "info", LogFormat: "xml"}).ConfigureLogging())
}
