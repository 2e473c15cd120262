package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HTTP_ADDR", "DB_PATH", "REDIS_ADDR", "REDIS_DB",
		"KAFKA_BROKERS", "KAFKA_TOPIC", "KAFKA_GROUP_ID",
		"TRACK_EVENT_STREAM", "TRACK_EVENT_GROUP", "TRACK_EVENT_CONSUMER",
		"ABANDON_AFTER_MIN", "RETENTION_DAYS",
		"TRACK_RATE_LIMIT", "TRACK_RATE_WINDOW_SEC",
		"PRODUCT_CACHE_TTL_HOUR", "ADMIN_TOKEN",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "cart_tracker.db", cfg.DBPath)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "cart-tracker-events", cfg.KafkaTopic)
	assert.Equal(t, 30*time.Minute, cfg.AbandonAfter)
	assert.Equal(t, 90*24*time.Hour, cfg.Retention)
	assert.Equal(t, 1000, cfg.TrackRateLimit)
	assert.Equal(t, time.Second, cfg.TrackRateWindow)
	assert.Equal(t, 24*time.Hour, cfg.ProductCacheTTL)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092 ,")
	t.Setenv("ABANDON_AFTER_MIN", "15")
	t.Setenv("RETENTION_DAYS", "30")
	t.Setenv("TRACK_RATE_LIMIT", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 15*time.Minute, cfg.AbandonAfter)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention)
	assert.Equal(t, 5, cfg.TrackRateLimit)
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		key   string
		value string
	}{
		{"REDIS_DB", "not-a-number"},
		{"ABANDON_AFTER_MIN", "0"},
		{"ABANDON_AFTER_MIN", "-5"},
		{"RETENTION_DAYS", "0"},
		{"TRACK_RATE_LIMIT", "0"},
		{"TRACK_RATE_WINDOW_SEC", "-1"},
		{"PRODUCT_CACHE_TTL_HOUR", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}
