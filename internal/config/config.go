package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig 聚合运行时配置，尽量通过环境变量注入，避免硬编码。
type AppConfig struct {
	HTTPAddr string
	DBPath   string

	RedisAddr string
	RedisDB   int

	// Kafka 集群地址（逗号分隔）、Topic、消费者组
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Redis Stream outbox（埋点接口原子入流，Relay 异步转 Kafka）
	TrackEventStream   string
	TrackEventGroup    string
	TrackEventConsumer string

	// 生命周期阈值：放弃判定与保留期
	AbandonAfter time.Duration
	Retention    time.Duration

	// 埋点接口限流与商品缓存策略
	TrackRateLimit  int
	TrackRateWindow time.Duration
	ProductCacheTTL time.Duration

	// 统计/导出等管理接口的简单管理员令牌
	AdminToken string
}

// Load 读取并校验配置，缺失时使用默认值。
func Load() (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DBPath:             getEnv("DB_PATH", "cart_tracker.db"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:            0,
		KafkaBrokers:       splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "cart-tracker-events"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "cart-tracker-consumer"),
		TrackEventStream:   getEnv("TRACK_EVENT_STREAM", "cart_tracker:track_events"),
		TrackEventGroup:    getEnv("TRACK_EVENT_GROUP", "cart-tracker-relay-group"),
		TrackEventConsumer: getEnv("TRACK_EVENT_CONSUMER", "cart-tracker-relay-1"),
		AbandonAfter:       30 * time.Minute,
		Retention:          90 * 24 * time.Hour,
		TrackRateLimit:     1000,
		TrackRateWindow:    time.Second,
		ProductCacheTTL:    24 * time.Hour,
		AdminToken:         getEnv("ADMIN_TOKEN", "dev-admin-token"),
	}

	redisDB, err := getEnvInt("REDIS_DB", cfg.RedisDB)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	abandonMin, err := getEnvInt("ABANDON_AFTER_MIN", int(cfg.AbandonAfter.Minutes()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid ABANDON_AFTER_MIN: %w", err)
	}
	if abandonMin <= 0 {
		return AppConfig{}, fmt.Errorf("ABANDON_AFTER_MIN must be > 0")
	}
	cfg.AbandonAfter = time.Duration(abandonMin) * time.Minute

	retentionDays, err := getEnvInt("RETENTION_DAYS", int(cfg.Retention.Hours()/24))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid RETENTION_DAYS: %w", err)
	}
	if retentionDays <= 0 {
		return AppConfig{}, fmt.Errorf("RETENTION_DAYS must be > 0")
	}
	cfg.Retention = time.Duration(retentionDays) * 24 * time.Hour

	rateLimit, err := getEnvInt("TRACK_RATE_LIMIT", cfg.TrackRateLimit)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid TRACK_RATE_LIMIT: %w", err)
	}
	if rateLimit <= 0 {
		return AppConfig{}, fmt.Errorf("TRACK_RATE_LIMIT must be > 0")
	}
	cfg.TrackRateLimit = rateLimit

	rateWindowSec, err := getEnvInt("TRACK_RATE_WINDOW_SEC", int(cfg.TrackRateWindow.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid TRACK_RATE_WINDOW_SEC: %w", err)
	}
	if rateWindowSec <= 0 {
		return AppConfig{}, fmt.Errorf("TRACK_RATE_WINDOW_SEC must be > 0")
	}
	cfg.TrackRateWindow = time.Duration(rateWindowSec) * time.Second

	cacheTTLHour, err := getEnvInt("PRODUCT_CACHE_TTL_HOUR", int(cfg.ProductCacheTTL.Hours()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid PRODUCT_CACHE_TTL_HOUR: %w", err)
	}
	if cacheTTLHour <= 0 {
		return AppConfig{}, fmt.Errorf("PRODUCT_CACHE_TTL_HOUR must be > 0")
	}
	cfg.ProductCacheTTL = time.Duration(cacheTTLHour) * time.Hour

	if len(cfg.KafkaBrokers) == 0 {
		return AppConfig{}, fmt.Errorf("KAFKA_BROKERS must not be empty")
	}
	if cfg.KafkaTopic == "" {
		return AppConfig{}, fmt.Errorf("KAFKA_TOPIC must not be empty")
	}
	if cfg.KafkaGroupID == "" {
		return AppConfig{}, fmt.Errorf("KAFKA_GROUP_ID must not be empty")
	}
	if cfg.TrackEventStream == "" {
		return AppConfig{}, fmt.Errorf("TRACK_EVENT_STREAM must not be empty")
	}
	if cfg.TrackEventGroup == "" {
		return AppConfig{}, fmt.Errorf("TRACK_EVENT_GROUP must not be empty")
	}
	if cfg.TrackEventConsumer == "" {
		return AppConfig{}, fmt.Errorf("TRACK_EVENT_CONSUMER must not be empty")
	}

	return cfg, nil
}

// getEnv 读取字符串环境变量，若为空则返回默认值。
func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// getEnvInt 读取整数环境变量，若为空则返回默认值。
func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

// splitCSV 将逗号分隔字符串解析为字符串切片。
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
