package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cart_tracker/internal/catalog"
	"cart_tracker/internal/config"
	"cart_tracker/internal/model"
	"cart_tracker/internal/queue"
	"cart_tracker/internal/router"
	"cart_tracker/internal/tracker"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. 连接 SQLite，自动建表
	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrate(&model.CartRecord{}, &model.Product{}); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	// 2. Redis：outbox、限流、商品缓存、事件状态
	rdb := rd.NewClient(&rd.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	cat := catalog.New(db, rdb, cfg.ProductCacheTTL)
	trk := tracker.New(db, cat, cfg.AbandonAfter, cfg.Retention)

	// 3. 事件管道：Stream outbox → Relay → Kafka → Consumer → Tracker
	producer := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()
	relay := queue.NewRelay(rdb, producer, cfg.TrackEventStream, cfg.TrackEventGroup, cfg.TrackEventConsumer)
	go relay.Run(ctx)

	consumer := queue.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, trk, rdb)
	defer consumer.Close()
	go consumer.Run(ctx)

	// 4. 保留期清理：启动跑一次，之后每天一次
	go runRetentionSweep(ctx, trk)

	r := gin.Default()
	router.Setup(r, trk, cat, rdb, cfg)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}

// runRetentionSweep 每日清理一次超过保留期的记录。
func runRetentionSweep(ctx context.Context, trk *tracker.Tracker) {
	if err := trk.SweepRetention(ctx); err != nil {
		log.Printf("retention sweep: %v", err)
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := trk.SweepRetention(ctx); err != nil {
				log.Printf("retention sweep: %v", err)
			}
		}
	}
}
