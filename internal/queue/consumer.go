package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"cart_tracker/internal/tracker"
	rediskey "cart_tracker/pkg/redis"

	rd "github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// Consumer 消费 Kafka 埋点事件并驱动 Tracker。
// 外部商城平台也可以直接往同一 topic 投递事件。
type Consumer struct {
	r   *kafka.Reader
	trk *tracker.Tracker
	rdb *rd.Client

	stateTTL time.Duration
}

func NewConsumer(brokers []string, topic, groupID string, trk *tracker.Tracker, rdb *rd.Client) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		trk:      trk,
		rdb:      rdb,
		stateTTL: 24 * time.Hour,
	}
}

func (c *Consumer) Close() error { return c.r.Close() }

func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			return // ctx cancel / 连接断开等
		}

		var ev TrackEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			log.Printf("consumer unmarshal: %v", err)
			continue
		}
		if err := ev.Validate(); err != nil {
			log.Printf("consumer invalid event id=%s: %v", ev.EventID, err)
			continue
		}

		if err := c.handle(ctx, ev); err != nil {
			log.Printf("consumer handle %s id=%s: %v", ev.Type, ev.EventID, err)
			c.putState(ctx, ev.EventID, rediskey.EventFailed, err.Error())
			continue
		}
		c.putState(ctx, ev.EventID, rediskey.EventProcessed, "")
	}
}

func (c *Consumer) handle(ctx context.Context, ev TrackEvent) error {
	switch ev.Type {
	case EventCartAdd:
		var userID *int64
		if ev.UserID > 0 {
			uid := ev.UserID
			userID = &uid
		}
		return c.trk.RecordCartAdd(ctx, tracker.CartAddEvent{
			SessionID:   ev.SessionID,
			UserID:      userID,
			UserEmail:   ev.UserEmail,
			ProductID:   ev.ProductID,
			ProductName: ev.ProductName,
			Quantity:    ev.Quantity,
			Price:       ev.Price,
			CartTotal:   ev.CartTotal,
			UserAgent:   ev.UserAgent,
			IPAddress:   ev.IPAddress,
		})
	case EventOrderCompleted:
		// 同一订单可能被上游多个钩子重复投递；匹配本身幂等，
		// SETNX 锁只是跳过重复的全条件 UPDATE。Redis 出错时照常匹配。
		if c.rdb != nil {
			first, err := rediskey.MarkOrderReconciledOnce(ctx, c.rdb, ev.OrderID)
			if err == nil && !first {
				return nil
			}
		}
		var userID *int64
		if ev.UserID > 0 {
			uid := ev.UserID
			userID = &uid
		}
		return c.trk.RecordOrderCompleted(ctx, tracker.OrderCompletedEvent{
			OrderID:    ev.OrderID,
			SessionID:  ev.SessionID,
			UserID:     userID,
			UserEmail:  ev.UserEmail,
			ProductIDs: ev.ProductIDs,
		})
	default:
		return nil
	}
}

func (c *Consumer) putState(ctx context.Context, eventID, status, reason string) {
	if c.rdb == nil {
		return
	}
	if err := rediskey.PutEventState(ctx, c.rdb, eventID, status, reason, c.stateTTL); err != nil {
		log.Printf("consumer put event state id=%s: %v", eventID, err)
	}
}
