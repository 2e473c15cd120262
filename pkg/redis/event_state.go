package redis

import (
	"context"
	"time"

	rd "github.com/redis/go-redis/v9"
)

const (
	// EventPending 表示事件已入流，等待异步消费。
	EventPending = "pending"
	// EventProcessed 表示事件已被消费并写入存储。
	EventProcessed = "processed"
	// EventFailed 表示事件消费失败（终态，reason 里带原因）。
	EventFailed = "failed"
)

// EventState 对应 Redis 内的埋点事件处理状态。
type EventState struct {
	EventID string
	Status  string
	Reason  string
}

// GetEventState 查询 event_id 当前状态。found=false 表示 key 不存在。
func GetEventState(ctx context.Context, rdb *rd.Client, eventID string) (EventState, bool, error) {
	key := EventStateKey(eventID)
	m, err := rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return EventState{}, false, err
	}
	if len(m) == 0 {
		return EventState{}, false, nil
	}

	out := EventState{
		EventID: eventID,
		Status:  m["status"],
		Reason:  m["reason"],
	}
	if out.Status == "" {
		out.Status = EventPending
	}
	return out, true, nil
}

// PutEventState 更新事件状态，并刷新 key TTL。
func PutEventState(ctx context.Context, rdb *rd.Client, eventID, status, reason string, ttl time.Duration) error {
	key := EventStateKey(eventID)
	pipe := rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"event_id", eventID,
		"status", status,
		"reason", reason,
	)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
