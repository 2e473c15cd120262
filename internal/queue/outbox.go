package queue

import (
	"context"
	"encoding/json"

	rd "github.com/redis/go-redis/v9"
)

// EnqueueTrackEvent 把事件原子写入 Redis Stream outbox。
// HTTP 埋点接口走这里快速返回，由 Relay 异步转发进 Kafka。
func EnqueueTrackEvent(ctx context.Context, rdb *rd.Client, stream string, ev TrackEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return rdb.XAdd(ctx, &rd.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"event_id": ev.EventID,
			"type":     ev.Type,
			"payload":  string(payload),
		},
	}).Err()
}

// parseTrackEvent 从 Stream 条目还原事件并校验。
func parseTrackEvent(values map[string]interface{}) (TrackEvent, error) {
	payload, err := getStreamString(values, "payload")
	if err != nil {
		return TrackEvent{}, err
	}
	var ev TrackEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return TrackEvent{}, err
	}
	if err := ev.Validate(); err != nil {
		return TrackEvent{}, err
	}
	return ev, nil
}
