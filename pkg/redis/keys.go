package redis

import "fmt"

// ProductSnapshotKey 统一约定商品快照缓存键名。
func ProductSnapshotKey(productID uint) string {
	return fmt.Sprintf("cart_tracker:product:%d", productID)
}

// EventStateKey 存储 event_id 的异步处理状态（pending/processed/failed）。
func EventStateKey(eventID string) string {
	return fmt.Sprintf("cart_tracker:event:status:%s", eventID)
}

// OrderOnceKey 标记某个订单是否已做过转化匹配，用于去重重复投递。
func OrderOnceKey(orderID uint) string {
	return fmt.Sprintf("cart_tracker:order:reconciled:%d", orderID)
}

// RateLimitSessionKey / RateLimitIPKey 是埋点接口的限流键。
func RateLimitSessionKey(sessionID string) string {
	return fmt.Sprintf("rate_limit:track:session:%s", sessionID)
}

func RateLimitIPKey(ip string) string {
	return fmt.Sprintf("rate_limit:track:ip:%s", ip)
}
