package queue

import "fmt"

// 事件类型：加购与订单完成共用一条事件流。
const (
	EventCartAdd        = "cart_add"
	EventOrderCompleted = "order_completed"
)

// TrackEvent 是流经 Redis Stream / Kafka 的埋点事件。
// EventID 同时作为 Kafka key 与整条链路的追踪标识。
type TrackEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`

	// cart_add 字段
	SessionID   string `json:"session_id,omitempty"`
	UserID      int64  `json:"user_id,omitempty"` // 0 表示匿名
	UserEmail   string `json:"user_email,omitempty"`
	ProductID   uint   `json:"product_id,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
	Price       *int64 `json:"price,omitempty"` // 分；nil 走目录解析
	CartTotal   int64  `json:"cart_total,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
	IPAddress   string `json:"ip_address,omitempty"`

	// order_completed 字段
	OrderID    uint   `json:"order_id,omitempty"`
	ProductIDs []uint `json:"product_ids,omitempty"`
}

// Validate 做最小字段校验，防止消费者处理脏消息。
// 注意 order_completed 不要求身份键非空——四键全空的订单事件是合法输入，
// 消费侧会按无操作处理。
func (m TrackEvent) Validate() error {
	if m.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	switch m.Type {
	case EventCartAdd:
		if m.SessionID == "" {
			return fmt.Errorf("session_id is required")
		}
		if m.ProductID == 0 {
			return fmt.Errorf("product_id is required")
		}
		if m.Quantity < 0 {
			return fmt.Errorf("quantity must be >= 0")
		}
		if m.CartTotal < 0 {
			return fmt.Errorf("cart_total must be >= 0")
		}
	case EventOrderCompleted:
		if m.OrderID == 0 {
			return fmt.Errorf("order_id is required")
		}
	default:
		return fmt.Errorf("unknown event type %q", m.Type)
	}
	return nil
}
