package model

import "time"

// CartStatus 描述购物车条目的生命周期状态机。
// 状态单向流转：pending → abandoned → converted，或 pending → converted，
// 永远不会回退。
type CartStatus string

const (
	CartPending   CartStatus = "pending"   // 已加购、未超时
	CartAbandoned CartStatus = "abandoned" // 超过放弃阈值仍未下单
	CartConverted CartStatus = "converted" // 已匹配到完成订单（终态）
)

// CartRecord 记录一条 (session, product) 加购事件及其生命周期。
// 同一 (session_id, product_id) 最多只存在一条 pending 记录，重复加购原地更新。
// 注意：不使用软删除——保留期清理是真删除，任何状态都会被清掉。
type CartRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SessionID string `gorm:"size:255;not null;index" json:"session_id"`
	UserID    *int64 `gorm:"index" json:"user_id,omitempty"`
	UserEmail string `gorm:"size:100;index" json:"user_email,omitempty"`

	ProductID   uint   `gorm:"not null;index" json:"product_id"`
	ProductName string `gorm:"size:255;not null" json:"product_name"`
	Quantity    int    `gorm:"not null;default:1" json:"quantity"`
	Price       int64  `gorm:"not null;default:0" json:"price"`      // 单价快照，单位分
	CartTotal   int64  `gorm:"not null;default:0" json:"cart_total"` // 加购时整车总额快照，单位分

	Status CartStatus `gorm:"size:16;not null;default:'pending';index" json:"status"`

	UserAgent string `json:"user_agent,omitempty"`
	IPAddress string `gorm:"size:45" json:"ip_address,omitempty"`

	// ConvertedAt / OrderID 仅在 status = converted 时填充。
	ConvertedAt *time.Time `json:"converted_at,omitempty"`
	OrderID     *uint      `json:"order_id,omitempty"`
}

func (CartRecord) TableName() string { return "cart_records" }
