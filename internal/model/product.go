package model

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品目录条目：加购事件缺少名称/价格时由它兜底解析。
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name  string `gorm:"size:255;not null" json:"name"`
	Price int64  `gorm:"not null;default:0" json:"price"` // 单位：分
}

func (Product) TableName() string { return "products" }
