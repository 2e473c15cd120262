package tracker

import (
	"context"
	"errors"
	"time"

	"cart_tracker/internal/model"

	"gorm.io/gorm"
)

// Catalog 解析商品快照（名称、单价）。实现可以走 DB、缓存或远端服务。
type Catalog interface {
	Lookup(ctx context.Context, productID uint) (name string, price int64, err error)
}

// 商品解析失败时的兜底快照：记录照常入库，不向调用方暴露错误。
const unknownProductName = "Unknown Product"

// CartAddEvent 是一次「加入购物车」事件。
// ProductName / Price 可缺省，缺省时通过 Catalog 解析。
type CartAddEvent struct {
	SessionID   string
	UserID      *int64
	UserEmail   string
	ProductID   uint
	ProductName string
	Quantity    int
	Price       *int64 // 单位分；nil 表示未知，需查目录
	CartTotal   int64  // 整车总额快照，单位分
	UserAgent   string
	IPAddress   string
}

// OrderCompletedEvent 是一次「订单完成」事件，携带订单侧能拿到的全部身份线索。
type OrderCompletedEvent struct {
	OrderID    uint
	SessionID  string
	UserID     *int64
	UserEmail  string
	ProductIDs []uint
}

// Tracker 维护 cart_records 表的完整生命周期：
// 加购 upsert → 超时置 abandoned → 订单完成多键匹配置 converted → 到期清理。
// 单个实例在进程启动时构造一次，显式传给事件分发方，不做全局单例。
type Tracker struct {
	db      *gorm.DB
	catalog Catalog

	abandonAfter time.Duration
	retention    time.Duration

	// now 可在测试中替换，生产固定为 time.Now。
	now func() time.Time
}

func New(db *gorm.DB, catalog Catalog, abandonAfter, retention time.Duration) *Tracker {
	return &Tracker{
		db:           db,
		catalog:      catalog,
		abandonAfter: abandonAfter,
		retention:    retention,
		now:          time.Now,
	}
}

// RecordCartAdd 记录一次加购事件。
// 同一 (session_id, product_id) 已有 pending 记录时原地刷新数量/价格/总额，
// 否则插入新 pending 记录；对相同事件重复调用幂等。
// 商品信息缺失时降级为占位值，不报错。每次调用后顺带跑一轮放弃扫描。
func (t *Tracker) RecordCartAdd(ctx context.Context, ev CartAddEvent) error {
	if ev.Quantity <= 0 {
		ev.Quantity = 1
	}
	name, price := t.resolveProduct(ctx, ev)

	var existing model.CartRecord
	err := t.db.WithContext(ctx).
		Where("session_id = ? AND product_id = ? AND status = ?",
			ev.SessionID, ev.ProductID, model.CartPending).
		First(&existing).Error

	switch {
	case err == nil:
		// 已有 pending 记录：只刷新数量、价格与总额，其余字段保持首次快照。
		err = t.db.WithContext(ctx).Model(&existing).Updates(map[string]any{
			"quantity":   ev.Quantity,
			"price":      price,
			"cart_total": ev.CartTotal,
			"updated_at": t.now(),
		}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		now := t.now()
		rec := model.CartRecord{
			CreatedAt:   now,
			UpdatedAt:   now,
			SessionID:   ev.SessionID,
			UserID:      ev.UserID,
			UserEmail:   ev.UserEmail,
			ProductID:   ev.ProductID,
			ProductName: name,
			Quantity:    ev.Quantity,
			Price:       price,
			CartTotal:   ev.CartTotal,
			Status:      model.CartPending,
			UserAgent:   ev.UserAgent,
			IPAddress:   ev.IPAddress,
		}
		err = t.db.WithContext(ctx).Create(&rec).Error
	}
	if err != nil {
		return err
	}

	// 惰性放弃检测：挂在每次加购之后，而不是精确定时器。
	// 代价是“下一次任意加购才会看到超时”，对分析型数据足够。
	return t.SweepAbandoned(ctx)
}

// resolveProduct 补全事件里缺失的商品名称/价格。目录查不到时用占位值。
func (t *Tracker) resolveProduct(ctx context.Context, ev CartAddEvent) (string, int64) {
	name := ev.ProductName
	var price int64
	if ev.Price != nil {
		price = *ev.Price
	}
	if name != "" && ev.Price != nil {
		return name, price
	}
	if t.catalog != nil {
		if cName, cPrice, err := t.catalog.Lookup(ctx, ev.ProductID); err == nil {
			if name == "" {
				name = cName
			}
			if ev.Price == nil {
				price = cPrice
			}
			return name, price
		}
	}
	if name == "" {
		name = unknownProductName
	}
	return name, price
}

// SweepAbandoned 将超过阈值仍为 pending 的记录置为 abandoned。
func (t *Tracker) SweepAbandoned(ctx context.Context) error {
	now := t.now()
	cutoff := now.Add(-t.abandonAfter)
	return t.db.WithContext(ctx).Model(&model.CartRecord{}).
		Where("status = ? AND created_at < ?", model.CartPending, cutoff).
		Updates(map[string]any{
			"status":     model.CartAbandoned,
			"updated_at": now,
		}).Error
}

// RecordOrderCompleted 把订单与历史加购记录做多键匹配并置为 converted。
//
// 没有任何一个外键能可靠关联订单和加购（游客下单没有 user_id，结账时
// session 可能已更换），所以这里刻意用 OR 宽匹配换召回：session、用户、
// 邮箱、商品集合中任意一个命中即算转化。会误伤同商品的其他遗弃购物车，
// 这是已知并接受的过匹配策略，不要“修复”成单键精确匹配。
//
// 只更新 pending/abandoned 记录，converted 是终态，重复调用天然幂等。
// 四个匹配键全部为空时不发任何语句，避免全表更新。
func (t *Tracker) RecordOrderCompleted(ctx context.Context, ev OrderCompletedEvent) error {
	db := t.db.WithContext(ctx)

	var match *gorm.DB
	or := func(query string, args ...any) {
		if match == nil {
			match = db.Where(query, args...)
		} else {
			match = match.Or(query, args...)
		}
	}
	if ev.SessionID != "" {
		or("session_id = ?", ev.SessionID)
	}
	if ev.UserID != nil && *ev.UserID > 0 {
		or("user_id = ?", *ev.UserID)
	}
	if ev.UserEmail != "" {
		or("user_email = ?", ev.UserEmail)
	}
	if len(ev.ProductIDs) > 0 {
		or("product_id IN ?", ev.ProductIDs)
	}
	if match == nil {
		return nil
	}

	now := t.now()
	return db.Model(&model.CartRecord{}).
		Where("status IN ?", []model.CartStatus{model.CartPending, model.CartAbandoned}).
		Where(match).
		Updates(map[string]any{
			"status":       model.CartConverted,
			"converted_at": now,
			"order_id":     ev.OrderID,
			"updated_at":   now,
		}).Error
}

// SweepRetention 删除超过保留期的记录，不区分状态，不可恢复。
// 边界取闭区间：恰好到期（created_at == now-retention）的记录也会被删。
func (t *Tracker) SweepRetention(ctx context.Context) error {
	cutoff := t.now().Add(-t.retention)
	return t.db.WithContext(ctx).
		Where("created_at <= ?", cutoff).
		Delete(&model.CartRecord{}).Error
}
