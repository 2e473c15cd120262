package catalog

import (
	"context"
	"log"
	"time"

	"cart_tracker/internal/model"
	rediskey "cart_tracker/pkg/redis"

	rd "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Store 是商品目录：DB 为准，Redis 缓存快照挡读流量。
// 缓存任何一步失败都只降级回源，不影响查询结果。
type Store struct {
	db  *gorm.DB
	rdb *rd.Client
	ttl time.Duration
}

func New(db *gorm.DB, rdb *rd.Client, ttl time.Duration) *Store {
	return &Store{db: db, rdb: rdb, ttl: ttl}
}

// Lookup 解析商品名称与单价（分）。先查缓存，未命中回源 DB 并回填。
func (s *Store) Lookup(ctx context.Context, productID uint) (string, int64, error) {
	if s.rdb != nil {
		snap, found, err := rediskey.GetProductSnapshot(ctx, s.rdb, productID)
		if err == nil && found {
			return snap.Name, snap.Price, nil
		}
		if err != nil {
			log.Printf("catalog cache get product=%d: %v", productID, err)
		}
	}

	var p model.Product
	if err := s.db.WithContext(ctx).First(&p, productID).Error; err != nil {
		return "", 0, err
	}

	if s.rdb != nil {
		snap := rediskey.ProductSnapshot{Name: p.Name, Price: p.Price}
		if err := rediskey.PutProductSnapshot(ctx, s.rdb, productID, snap, s.ttl); err != nil {
			log.Printf("catalog cache put product=%d: %v", productID, err)
		}
	}
	return p.Name, p.Price, nil
}

// Create 新增目录条目并预写缓存。
func (s *Store) Create(ctx context.Context, name string, price int64) (*model.Product, error) {
	p := &model.Product{Name: name, Price: price}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	if s.rdb != nil {
		snap := rediskey.ProductSnapshot{Name: p.Name, Price: p.Price}
		if err := rediskey.PutProductSnapshot(ctx, s.rdb, p.ID, snap, s.ttl); err != nil {
			log.Printf("catalog cache put product=%d: %v", p.ID, err)
		}
	}
	return p, nil
}

// List 返回全部目录条目。
func (s *Store) List(ctx context.Context) ([]model.Product, error) {
	var list []model.Product
	err := s.db.WithContext(ctx).Find(&list).Error
	return list, err
}
