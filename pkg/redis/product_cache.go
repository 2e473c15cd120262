package redis

import (
	"context"
	"strconv"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// ProductSnapshot 是缓存里的商品快照（名称 + 单价，单位分）。
type ProductSnapshot struct {
	Name  string
	Price int64
}

// GetProductSnapshot 读取商品快照缓存。found=false 表示 key 不存在。
func GetProductSnapshot(ctx context.Context, rdb *rd.Client, productID uint) (ProductSnapshot, bool, error) {
	key := ProductSnapshotKey(productID)
	m, err := rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return ProductSnapshot{}, false, err
	}
	if len(m) == 0 {
		return ProductSnapshot{}, false, nil
	}

	price, err := strconv.ParseInt(m["price"], 10, 64)
	if err != nil {
		return ProductSnapshot{}, false, err
	}
	return ProductSnapshot{Name: m["name"], Price: price}, true, nil
}

// PutProductSnapshot 写入商品快照并刷新 TTL。
func PutProductSnapshot(ctx context.Context, rdb *rd.Client, productID uint, snap ProductSnapshot, ttl time.Duration) error {
	key := ProductSnapshotKey(productID)
	pipe := rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"name", snap.Name,
		"price", strconv.FormatInt(snap.Price, 10),
	)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
