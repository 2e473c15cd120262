package redis

import (
	"context"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// luaMarkOrderOnce 通过 SETNX 锁保证「同一订单只做一次转化匹配」。
// 上游平台会从多个钩子重复投递同一订单完成事件，匹配本身幂等，
// 这个锁只是省掉重复的全条件 UPDATE。
const luaMarkOrderOnce = `
local lockKey = KEYS[1]
local ttlSec = tonumber(ARGV[1])

if redis.call('SETNX', lockKey, '1') == 1 then
  redis.call('EXPIRE', lockKey, ttlSec)
  return 1
end
return 0
`

// MarkOrderReconciledOnce 幂等标记订单已匹配：
// - 首次标记返回 true，应当执行匹配
// - 重复标记返回 false，跳过即可
func MarkOrderReconciledOnce(ctx context.Context, rdb *rd.Client, orderID uint) (bool, error) {
	lockKey := OrderOnceKey(orderID)
	const lockTTLSeconds = int64((7 * 24 * time.Hour) / time.Second)

	n, err := rdb.Eval(ctx, luaMarkOrderOnce, []string{lockKey}, lockTTLSeconds).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
