package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/bookorder/pkg/errors"
)

const (
	pendingMarker     = "pending"
	defaultPendingTTL = time.Minute
)

// IdempotencyStore 下单幂等存储
// Key设计：idem:order:{user_id}:{idempotency_key}
//   - 不存在: 首次请求
//   - "pending": 同一个键的请求正在处理
//   - 其他值: 已成功下单,值为序列化后的下单结果
type IdempotencyStore struct {
	client     *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

// NewIdempotencyStore 创建幂等存储
// ttl为成功结果保存时长;pendingTTL为处理中标记的过期时间,
// 必须长于一次下单(含重试)的最长耗时,进程崩溃后键会自动释放;<=0时使用默认值
func NewIdempotencyStore(client *redis.Client, ttl, pendingTTL time.Duration) *IdempotencyStore {
	if pendingTTL <= 0 {
		pendingTTL = defaultPendingTTL
	}
	return &IdempotencyStore{
		client:     client,
		ttl:        ttl,
		pendingTTL: pendingTTL,
	}
}

func idempotencyKey(userID uint, key string) string {
	return fmt.Sprintf("idem:order:%d:%s", userID, key)
}

// Get 查询已保存的下单结果
// 键不存在或仍在处理中时返回found=false
func (s *IdempotencyStore) Get(ctx context.Context, userID uint, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, idempotencyKey(userID, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, apperrors.WrapCode(err, apperrors.ErrCodeStorageUnavailable, "查询幂等记录失败")
	}
	if string(val) == pendingMarker {
		return nil, false, nil
	}
	return val, true, nil
}

// Reserve 占用幂等键(SET NX)
// 返回false说明同一个键已被占用(正在处理或已完成)
func (s *IdempotencyStore) Reserve(ctx context.Context, userID uint, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, idempotencyKey(userID, key), pendingMarker, s.pendingTTL).Result()
	if err != nil {
		return false, apperrors.WrapCode(err, apperrors.ErrCodeStorageUnavailable, "占用幂等键失败")
	}
	return ok, nil
}

// Save 保存下单结果,覆盖处理中标记
func (s *IdempotencyStore) Save(ctx context.Context, userID uint, key string, value []byte) error {
	if err := s.client.Set(ctx, idempotencyKey(userID, key), value, s.ttl).Err(); err != nil {
		return apperrors.WrapCode(err, apperrors.ErrCodeStorageUnavailable, "保存幂等记录失败")
	}
	return nil
}

// Release 下单失败时释放幂等键,允许客户端用同一个键重试
func (s *IdempotencyStore) Release(ctx context.Context, userID uint, key string) error {
	if err := s.client.Del(ctx, idempotencyKey(userID, key)).Err(); err != nil {
		return apperrors.WrapCode(err, apperrors.ErrCodeStorageUnavailable, "释放幂等键失败")
	}
	return nil
}
