package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/bookorder/pkg/errors"
)

func newTestStore(t *testing.T) (*IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewIdempotencyStore(client, time.Hour, 0), mr
}

func TestIdempotencyStore_Lifecycle(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, found, err := store.Get(ctx, 1, "k1")
	require.NoError(t, err)
	assert.False(t, found)

	ok, err := store.Reserve(ctx, 1, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("处理中不算命中", func(t *testing.T) {
		_, found, err := store.Get(ctx, 1, "k1")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("重复占用失败", func(t *testing.T) {
		ok, err := store.Reserve(ctx, 1, "k1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("不同用户的同名键互不影响", func(t *testing.T) {
		ok, err := store.Reserve(ctx, 2, "k1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	require.NoError(t, store.Save(ctx, 1, "k1", []byte(`{"order_id":1}`)))

	val, found, err := store.Get(ctx, 1, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"order_id":1}`, string(val))
	assert.Equal(t, time.Hour, mr.TTL("idem:order:1:k1"))
}

func TestIdempotencyStore_Release(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, 1, "k2")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Release(ctx, 1, "k2"))

	ok, err = store.Reserve(ctx, 1, "k2")
	require.NoError(t, err)
	assert.True(t, ok, "释放后可以重新占用")
}

func TestIdempotencyStore_PendingExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, 1, "k3")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(defaultPendingTTL + time.Second)

	ok, err = store.Reserve(ctx, 1, "k3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyStore_Unavailable(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	_, _, err := store.Get(context.Background(), 1, "k4")
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)

	_, err = store.Reserve(context.Background(), 1, "k4")
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
}

func TestIdempotencyStore_PendingTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewIdempotencyStore(client, time.Hour, 5*time.Minute)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, 1, "k5")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, mr.TTL("idem:order:1:k5"))

	mr.FastForward(defaultPendingTTL + time.Second)
	ok, err = store.Reserve(ctx, 1, "k5")
	require.NoError(t, err)
	assert.False(t, ok, "下单未结束前处理中标记不能过期")
}
