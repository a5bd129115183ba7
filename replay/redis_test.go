package replay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/sph/sphsig"
)

var (
	_ sphsig.ReplayGuard = (*RedisGuard)(nil)
	_ sphsig.ReplayGuard = (*MemoryGuard)(nil)
	_ RedisClient        = (*redis.Client)(nil)
)

type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	args := m.Called(ctx, key, value, expiration)
	return args.Get(0).(*redis.BoolCmd)
}

func boolCmd(val bool, err error) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(context.Background())
	cmd.SetVal(val)

	if err != nil {
		cmd.SetErr(err)
	}

	return cmd
}

func TestRedisGuard(t *testing.T) {
	ctx := context.Background()
	id := "11111111-1111-1111-1111-111111111111"

	t.Run("first use is stored", func(t *testing.T) {
		rdb := new(MockRedisClient)
		rdb.On("SetNX", mock.Anything, "merchant:replay:"+id, "1", 10*time.Minute).Return(boolCmd(true, nil)).Once()

		guard := NewRedisGuard(rdb, "merchant", 10*time.Minute, nil)

		seen, err := guard.Seen(ctx, id)
		require.NoError(t, err)
		assert.False(t, seen)
		rdb.AssertExpectations(t)
	})

	t.Run("second use is a replay", func(t *testing.T) {
		rdb := new(MockRedisClient)
		rdb.On("SetNX", mock.Anything, "merchant:replay:"+id, "1", 10*time.Minute).Return(boolCmd(true, nil)).Once()
		rdb.On("SetNX", mock.Anything, "merchant:replay:"+id, "1", 10*time.Minute).Return(boolCmd(false, nil)).Once()

		guard := NewRedisGuard(rdb, "merchant", 10*time.Minute, nil)

		seen, err := guard.Seen(ctx, id)
		require.NoError(t, err)
		assert.False(t, seen)

		seen, err = guard.Seen(ctx, id)
		require.NoError(t, err)
		assert.True(t, seen)
		rdb.AssertExpectations(t)
	})

	t.Run("defaults", func(t *testing.T) {
		rdb := new(MockRedisClient)
		rdb.On("SetNX", mock.Anything, "replay:"+id, "1", DefaultTTL).Return(boolCmd(true, nil)).Once()

		guard := NewRedisGuard(rdb, "", 0, nil)

		_, err := guard.Seen(ctx, id)
		require.NoError(t, err)
		rdb.AssertExpectations(t)
	})

	t.Run("redis error", func(t *testing.T) {
		rdb := new(MockRedisClient)
		rdb.On("SetNX", mock.Anything, mock.AnythingOfType("string"), "1", mock.AnythingOfType("time.Duration")).
			Return(boolCmd(false, errors.New("connection refused"))).Once()

		guard := NewRedisGuard(rdb, "merchant", time.Minute, nil)

		seen, err := guard.Seen(ctx, id)
		assert.ErrorContains(t, err, "connection refused")
		assert.False(t, seen)
	})

	t.Run("empty request id", func(t *testing.T) {
		rdb := new(MockRedisClient)
		guard := NewRedisGuard(rdb, "merchant", time.Minute, nil)

		_, err := guard.Seen(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyRequestID)
		rdb.AssertNotCalled(t, "SetNX")
	})
}
