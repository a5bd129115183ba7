package replay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard(t *testing.T) {
	ctx := context.Background()

	t.Run("second use is a replay", func(t *testing.T) {
		guard := NewMemoryGuard(time.Minute)

		seen, err := guard.Seen(ctx, "a")
		require.NoError(t, err)
		assert.False(t, seen)

		seen, err = guard.Seen(ctx, "a")
		require.NoError(t, err)
		assert.True(t, seen)

		seen, err = guard.Seen(ctx, "b")
		require.NoError(t, err)
		assert.False(t, seen)
	})

	t.Run("ids expire after ttl", func(t *testing.T) {
		now := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		guard := NewMemoryGuard(time.Minute)
		guard.now = func() time.Time { return now }

		_, err := guard.Seen(ctx, "a")
		require.NoError(t, err)

		now = now.Add(59 * time.Second)
		seen, err := guard.Seen(ctx, "a")
		require.NoError(t, err)
		assert.True(t, seen)

		now = now.Add(2 * time.Second)
		seen, err = guard.Seen(ctx, "a")
		require.NoError(t, err)
		assert.False(t, seen)
	})

	t.Run("expired ids are swept", func(t *testing.T) {
		now := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		guard := NewMemoryGuard(time.Minute)
		guard.now = func() time.Time { return now }

		for i := range 10 {
			_, err := guard.Seen(ctx, fmt.Sprint(i))
			require.NoError(t, err)
		}
		assert.Equal(t, 10, guard.Len())

		now = now.Add(time.Hour)
		_, err := guard.Seen(ctx, "fresh")
		require.NoError(t, err)
		assert.Equal(t, 1, guard.Len())
	})

	t.Run("sweep runs at most once per ttl", func(t *testing.T) {
		now := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		guard := NewMemoryGuard(time.Minute)
		guard.now = func() time.Time { return now }

		seenAt := func(offset time.Duration, id string) bool {
			now = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).Add(offset)

			seen, err := guard.Seen(ctx, id)
			require.NoError(t, err)

			return seen
		}

		seenAt(0, "x")              // sweeps, next sweep at 60s
		seenAt(10*time.Second, "a") // expires at 70s
		seenAt(65*time.Second, "b") // sweeps x, next sweep at 125s
		seenAt(80*time.Second, "c") // a expired, no sweep due
		assert.Equal(t, 3, guard.Len())

		assert.False(t, seenAt(80*time.Second, "a"), "expired id is not a replay before the sweep")

		seenAt(200*time.Second, "d")
		assert.Equal(t, 1, guard.Len())
	})

	t.Run("default ttl", func(t *testing.T) {
		assert.Equal(t, DefaultTTL, NewMemoryGuard(0).ttl)
	})

	t.Run("empty request id", func(t *testing.T) {
		_, err := NewMemoryGuard(time.Minute).Seen(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyRequestID)
	})

	t.Run("concurrent use admits each id once", func(t *testing.T) {
		guard := NewMemoryGuard(time.Minute)

		var (
			wg       sync.WaitGroup
			accepted atomic.Int32
		)

		for range 32 {
			wg.Add(1)
			go func() {
				defer wg.Done()

				seen, err := guard.Seen(ctx, "same")
				assert.NoError(t, err)

				if !seen {
					accepted.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), accepted.Load())
	})
}
