//go:build integration

package bucket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagegate/pkg/testutil/containers"
)

func TestRedisStore(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	t.Cleanup(func() {
		_ = rc.Client.Close()
		_ = rc.Container.Terminate(context.Background())
	})

	ctx := context.Background()
	s := NewRedis(rc.Client)

	t.Run("allows up to the limit then denies", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		for i := 0; i < 3; i++ {
			res, err := s.Allow(ctx, "user-1", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, res.Allowed)
			assert.Equal(t, 3-i-1, res.Remaining)
		}

		res, err := s.Allow(ctx, "user-1", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, 0, res.Remaining)
		assert.Equal(t, 3, res.Limit)
		assert.True(t, res.ResetAt.After(time.Now()))
	})

	t.Run("denied attempt does not consume a slot", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		_, err := s.Allow(ctx, "user-2", 1, time.Minute)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			res, err := s.Allow(ctx, "user-2", 1, time.Minute)
			require.NoError(t, err)
			assert.False(t, res.Allowed)
		}

		require.NoError(t, s.Reset(ctx, "user-2"))
		res, err := s.Allow(ctx, "user-2", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		_, err := s.Allow(ctx, "user-3", 1, time.Minute)
		require.NoError(t, err)
		denied, err := s.Allow(ctx, "user-3", 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, denied.Allowed)

		other, err := s.Allow(ctx, "user-4", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, other.Allowed)
	})

	t.Run("window expiry frees slots", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		_, err := s.Allow(ctx, "user-5", 1, 200*time.Millisecond)
		require.NoError(t, err)
		denied, err := s.Allow(ctx, "user-5", 1, 200*time.Millisecond)
		require.NoError(t, err)
		assert.False(t, denied.Allowed)

		time.Sleep(300 * time.Millisecond)

		res, err := s.Allow(ctx, "user-5", 1, 200*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})
}
