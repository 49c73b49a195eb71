package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateStore_AcquireRespectsTTL(t *testing.T) {
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	s := newMemoryStateStore(func() time.Time { return now })
	ctx := context.Background()

	ok, err := s.Acquire(ctx, "k", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(10 * time.Second)
	ok, err = s.Acquire(ctx, "k", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	left, err := s.Remaining(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, left)

	now = now.Add(20 * time.Second)
	left, err = s.Remaining(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, left)

	ok, err = s.Acquire(ctx, "k", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStateStore_Release(t *testing.T) {
	s := NewMemoryStateStore()
	ctx := context.Background()

	left, err := s.Remaining(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, left)

	ok, err := s.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Release(ctx, "k"))
	ok, err = s.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStateStore_AcquireOnce(t *testing.T) {
	s := NewMemoryStateStore()
	var won atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.Acquire(context.Background(), "k", time.Minute); ok {
				won.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), won.Load())
}
