package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/bizfeed/backend/internal/logger"
)

func TestPoolRunsEveryJobBeforeStopReturns(t *testing.T) {
	logger.InitializeNop()
	pool := NewPool("test", 4, 64)
	pool.Start()

	var ran atomic.Int32
	for i := 0; i < 50; i++ {
		require.NoError(t, pool.Submit(func(ctx context.Context) {
			ran.Add(1)
		}))
	}

	pool.Stop()
	assert.Equal(t, int32(50), ran.Load())
}

func TestPoolConcurrentSubmit(t *testing.T) {
	logger.InitializeNop()
	pool := NewPool("test", 2, 100)
	pool.Start()

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, pool.Submit(func(ctx context.Context) { ran.Add(1) }))
		}()
	}
	wg.Wait()

	pool.Stop()
	assert.Equal(t, int32(10), ran.Load())
}

func TestPoolFullAndClosed(t *testing.T) {
	logger.InitializeNop()
	// Not started: nothing drains the buffer
	pool := NewPool("test", 1, 1)

	require.NoError(t, pool.Submit(func(ctx context.Context) {}))
	assert.ErrorIs(t, pool.Submit(func(ctx context.Context) {}), ErrQueueFull)

	pool.Start()
	pool.Stop()
	assert.ErrorIs(t, pool.Submit(func(ctx context.Context) {}), ErrQueueClosed)
	pool.Stop()
}

func TestPoolRecoversFromPanickingJob(t *testing.T) {
	logger.InitializeNop()
	pool := NewPool("test", 1, 4)
	pool.Start()

	var ran atomic.Bool
	require.NoError(t, pool.Submit(func(ctx context.Context) { panic("boom") }))
	require.NoError(t, pool.Submit(func(ctx context.Context) { ran.Store(true) }))

	pool.Stop()
	assert.True(t, ran.Load())
}
