package parallel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolRunsSubmittedTasks(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Shutdown()

	var count int32
	for i := 0; i < 10; i++ {
		err := pool.Submit(context.Background(), func() {
			atomic.AddInt32(&count, 1)
		})
		require.NoError(t, err)
	}
	pool.Shutdown()
	assert.Equal(t, int32(10), atomic.LoadInt32(&count))
}

func TestWorkerPoolDefaultsToNumCPU(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Shutdown()
	assert.NotNil(t, pool)
}

func TestWorkerPoolSubmitAfterShutdownFails(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Shutdown()
	err := pool.Submit(context.Background(), func() {})
	assert.Equal(t, ErrPoolShutdown, err)
}

func TestWorkerPoolShutdownIsIdempotent(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Shutdown()
	assert.NotPanics(t, func() { pool.Shutdown() })
}

func TestWorkerPoolSubmitRespectsContextCancellation(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Shutdown()

	block := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func() { <-block }))
	for i := 0; i < 4; i++ {
		require.NoError(t, pool.Submit(context.Background(), func() {}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := pool.Submit(ctx, func() {})
	close(block)
	assert.Error(t, err)
}

func TestWorkerPoolRecoversPanickingTask(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Shutdown()

	done := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func() {
		defer close(done)
		panic("boom")
	}))
	<-done

	var ran int32
	require.NoError(t, pool.Submit(context.Background(), func() {
		atomic.StoreInt32(&ran, 1)
	}))
	pool.Shutdown()
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran), "the pool must keep serving tasks after a panic")
}
