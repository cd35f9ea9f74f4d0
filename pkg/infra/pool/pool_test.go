package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	p, err := New("test", DefaultConfig())
	require.NoError(t, err, "创建池失败")
	defer p.Release()

	assert.Equal(t, "test", p.Name())
	assert.Equal(t, 16, p.Stats().Capacity)
}

func TestNew_InvalidCapacity(t *testing.T) {
	_, err := New("test", &Config{Capacity: 0})
	assert.ErrorIs(t, err, ErrInvalidPoolConfig)
}

func TestPoolSubmit(t *testing.T) {
	p, err := New("test", &Config{Capacity: 10, ExpiryDuration: 5 * time.Second})
	require.NoError(t, err)
	defer p.Release()

	var counter atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		if err := p.Submit(func() {
			defer wg.Done()
			counter.Add(1)
		}); err != nil {
			t.Errorf("提交任务失败: %v", err)
			wg.Done()
		}
	}
	wg.Wait()

	assert.Equal(t, int32(100), counter.Load())
	assert.Equal(t, int64(100), p.Stats().Submitted)
}

func TestPoolSubmitWithContext_Cancelled(t *testing.T) {
	p, err := New("test", &Config{Capacity: 2, ExpiryDuration: time.Second})
	require.NoError(t, err)
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = p.SubmitWithContext(ctx, func() {
		t.Error("已取消的任务不应执行")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoolSubmit_AfterRelease(t *testing.T) {
	p, err := New("test", DefaultConfig())
	require.NoError(t, err)
	p.Release()
	p.Release()

	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
}

func TestPool_PanicRecovered(t *testing.T) {
	var handled atomic.Bool
	done := make(chan struct{})
	p, err := New("test", &Config{
		Capacity: 1,
		PanicHandler: func(any) {
			handled.Store(true)
			close(done)
		},
	})
	require.NoError(t, err)
	defer p.Release()

	require.NoError(t, p.Submit(func() { panic("boom") }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("panic handler 未被调用")
	}
	assert.True(t, handled.Load())
	assert.Equal(t, int64(1), p.Stats().Panics)
}
