package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_SubscribeUnsubscribe(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "cohort.csv"), 0)
	assert.Equal(t, DefaultDebounce, w.debounce)

	w.Subscribe("a", func(context.Context, string) error { return nil })
	w.Subscribe("a", func(context.Context, string) error { return nil })
	w.Subscribe("b", func(context.Context, string) error { return nil })
	assert.Equal(t, 2, w.HandlerCount())

	w.Unsubscribe("a")
	w.Unsubscribe("missing")
	assert.Equal(t, 1, w.HandlerCount())
}

func TestWatcher_NotifiesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cohort.csv")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))

	w := NewWatcher(path, 50*time.Millisecond)
	got := make(chan string, 4)
	w.Subscribe("reload", func(_ context.Context, p string) error {
		got <- p
		return nil
	})
	var failed atomic.Int32
	w.Subscribe("broken", func(context.Context, string) error {
		failed.Add(1)
		return errors.New("boom")
	})

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsWatching())
	defer w.Stop()

	// 其他文件的变更不触发
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("v3"), 0o600))

	select {
	case p := <-got:
		assert.Equal(t, path, p)
	case <-time.After(5 * time.Second):
		t.Fatal("handler not called")
	}
	assert.Eventually(t, func() bool { return failed.Load() >= 1 }, time.Second, 10*time.Millisecond)
}

func TestWatcher_Stop(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "cohort.csv"), 0)
	w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	w.Stop()
	assert.False(t, w.IsWatching())
	w.Stop()
}

func TestWatcher_StartMissingDir(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing", "cohort.csv"), 0)
	assert.Error(t, w.Start(context.Background()))
	assert.False(t, w.IsWatching())
}
