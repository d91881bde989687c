package taskmanager

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func waitStatus(t *testing.T, tm *Manager, id uuid.UUID, want TaskStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		task, err := tm.Get(id)
		return err == nil && task.Status == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestManager_CompletesAndFails(t *testing.T) {
	tm := New(Config{MaxConcurrent: 2}, zap.NewNop())
	defer tm.Shutdown(context.Background())

	ok, err := tm.Submit(context.Background(), "ok", func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	failed, err := tm.Submit(context.Background(), "fail", func(ctx context.Context) error { return errors.New("boom") })
	require.NoError(t, err)

	waitStatus(t, tm, ok, TaskStatusCompleted)
	waitStatus(t, tm, failed, TaskStatusFailed)

	task, err := tm.Get(failed)
	require.NoError(t, err)
	assert.Equal(t, "boom", task.Message)
	assert.Equal(t, "fail", task.Name)

	_, err = tm.Get(uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestManager_BoundsConcurrency(t *testing.T) {
	tm := New(Config{MaxConcurrent: 2}, zap.NewNop())

	var running, peak atomic.Int32
	release := make(chan struct{})
	for i := 0; i < 5; i++ {
		_, err := tm.Submit(context.Background(), "job", func(ctx context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
			return nil
		})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return running.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	require.NoError(t, tm.Shutdown(context.Background()))
	assert.Equal(t, int32(2), peak.Load())
}

func TestManager_SubmitterCancellationDoesNotStopTask(t *testing.T) {
	tm := New(Config{}, zap.NewNop())
	defer tm.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	id, err := tm.Submit(ctx, "detached", func(taskCtx context.Context) error {
		close(started)
		time.Sleep(20 * time.Millisecond)
		return taskCtx.Err()
	})
	require.NoError(t, err)
	<-started
	cancel()

	waitStatus(t, tm, id, TaskStatusCompleted)
}

func TestManager_CancelAndCleanup(t *testing.T) {
	tm := New(Config{}, zap.NewNop())
	defer tm.Shutdown(context.Background())

	id, err := tm.Submit(context.Background(), "long", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
	waitStatus(t, tm, id, TaskStatusRunning)

	require.NoError(t, tm.Cancel(id))
	waitStatus(t, tm, id, TaskStatusCancelled)
	assert.ErrorIs(t, tm.Cancel(id), ErrNotCancelable)

	assert.Equal(t, 0, tm.CleanupTasks(time.Hour))
	assert.Equal(t, 1, tm.CleanupTasks(0))
	_, err = tm.Get(id)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestManager_RejectsAfterShutdown(t *testing.T) {
	tm := New(Config{}, zap.NewNop())
	require.NoError(t, tm.Shutdown(context.Background()))

	_, err := tm.Submit(context.Background(), "late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrShuttingDown)
}
