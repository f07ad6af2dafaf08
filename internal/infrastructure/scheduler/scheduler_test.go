package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/acctsync/internal/infrastructure/lock"
)

func countingTask(name string, interval time.Duration, calls *atomic.Int32) Task {
	return Task{
		Name:     name,
		Interval: interval,
		Run: func(ctx context.Context) (int, error) {
			return int(calls.Add(1)), nil
		},
	}
}

func TestNewSweepScheduler_Validation(t *testing.T) {
	noop := func(context.Context) (int, error) { return 0, nil }
	locker := lock.NewLocalLocker()

	cases := []struct {
		name   string
		locker lock.Locker
		tasks  []Task
	}{
		{"no locker", nil, nil},
		{"empty name", locker, []Task{{Interval: time.Second, Run: noop}}},
		{"duplicate", locker, []Task{{Name: "a", Interval: time.Second, Run: noop}, {Name: "a", Interval: time.Second, Run: noop}}},
		{"zero interval", locker, []Task{{Name: "a", Run: noop}}},
		{"nil run", locker, []Task{{Name: "a", Interval: time.Second}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSweepScheduler(DefaultSweepSchedulerConfig(), tc.locker, nil, tc.tasks...)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSweepSchedulerConfig_Defaults(t *testing.T) {
	cfg := SweepSchedulerConfig{RunTimeout: 10 * time.Minute, LockTTL: time.Minute}
	cfg.applyDefaults()

	assert.Equal(t, 11*time.Minute, cfg.LockTTL, "lock ttl is raised above the run timeout")
	assert.Equal(t, 50, cfg.HistorySize)
	assert.Equal(t, "sweep:", cfg.LockPrefix)
}

func TestSweepScheduler_RunNow(t *testing.T) {
	var calls atomic.Int32
	s, err := NewSweepScheduler(DefaultSweepSchedulerConfig(), lock.NewLocalLocker(), zap.NewNop(),
		countingTask(TaskRetryFailed, time.Hour, &calls))
	require.NoError(t, err)

	run, err := s.RunNow(context.Background(), TaskRetryFailed)
	require.NoError(t, err)
	assert.Equal(t, RunStatusSuccess, run.Status)
	assert.Equal(t, TriggerManual, run.Trigger)
	assert.Equal(t, 1, run.Processed)
	assert.False(t, run.CompletedAt.Before(run.StartedAt))

	_, err = s.RunNow(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestSweepScheduler_RunNowSkipsWhenLocked(t *testing.T) {
	ctx := context.Background()
	locker := lock.NewLocalLocker()
	var calls atomic.Int32
	s, err := NewSweepScheduler(DefaultSweepSchedulerConfig(), locker, nil,
		countingTask(TaskResolveConflicts, time.Hour, &calls))
	require.NoError(t, err)

	lease, err := locker.Acquire(ctx, "sweep:"+TaskResolveConflicts, time.Minute)
	require.NoError(t, err)

	run, err := s.RunNow(ctx, TaskResolveConflicts)
	assert.ErrorIs(t, err, ErrSweepInProgress)
	assert.Equal(t, RunStatusSkipped, run.Status)
	assert.Zero(t, calls.Load())

	require.NoError(t, lease.Release(ctx))
	_, err = s.RunNow(ctx, TaskResolveConflicts)
	require.NoError(t, err)
	assert.False(t, locker.IsHeld("sweep:"+TaskResolveConflicts), "lock is released after the run")
}

func TestSweepScheduler_RunFailureAndTimeout(t *testing.T) {
	cfg := DefaultSweepSchedulerConfig()
	cfg.RunTimeout = 20 * time.Millisecond
	s, err := NewSweepScheduler(cfg, lock.NewLocalLocker(), nil,
		Task{Name: "broken", Interval: time.Hour, Run: func(context.Context) (int, error) {
			return 3, errors.New("store unavailable")
		}},
		Task{Name: "slow", Interval: time.Hour, Run: func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		}},
	)
	require.NoError(t, err)

	run, err := s.RunNow(context.Background(), "broken")
	assert.EqualError(t, err, "store unavailable")
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Equal(t, 3, run.Processed)

	run, err = s.RunNow(context.Background(), "slow")
	require.Error(t, err)
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), run.Error)
}

func TestSweepScheduler_HistoryIsBounded(t *testing.T) {
	cfg := DefaultSweepSchedulerConfig()
	cfg.HistorySize = 3
	var calls atomic.Int32
	s, err := NewSweepScheduler(cfg, lock.NewLocalLocker(), nil, countingTask("t", time.Hour, &calls))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := s.RunNow(context.Background(), "t")
		require.NoError(t, err)
	}

	history := s.History()
	require.Len(t, history, 3)
	assert.Equal(t, []int{5, 4, 3}, []int{history[0].Processed, history[1].Processed, history[2].Processed})
}

func TestSweepScheduler_StartStop(t *testing.T) {
	var retries, conflicts atomic.Int32
	s, err := NewSweepScheduler(DefaultSweepSchedulerConfig(), lock.NewLocalLocker(), zap.NewNop(),
		countingTask(TaskRetryFailed, 10*time.Millisecond, &retries),
		countingTask(TaskResolveConflicts, 15*time.Millisecond, &conflicts),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{TaskRetryFailed, TaskResolveConflicts}, s.Tasks())

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool {
		return retries.Load() >= 2 && conflicts.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())

	stopped := retries.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, stopped, retries.Load())

	for _, run := range s.History() {
		assert.Equal(t, TriggerInterval, run.Trigger)
	}
}

func TestSweepScheduler_Disabled(t *testing.T) {
	var calls atomic.Int32
	cfg := DefaultSweepSchedulerConfig()
	cfg.Enabled = false
	s, err := NewSweepScheduler(cfg, lock.NewLocalLocker(), nil, countingTask("t", time.Millisecond, &calls))
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())

	// manual runs still work
	_, err = s.RunNow(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSweepScheduler_ReplicasShareLock(t *testing.T) {
	locker := lock.NewLocalLocker()
	release := make(chan struct{})
	started := make(chan struct{})

	blocking := Task{Name: "t", Interval: time.Hour, Run: func(context.Context) (int, error) {
		close(started)
		<-release
		return 1, nil
	}}
	first, err := NewSweepScheduler(DefaultSweepSchedulerConfig(), locker, nil, blocking)
	require.NoError(t, err)

	var calls atomic.Int32
	second, err := NewSweepScheduler(DefaultSweepSchedulerConfig(), locker, nil, countingTask("t", time.Hour, &calls))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := first.RunNow(context.Background(), "t")
		done <- err
	}()
	<-started

	_, err = second.RunNow(context.Background(), "t")
	assert.ErrorIs(t, err, ErrSweepInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Zero(t, calls.Load())
}
