// Package scheduler runs the periodic sync sweeps. Each run takes a named
// lock first so that replicas sharing a redis do not sweep the same records
// at the same time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/acctsync/internal/infrastructure/lock"
)

// RunStatus is the outcome of one task run
type RunStatus string

const (
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
	RunStatusSkipped RunStatus = "SKIPPED"
)

// Trigger says what started a run
type Trigger string

const (
	TriggerInterval Trigger = "interval"
	TriggerManual   Trigger = "manual"
)

// TaskFunc performs one run and returns how many records it examined
type TaskFunc func(ctx context.Context) (int, error)

// Task is a named job repeated every Interval
type Task struct {
	Name     string
	Interval time.Duration
	Run      TaskFunc
}

// Run is the history entry of one execution
type Run struct {
	ID          uuid.UUID `json:"id"`
	Task        string    `json:"task"`
	Trigger     Trigger   `json:"trigger"`
	Status      RunStatus `json:"status"`
	Processed   int       `json:"processed"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Duration returns how long the run took
func (r Run) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// SweepSchedulerConfig holds scheduler configuration
type SweepSchedulerConfig struct {
	Enabled bool
	// RunTimeout bounds a single run
	RunTimeout time.Duration
	// LockTTL must outlive RunTimeout, otherwise a slow run loses its lock
	LockTTL time.Duration
	// HistorySize is the number of runs kept in memory
	HistorySize int
	// LockPrefix namespaces the task locks
	LockPrefix string
}

// DefaultSweepSchedulerConfig returns default scheduler configuration
func DefaultSweepSchedulerConfig() SweepSchedulerConfig {
	return SweepSchedulerConfig{
		Enabled:     true,
		RunTimeout:  5 * time.Minute,
		LockTTL:     6 * time.Minute,
		HistorySize: 50,
		LockPrefix:  "sweep:",
	}
}

func (c *SweepSchedulerConfig) applyDefaults() {
	def := DefaultSweepSchedulerConfig()
	if c.RunTimeout <= 0 {
		c.RunTimeout = def.RunTimeout
	}
	if c.LockTTL < c.RunTimeout {
		c.LockTTL = c.RunTimeout + time.Minute
	}
	if c.HistorySize <= 0 {
		c.HistorySize = def.HistorySize
	}
	if c.LockPrefix == "" {
		c.LockPrefix = def.LockPrefix
	}
}

// SweepScheduler runs tasks on their intervals until stopped
type SweepScheduler struct {
	config SweepSchedulerConfig
	tasks  []Task
	locker lock.Locker
	logger *zap.Logger
	nowFn  func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	historyMu sync.Mutex
	history   []Run
}

// NewSweepScheduler validates tasks and creates a scheduler
func NewSweepScheduler(config SweepSchedulerConfig, locker lock.Locker, logger *zap.Logger, tasks ...Task) (*SweepScheduler, error) {
	if locker == nil {
		return nil, fmt.Errorf("%w: locker is required", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		switch {
		case t.Name == "":
			return nil, fmt.Errorf("%w: task name is required", ErrInvalidConfig)
		case seen[t.Name]:
			return nil, fmt.Errorf("%w: duplicate task %q", ErrInvalidConfig, t.Name)
		case t.Interval <= 0:
			return nil, fmt.Errorf("%w: task %q needs a positive interval", ErrInvalidConfig, t.Name)
		case t.Run == nil:
			return nil, fmt.Errorf("%w: task %q has no run function", ErrInvalidConfig, t.Name)
		}
		seen[t.Name] = true
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config.applyDefaults()

	return &SweepScheduler{
		config: config,
		tasks:  tasks,
		locker: locker,
		logger: logger,
		nowFn:  time.Now,
	}, nil
}

// Start launches one loop per task. It is a no-op when disabled or running.
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Sweep scheduler is disabled")
		return nil
	}
	s.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	names := make([]string, 0, len(s.tasks))
	for _, t := range s.tasks {
		names = append(names, t.Name)
		s.wg.Add(1)
		go s.loop(ctx, t)
	}

	s.logger.Info("Sweep scheduler started",
		zap.Strings("tasks", names),
		zap.Duration("run_timeout", s.config.RunTimeout),
		zap.Duration("lock_ttl", s.config.LockTTL),
	)
	return nil
}

// Stop cancels the loops and waits for in-flight runs until ctx ends
func (s *SweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sweep scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sweep scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the scheduler is running
func (s *SweepScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// RunNow executes the named task synchronously, under the same lock as the
// periodic runs
func (s *SweepScheduler) RunNow(ctx context.Context, name string) (Run, error) {
	task, ok := s.task(name)
	if !ok {
		return Run{}, fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}
	run := s.execute(ctx, task, TriggerManual)
	switch run.Status {
	case RunStatusSkipped:
		return run, ErrSweepInProgress
	case RunStatusFailed:
		return run, errors.New(run.Error)
	}
	return run, nil
}

// History returns the most recent runs, newest first
func (s *SweepScheduler) History() []Run {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	out := make([]Run, len(s.history))
	for i, r := range s.history {
		out[len(s.history)-1-i] = r
	}
	return out
}

// Tasks returns the configured task names
func (s *SweepScheduler) Tasks() []string {
	names := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		names[i] = t.Name
	}
	return names
}

func (s *SweepScheduler) task(name string) (Task, bool) {
	for _, t := range s.tasks {
		if t.Name == name {
			return t, true
		}
	}
	return Task{}, false
}

func (s *SweepScheduler) loop(ctx context.Context, task Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Sweep loop stopping", zap.String("task", task.Name))
			return
		case <-ticker.C:
			s.execute(ctx, task, TriggerInterval)
		}
	}
}

func (s *SweepScheduler) execute(ctx context.Context, task Task, trigger Trigger) Run {
	run := Run{
		ID:        uuid.New(),
		Task:      task.Name,
		Trigger:   trigger,
		StartedAt: s.nowFn(),
	}
	logger := s.logger.With(
		zap.String("task", task.Name),
		zap.String("run_id", run.ID.String()),
		zap.String("trigger", string(trigger)),
	)

	lease, err := s.locker.Acquire(ctx, s.config.LockPrefix+task.Name, s.config.LockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			logger.Debug("Sweep skipped, lock held elsewhere")
			run.Status = RunStatusSkipped
		} else {
			logger.Error("Failed to acquire sweep lock", zap.Error(err))
			run.Status = RunStatusFailed
			run.Error = err.Error()
		}
		return s.finish(run)
	}
	defer func() {
		// the run context may already be cancelled at this point
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			logger.Warn("Failed to release sweep lock", zap.Error(err))
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	processed, err := task.Run(runCtx)
	run.Processed = processed
	if err != nil {
		run.Status = RunStatusFailed
		run.Error = err.Error()
		logger.Error("Sweep failed", zap.Int("processed", processed), zap.Error(err))
		return s.finish(run)
	}

	run.Status = RunStatusSuccess
	if processed > 0 {
		logger.Info("Sweep completed", zap.Int("processed", processed))
	} else {
		logger.Debug("Sweep completed, nothing to do")
	}
	return s.finish(run)
}

func (s *SweepScheduler) finish(run Run) Run {
	run.CompletedAt = s.nowFn()

	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	s.history = append(s.history, run)
	if over := len(s.history) - s.config.HistorySize; over > 0 {
		s.history = append(s.history[:0:0], s.history[over:]...)
	}
	return run
}
