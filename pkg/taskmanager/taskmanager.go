package taskmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	ErrShuttingDown  = errors.New("task manager is shutting down")
	ErrTooManyTasks  = errors.New("too many active tasks")
	ErrTaskPanicked  = errors.New("task panicked")
	ErrShutdownTimed = errors.New("timed out waiting for tasks to finish")
)

var (
	tasksStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "detached_tasks_started_total",
		Help: "Detached tasks started, by task name.",
	}, []string{"task"})
	tasksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "detached_tasks_failed_total",
		Help: "Detached tasks that returned an error, panicked or were rejected, by task name.",
	}, []string{"task"})
	tasksActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "detached_tasks_active",
		Help: "Detached tasks currently running.",
	})
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusRejected  TaskStatus = "rejected"
)

// Task describes one detached unit of work.
type Task struct {
	ID        uuid.UUID
	Name      string
	Status    TaskStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskFunc is the body of a task. Its context outlives the submitting request.
type TaskFunc func(ctx context.Context) error

// ErrorSink receives every task failure.
type ErrorSink interface {
	Report(task Task, err error)
}

// ErrorSinkFunc adapts a function to ErrorSink.
type ErrorSinkFunc func(task Task, err error)

func (f ErrorSinkFunc) Report(task Task, err error) { f(task, err) }

// LogSink reports failures through zap.
func LogSink(logger *zap.Logger) ErrorSink {
	return ErrorSinkFunc(func(task Task, err error) {
		logger.Error("Detached task failed",
			zap.String("task", task.Name),
			zap.String("taskID", task.ID.String()),
			zap.String("status", string(task.Status)),
			zap.Error(err),
		)
	})
}

type Config struct {
	MaxConcurrent int           // tasks running at once; Submit rejects beyond it
	Timeout       time.Duration // per-task deadline; zero means none
}

// TaskManager runs fire-and-forget work off the request path and makes sure
// every failure reaches the ErrorSink.
type TaskManager struct {
	cfg    Config
	logger *zap.Logger
	sink   ErrorSink

	mu      sync.Mutex
	active  map[uuid.UUID]*Task
	closing bool
	wg      sync.WaitGroup

	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// New creates a TaskManager. A nil sink falls back to LogSink.
func New(cfg Config, logger *zap.Logger, sink ErrorSink) *TaskManager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("TaskManager")
	if sink == nil {
		sink = LogSink(logger)
	}
	base, cancel := context.WithCancel(context.Background())
	return &TaskManager{
		cfg:        cfg,
		logger:     logger,
		sink:       sink,
		active:     make(map[uuid.UUID]*Task),
		baseCtx:    base,
		cancelBase: cancel,
	}
}

// Go submits fn and reports a rejected submission to the sink instead of returning it.
func (tm *TaskManager) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	if _, err := tm.Submit(ctx, name, fn); err != nil {
		now := time.Now()
		tasksFailed.WithLabelValues(name).Inc()
		tm.sink.Report(Task{ID: uuid.New(), Name: name, Status: TaskStatusRejected, CreatedAt: now, UpdatedAt: now}, err)
	}
}

// TryGo is Go for callers that must react to a rejection. A rejected task is
// counted as failed but not reported to the sink; the error is returned instead.
func (tm *TaskManager) TryGo(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if _, err := tm.Submit(ctx, name, fn); err != nil {
		tasksFailed.WithLabelValues(name).Inc()
		return err
	}
	return nil
}

// Submit starts fn in its own goroutine. The task context keeps the values of
// ctx but not its cancellation; it is cancelled only by the task timeout or by
// a Shutdown that runs out of time.
func (tm *TaskManager) Submit(ctx context.Context, name string, fn func(ctx context.Context) error) (uuid.UUID, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.closing {
		return uuid.Nil, ErrShuttingDown
	}
	if len(tm.active) >= tm.cfg.MaxConcurrent {
		return uuid.Nil, fmt.Errorf("%w (limit %d)", ErrTooManyTasks, tm.cfg.MaxConcurrent)
	}

	now := time.Now()
	task := &Task{ID: uuid.New(), Name: name, Status: TaskStatusRunning, CreatedAt: now, UpdatedAt: now}
	tm.active[task.ID] = task

	taskCtx, cancel := tm.taskContext(ctx)
	tasksStarted.WithLabelValues(name).Inc()
	tasksActive.Inc()

	tm.wg.Add(1)
	go func() {
		defer tm.wg.Done()
		defer cancel()
		tm.runTask(taskCtx, task, fn)
	}()
	return task.ID, nil
}

func (tm *TaskManager) taskContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	stop := context.AfterFunc(tm.baseCtx, cancel)
	if tm.cfg.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, tm.cfg.Timeout)
		return ctx, func() {
			cancelTimeout()
			stop()
			cancel()
		}
	}
	return ctx, func() {
		stop()
		cancel()
	}
}

func (tm *TaskManager) runTask(ctx context.Context, task *Task, fn func(ctx context.Context) error) {
	err := tm.call(ctx, fn)

	tm.mu.Lock()
	delete(tm.active, task.ID)
	task.UpdatedAt = time.Now()
	if err != nil {
		task.Status = TaskStatusFailed
	} else {
		task.Status = TaskStatusCompleted
	}
	snapshot := *task
	tm.mu.Unlock()
	tasksActive.Dec()

	if err != nil {
		tasksFailed.WithLabelValues(task.Name).Inc()
		tm.sink.Report(snapshot, err)
		return
	}
	tm.logger.Debug("Detached task completed",
		zap.String("task", task.Name),
		zap.String("taskID", task.ID.String()),
		zap.Duration("elapsed", snapshot.UpdatedAt.Sub(snapshot.CreatedAt)),
	)
}

func (tm *TaskManager) call(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, p)
		}
	}()
	return fn(ctx)
}

// Active returns the number of running tasks.
func (tm *TaskManager) Active() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return len(tm.active)
}

// Shutdown stops accepting tasks and waits for running ones. When ctx expires
// first, running tasks are cancelled and ErrShutdownTimed is returned.
func (tm *TaskManager) Shutdown(ctx context.Context) error {
	tm.mu.Lock()
	tm.closing = true
	tm.mu.Unlock()

	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		tm.cancelBase()
		return nil
	case <-ctx.Done():
		tm.cancelBase()
		tm.logger.Warn("Cancelling detached tasks still running at shutdown", zap.Int("active", tm.Active()))
		return ErrShutdownTimed
	}
}
