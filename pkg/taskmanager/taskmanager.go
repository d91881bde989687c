package taskmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrShuttingDown  = errors.New("task manager is shutting down")
	ErrNotCancelable = errors.New("task is already finished")
)

// TaskStatus представляет статус задачи
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

func (s TaskStatus) finished() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

// TaskFunc - работа фоновой задачи
type TaskFunc func(ctx context.Context) error

// Task - снимок состояния задачи
type Task struct {
	ID        uuid.UUID
	Name      string
	Status    TaskStatus
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time

	cancel context.CancelFunc
}

// Config содержит конфигурацию менеджера
type Config struct {
	MaxConcurrent   int
	MaxAge          time.Duration // сколько хранить завершенные задачи
	CleanupInterval time.Duration
}

// Manager запускает фоновые задачи с ограничением параллельности.
// Задачи сверх лимита ждут своей очереди в статусе pending.
type Manager struct {
	tasks   map[uuid.UUID]*Task
	mu      sync.RWMutex
	sem     chan struct{}
	closing chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	maxAge  time.Duration
	logger  *zap.Logger
}

// New создает менеджер и запускает периодическую очистку завершенных задач
func New(cfg Config, logger *zap.Logger) *Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}

	tm := &Manager{
		tasks:   make(map[uuid.UUID]*Task),
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		closing: make(chan struct{}),
		maxAge:  cfg.MaxAge,
		logger:  logger.Named("TaskManager"),
	}
	go tm.cleanupLoop(cfg.CleanupInterval)
	return tm
}

// Submit ставит задачу в очередь. Контекст задачи не отменяется вместе с ctx вызывающего,
// но сохраняет его значения.
func (tm *Manager) Submit(ctx context.Context, name string, fn TaskFunc) (uuid.UUID, error) {
	select {
	case <-tm.closing:
		return uuid.Nil, ErrShuttingDown
	default:
	}

	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	now := time.Now()
	task := &Task{
		ID:        uuid.New(),
		Name:      name,
		Status:    TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		cancel:    cancel,
	}

	tm.mu.Lock()
	tm.tasks[task.ID] = task
	tm.mu.Unlock()

	tm.wg.Add(1)
	go func() {
		defer tm.wg.Done()
		defer cancel()
		tm.run(taskCtx, task, fn)
	}()

	tm.logger.Debug("Task submitted", zap.String("task_id", task.ID.String()), zap.String("name", name))
	return task.ID, nil
}

func (tm *Manager) run(ctx context.Context, task *Task, fn TaskFunc) {
	log := tm.logger.With(zap.String("task_id", task.ID.String()), zap.String("name", task.Name))

	select {
	case tm.sem <- struct{}{}:
		defer func() { <-tm.sem }()
	case <-ctx.Done():
		tm.setStatus(task, TaskStatusCancelled, "cancelled before start")
		return
	}

	tm.setStatus(task, TaskStatusRunning, "")
	err := fn(ctx)

	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		log.Info("Task cancelled")
		tm.setStatus(task, TaskStatusCancelled, "cancelled")
	case err != nil:
		log.Error("Task failed", zap.Error(err))
		tm.setStatus(task, TaskStatusFailed, err.Error())
	default:
		log.Info("Task completed")
		tm.setStatus(task, TaskStatusCompleted, "")
	}
}

func (tm *Manager) setStatus(task *Task, status TaskStatus, message string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if task.Status.finished() {
		return
	}
	task.Status = status
	task.Message = message
	task.UpdatedAt = time.Now()
}

// Get возвращает копию состояния задачи
func (tm *Manager) Get(id uuid.UUID) (Task, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	task, ok := tm.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	snapshot := *task
	snapshot.cancel = nil
	return snapshot, nil
}

// Cancel отменяет незавершенную задачу
func (tm *Manager) Cancel(id uuid.UUID) error {
	tm.mu.Lock()
	task, ok := tm.tasks[id]
	if !ok {
		tm.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if task.Status.finished() {
		tm.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrNotCancelable, id, task.Status)
	}
	cancel := task.cancel
	tm.mu.Unlock()

	cancel()
	return nil
}

// CleanupTasks удаляет завершенные задачи старше age
func (tm *Manager) CleanupTasks(age time.Duration) int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	removed := 0
	now := time.Now()
	for id, task := range tm.tasks {
		if task.Status.finished() && now.Sub(task.UpdatedAt) > age {
			delete(tm.tasks, id)
			removed++
		}
	}
	return removed
}

func (tm *Manager) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := tm.CleanupTasks(tm.maxAge); n > 0 {
				tm.logger.Debug("Finished tasks cleaned up", zap.Int("removed", n))
			}
		case <-tm.closing:
			return
		}
	}
}

// Shutdown перестает принимать задачи и ждет завершения запущенных.
// По истечении ctx оставшиеся задачи отменяются.
func (tm *Manager) Shutdown(ctx context.Context) error {
	tm.once.Do(func() { close(tm.closing) })

	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		tm.mu.RLock()
		for _, task := range tm.tasks {
			if !task.Status.finished() {
				task.cancel()
			}
		}
		tm.mu.RUnlock()
		return fmt.Errorf("timeout waiting for tasks: %w", ctx.Err())
	}
}
