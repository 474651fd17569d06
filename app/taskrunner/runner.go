// Package taskrunner executes asynchronous publish and sync work off a
// database-backed task table. Tasks are submitted over the API, claimed by
// a polling loop, and handed to a bounded worker pool.
package taskrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jobradar/adpilot/app/middleware"
	"github.com/jobradar/adpilot/models"
	"github.com/jobradar/adpilot/platform"
	"github.com/jobradar/adpilot/repository"
	"github.com/jobradar/adpilot/utils"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultWorkers      = 4
	defaultMaxRetries   = 5
	defaultBaseBackoff  = 30 * time.Second
	defaultClaimBatch   = 50

	// dedupLockTTL bounds how long a crashed worker can hold a dedup lock
	dedupLockTTL = 30 * time.Minute
)

// Handler executes one task kind. The returned value is stored as the
// task's structured result; a returned error fails (or retries) the task.
type Handler func(ctx context.Context, task *models.Task) (any, error)

// Runner owns the task table: it accepts submissions, claims due rows and
// drives them to a terminal state. At-least-once delivery; handlers must
// tolerate redelivery.
type Runner struct {
	taskRepo repository.TaskRepository
	db       *gorm.DB
	rc       *redis.Client
	logger   *log.Logger

	interval    time.Duration
	workers     int
	maxRetries  int
	baseBackoff time.Duration

	handlers map[models.TaskKind]Handler
}

// Config tunes the runner loop
type Config struct {
	PollInterval time.Duration
	Workers      int
	MaxRetries   int
	BaseBackoff  time.Duration
	LogDir       string
}

// NewRunner creates a runner. The redis client is optional; without it
// dedup falls back to the task-table check alone.
func NewRunner(taskRepo repository.TaskRepository, db *gorm.DB, rc *redis.Client, cfg Config) *Runner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = defaultBaseBackoff
	}

	r := &Runner{
		taskRepo:    taskRepo,
		db:          db,
		rc:          rc,
		interval:    cfg.PollInterval,
		workers:     cfg.Workers,
		maxRetries:  cfg.MaxRetries,
		baseBackoff: cfg.BaseBackoff,
		handlers:    make(map[models.TaskKind]Handler),
	}
	r.logger = newRunnerLogger(cfg.LogDir)
	return r
}

// newRunnerLogger writes to stdout and a size-rotated file
func newRunnerLogger(dir string) *log.Logger {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l := log.Default()
		l.Printf("taskrunner: failed to create log dir %s: %v", dir, err)
		return l
	}
	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "taskrunner.log"),
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	mw := io.MultiWriter(os.Stdout, rotated)
	return log.New(mw, "taskrunner ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Register binds a handler to a task kind. Must be called before Start.
func (r *Runner) Register(kind models.TaskKind, h Handler) {
	r.handlers[kind] = h
}

// Logger exposes the runner's logger so wiring code can share it
func (r *Runner) Logger() *log.Logger { return r.logger }

// Submit enqueues one task. When a pending or running task already exists
// for the same dedup key the existing task is returned instead of creating
// a duplicate.
func (r *Runner) Submit(ctx context.Context, kind models.TaskKind, payload any, dedupKey string) (*models.Task, error) {
	if _, ok := r.handlers[kind]; !ok {
		return nil, fmt.Errorf("no handler registered for task kind %q", kind)
	}

	if dedupKey != "" {
		existing, err := r.taskRepo.PendingByDedupKey(ctx, dedupKey)
		if err != nil {
			return nil, fmt.Errorf("check pending task: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal task payload: %w", err)
	}

	task := &models.Task{
		Kind:        kind,
		Payload:     raw,
		DedupKey:    dedupKey,
		Status:      models.TaskStatusPending,
		ScheduledAt: utils.UTCNow(),
	}
	err = repository.WithTransaction(ctx, r.db, func(txCtx context.Context) error {
		return r.taskRepo.Save(txCtx, task)
	})
	if err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	r.logger.Printf("taskrunner: submitted task uuid=%s kind=%s dedup_key=%s", task.UUID, kind, dedupKey)
	return task, nil
}

// GetStatus looks up one task by its public identifier
func (r *Runner) GetStatus(ctx context.Context, taskUUID uuid.UUID) (*models.Task, error) {
	return r.taskRepo.ByUUID(ctx, taskUUID)
}

// Start launches the claim loop and returns a stop function. Claimed tasks
// are dispatched to a bounded worker pool; the stop function waits for
// in-flight tasks to drain. Tasks a previous process left in running are
// requeued before the first claim.
func (r *Runner) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	r.requeueStale(ctx)

	work := make(chan *models.Task)
	done := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range work {
				// A claimed task runs to a terminal state even when
				// shutdown cancels the claim loop mid-execution.
				r.execute(context.WithoutCancel(ctx), task)
			}
		}()
	}

	go func() {
		defer close(done)
		defer close(work)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.claimDue(ctx, work)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.claimDue(ctx, work)
			}
		}
	}()

	return func() {
		cancel()
		<-done
		wg.Wait()
	}
}

// requeueStale returns tasks stranded in running by an interrupted process
// to the pending queue. The retry count is untouched; an interruption is
// not a handler failure.
func (r *Runner) requeueStale(ctx context.Context) {
	stale, err := r.taskRepo.ListRunning(ctx)
	if err != nil {
		r.logger.Printf("taskrunner: list stale running tasks failed: %v", err)
		return
	}
	for _, task := range stale {
		task.Status = models.TaskStatusPending
		task.ScheduledAt = utils.UTCNow()
		task.StartedAt = nil
		if err := r.updateTask(ctx, task); err != nil {
			r.logger.Printf("taskrunner: requeue stale task uuid=%s failed: %v", task.UUID, err)
			continue
		}
		r.logger.Printf("taskrunner: requeued stale running task uuid=%s kind=%s", task.UUID, task.Kind)
	}
}

// claimDue moves due pending tasks to running and feeds them to the pool.
// Claiming before dispatch keeps a slow worker from letting the next poll
// pick the same row up again.
func (r *Runner) claimDue(ctx context.Context, work chan<- *models.Task) {
	due, err := r.taskRepo.ListDue(ctx, utils.UTCNow(), defaultClaimBatch)
	if err != nil {
		r.logger.Printf("taskrunner: list due tasks failed: %v", err)
		return
	}
	for _, task := range due {
		task.Status = models.TaskStatusRunning
		now := utils.UTCNow()
		task.StartedAt = &now
		if err := r.updateTask(ctx, task); err != nil {
			r.logger.Printf("taskrunner: claim task uuid=%s failed: %v", task.UUID, err)
			continue
		}
		select {
		case work <- task:
		case <-ctx.Done():
			return
		}
	}
}

// execute runs one claimed task to completion, retry or failure
func (r *Runner) execute(ctx context.Context, task *models.Task) {
	handler, ok := r.handlers[task.Kind]
	if !ok {
		r.fail(ctx, task, fmt.Sprintf("no handler for kind %q", task.Kind))
		return
	}

	unlock, acquired := r.acquireDedupLock(ctx, task)
	if !acquired {
		// Another worker holds the lock; push the task back for a later poll.
		r.logger.Printf("taskrunner: task uuid=%s dedup lock busy, rescheduling", task.UUID)
		task.Status = models.TaskStatusPending
		task.ScheduledAt = utils.UTCNowAdd(r.interval)
		task.StartedAt = nil
		if err := r.updateTask(ctx, task); err != nil {
			r.logger.Printf("taskrunner: reschedule task uuid=%s failed: %v", task.UUID, err)
		}
		return
	}
	defer unlock()

	result, err := r.runHandler(ctx, handler, task)
	if err != nil {
		if platform.IsTransient(err) && task.RetryCount < r.maxRetries {
			r.retry(ctx, task, err)
			return
		}
		r.fail(ctx, task, err.Error())
		return
	}
	r.succeed(ctx, task, result)
}

// runHandler isolates handler panics so one bad task cannot take the
// worker down
func (r *Runner) runHandler(ctx context.Context, handler Handler, task *models.Task) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task handler panicked: %v", rec)
		}
	}()
	return handler(ctx, task)
}

// acquireDedupLock takes a short-lived redis lock on the task's dedup key
// so concurrent runners never execute the same campaign or account at once
func (r *Runner) acquireDedupLock(ctx context.Context, task *models.Task) (func(), bool) {
	if r.rc == nil || task.DedupKey == "" {
		return func() {}, true
	}
	key := "adpilot:task-lock:" + task.DedupKey
	ok, err := r.rc.SetNX(ctx, key, task.UUID.String(), dedupLockTTL).Result()
	if err != nil {
		// Redis being down must not stop task processing; the task-table
		// dedup check still prevents duplicate submissions.
		r.logger.Printf("taskrunner: dedup lock error for key %s, proceeding without lock: %v", key, err)
		return func() {}, true
	}
	if !ok {
		return nil, false
	}
	return func() { _ = r.rc.Del(context.WithoutCancel(ctx), key).Err() }, true
}

func (r *Runner) retry(ctx context.Context, task *models.Task, cause error) {
	task.RetryCount++
	backoff := r.baseBackoff << (task.RetryCount - 1)
	msg := cause.Error()
	task.LastError = &msg
	task.Status = models.TaskStatusPending
	task.ScheduledAt = utils.UTCNowAdd(backoff)
	task.StartedAt = nil
	if err := r.updateTask(ctx, task); err != nil {
		r.logger.Printf("taskrunner: persist retry for task uuid=%s failed: %v", task.UUID, err)
		return
	}
	r.logger.Printf("taskrunner: task uuid=%s retry %d/%d in %s: %v", task.UUID, task.RetryCount, r.maxRetries, backoff, cause)
}

func (r *Runner) succeed(ctx context.Context, task *models.Task, result any) {
	raw, err := json.Marshal(result)
	if err != nil {
		r.logger.Printf("taskrunner: marshal result for task uuid=%s failed: %v", task.UUID, err)
		raw = nil
	}
	task.Status = models.TaskStatusSuccess
	task.Result = raw
	task.LastError = nil
	task.FinishedAt = utils.UTCNowPtr()
	if err := r.updateTask(ctx, task); err != nil {
		r.logger.Printf("taskrunner: persist success for task uuid=%s failed: %v", task.UUID, err)
		return
	}
	middleware.ObserveTask(string(task.Kind), string(models.TaskStatusSuccess))
	r.logger.Printf("taskrunner: task uuid=%s kind=%s succeeded", task.UUID, task.Kind)
}

func (r *Runner) fail(ctx context.Context, task *models.Task, message string) {
	task.Status = models.TaskStatusFailure
	task.LastError = &message
	task.FinishedAt = utils.UTCNowPtr()
	if err := r.updateTask(ctx, task); err != nil {
		r.logger.Printf("taskrunner: persist failure for task uuid=%s failed: %v", task.UUID, err)
		return
	}
	middleware.ObserveTask(string(task.Kind), string(models.TaskStatusFailure))
	r.logger.Printf("taskrunner: task uuid=%s kind=%s failed: %s", task.UUID, task.Kind, message)
}

func (r *Runner) updateTask(ctx context.Context, task *models.Task) error {
	return repository.WithTransaction(ctx, r.db, func(txCtx context.Context) error {
		return r.taskRepo.Update(txCtx, task)
	})
}
