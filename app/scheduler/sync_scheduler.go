// Package scheduler
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jobradar/adpilot/app/taskrunner"
	"github.com/jobradar/adpilot/models"
	"github.com/jobradar/adpilot/repository"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SyncScheduler periodically enqueues one sync task per active ad account.
// The task runner's dedup key keeps an account from being enqueued again
// while a previous sync is still pending or running.
type SyncScheduler struct {
	accountRepo repository.AdAccountRepository
	runner      *taskrunner.Runner
	logger      *log.Logger
	interval    time.Duration
}

// NewSyncScheduler creates a scheduler that fires every interval
func NewSyncScheduler(
	accountRepo repository.AdAccountRepository,
	runner *taskrunner.Runner,
	interval time.Duration,
	logDir string,
) *SyncScheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	s := &SyncScheduler{
		accountRepo: accountRepo,
		runner:      runner,
		interval:    interval,
	}
	s.logger = newSchedulerLogger(logDir)
	return s
}

// newSchedulerLogger writes to both stdout and a size-rotated file
func newSchedulerLogger(dir string) *log.Logger {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l := log.Default()
		l.Printf("scheduler: failed to create log dir %s: %v", dir, err)
		return l
	}
	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "scheduler.log"),
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	mw := io.MultiWriter(os.Stdout, rotated)
	return log.New(mw, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the scheduler loop in a background goroutine and returns
// a stop function
func (s *SyncScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *SyncScheduler) runOnce(ctx context.Context) {
	accounts, err := s.accountRepo.ListActive(ctx)
	if err != nil {
		s.logger.Printf("scheduler: list active accounts failed: %v", err)
		return
	}
	if len(accounts) == 0 {
		return
	}

	enqueued := 0
	for _, account := range accounts {
		payload := models.SyncAccountPayload{AccountID: account.ExternalID}
		task, err := s.runner.Submit(ctx, models.TaskKindSyncAccount, payload, taskrunner.SyncDedupKey(account.ExternalID))
		if err != nil {
			s.logger.Printf("scheduler: enqueue sync for account=%s failed: %v", account.ExternalID, err)
			continue
		}
		if task.Status == models.TaskStatusPending && task.RetryCount == 0 && task.StartedAt == nil {
			enqueued++
		}
	}
	s.logger.Printf("scheduler: %d active accounts, %d sync tasks enqueued", len(accounts), enqueued)
}
