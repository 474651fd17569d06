package taskrunner

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jobradar/adpilot/app/dto"
	businessflow "github.com/jobradar/adpilot/business_flow"
	"github.com/jobradar/adpilot/models"
	"github.com/jobradar/adpilot/platform"
	"github.com/jobradar/adpilot/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTaskRepo is an in-memory TaskRepository mimicking the database hooks
// the runner relies on (uuid assignment on save)
type fakeTaskRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]models.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{nextID: 1, rows: make(map[uint]models.Task)}
}

func (r *fakeTaskRepo) ByID(ctx context.Context, id uint) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *fakeTaskRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.rows {
		if t.UUID == id {
			t := t
			return &t, nil
		}
	}
	return nil, nil
}

func (r *fakeTaskRepo) Save(ctx context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task.ID == 0 {
		task.ID = r.nextID
		r.nextID++
	}
	if task.UUID == uuid.Nil {
		task.UUID = uuid.New()
	}
	r.rows[task.ID] = *task
	return nil
}

func (r *fakeTaskRepo) Update(ctx context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[task.ID] = *task
	return nil
}

func (r *fakeTaskRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*models.Task
	for _, t := range r.rows {
		if t.Status == models.TaskStatusPending && !t.ScheduledAt.After(now) {
			t := t
			due = append(due, &t)
		}
	}
	return due, nil
}

func (r *fakeTaskRepo) ListRunning(ctx context.Context) ([]*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var running []*models.Task
	for _, t := range r.rows {
		if t.Status == models.TaskStatusRunning {
			t := t
			running = append(running, &t)
		}
	}
	return running, nil
}

func (r *fakeTaskRepo) PendingByDedupKey(ctx context.Context, dedupKey string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.rows {
		if t.DedupKey == dedupKey && (t.Status == models.TaskStatusPending || t.Status == models.TaskStatusRunning) {
			t := t
			return &t, nil
		}
	}
	return nil, nil
}

func (r *fakeTaskRepo) get(id uint) models.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

func newTestRunner(t *testing.T, repo *fakeTaskRepo) *Runner {
	t.Helper()
	return NewRunner(repo, nil, nil, Config{
		PollInterval: 50 * time.Millisecond,
		Workers:      2,
		MaxRetries:   3,
		BaseBackoff:  30 * time.Second,
		LogDir:       t.TempDir(),
	})
}

func TestRunnerSubmit(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTaskRepo()
	runner := newTestRunner(t, repo)
	runner.Register(models.TaskKindPublishCampaign, func(ctx context.Context, task *models.Task) (any, error) {
		return nil, nil
	})

	t.Run("CreatesPendingTask", func(t *testing.T) {
		task, err := runner.Submit(ctx, models.TaskKindPublishCampaign, models.PublishCampaignPayload{CampaignID: 7}, PublishDedupKey(7))
		require.NoError(t, err)
		require.NotNil(t, task)
		assert.Equal(t, models.TaskStatusPending, task.Status)
		assert.NotEqual(t, uuid.Nil, task.UUID)

		var payload models.PublishCampaignPayload
		require.NoError(t, json.Unmarshal(task.Payload, &payload))
		assert.Equal(t, uint(7), payload.CampaignID)
	})

	t.Run("DedupReturnsExistingTask", func(t *testing.T) {
		first, err := runner.Submit(ctx, models.TaskKindPublishCampaign, models.PublishCampaignPayload{CampaignID: 8}, PublishDedupKey(8))
		require.NoError(t, err)
		second, err := runner.Submit(ctx, models.TaskKindPublishCampaign, models.PublishCampaignPayload{CampaignID: 8}, PublishDedupKey(8))
		require.NoError(t, err)
		assert.Equal(t, first.UUID, second.UUID)
	})

	t.Run("UnregisteredKindRejected", func(t *testing.T) {
		_, err := runner.Submit(ctx, models.TaskKindSyncAccount, models.SyncAccountPayload{AccountID: "act_1"}, "")
		require.Error(t, err)
	})

	t.Run("GetStatus", func(t *testing.T) {
		task, err := runner.Submit(ctx, models.TaskKindPublishCampaign, models.PublishCampaignPayload{CampaignID: 9}, PublishDedupKey(9))
		require.NoError(t, err)
		got, err := runner.GetStatus(ctx, task.UUID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, task.UUID, got.UUID)
	})
}

func TestRunnerExecute(t *testing.T) {
	ctx := context.Background()

	claimed := func(repo *fakeTaskRepo, kind models.TaskKind) *models.Task {
		task := &models.Task{
			Kind:        kind,
			Payload:     json.RawMessage(`{}`),
			Status:      models.TaskStatusRunning,
			ScheduledAt: utils.UTCNow(),
		}
		_ = repo.Save(context.Background(), task)
		return task
	}

	t.Run("SuccessStoresResult", func(t *testing.T) {
		repo := newFakeTaskRepo()
		runner := newTestRunner(t, repo)
		runner.Register(models.TaskKindPublishCampaign, func(ctx context.Context, task *models.Task) (any, error) {
			return &dto.PublishResult{CampaignID: 7, Success: true, Status: "active"}, nil
		})

		task := claimed(repo, models.TaskKindPublishCampaign)
		runner.execute(ctx, task)

		stored := repo.get(task.ID)
		assert.Equal(t, models.TaskStatusSuccess, stored.Status)
		assert.Nil(t, stored.LastError)
		assert.NotNil(t, stored.FinishedAt)

		var result dto.PublishResult
		require.NoError(t, json.Unmarshal(stored.Result, &result))
		assert.True(t, result.Success)
		assert.Equal(t, uint(7), result.CampaignID)
	})

	t.Run("TransientErrorRetriesWithBackoff", func(t *testing.T) {
		repo := newFakeTaskRepo()
		runner := newTestRunner(t, repo)
		runner.Register(models.TaskKindSyncAccount, func(ctx context.Context, task *models.Task) (any, error) {
			return nil, &platform.Error{Op: "list campaigns", StatusCode: 429, Message: "rate limited"}
		})

		task := claimed(repo, models.TaskKindSyncAccount)
		runner.execute(ctx, task)

		stored := repo.get(task.ID)
		assert.Equal(t, models.TaskStatusPending, stored.Status)
		assert.Equal(t, 1, stored.RetryCount)
		require.NotNil(t, stored.LastError)
		assert.WithinDuration(t, utils.UTCNow().Add(30*time.Second), stored.ScheduledAt, 2*time.Second)

		// Second attempt doubles the backoff
		stored.Status = models.TaskStatusRunning
		runner.execute(ctx, &stored)
		stored = repo.get(task.ID)
		assert.Equal(t, 2, stored.RetryCount)
		assert.WithinDuration(t, utils.UTCNow().Add(60*time.Second), stored.ScheduledAt, 2*time.Second)
	})

	t.Run("RetriesExhaustedFails", func(t *testing.T) {
		repo := newFakeTaskRepo()
		runner := newTestRunner(t, repo)
		runner.Register(models.TaskKindSyncAccount, func(ctx context.Context, task *models.Task) (any, error) {
			return nil, &platform.Error{Op: "list campaigns", StatusCode: 500, Message: "upstream error"}
		})

		task := claimed(repo, models.TaskKindSyncAccount)
		task.RetryCount = 3
		runner.execute(ctx, task)

		stored := repo.get(task.ID)
		assert.Equal(t, models.TaskStatusFailure, stored.Status)
		require.NotNil(t, stored.LastError)
	})

	t.Run("NonTransientErrorFailsImmediately", func(t *testing.T) {
		repo := newFakeTaskRepo()
		runner := newTestRunner(t, repo)
		runner.Register(models.TaskKindPublishCampaign, func(ctx context.Context, task *models.Task) (any, error) {
			return nil, errors.New("campaign not found")
		})

		task := claimed(repo, models.TaskKindPublishCampaign)
		runner.execute(ctx, task)

		stored := repo.get(task.ID)
		assert.Equal(t, models.TaskStatusFailure, stored.Status)
		assert.Zero(t, stored.RetryCount)
	})

	t.Run("PanicIsIsolated", func(t *testing.T) {
		repo := newFakeTaskRepo()
		runner := newTestRunner(t, repo)
		runner.Register(models.TaskKindPublishCampaign, func(ctx context.Context, task *models.Task) (any, error) {
			panic("nil pointer somewhere")
		})

		task := claimed(repo, models.TaskKindPublishCampaign)
		runner.execute(ctx, task)

		stored := repo.get(task.ID)
		assert.Equal(t, models.TaskStatusFailure, stored.Status)
		require.NotNil(t, stored.LastError)
		assert.Contains(t, *stored.LastError, "panicked")
	})

	t.Run("UnknownKindFails", func(t *testing.T) {
		repo := newFakeTaskRepo()
		runner := newTestRunner(t, repo)

		task := claimed(repo, models.TaskKind("unknown"))
		runner.execute(ctx, task)

		stored := repo.get(task.ID)
		assert.Equal(t, models.TaskStatusFailure, stored.Status)
	})
}

func TestRunnerLoop(t *testing.T) {
	repo := newFakeTaskRepo()
	runner := newTestRunner(t, repo)

	ran := make(chan uint, 1)
	runner.Register(models.TaskKindPublishCampaign, func(ctx context.Context, task *models.Task) (any, error) {
		var payload models.PublishCampaignPayload
		_ = json.Unmarshal(task.Payload, &payload)
		ran <- payload.CampaignID
		return &dto.PublishResult{CampaignID: payload.CampaignID, Success: true}, nil
	})

	stop := runner.Start(context.Background())
	defer stop()

	task, err := runner.Submit(context.Background(), models.TaskKindPublishCampaign, models.PublishCampaignPayload{CampaignID: 11}, PublishDedupKey(11))
	require.NoError(t, err)

	select {
	case id := <-ran:
		assert.Equal(t, uint(11), id)
	case <-time.After(2 * time.Second):
		t.Fatal("task was not picked up by the claim loop")
	}

	require.Eventually(t, func() bool {
		return repo.get(task.ID).Status == models.TaskStatusSuccess
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRunnerStopDrainsWorkers(t *testing.T) {
	repo := newFakeTaskRepo()
	runner := newTestRunner(t, repo)

	started := make(chan struct{})
	release := make(chan struct{})
	runner.Register(models.TaskKindPublishCampaign, func(ctx context.Context, task *models.Task) (any, error) {
		close(started)
		<-release
		return &dto.PublishResult{CampaignID: 5, Success: true}, nil
	})

	stop := runner.Start(context.Background())
	task, err := runner.Submit(context.Background(), models.TaskKindPublishCampaign, models.PublishCampaignPayload{CampaignID: 5}, PublishDedupKey(5))
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not picked up by the claim loop")
	}

	stopped := make(chan struct{})
	go func() {
		stop()
		close(stopped)
	}()

	// The handler is still blocked, so stop must not have returned yet
	select {
	case <-stopped:
		t.Fatal("stop returned while a handler was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return after the handler finished")
	}

	assert.Equal(t, models.TaskStatusSuccess, repo.get(task.ID).Status)
}

func TestRunnerRequeueStale(t *testing.T) {
	ctx := context.Background()

	t.Run("RunningTasksReturnToPending", func(t *testing.T) {
		repo := newFakeTaskRepo()
		runner := newTestRunner(t, repo)

		startedAt := utils.UTCNow().Add(-time.Hour)
		task := &models.Task{
			Kind:        models.TaskKindSyncAccount,
			Payload:     json.RawMessage(`{}`),
			Status:      models.TaskStatusRunning,
			ScheduledAt: startedAt,
			StartedAt:   &startedAt,
			RetryCount:  2,
		}
		require.NoError(t, repo.Save(ctx, task))

		runner.requeueStale(ctx)

		stored := repo.get(task.ID)
		assert.Equal(t, models.TaskStatusPending, stored.Status)
		assert.Nil(t, stored.StartedAt)
		assert.Equal(t, 2, stored.RetryCount)
		assert.WithinDuration(t, utils.UTCNow(), stored.ScheduledAt, 2*time.Second)
	})

	t.Run("InterruptedTaskIsRedelivered", func(t *testing.T) {
		repo := newFakeTaskRepo()
		runner := newTestRunner(t, repo)
		runner.Register(models.TaskKindPublishCampaign, func(ctx context.Context, task *models.Task) (any, error) {
			return &dto.PublishResult{CampaignID: 3, Success: true}, nil
		})

		startedAt := utils.UTCNow().Add(-time.Hour)
		task := &models.Task{
			Kind:        models.TaskKindPublishCampaign,
			Payload:     json.RawMessage(`{}`),
			Status:      models.TaskStatusRunning,
			ScheduledAt: startedAt,
			StartedAt:   &startedAt,
		}
		require.NoError(t, repo.Save(ctx, task))

		stop := runner.Start(ctx)
		defer stop()

		require.Eventually(t, func() bool {
			return repo.get(task.ID).Status == models.TaskStatusSuccess
		}, 2*time.Second, 20*time.Millisecond)
	})
}

// publishFlowStub satisfies businessflow.PublishFlow for handler decoding tests
type publishFlowStub struct {
	got uint
}

func (s *publishFlowStub) Publish(ctx context.Context, campaignID uint) (*dto.PublishResult, error) {
	s.got = campaignID
	return &dto.PublishResult{CampaignID: campaignID, Success: true, Status: "active"}, nil
}

var _ businessflow.PublishFlow = (*publishFlowStub)(nil)

func TestPublishHandler(t *testing.T) {
	stub := &publishFlowStub{}
	handler := PublishHandler(stub)

	payload, _ := json.Marshal(models.PublishCampaignPayload{CampaignID: 42})
	result, err := handler(context.Background(), &models.Task{Kind: models.TaskKindPublishCampaign, Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, uint(42), stub.got)

	pr, ok := result.(*dto.PublishResult)
	require.True(t, ok)
	assert.True(t, pr.Success)

	_, err = handler(context.Background(), &models.Task{Kind: models.TaskKindPublishCampaign, Payload: json.RawMessage(`{`)})
	require.Error(t, err)
}
