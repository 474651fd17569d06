package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jobradar/adpilot/models"
	"gorm.io/gorm"
)

// TaskRepositoryImpl implements TaskRepository
type TaskRepositoryImpl struct {
	*BaseRepository[models.Task, any]
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &TaskRepositoryImpl{BaseRepository: NewBaseRepository[models.Task, any](db)}
}

func (r *TaskRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	db := r.getDB(ctx)
	var row models.Task
	if err := db.Where("uuid = ?", id).Last(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find task by uuid %s: %w", id, err)
	}
	return &row, nil
}

// ListDue returns pending tasks scheduled at or before 'now'
func (r *TaskRepositoryImpl) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Task, error) {
	if limit <= 0 {
		limit = 100
	}
	db := r.getDB(ctx)
	var rows []*models.Task
	if err := db.Where("status = ? AND scheduled_at <= ?", models.TaskStatusPending, now).
		Order("scheduled_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListRunning returns tasks left in the running state, oldest first.
// ListDue never revisits them, so an interrupted process would otherwise
// strand them forever.
func (r *TaskRepositoryImpl) ListRunning(ctx context.Context) ([]*models.Task, error) {
	db := r.getDB(ctx)
	var rows []*models.Task
	if err := db.Where("status = ?", models.TaskStatusRunning).
		Order("started_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// PendingByDedupKey returns the most recent unfinished task carrying the
// given de-duplication key, if any
func (r *TaskRepositoryImpl) PendingByDedupKey(ctx context.Context, dedupKey string) (*models.Task, error) {
	db := r.getDB(ctx)
	var row models.Task
	if err := db.Where("dedup_key = ? AND status IN ?", dedupKey,
		[]models.TaskStatus{models.TaskStatusPending, models.TaskStatusRunning}).
		Last(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find task by dedup key %s: %w", dedupKey, err)
	}
	return &row, nil
}
