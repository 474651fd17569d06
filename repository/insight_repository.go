package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jobradar/adpilot/models"
	"github.com/jobradar/adpilot/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InsightRepositoryImpl implements InsightRepository
type InsightRepositoryImpl struct {
	*BaseRepository[models.Insight, models.InsightFilter]
}

func NewInsightRepository(db *gorm.DB) InsightRepository {
	return &InsightRepositoryImpl{BaseRepository: NewBaseRepository[models.Insight, models.InsightFilter](db)}
}

func (r *InsightRepositoryImpl) ByKey(ctx context.Context, objectID string, level models.ObjectLevel, dateStart time.Time) (*models.Insight, error) {
	db := r.getDB(ctx)
	var row models.Insight
	if err := db.Where("object_id = ? AND level = ? AND date_start = ?", objectID, level, dateStart).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find insight %s/%s/%s: %w", objectID, level, dateStart.Format("2006-01-02"), err)
	}
	return &row, nil
}

func (r *InsightRepositoryImpl) applyFilter(db *gorm.DB, f models.InsightFilter) *gorm.DB {
	if f.ObjectID != nil {
		db = db.Where("object_id = ?", *f.ObjectID)
	}
	if f.Level != nil {
		db = db.Where("level = ?", *f.Level)
	}
	if f.AccountID != nil {
		db = db.Where("account_id = ?", *f.AccountID)
	}
	if f.DateFrom != nil {
		db = db.Where("date_start >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		db = db.Where("date_start <= ?", *f.DateTo)
	}
	return db
}

func (r *InsightRepositoryImpl) ByFilter(ctx context.Context, filter models.InsightFilter, orderBy string, limit, offset int) ([]*models.Insight, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Insight{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Insight
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find insights by filter: %w", err)
	}
	return rows, nil
}

// Upsert writes one insight row keyed on (object_id, level, date_start).
// All metric fields are overwritten on conflict, so repeated syncs are
// last-write-wins.
func (r *InsightRepositoryImpl) Upsert(ctx context.Context, row *models.Insight) error {
	db := r.getDB(ctx)
	now := utils.UTCNow()
	row.UpdatedAt = &now
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "object_id"}, {Name: "level"}, {Name: "date_start"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"date_stop", "account_id", "impressions", "clicks", "spend_cents",
			"cpc_cents", "ctr", "applications_submitted", "applications_value",
			"leads", "leads_value", "raw_actions", "raw_action_values", "updated_at",
		}),
	}).Create(row).Error; err != nil {
		return fmt.Errorf("failed to upsert insight %s/%s: %w", row.ObjectID, row.Level, err)
	}
	return nil
}
