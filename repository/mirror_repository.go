package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jobradar/adpilot/models"
	"github.com/jobradar/adpilot/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Mirror repositories manage the locally-cached copies of remote advertising
// objects. Only sync passes write these tables. Upsert keys on external_id;
// MarkDeleted skips rows already in the removed terminal state so repeated
// reconcile passes are idempotent.

// AdCampaignMirrorRepositoryImpl implements AdCampaignMirrorRepository
type AdCampaignMirrorRepositoryImpl struct {
	*BaseRepository[models.AdCampaignMirror, any]
}

func NewAdCampaignMirrorRepository(db *gorm.DB) AdCampaignMirrorRepository {
	return &AdCampaignMirrorRepositoryImpl{BaseRepository: NewBaseRepository[models.AdCampaignMirror, any](db)}
}

func (r *AdCampaignMirrorRepositoryImpl) ByExternalID(ctx context.Context, externalID string) (*models.AdCampaignMirror, error) {
	db := r.getDB(ctx)
	var row models.AdCampaignMirror
	if err := db.Where("external_id = ?", externalID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find ad campaign mirror %s: %w", externalID, err)
	}
	return &row, nil
}

func (r *AdCampaignMirrorRepositoryImpl) ListIDsByAccount(ctx context.Context, accountID string) ([]string, error) {
	db := r.getDB(ctx)
	var ids []string
	if err := db.Model(&models.AdCampaignMirror{}).
		Where("account_id = ?", accountID).
		Pluck("external_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list ad campaign mirror ids: %w", err)
	}
	return ids, nil
}

func (r *AdCampaignMirrorRepositoryImpl) Upsert(ctx context.Context, row *models.AdCampaignMirror) error {
	db := r.getDB(ctx)
	now := utils.UTCNow()
	row.UpdatedAt = &now
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"account_id", "name", "status", "effective_status", "objective", "start_time", "stop_time", "updated_at"}),
	}).Create(row).Error; err != nil {
		return fmt.Errorf("failed to upsert ad campaign mirror %s: %w", row.ExternalID, err)
	}
	return nil
}

func (r *AdCampaignMirrorRepositoryImpl) MarkDeleted(ctx context.Context, accountID string, externalIDs []string) (int64, error) {
	if len(externalIDs) == 0 {
		return 0, nil
	}
	db := r.getDB(ctx)
	res := db.Model(&models.AdCampaignMirror{}).
		Where("account_id = ? AND external_id IN ? AND status <> ?", accountID, externalIDs, models.RemoteStatusDeleted).
		Updates(map[string]any{
			"status":           models.RemoteStatusDeleted,
			"effective_status": models.RemoteStatusDeleted,
			"updated_at":       utils.UTCNow(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark ad campaign mirrors deleted: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// AdSetMirrorRepositoryImpl implements AdSetMirrorRepository
type AdSetMirrorRepositoryImpl struct {
	*BaseRepository[models.AdSetMirror, any]
}

func NewAdSetMirrorRepository(db *gorm.DB) AdSetMirrorRepository {
	return &AdSetMirrorRepositoryImpl{BaseRepository: NewBaseRepository[models.AdSetMirror, any](db)}
}

func (r *AdSetMirrorRepositoryImpl) ByExternalID(ctx context.Context, externalID string) (*models.AdSetMirror, error) {
	db := r.getDB(ctx)
	var row models.AdSetMirror
	if err := db.Where("external_id = ?", externalID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find ad set mirror %s: %w", externalID, err)
	}
	return &row, nil
}

func (r *AdSetMirrorRepositoryImpl) ListIDsByAccount(ctx context.Context, accountID string) ([]string, error) {
	db := r.getDB(ctx)
	var ids []string
	if err := db.Model(&models.AdSetMirror{}).
		Where("account_id = ?", accountID).
		Pluck("external_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list ad set mirror ids: %w", err)
	}
	return ids, nil
}

func (r *AdSetMirrorRepositoryImpl) Upsert(ctx context.Context, row *models.AdSetMirror) error {
	db := r.getDB(ctx)
	now := utils.UTCNow()
	row.UpdatedAt = &now
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"account_id", "campaign_id", "name", "status", "effective_status", "daily_budget_cents", "start_time", "end_time", "updated_at"}),
	}).Create(row).Error; err != nil {
		return fmt.Errorf("failed to upsert ad set mirror %s: %w", row.ExternalID, err)
	}
	return nil
}

func (r *AdSetMirrorRepositoryImpl) MarkDeleted(ctx context.Context, accountID string, externalIDs []string) (int64, error) {
	if len(externalIDs) == 0 {
		return 0, nil
	}
	db := r.getDB(ctx)
	res := db.Model(&models.AdSetMirror{}).
		Where("account_id = ? AND external_id IN ? AND status <> ?", accountID, externalIDs, models.RemoteStatusDeleted).
		Updates(map[string]any{
			"status":           models.RemoteStatusDeleted,
			"effective_status": models.RemoteStatusDeleted,
			"updated_at":       utils.UTCNow(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark ad set mirrors deleted: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// AdMirrorRepositoryImpl implements AdMirrorRepository
type AdMirrorRepositoryImpl struct {
	*BaseRepository[models.AdMirror, any]
}

func NewAdMirrorRepository(db *gorm.DB) AdMirrorRepository {
	return &AdMirrorRepositoryImpl{BaseRepository: NewBaseRepository[models.AdMirror, any](db)}
}

func (r *AdMirrorRepositoryImpl) ByExternalID(ctx context.Context, externalID string) (*models.AdMirror, error) {
	db := r.getDB(ctx)
	var row models.AdMirror
	if err := db.Where("external_id = ?", externalID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find ad mirror %s: %w", externalID, err)
	}
	return &row, nil
}

func (r *AdMirrorRepositoryImpl) ListIDsByAccount(ctx context.Context, accountID string) ([]string, error) {
	db := r.getDB(ctx)
	var ids []string
	if err := db.Model(&models.AdMirror{}).
		Where("account_id = ?", accountID).
		Pluck("external_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list ad mirror ids: %w", err)
	}
	return ids, nil
}

func (r *AdMirrorRepositoryImpl) Upsert(ctx context.Context, row *models.AdMirror) error {
	db := r.getDB(ctx)
	now := utils.UTCNow()
	row.UpdatedAt = &now
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"account_id", "ad_set_id", "name", "status", "effective_status", "creative_id", "updated_at"}),
	}).Create(row).Error; err != nil {
		return fmt.Errorf("failed to upsert ad mirror %s: %w", row.ExternalID, err)
	}
	return nil
}

func (r *AdMirrorRepositoryImpl) MarkDeleted(ctx context.Context, accountID string, externalIDs []string) (int64, error) {
	if len(externalIDs) == 0 {
		return 0, nil
	}
	db := r.getDB(ctx)
	res := db.Model(&models.AdMirror{}).
		Where("account_id = ? AND external_id IN ? AND status <> ?", accountID, externalIDs, models.RemoteStatusDeleted).
		Updates(map[string]any{
			"status":           models.RemoteStatusDeleted,
			"effective_status": models.RemoteStatusDeleted,
			"updated_at":       utils.UTCNow(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark ad mirrors deleted: %w", res.Error)
	}
	return res.RowsAffected, nil
}
