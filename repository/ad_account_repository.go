package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jobradar/adpilot/models"
	"gorm.io/gorm"
)

// AdAccountRepositoryImpl implements AdAccountRepository
type AdAccountRepositoryImpl struct {
	*BaseRepository[models.AdAccount, models.AdAccountFilter]
}

func NewAdAccountRepository(db *gorm.DB) AdAccountRepository {
	return &AdAccountRepositoryImpl{BaseRepository: NewBaseRepository[models.AdAccount, models.AdAccountFilter](db)}
}

func (r *AdAccountRepositoryImpl) ByExternalID(ctx context.Context, externalID string) (*models.AdAccount, error) {
	db := r.getDB(ctx)
	var acc models.AdAccount
	if err := db.Where("external_id = ?", externalID).Last(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find ad account %s: %w", externalID, err)
	}
	return &acc, nil
}

func (r *AdAccountRepositoryImpl) ListActive(ctx context.Context) ([]*models.AdAccount, error) {
	db := r.getDB(ctx)
	var rows []*models.AdAccount
	if err := db.Where("is_active = ?", true).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list active ad accounts: %w", err)
	}
	return rows, nil
}
