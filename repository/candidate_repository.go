package repository

import (
	"context"
	"fmt"

	"github.com/jobradar/adpilot/models"
	"gorm.io/gorm"
)

// CandidateRepositoryImpl implements CandidateRepository
type CandidateRepositoryImpl struct {
	*BaseRepository[models.Candidate, models.CandidateFilter]
}

func NewCandidateRepository(db *gorm.DB) CandidateRepository {
	return &CandidateRepositoryImpl{BaseRepository: NewBaseRepository[models.Candidate, models.CandidateFilter](db)}
}

func (r *CandidateRepositoryImpl) applyFilter(db *gorm.DB, f models.CandidateFilter) *gorm.DB {
	if f.UID != nil {
		db = db.Where("uid = ?", *f.UID)
	}
	if f.SegmentIDs != nil {
		db = db.Where("segment_ids && ?", *f.SegmentIDs)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *CandidateRepositoryImpl) ByFilter(ctx context.Context, filter models.CandidateFilter, orderBy string, limit, offset int) ([]*models.Candidate, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Candidate{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Candidate
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find candidates by filter: %w", err)
	}
	return rows, nil
}
