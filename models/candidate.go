package models

import (
	"time"

	"github.com/lib/pq"
)

// Candidate represents a candidate profile used for audience targeting.
// SegmentIDs is stored as a PostgreSQL BIGINT[] column.
// ExternalIdentifier is the platform-facing identifier (a normalized,
// pre-hashed email) handed to custom-audience creation.
type Candidate struct {
	ID                 int64         `gorm:"primaryKey;autoIncrement;type:bigserial" json:"id"`
	UID                string        `gorm:"size:255;not null;uniqueIndex:uk_candidates_uid" json:"uid"`
	ExternalIdentifier *string       `gorm:"size:128;index:idx_candidates_external_identifier" json:"external_identifier,omitempty"`
	SegmentIDs         pq.Int64Array `gorm:"type:bigint[];index:idx_candidates_segment_gin,using:gin" json:"segment_ids"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_candidates_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// CandidateFilter represents filter criteria for candidate queries.
// SegmentIDs matches candidates belonging to any of the given segments.
type CandidateFilter struct {
	UID           *string
	SegmentIDs    *pq.Int64Array
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
