package models

import (
	"time"
)

// AdAccount represents an external advertising account campaigns and sync
// passes are scoped to. One sync task is enqueued per active account.
type AdAccount struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ExternalID string `gorm:"size:64;not null;uniqueIndex:uk_ad_accounts_external_id" json:"external_id"`
	Platform   string `gorm:"size:32;not null;default:'meta'" json:"platform"`
	Name       string `gorm:"size:255;not null" json:"name"`
	IsActive   bool   `gorm:"not null;default:true;index:idx_ad_accounts_is_active" json:"is_active"`

	// LastSyncedAt is advisory only; mutual exclusion for sync runs is
	// enforced at the task runner boundary, not here.
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (AdAccount) TableName() string { return "ad_accounts" }

// AdAccountFilter represents filter criteria for ad account queries
type AdAccountFilter struct {
	ExternalID *string
	Platform   *string
	IsActive   *bool
}
