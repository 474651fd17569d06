package models

import (
	"time"
)

// Remote object statuses as reported by the ad platform. The local mirror
// additionally uses StatusDeleted for objects that vanished from a full
// enumeration pass; mirror rows are never hard-deleted.
const (
	RemoteStatusActive  = "ACTIVE"
	RemoteStatusPaused  = "PAUSED"
	RemoteStatusDeleted = "DELETED"
)

// ObjectLevel identifies one level of the remote object hierarchy
type ObjectLevel string

const (
	LevelCampaign ObjectLevel = "campaign"
	LevelAdSet    ObjectLevel = "adset"
	LevelAd       ObjectLevel = "ad"
)

// Valid checks if the level is one of the three hierarchy levels
func (l ObjectLevel) Valid() bool {
	switch l {
	case LevelCampaign, LevelAdSet, LevelAd:
		return true
	default:
		return false
	}
}

func (l ObjectLevel) String() string { return string(l) }

// AdCampaignMirror is a locally-cached mirror of one remote campaign object.
// Rows are created and updated only by sync passes.
type AdCampaignMirror struct {
	ExternalID      string `gorm:"primaryKey;size:64" json:"external_id"`
	AccountID       string `gorm:"size:64;not null;index:idx_ad_campaign_mirrors_account_id" json:"account_id"`
	Name            string `gorm:"size:255" json:"name"`
	Status          string `gorm:"size:32;not null;default:'ACTIVE'" json:"status"`
	EffectiveStatus string `gorm:"size:32;not null;default:'ACTIVE'" json:"effective_status"`
	Objective       string `gorm:"size:64" json:"objective"`

	StartTime *time.Time `json:"start_time,omitempty"`
	StopTime  *time.Time `json:"stop_time,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (AdCampaignMirror) TableName() string { return "ad_campaign_mirrors" }

// AdSetMirror is a locally-cached mirror of one remote ad set object
type AdSetMirror struct {
	ExternalID      string `gorm:"primaryKey;size:64" json:"external_id"`
	AccountID       string `gorm:"size:64;not null;index:idx_ad_set_mirrors_account_id" json:"account_id"`
	CampaignID      string `gorm:"size:64;not null;index:idx_ad_set_mirrors_campaign_id" json:"campaign_id"`
	Name            string `gorm:"size:255" json:"name"`
	Status          string `gorm:"size:32;not null;default:'ACTIVE'" json:"status"`
	EffectiveStatus string `gorm:"size:32;not null;default:'ACTIVE'" json:"effective_status"`

	DailyBudgetCents uint64     `json:"daily_budget_cents"`
	StartTime        *time.Time `json:"start_time,omitempty"`
	EndTime          *time.Time `json:"end_time,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (AdSetMirror) TableName() string { return "ad_set_mirrors" }

// AdMirror is a locally-cached mirror of one remote ad object
type AdMirror struct {
	ExternalID      string `gorm:"primaryKey;size:64" json:"external_id"`
	AccountID       string `gorm:"size:64;not null;index:idx_ad_mirrors_account_id" json:"account_id"`
	AdSetID         string `gorm:"size:64;not null;index:idx_ad_mirrors_ad_set_id" json:"ad_set_id"`
	Name            string `gorm:"size:255" json:"name"`
	Status          string `gorm:"size:32;not null;default:'ACTIVE'" json:"status"`
	EffectiveStatus string `gorm:"size:32;not null;default:'ACTIVE'" json:"effective_status"`
	CreativeID      string `gorm:"size:64" json:"creative_id"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (AdMirror) TableName() string { return "ad_mirrors" }
