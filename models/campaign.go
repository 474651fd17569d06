package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jobradar/adpilot/utils"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// CampaignStatus represents the publishing status of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft      CampaignStatus = "draft"
	CampaignStatusPublishing CampaignStatus = "publishing"
	CampaignStatusActive     CampaignStatus = "active"
	CampaignStatusFailed     CampaignStatus = "failed"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusPublishing,
		CampaignStatusActive, CampaignStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is a terminal publishing state
func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignStatusActive || s == CampaignStatusFailed
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// ExternalIDMap holds the identifiers assigned by the ad platform for the
// remote objects created during a publish run. Entries are only ever added
// while a run is in flight, never rewritten.
type ExternalIDMap struct {
	AudienceID *string `json:"audience_id,omitempty"`
	ImageHash  *string `json:"image_hash,omitempty"`
	CampaignID *string `json:"campaign_id,omitempty"`
	AdSetID    *string `json:"ad_set_id,omitempty"`
	CreativeID *string `json:"creative_id,omitempty"`
	AdID       *string `json:"ad_id,omitempty"`
}

// Value implements the driver.Valuer interface for ExternalIDMap
func (m ExternalIDMap) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for ExternalIDMap
func (m *ExternalIDMap) Scan(value any) error {
	if value == nil {
		*m = ExternalIDMap{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ExternalIDMap", value)
	}

	return json.Unmarshal(bytes, m)
}

// CreativeSpec represents the creative content of a campaign
type CreativeSpec struct {
	PageID      *string `json:"page_id,omitempty"`
	PrimaryText *string `json:"primary_text,omitempty"`
	Headline    *string `json:"headline,omitempty"`
	Description *string `json:"description,omitempty"`
	LandingURL  *string `json:"landing_url,omitempty"`
	ImagePath   *string `json:"image_path,omitempty"`
}

// Value implements the driver.Valuer interface for CreativeSpec
func (s CreativeSpec) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for CreativeSpec
func (s *CreativeSpec) Scan(value any) error {
	if value == nil {
		*s = CreativeSpec{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CreativeSpec", value)
	}

	return json.Unmarshal(bytes, s)
}

// Campaign represents an internal recruitment-ad campaign bound to one job posting
type Campaign struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	AccountID    string         `gorm:"size:64;not null;index:idx_campaigns_account_id" json:"account_id"`
	Platform     string         `gorm:"size:32;not null;default:'meta'" json:"platform"`
	JobPostingID uint           `gorm:"not null;index:idx_campaigns_job_posting_id" json:"job_posting_id"`
	Name         string         `gorm:"size:255;not null" json:"name"`
	Objective    string         `gorm:"size:64;not null;default:'LINK_CLICKS'" json:"objective"`
	Status       CampaignStatus `gorm:"type:varchar(20);not null;default:'draft';index:idx_campaigns_status" json:"status"`

	DailyBudgetCents uint64        `gorm:"not null;default:0" json:"daily_budget_cents"`
	Creative         CreativeSpec  `gorm:"type:jsonb;not null;default:'{}'" json:"creative"`
	TargetSegmentIDs pq.Int64Array `gorm:"type:bigint[]" json:"target_segment_ids"`
	ExternalIDs      ExternalIDMap `gorm:"type:jsonb;not null;default:'{}'" json:"external_ids"`

	FailureReason *string    `gorm:"type:text" json:"failure_reason,omitempty"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// CanTransitionTo reports whether a campaign may move from this status to
// the given one. Active is terminal; a failed campaign re-enters the
// publish sequence only through a manual re-trigger.
func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	switch s {
	case CampaignStatusDraft:
		return next == CampaignStatusPublishing
	case CampaignStatusPublishing:
		return next == CampaignStatusActive || next == CampaignStatusFailed
	case CampaignStatusFailed:
		return next == CampaignStatusPublishing
	default:
		return false
	}
}

// Publishable reports whether a publish run may be started or resumed for
// a campaign in this status. Publishing itself is included: a run whose
// task exhausted its retries leaves the campaign here, and a re-trigger
// resumes it from the recorded steps.
func (s CampaignStatus) Publishable() bool {
	return s == CampaignStatusPublishing || s.CanTransitionTo(CampaignStatusPublishing)
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID            *uint           `json:"id,omitempty"`
	UUID          *uuid.UUID      `json:"uuid,omitempty"`
	AccountID     *string         `json:"account_id,omitempty"`
	JobPostingID  *uint           `json:"job_posting_id,omitempty"`
	Status        *CampaignStatus `json:"status,omitempty"`
	Platform      *string         `json:"platform,omitempty"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
}
