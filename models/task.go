package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jobradar/adpilot/utils"
	"gorm.io/gorm"
)

// TaskKind identifies the unit of work a task row carries
type TaskKind string

const (
	TaskKindPublishCampaign TaskKind = "publish_campaign"
	TaskKindSyncAccount     TaskKind = "sync_account"
)

// TaskStatus represents the lifecycle of one task row
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusRunning TaskStatus = "running"
	TaskStatusSuccess TaskStatus = "success"
	TaskStatusFailure TaskStatus = "failure"
)

// Valid checks if the status is valid
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusSuccess, TaskStatusFailure:
		return true
	default:
		return false
	}
}

// IsFinished reports whether the task reached a terminal state
func (s TaskStatus) IsFinished() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailure
}

// Scan implements the sql.Scanner interface for TaskStatus
func (s *TaskStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = TaskStatus(v)
	case []byte:
		*s = TaskStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into TaskStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for TaskStatus
func (s TaskStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid TaskStatus: %s", s)
	}
	return string(s), nil
}

// Task represents one asynchronous unit of work (a publish run or an
// account sync run). Business outcomes land in Result as a structured
// payload; LastError only records task-level failures, so callers can
// tell an adapter rejection apart from a crashed task.
type Task struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_tasks_uuid" json:"uuid"`

	Kind     TaskKind        `gorm:"type:varchar(32);not null;index:idx_tasks_kind" json:"kind"`
	Payload  json.RawMessage `gorm:"type:jsonb;not null;default:'{}'" json:"payload"`
	DedupKey string          `gorm:"size:128;not null;index:idx_tasks_dedup_key" json:"dedup_key"`

	Status     TaskStatus      `gorm:"type:varchar(16);not null;default:'pending';index:idx_tasks_status" json:"status"`
	RetryCount int             `gorm:"not null;default:0" json:"retry_count"`
	Result     json.RawMessage `gorm:"type:jsonb" json:"result,omitempty"`
	LastError  *string         `gorm:"type:text" json:"last_error,omitempty"`

	ScheduledAt time.Time  `gorm:"index:idx_tasks_scheduled_at;not null" json:"scheduled_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');not null" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (Task) TableName() string { return "tasks" }

// BeforeCreate is called before creating a new record
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	if t.ScheduledAt.IsZero() {
		t.ScheduledAt = utils.UTCNow()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (t *Task) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	t.UpdatedAt = &now
	return nil
}

// PublishCampaignPayload is the payload for TaskKindPublishCampaign
type PublishCampaignPayload struct {
	CampaignID uint `json:"campaign_id"`
}

// SyncAccountPayload is the payload for TaskKindSyncAccount
type SyncAccountPayload struct {
	AccountID string `json:"account_id"`
}
