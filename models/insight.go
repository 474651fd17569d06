package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ActionCounter is one entry of the platform's nested action array. Counts
// and values arrive as string-encoded numbers and are kept verbatim here;
// promotion to typed columns happens during upsert.
type ActionCounter struct {
	ActionType string `json:"action_type"`
	Value      string `json:"value"`
}

// ActionList is the raw action array stored as JSONB so unknown action
// types survive even though they are not promoted to named columns
type ActionList []ActionCounter

// Value implements the driver.Valuer interface for ActionList
func (a ActionList) Value() (driver.Value, error) {
	if a == nil {
		return json.Marshal(ActionList{})
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface for ActionList
func (a *ActionList) Scan(value any) error {
	if value == nil {
		*a = ActionList{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ActionList", value)
	}

	return json.Unmarshal(bytes, a)
}

// Insight is one daily metric snapshot for one remote object. The composite
// key (object_id, level, date_start) is unique; writes are update-or-insert.
type Insight struct {
	ID       uint        `gorm:"primaryKey" json:"id"`
	ObjectID string      `gorm:"size:64;not null;uniqueIndex:uk_insights_object_level_date,priority:1" json:"object_id"`
	Level    ObjectLevel `gorm:"type:varchar(16);not null;uniqueIndex:uk_insights_object_level_date,priority:2" json:"level"`

	DateStart time.Time  `gorm:"type:date;not null;uniqueIndex:uk_insights_object_level_date,priority:3" json:"date_start"`
	DateStop  *time.Time `gorm:"type:date" json:"date_stop,omitempty"`

	AccountID string `gorm:"size:64;not null;index:idx_insights_account_id" json:"account_id"`

	Impressions int64    `gorm:"not null;default:0" json:"impressions"`
	Clicks      int64    `gorm:"not null;default:0" json:"clicks"`
	SpendCents  int64    `gorm:"not null;default:0" json:"spend_cents"`
	CPCCents    *int64   `json:"cpc_cents,omitempty"`
	CTR         *float64 `json:"ctr,omitempty"`

	// Derived sub-counters promoted from the action arrays
	ApplicationsSubmitted int64   `gorm:"not null;default:0" json:"applications_submitted"`
	ApplicationsValue     float64 `gorm:"not null;default:0" json:"applications_value"`
	Leads                 int64   `gorm:"not null;default:0" json:"leads"`
	LeadsValue            float64 `gorm:"not null;default:0" json:"leads_value"`

	RawActions      ActionList `gorm:"type:jsonb;not null;default:'[]'" json:"raw_actions"`
	RawActionValues ActionList `gorm:"type:jsonb;not null;default:'[]'" json:"raw_action_values"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (Insight) TableName() string { return "insights" }

// InsightFilter represents filter criteria for insight queries
type InsightFilter struct {
	ObjectID   *string
	Level      *ObjectLevel
	AccountID  *string
	DateFrom   *time.Time
	DateTo     *time.Time
}
