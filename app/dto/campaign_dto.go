package dto

import (
	"time"

	"github.com/jobradar/adpilot/models"
)

// CreateCampaignRequest creates a draft campaign bound to one job posting
type CreateCampaignRequest struct {
	AccountID        string  `json:"account_id" validate:"required,max=64"`
	JobPostingID     uint    `json:"job_posting_id" validate:"required"`
	Name             string  `json:"name" validate:"required,max=255"`
	Objective        string  `json:"objective" validate:"omitempty,max=64"`
	DailyBudgetCents uint64  `json:"daily_budget_cents" validate:"required,gt=0"`
	TargetSegmentIDs []int64 `json:"target_segment_ids" validate:"omitempty,dive,gt=0"`

	PageID      *string `json:"page_id,omitempty" validate:"omitempty,max=64"`
	PrimaryText *string `json:"primary_text,omitempty" validate:"omitempty,max=2000"`
	Headline    *string `json:"headline,omitempty" validate:"omitempty,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	LandingURL  *string `json:"landing_url,omitempty" validate:"omitempty,url"`
	ImagePath   *string `json:"image_path,omitempty" validate:"omitempty,max=512"`
}

// CampaignDTO is the API representation of a campaign
type CampaignDTO struct {
	ID               uint                 `json:"id"`
	UUID             string               `json:"uuid"`
	AccountID        string               `json:"account_id"`
	Platform         string               `json:"platform"`
	JobPostingID     uint                 `json:"job_posting_id"`
	Name             string               `json:"name"`
	Objective        string               `json:"objective"`
	Status           string               `json:"status"`
	DailyBudgetCents uint64               `json:"daily_budget_cents"`
	Creative         models.CreativeSpec  `json:"creative"`
	TargetSegmentIDs []int64              `json:"target_segment_ids"`
	ExternalIDs      models.ExternalIDMap `json:"external_ids"`
	FailureReason    *string              `json:"failure_reason,omitempty"`
	PublishedAt      *time.Time           `json:"published_at,omitempty"`
	CreatedAt        string               `json:"created_at"`
}

// ListCampaignsRequest filters the campaign listing
type ListCampaignsRequest struct {
	AccountID *string `query:"account_id" validate:"omitempty,max=64"`
	Status    *string `query:"status" validate:"omitempty,oneof=draft publishing active failed"`
	Page      int     `query:"page" validate:"omitempty,gte=1"`
	PageSize  int     `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// ListCampaignsResponse carries one page of campaigns
type ListCampaignsResponse struct {
	Items []CampaignDTO `json:"items"`
	Total int64         `json:"total"`
}

// PublishResult is the structured outcome of one publish run. ExternalIDs
// always carries whatever remote objects were created before a failure so
// an operator can inspect or clean up by hand.
type PublishResult struct {
	CampaignID  uint                 `json:"campaign_id"`
	Success     bool                 `json:"success"`
	Status      string               `json:"status"`
	Message     string               `json:"message"`
	ExternalIDs models.ExternalIDMap `json:"external_ids"`
}

// TaskStatusDTO is the queryable state of one submitted task
type TaskStatusDTO struct {
	UUID       string     `json:"uuid"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	RetryCount int        `json:"retry_count"`
	Result     any        `json:"result,omitempty"`
	LastError  *string    `json:"last_error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
