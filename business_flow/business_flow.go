// Package businessflow contains the business logic for campaign publishing
// and metrics synchronization.
package businessflow

import (
	"time"

	"github.com/jobradar/adpilot/app/dto"
	"github.com/jobradar/adpilot/models"
)

// ToCampaignDTO converts a campaign model for API responses
func ToCampaignDTO(c models.Campaign) dto.CampaignDTO {
	return dto.CampaignDTO{
		ID:               c.ID,
		UUID:             c.UUID.String(),
		AccountID:        c.AccountID,
		Platform:         c.Platform,
		JobPostingID:     c.JobPostingID,
		Name:             c.Name,
		Objective:        c.Objective,
		Status:           c.Status.String(),
		DailyBudgetCents: c.DailyBudgetCents,
		Creative:         c.Creative,
		TargetSegmentIDs: c.TargetSegmentIDs,
		ExternalIDs:      c.ExternalIDs,
		FailureReason:    c.FailureReason,
		PublishedAt:      c.PublishedAt,
		CreatedAt:        c.CreatedAt.Format(time.RFC3339),
	}
}

// ToTaskStatusDTO converts a task row for status queries
func ToTaskStatusDTO(t models.Task) dto.TaskStatusDTO {
	out := dto.TaskStatusDTO{
		UUID:       t.UUID.String(),
		Kind:       string(t.Kind),
		Status:     string(t.Status),
		RetryCount: t.RetryCount,
		LastError:  t.LastError,
		StartedAt:  t.StartedAt,
		FinishedAt: t.FinishedAt,
	}
	if len(t.Result) > 0 {
		out.Result = t.Result
	}
	return out
}
