package dto

import "github.com/jobradar/adpilot/models"

// ListInsightsRequest filters stored insight rows. Dates use YYYY-MM-DD.
type ListInsightsRequest struct {
	AccountID *string `query:"account_id" validate:"omitempty,max=64"`
	ObjectID  *string `query:"object_id" validate:"omitempty,max=64"`
	Level     *string `query:"level" validate:"omitempty,oneof=campaign adset ad"`
	DateFrom  *string `query:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo    *string `query:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Page      int     `query:"page" validate:"omitempty,gte=1"`
	PageSize  int     `query:"page_size" validate:"omitempty,gte=1,lte=500"`
}

// InsightDTO is the API representation of one daily metric row
type InsightDTO struct {
	ObjectID  string `json:"object_id"`
	Level     string `json:"level"`
	AccountID string `json:"account_id"`
	DateStart string `json:"date_start"`
	DateStop  string `json:"date_stop,omitempty"`

	Impressions int64    `json:"impressions"`
	Clicks      int64    `json:"clicks"`
	SpendCents  int64    `json:"spend_cents"`
	CPCCents    *int64   `json:"cpc_cents,omitempty"`
	CTR         *float64 `json:"ctr,omitempty"`

	ApplicationsSubmitted int64   `json:"applications_submitted"`
	ApplicationsValue     float64 `json:"applications_value"`
	Leads                 int64   `json:"leads"`
	LeadsValue            float64 `json:"leads_value"`

	RawActions      models.ActionList `json:"raw_actions,omitempty"`
	RawActionValues models.ActionList `json:"raw_action_values,omitempty"`
}

// ListInsightsResponse carries one page of insight rows
type ListInsightsResponse struct {
	Items []InsightDTO `json:"items"`
}

// ExportInsightsRequest selects the rows exported to Excel
type ExportInsightsRequest struct {
	AccountID string  `query:"account_id" validate:"required,max=64"`
	DateFrom  *string `query:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo    *string `query:"date_to" validate:"omitempty,datetime=2006-01-02"`
}
