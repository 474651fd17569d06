// Package platform defines the boundary interface to external ad platforms
// and its typed request/response shapes. The orchestrator and the sync
// walker are written against Adapter only; one implementation exists per
// platform.
package platform

import (
	"context"
	"time"
)

// IdentifierType tells the platform how custom-audience identifiers are encoded
type IdentifierType string

const (
	IdentifierTypeEmailHash IdentifierType = "EMAIL_SHA256"
	IdentifierTypePhoneHash IdentifierType = "PHONE_SHA256"
)

// TargetingSpec carries the targeting parameters of an ad set
type TargetingSpec struct {
	CustomAudienceID *string  `json:"custom_audience_id,omitempty"`
	Countries        []string `json:"countries,omitempty"`
	AgeMin           *int     `json:"age_min,omitempty"`
	AgeMax           *int     `json:"age_max,omitempty"`
}

// CreateCampaignRequest creates the top-level remote campaign object
type CreateCampaignRequest struct {
	AccountID  string
	Name       string
	Objective  string
	Status     string
	Categories []string
}

// CreateAdSetRequest creates an ad set scoped to a remote campaign
type CreateAdSetRequest struct {
	AccountID        string
	CampaignID       string
	Name             string
	DailyBudgetCents uint64
	Targeting        TargetingSpec
	Status           string
}

// CreateCreativeRequest creates a creative object bound to a page
type CreateCreativeRequest struct {
	AccountID   string
	Name        string
	PageID      string
	PrimaryText string
	Headline    string
	Description string
	LandingURL  string
	ImageHash   *string
}

// CreateAdRequest creates the ad object referencing a creative
type CreateAdRequest struct {
	AccountID  string
	Name       string
	AdSetID    string
	CreativeID string
	Status     string
}

// CreateCustomAudienceRequest creates a custom audience from a list of
// platform-facing identifiers
type CreateCustomAudienceRequest struct {
	AccountID   string
	Name        string
	Identifiers []string
	IDType      IdentifierType
}

// UploadImageRequest uploads a local image file; the returned hash is
// referenced by creatives
type UploadImageRequest struct {
	AccountID string
	LocalPath string
}

// RemoteCampaign is one campaign object as enumerated from the platform
type RemoteCampaign struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Status          string     `json:"status"`
	EffectiveStatus string     `json:"effective_status"`
	Objective       string     `json:"objective"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	StopTime        *time.Time `json:"stop_time,omitempty"`
}

// RemoteAdSet is one ad set object as enumerated from the platform
type RemoteAdSet struct {
	ID              string     `json:"id"`
	CampaignID      string     `json:"campaign_id"`
	Name            string     `json:"name"`
	Status          string     `json:"status"`
	EffectiveStatus string     `json:"effective_status"`
	DailyBudget     string     `json:"daily_budget"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
}

// RemoteAd is one ad object as enumerated from the platform
type RemoteAd struct {
	ID              string `json:"id"`
	AdSetID         string `json:"adset_id"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	EffectiveStatus string `json:"effective_status"`
	CreativeID      string `json:"creative_id"`
}

// DateWindow is a closed calendar-day interval for insight queries
type DateWindow struct {
	Since time.Time
	Until time.Time
}

// InsightsRequest fetches one page of daily insight rows for one object
type InsightsRequest struct {
	ObjectID string
	Level    string
	Window   DateWindow
	Cursor   string
	PageSize int
}

// RawAction is one entry of the platform's nested action array. Values are
// string-encoded numbers and are passed through untouched.
type RawAction struct {
	ActionType string `json:"action_type"`
	Value      string `json:"value"`
}

// RawInsightRow is one daily metric row exactly as the platform returns
// it. Numeric fields arrive string-encoded; coercion is the consumer's
// problem, not the adapter's.
type RawInsightRow struct {
	DateStart    string      `json:"date_start"`
	DateStop     string      `json:"date_stop"`
	Impressions  string      `json:"impressions"`
	Clicks       string      `json:"clicks"`
	Spend        string      `json:"spend"`
	CPC          string      `json:"cpc"`
	CTR          string      `json:"ctr"`
	Actions      []RawAction `json:"actions"`
	ActionValues []RawAction `json:"action_values"`
}

// Adapter is the boundary interface wrapping one external ad platform's
// API. Create operations return the platform-assigned external id. List
// operations return one page plus the cursor for the next page; an empty
// cursor means enumeration is complete.
type Adapter interface {
	CreateCampaign(ctx context.Context, req CreateCampaignRequest) (string, error)
	CreateAdSet(ctx context.Context, req CreateAdSetRequest) (string, error)
	CreateCreative(ctx context.Context, req CreateCreativeRequest) (string, error)
	CreateAd(ctx context.Context, req CreateAdRequest) (string, error)
	CreateCustomAudience(ctx context.Context, req CreateCustomAudienceRequest) (string, error)
	UploadImage(ctx context.Context, req UploadImageRequest) (string, error)

	ListCampaigns(ctx context.Context, accountID, cursor string) ([]RemoteCampaign, string, error)
	ListAdSets(ctx context.Context, campaignID, cursor string) ([]RemoteAdSet, string, error)
	ListAds(ctx context.Context, adSetID, cursor string) ([]RemoteAd, string, error)
	GetInsights(ctx context.Context, req InsightsRequest) ([]RawInsightRow, string, error)
}
