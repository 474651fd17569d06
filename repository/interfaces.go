package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jobradar/adpilot/models"
)

// CampaignRepository defines the contract for campaign data access.
// The publish orchestrator is the only writer of campaign rows.
type CampaignRepository interface {
	ByID(ctx context.Context, id uint) (*models.Campaign, error)
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.Campaign, error)
	ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error)
	Save(ctx context.Context, campaign *models.Campaign) error
	Update(ctx context.Context, campaign *models.Campaign) error
	Count(ctx context.Context, filter models.CampaignFilter) (int64, error)
}

// AdAccountRepository defines the contract for ad account data access
type AdAccountRepository interface {
	ByExternalID(ctx context.Context, externalID string) (*models.AdAccount, error)
	ListActive(ctx context.Context) ([]*models.AdAccount, error)
	Save(ctx context.Context, account *models.AdAccount) error
	Update(ctx context.Context, account *models.AdAccount) error
}

// AdCampaignMirrorRepository defines the contract for the campaign-level mirror table
type AdCampaignMirrorRepository interface {
	ByExternalID(ctx context.Context, externalID string) (*models.AdCampaignMirror, error)
	ListIDsByAccount(ctx context.Context, accountID string) ([]string, error)
	Upsert(ctx context.Context, row *models.AdCampaignMirror) error
	MarkDeleted(ctx context.Context, accountID string, externalIDs []string) (int64, error)
}

// AdSetMirrorRepository defines the contract for the ad-set-level mirror table
type AdSetMirrorRepository interface {
	ByExternalID(ctx context.Context, externalID string) (*models.AdSetMirror, error)
	ListIDsByAccount(ctx context.Context, accountID string) ([]string, error)
	Upsert(ctx context.Context, row *models.AdSetMirror) error
	MarkDeleted(ctx context.Context, accountID string, externalIDs []string) (int64, error)
}

// AdMirrorRepository defines the contract for the ad-level mirror table
type AdMirrorRepository interface {
	ByExternalID(ctx context.Context, externalID string) (*models.AdMirror, error)
	ListIDsByAccount(ctx context.Context, accountID string) ([]string, error)
	Upsert(ctx context.Context, row *models.AdMirror) error
	MarkDeleted(ctx context.Context, accountID string, externalIDs []string) (int64, error)
}

// InsightRepository defines the contract for insight rows. Upsert is keyed
// on (object_id, level, date_start) and overwrites all metric fields.
type InsightRepository interface {
	ByKey(ctx context.Context, objectID string, level models.ObjectLevel, dateStart time.Time) (*models.Insight, error)
	ByFilter(ctx context.Context, filter models.InsightFilter, orderBy string, limit, offset int) ([]*models.Insight, error)
	Upsert(ctx context.Context, row *models.Insight) error
}

// CandidateRepository defines the contract for candidate data access
type CandidateRepository interface {
	ByFilter(ctx context.Context, filter models.CandidateFilter, orderBy string, limit, offset int) ([]*models.Candidate, error)
	Save(ctx context.Context, candidate *models.Candidate) error
}

// TaskRepository defines the contract for the task queue table
type TaskRepository interface {
	ByID(ctx context.Context, id uint) (*models.Task, error)
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.Task, error)
	Save(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Task, error)
	ListRunning(ctx context.Context) ([]*models.Task, error)
	PendingByDedupKey(ctx context.Context, dedupKey string) (*models.Task, error)
}
