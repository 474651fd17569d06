package testing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jobradar/adpilot/models"
	"github.com/jobradar/adpilot/utils"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	db *gorm.DB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *gorm.DB) *TestFixtures {
	return &TestFixtures{db: db}
}

// CreateTestAccount creates a test ad account with a unique external ID
func (f *TestFixtures) CreateTestAccount() (*models.AdAccount, error) {
	account := &models.AdAccount{
		ExternalID: fmt.Sprintf("act_%d", time.Now().UnixNano()),
		Platform:   "meta",
		Name:       "Test Recruiting Account",
		IsActive:   true,
		CreatedAt:  utils.UTCNow(),
	}

	if err := f.db.Create(account).Error; err != nil {
		return nil, fmt.Errorf("failed to create test account: %w", err)
	}
	return account, nil
}

// CreateTestCampaign creates a test campaign bound to the given account
func (f *TestFixtures) CreateTestCampaign(accountID string, status models.CampaignStatus) (*models.Campaign, error) {
	campaign := &models.Campaign{
		UUID:             uuid.New(),
		AccountID:        accountID,
		Platform:         "meta",
		JobPostingID:     1,
		Name:             "Test Backend Engineer Campaign",
		Objective:        "OUTCOME_TRAFFIC",
		Status:           status,
		DailyBudgetCents: 5000,
		Creative: models.CreativeSpec{
			PageID:      utils.ToPtr("123456789"),
			PrimaryText: utils.ToPtr("We are hiring backend engineers"),
			Headline:    utils.ToPtr("Backend Engineer"),
			LandingURL:  utils.ToPtr("https://jobradar.io/jobs/1"),
		},
		TargetSegmentIDs: pq.Int64Array{1, 2},
		ExternalIDs:      models.ExternalIDMap{},
		CreatedAt:        utils.UTCNow(),
	}

	if err := f.db.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}
	return campaign, nil
}

// CreateTestCandidate creates a test candidate belonging to the given segments
func (f *TestFixtures) CreateTestCandidate(segmentIDs ...int64) (*models.Candidate, error) {
	candidate := &models.Candidate{
		UID:                fmt.Sprintf("cand_%d", time.Now().UnixNano()),
		ExternalIdentifier: utils.ToPtr(fmt.Sprintf("hash_%d", time.Now().UnixNano())),
		SegmentIDs:         pq.Int64Array(segmentIDs),
		CreatedAt:          utils.UTCNow(),
		UpdatedAt:          utils.UTCNow(),
	}

	if err := f.db.Create(candidate).Error; err != nil {
		return nil, fmt.Errorf("failed to create test candidate: %w", err)
	}
	return candidate, nil
}

// CreateTestInsight creates a daily insight row for the given object
func (f *TestFixtures) CreateTestInsight(accountID, objectID string, level models.ObjectLevel, date time.Time) (*models.Insight, error) {
	insight := &models.Insight{
		ObjectID:        objectID,
		Level:           level,
		DateStart:       date,
		AccountID:       accountID,
		Impressions:     1000,
		Clicks:          50,
		SpendCents:      2500,
		CPCCents:        utils.ToPtr(int64(50)),
		CTR:             utils.ToPtr(5.0),
		RawActions:      models.ActionList{},
		RawActionValues: models.ActionList{},
		CreatedAt:       utils.UTCNow(),
	}

	if err := f.db.Create(insight).Error; err != nil {
		return nil, fmt.Errorf("failed to create test insight: %w", err)
	}
	return insight, nil
}
