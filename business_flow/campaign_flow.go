package businessflow

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jobradar/adpilot/app/dto"
	"github.com/jobradar/adpilot/models"
	"github.com/jobradar/adpilot/repository"
	"gorm.io/gorm"
)

const defaultObjective = "OUTCOME_TRAFFIC"

// CampaignFlow covers the lifecycle of local campaign rows outside of
// publishing: creation as drafts, listing and lookup
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest) (*dto.CampaignDTO, error)
	GetCampaign(ctx context.Context, campaignUUID string) (*dto.CampaignDTO, error)
	ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error)
}

// CampaignFlowImpl implements campaign management
type CampaignFlowImpl struct {
	campaignRepo repository.CampaignRepository
	accountRepo  repository.AdAccountRepository
	db           *gorm.DB
	logger       *log.Logger
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	accountRepo repository.AdAccountRepository,
	db *gorm.DB,
	logger *log.Logger,
) CampaignFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &CampaignFlowImpl{
		campaignRepo: campaignRepo,
		accountRepo:  accountRepo,
		db:           db,
		logger:       logger,
	}
}

// CreateCampaign stores a new draft bound to an active ad account. Remote
// objects are only created later by an explicit publish.
func (f *CampaignFlowImpl) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest) (*dto.CampaignDTO, error) {
	account, err := f.accountRepo.ByExternalID(ctx, req.AccountID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to lookup ad account", err)
	}
	if account == nil {
		return nil, NewBusinessError("ACCOUNT_NOT_FOUND", "Ad account not found", ErrAccountNotFound)
	}
	if !account.IsActive {
		return nil, NewBusinessError("ACCOUNT_INACTIVE", "Ad account is inactive", ErrAccountInactive)
	}

	objective := strings.TrimSpace(req.Objective)
	if objective == "" {
		objective = defaultObjective
	}

	campaign := &models.Campaign{
		AccountID:        req.AccountID,
		Platform:         account.Platform,
		JobPostingID:     req.JobPostingID,
		Name:             strings.TrimSpace(req.Name),
		Objective:        objective,
		Status:           models.CampaignStatusDraft,
		DailyBudgetCents: req.DailyBudgetCents,
		TargetSegmentIDs: req.TargetSegmentIDs,
		Creative: models.CreativeSpec{
			PageID:      req.PageID,
			PrimaryText: req.PrimaryText,
			Headline:    req.Headline,
			Description: req.Description,
			LandingURL:  req.LandingURL,
			ImagePath:   req.ImagePath,
		},
	}
	if campaign.Name == "" {
		return nil, NewBusinessError("VALIDATION_ERROR", "Campaign name must not be empty", ErrCampaignNameRequired)
	}
	if campaign.DailyBudgetCents == 0 {
		return nil, NewBusinessError("VALIDATION_ERROR", "Daily budget must be positive", ErrCampaignBudgetRequired)
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		return f.campaignRepo.Save(txCtx, campaign)
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATE_FAILED", "Failed to create campaign", err)
	}

	f.logger.Printf("campaign: created draft id=%d uuid=%s account=%s", campaign.ID, campaign.UUID, campaign.AccountID)
	result := ToCampaignDTO(*campaign)
	return &result, nil
}

// GetCampaign looks up one campaign by its public identifier
func (f *CampaignFlowImpl) GetCampaign(ctx context.Context, campaignUUID string) (*dto.CampaignDTO, error) {
	id, err := uuid.Parse(campaignUUID)
	if err != nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Invalid campaign identifier", err)
	}
	campaign, err := f.campaignRepo.ByUUID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}
	result := ToCampaignDTO(*campaign)
	return &result, nil
}

// ListCampaigns returns one page of campaigns newest-first
func (f *CampaignFlowImpl) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error) {
	page := req.Page
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return nil, NewBusinessError("VALIDATION_ERROR", "Page must be positive", ErrInvalidPage)
	}
	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = 20
	}
	if pageSize < 1 || pageSize > 100 {
		return nil, NewBusinessError("VALIDATION_ERROR", "Page size out of range", ErrInvalidPageSize)
	}

	filter := models.CampaignFilter{AccountID: req.AccountID}
	if req.Status != nil {
		status := models.CampaignStatus(*req.Status)
		if !status.Valid() {
			return nil, NewBusinessError("VALIDATION_ERROR", "Unknown campaign status", nil)
		}
		filter.Status = &status
	}

	total, err := f.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to count campaigns", err)
	}
	rows, err := f.campaignRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}

	items := make([]dto.CampaignDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, ToCampaignDTO(*row))
	}
	return &dto.ListCampaignsResponse{Items: items, Total: total}, nil
}
