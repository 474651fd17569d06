package businessflow

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jobradar/adpilot/app/dto"
	"github.com/jobradar/adpilot/models"
	"github.com/jobradar/adpilot/platform"
	"github.com/jobradar/adpilot/repository"
	"github.com/jobradar/adpilot/utils"
	"gorm.io/gorm"
)

// PublishFlow drives one campaign through the ordered sequence of adapter
// calls that creates its remote objects. Each successful step commits its
// external id before the next step runs, so a crash leaves a durable,
// inspectable partial state.
type PublishFlow interface {
	Publish(ctx context.Context, campaignID uint) (*dto.PublishResult, error)
}

// PublishFlowImpl implements the publish orchestration
type PublishFlowImpl struct {
	campaignRepo repository.CampaignRepository
	resolver     AudienceResolver
	adapter      platform.Adapter
	db           *gorm.DB
	logger       *log.Logger
}

// NewPublishFlow creates a new publish flow instance
func NewPublishFlow(
	campaignRepo repository.CampaignRepository,
	resolver AudienceResolver,
	adapter platform.Adapter,
	db *gorm.DB,
	logger *log.Logger,
) PublishFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &PublishFlowImpl{
		campaignRepo: campaignRepo,
		resolver:     resolver,
		adapter:      adapter,
		db:           db,
		logger:       logger,
	}
}

// Publish runs the full step sequence for one campaign:
//
//  1. resolve audience and create a custom audience (non-fatal)
//  2. upload the creative image (non-fatal)
//  3. create the remote campaign (fatal)
//  4. create the ad set (fatal)
//  5. create the creative (fatal)
//  6. create the ad (fatal)
//
// A transient adapter error on a fatal step is returned to the caller so
// the task runner retries the run; steps whose external id is already
// recorded are skipped on redelivery, never re-run. A non-transient error
// moves the campaign to failed and is reported in the result, not as an
// error. Already-created remote objects are not cleaned up on failure;
// the result lists them for manual inspection.
func (f *PublishFlowImpl) Publish(ctx context.Context, campaignID uint) (*dto.PublishResult, error) {
	campaign, err := f.campaignRepo.ByID(ctx, campaignID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}

	switch {
	case campaign.Status == models.CampaignStatusPublishing:
		// Redelivery or re-trigger of an interrupted run; recorded steps
		// are skipped below.
	case campaign.Status.CanTransitionTo(models.CampaignStatusPublishing):
		if campaign.Status == models.CampaignStatusFailed {
			// Manual retry starts over; partial remote objects from the
			// failed run are abandoned, not reused.
			campaign.ExternalIDs = models.ExternalIDMap{}
		}
		campaign.Status = models.CampaignStatusPublishing
		campaign.FailureReason = nil
		if err := f.persist(ctx, campaign); err != nil {
			return nil, err
		}
	default:
		return nil, NewBusinessError("CAMPAIGN_NOT_PUBLISHABLE",
			fmt.Sprintf("Campaign is %s", campaign.Status), ErrCampaignNotPublishable)
	}

	// Step 1: custom audience (skippable, non-fatal)
	if campaign.ExternalIDs.AudienceID == nil && len(campaign.TargetSegmentIDs) > 0 {
		identifiers := f.resolver.Resolve(ctx, campaign.TargetSegmentIDs)
		if len(identifiers) > 0 {
			audienceID, err := f.adapter.CreateCustomAudience(ctx, platform.CreateCustomAudienceRequest{
				AccountID:   campaign.AccountID,
				Name:        campaign.Name + " - Audience",
				Identifiers: identifiers,
				IDType:      platform.IdentifierTypeEmailHash,
			})
			if err != nil {
				f.logger.Printf("publish: create custom audience failed for campaign id=%d, continuing without audience: %v", campaign.ID, err)
			} else {
				campaign.ExternalIDs.AudienceID = &audienceID
				if err := f.persist(ctx, campaign); err != nil {
					return nil, err
				}
				f.logger.Printf("publish: campaign id=%d custom audience created external_id=%s identifiers=%d", campaign.ID, audienceID, len(identifiers))
			}
		} else {
			f.logger.Printf("publish: campaign id=%d resolved no audience identifiers, skipping audience step", campaign.ID)
		}
	}

	// Step 2: creative image (skippable, non-fatal)
	if campaign.ExternalIDs.ImageHash == nil && campaign.Creative.ImagePath != nil && *campaign.Creative.ImagePath != "" {
		imageHash, err := f.adapter.UploadImage(ctx, platform.UploadImageRequest{
			AccountID: campaign.AccountID,
			LocalPath: *campaign.Creative.ImagePath,
		})
		if err != nil {
			f.logger.Printf("publish: image upload failed for campaign id=%d, continuing without image: %v", campaign.ID, err)
		} else {
			campaign.ExternalIDs.ImageHash = &imageHash
			if err := f.persist(ctx, campaign); err != nil {
				return nil, err
			}
		}
	}

	// Step 3: remote campaign (fatal)
	if campaign.ExternalIDs.CampaignID == nil {
		externalID, err := f.adapter.CreateCampaign(ctx, platform.CreateCampaignRequest{
			AccountID:  campaign.AccountID,
			Name:       campaign.Name,
			Objective:  campaign.Objective,
			Status:     models.RemoteStatusPaused,
			Categories: []string{"EMPLOYMENT"},
		})
		if err != nil {
			return f.handleFatal(ctx, campaign, "create campaign", err)
		}
		campaign.ExternalIDs.CampaignID = &externalID
		if err := f.persist(ctx, campaign); err != nil {
			return nil, err
		}
		f.logger.Printf("publish: campaign id=%d remote campaign created external_id=%s", campaign.ID, externalID)
	}

	// Step 4: ad set (fatal)
	if campaign.ExternalIDs.AdSetID == nil {
		externalID, err := f.adapter.CreateAdSet(ctx, platform.CreateAdSetRequest{
			AccountID:        campaign.AccountID,
			CampaignID:       *campaign.ExternalIDs.CampaignID,
			Name:             campaign.Name + " - Ad Set",
			DailyBudgetCents: campaign.DailyBudgetCents,
			Targeting: platform.TargetingSpec{
				CustomAudienceID: campaign.ExternalIDs.AudienceID,
			},
			Status: models.RemoteStatusPaused,
		})
		if err != nil {
			return f.handleFatal(ctx, campaign, "create ad set", err)
		}
		campaign.ExternalIDs.AdSetID = &externalID
		if err := f.persist(ctx, campaign); err != nil {
			return nil, err
		}
		f.logger.Printf("publish: campaign id=%d ad set created external_id=%s", campaign.ID, externalID)
	}

	// Step 5: creative (fatal)
	if campaign.ExternalIDs.CreativeID == nil {
		externalID, err := f.adapter.CreateCreative(ctx, platform.CreateCreativeRequest{
			AccountID:   campaign.AccountID,
			Name:        campaign.Name + " - Creative",
			PageID:      utils.Deref(campaign.Creative.PageID),
			PrimaryText: utils.Deref(campaign.Creative.PrimaryText),
			Headline:    utils.Deref(campaign.Creative.Headline),
			Description: utils.Deref(campaign.Creative.Description),
			LandingURL:  utils.Deref(campaign.Creative.LandingURL),
			ImageHash:   campaign.ExternalIDs.ImageHash,
		})
		if err != nil {
			return f.handleFatal(ctx, campaign, "create creative", err)
		}
		campaign.ExternalIDs.CreativeID = &externalID
		if err := f.persist(ctx, campaign); err != nil {
			return nil, err
		}
		f.logger.Printf("publish: campaign id=%d creative created external_id=%s", campaign.ID, externalID)
	}

	// Step 6: ad (fatal)
	if campaign.ExternalIDs.AdID == nil {
		externalID, err := f.adapter.CreateAd(ctx, platform.CreateAdRequest{
			AccountID:  campaign.AccountID,
			Name:       campaign.Name + " - Ad",
			AdSetID:    *campaign.ExternalIDs.AdSetID,
			CreativeID: *campaign.ExternalIDs.CreativeID,
			Status:     models.RemoteStatusPaused,
		})
		if err != nil {
			return f.handleFatal(ctx, campaign, "create ad", err)
		}
		campaign.ExternalIDs.AdID = &externalID
		if err := f.persist(ctx, campaign); err != nil {
			return nil, err
		}
		f.logger.Printf("publish: campaign id=%d ad created external_id=%s", campaign.ID, externalID)
	}

	campaign.Status = models.CampaignStatusActive
	campaign.PublishedAt = utils.UTCNowPtr()
	if err := f.persist(ctx, campaign); err != nil {
		return nil, err
	}
	f.logger.Printf("publish: campaign id=%d published successfully", campaign.ID)

	return &dto.PublishResult{
		CampaignID:  campaign.ID,
		Success:     true,
		Status:      campaign.Status.String(),
		Message:     "campaign published",
		ExternalIDs: campaign.ExternalIDs,
	}, nil
}

// handleFatal resolves a fatal-step adapter error. Transient errors bubble
// up for retry with the campaign left in publishing; everything else moves
// the campaign to failed and reports the adapter's message verbatim.
func (f *PublishFlowImpl) handleFatal(ctx context.Context, campaign *models.Campaign, step string, adapterErr error) (*dto.PublishResult, error) {
	if platform.IsTransient(adapterErr) {
		return nil, fmt.Errorf("%s: %w", step, adapterErr)
	}

	message := adapterErr.Error()
	var pe *platform.Error
	if errors.As(adapterErr, &pe) {
		message = pe.Message
	}

	campaign.Status = models.CampaignStatusFailed
	campaign.FailureReason = &message
	if err := f.persist(ctx, campaign); err != nil {
		return nil, err
	}
	f.logger.Printf("publish: campaign id=%d failed at step %q: %v", campaign.ID, step, adapterErr)

	return &dto.PublishResult{
		CampaignID:  campaign.ID,
		Success:     false,
		Status:      campaign.Status.String(),
		Message:     message,
		ExternalIDs: campaign.ExternalIDs,
	}, nil
}

func (f *PublishFlowImpl) persist(ctx context.Context, campaign *models.Campaign) error {
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		return f.campaignRepo.Update(txCtx, campaign)
	})
	if err != nil {
		return NewBusinessError("CAMPAIGN_PERSIST_FAILED", "Failed to persist campaign state", err)
	}
	return nil
}
