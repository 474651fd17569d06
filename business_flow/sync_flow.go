package businessflow

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/jobradar/adpilot/app/dto"
	"github.com/jobradar/adpilot/models"
	"github.com/jobradar/adpilot/platform"
	"github.com/jobradar/adpilot/repository"
	"github.com/jobradar/adpilot/utils"
	"gorm.io/gorm"
)

const (
	defaultSyncConcurrency = 4
	defaultInsightDays     = 7
)

// SyncFlow walks one account's remote object hierarchy top-down, refreshes
// the local mirrors and daily insights, and reconciles deletions per level.
type SyncFlow interface {
	SyncAccount(ctx context.Context, accountID string) (*dto.SyncReport, error)
}

// SyncFlowImpl implements the hierarchical sync walker
type SyncFlowImpl struct {
	accountRepo        repository.AdAccountRepository
	campaignMirrorRepo repository.AdCampaignMirrorRepository
	adSetMirrorRepo    repository.AdSetMirrorRepository
	adMirrorRepo       repository.AdMirrorRepository
	reconciler         Reconciler
	upserter           InsightUpserter
	adapter            platform.Adapter
	db                 *gorm.DB
	logger             *log.Logger

	concurrency int
	insightDays int
}

// NewSyncFlow creates a new sync flow instance. concurrency bounds how many
// campaign branches are walked in parallel; insightDays is the trailing
// window of daily rows fetched per object.
func NewSyncFlow(
	accountRepo repository.AdAccountRepository,
	campaignMirrorRepo repository.AdCampaignMirrorRepository,
	adSetMirrorRepo repository.AdSetMirrorRepository,
	adMirrorRepo repository.AdMirrorRepository,
	reconciler Reconciler,
	upserter InsightUpserter,
	adapter platform.Adapter,
	db *gorm.DB,
	logger *log.Logger,
	concurrency int,
	insightDays int,
) SyncFlow {
	if logger == nil {
		logger = log.Default()
	}
	if concurrency <= 0 {
		concurrency = defaultSyncConcurrency
	}
	if insightDays <= 0 {
		insightDays = defaultInsightDays
	}
	return &SyncFlowImpl{
		accountRepo:        accountRepo,
		campaignMirrorRepo: campaignMirrorRepo,
		adSetMirrorRepo:    adSetMirrorRepo,
		adMirrorRepo:       adMirrorRepo,
		reconciler:         reconciler,
		upserter:           upserter,
		adapter:            adapter,
		db:                 db,
		logger:             logger,
		concurrency:        concurrency,
		insightDays:        insightDays,
	}
}

// syncState accumulates the outcome of one run across campaign branches.
// All mutation goes through the mutex; branch goroutines never touch the
// report directly.
type syncState struct {
	mu sync.Mutex

	adSetIDs map[string]struct{}
	adIDs    map[string]struct{}

	adSetsComplete bool
	adsComplete    bool

	report dto.SyncReport
}

func (s *syncState) addBranchError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.BranchErrors = append(s.report.BranchErrors, err.Error())
}

func (s *syncState) addAdSet(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adSetIDs[id] = struct{}{}
	s.report.AdSets.Enumerated++
}

func (s *syncState) addAd(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adIDs[id] = struct{}{}
	s.report.Ads.Enumerated++
}

func (s *syncState) countInsights(upserted, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.InsightRowsUpserted += upserted
	s.report.InsightRowsFailed += failed
}

func (s *syncState) adSetsIncomplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adSetsComplete = false
	s.adsComplete = false
}

func (s *syncState) adsIncomplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adsComplete = false
}

// SyncAccount runs one full sync pass for one account. Campaign branches
// run concurrently; a failed branch is recorded and skipped rather than
// aborting the pass. Deletions at a level are only derived when every
// enumeration contributing to that level finished, so a flaky branch can
// never make its objects look deleted.
func (f *SyncFlowImpl) SyncAccount(ctx context.Context, accountID string) (*dto.SyncReport, error) {
	account, err := f.accountRepo.ByExternalID(ctx, accountID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to lookup ad account", err)
	}
	if account == nil {
		return nil, NewBusinessError("ACCOUNT_NOT_FOUND", "Ad account not found", ErrAccountNotFound)
	}
	if !account.IsActive {
		return nil, NewBusinessError("ACCOUNT_INACTIVE", "Ad account is inactive", ErrAccountInactive)
	}

	window := platform.DateWindow{
		Since: utils.UTCNow().AddDate(0, 0, -f.insightDays),
		Until: utils.UTCNow(),
	}

	state := &syncState{
		adSetIDs:       make(map[string]struct{}),
		adIDs:          make(map[string]struct{}),
		adSetsComplete: true,
		adsComplete:    true,
	}
	state.report.AccountID = accountID

	// Level 1: enumerate all campaigns before branching out. If this
	// enumeration fails nothing below it can be trusted, so the pass stops.
	campaigns, err := f.enumerateCampaigns(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("enumerate campaigns account=%s: %w", accountID, err)
	}
	state.report.Campaigns.Enumerated = len(campaigns)
	state.report.Campaigns.Complete = true

	campaignIDs := make(map[string]struct{}, len(campaigns))
	for _, c := range campaigns {
		campaignIDs[c.ID] = struct{}{}
	}

	// Levels 2 and 3: walk each campaign branch concurrently.
	var wg sync.WaitGroup
	sem := make(chan struct{}, f.concurrency)
	for _, campaign := range campaigns {
		wg.Add(1)
		sem <- struct{}{}
		go func(c platform.RemoteCampaign) {
			defer wg.Done()
			defer func() { <-sem }()
			f.walkCampaignBranch(ctx, accountID, c, window, state)
		}(campaign)
	}
	wg.Wait()

	state.report.AdSets.Complete = state.adSetsComplete
	state.report.Ads.Complete = state.adsComplete

	f.reconcile(ctx, accountID, campaignIDs, state)

	now := utils.UTCNow()
	account.LastSyncedAt = &now
	if err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		return f.accountRepo.Update(txCtx, account)
	}); err != nil {
		f.logger.Printf("sync: account=%s failed to record last_synced_at: %v", accountID, err)
	}

	f.logger.Printf("sync: account=%s campaigns=%d adsets=%d ads=%d insights=%d/%d errors=%d",
		accountID,
		state.report.Campaigns.Enumerated, state.report.AdSets.Enumerated, state.report.Ads.Enumerated,
		state.report.InsightRowsUpserted, state.report.InsightRowsFailed,
		len(state.report.BranchErrors))

	return &state.report, nil
}

// enumerateCampaigns pages through the account's campaigns, upserting each
// mirror as it is seen
func (f *SyncFlowImpl) enumerateCampaigns(ctx context.Context, accountID string) ([]platform.RemoteCampaign, error) {
	var all []platform.RemoteCampaign
	cursor := ""
	for {
		page, next, err := f.adapter.ListCampaigns(ctx, accountID, cursor)
		if err != nil {
			return nil, err
		}
		for i := range page {
			if err := f.campaignMirrorRepo.Upsert(ctx, campaignMirrorFromRemote(accountID, page[i])); err != nil {
				return nil, fmt.Errorf("upsert campaign mirror %s: %w", page[i].ID, err)
			}
		}
		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}

// walkCampaignBranch syncs one campaign's insights, its ad sets and their
// ads. Errors are recorded against the branch and poison level
// completeness for the levels they interrupt.
func (f *SyncFlowImpl) walkCampaignBranch(ctx context.Context, accountID string, campaign platform.RemoteCampaign, window platform.DateWindow, state *syncState) {
	f.syncInsights(ctx, accountID, campaign.ID, models.LevelCampaign, window, state)

	cursor := ""
	for {
		adSets, next, err := f.adapter.ListAdSets(ctx, campaign.ID, cursor)
		if err != nil {
			state.addBranchError(fmt.Errorf("campaign %s: list ad sets: %w", campaign.ID, err))
			state.adSetsIncomplete()
			return
		}
		for i := range adSets {
			if err := f.adSetMirrorRepo.Upsert(ctx, adSetMirrorFromRemote(accountID, adSets[i])); err != nil {
				state.addBranchError(fmt.Errorf("campaign %s: upsert ad set mirror %s: %w", campaign.ID, adSets[i].ID, err))
				state.adSetsIncomplete()
				return
			}
			state.addAdSet(adSets[i].ID)
			f.syncInsights(ctx, accountID, adSets[i].ID, models.LevelAdSet, window, state)
			f.walkAdSet(ctx, accountID, campaign.ID, adSets[i].ID, window, state)
		}
		if next == "" {
			return
		}
		cursor = next
	}
}

func (f *SyncFlowImpl) walkAdSet(ctx context.Context, accountID, campaignID, adSetID string, window platform.DateWindow, state *syncState) {
	cursor := ""
	for {
		ads, next, err := f.adapter.ListAds(ctx, adSetID, cursor)
		if err != nil {
			state.addBranchError(fmt.Errorf("campaign %s: ad set %s: list ads: %w", campaignID, adSetID, err))
			state.adsIncomplete()
			return
		}
		for i := range ads {
			if err := f.adMirrorRepo.Upsert(ctx, adMirrorFromRemote(accountID, ads[i])); err != nil {
				state.addBranchError(fmt.Errorf("campaign %s: upsert ad mirror %s: %w", campaignID, ads[i].ID, err))
				state.adsIncomplete()
				return
			}
			state.addAd(ads[i].ID)
			f.syncInsights(ctx, accountID, ads[i].ID, models.LevelAd, window, state)
		}
		if next == "" {
			return
		}
		cursor = next
	}
}

// syncInsights pages through one object's daily rows for the window.
// Insight failures are counted, not fatal: metrics lag never blocks the
// structural sync.
func (f *SyncFlowImpl) syncInsights(ctx context.Context, accountID, objectID string, level models.ObjectLevel, window platform.DateWindow, state *syncState) {
	cursor := ""
	for {
		rows, next, err := f.adapter.GetInsights(ctx, platform.InsightsRequest{
			ObjectID: objectID,
			Level:    level.String(),
			Window:   window,
			Cursor:   cursor,
		})
		if err != nil {
			state.addBranchError(fmt.Errorf("insights %s %s: %w", level, objectID, err))
			return
		}
		upserted, failed := 0, 0
		for _, row := range rows {
			if err := f.upserter.Upsert(ctx, accountID, objectID, level, row); err != nil {
				f.logger.Printf("sync: insight row rejected: %v", err)
				failed++
				continue
			}
			upserted++
		}
		state.countInsights(upserted, failed)
		if next == "" {
			return
		}
		cursor = next
	}
}

// reconcile derives deletions per level, top-down. A level is only eligible
// when its own enumeration was complete AND every level above it was, since
// a missed parent hides all of its children from the fresh sets.
func (f *SyncFlowImpl) reconcile(ctx context.Context, accountID string, campaignIDs map[string]struct{}, state *syncState) {
	deleted, err := f.reconciler.ReconcileLevel(ctx, accountID, models.LevelCampaign, campaignIDs)
	if err != nil {
		state.addBranchError(fmt.Errorf("reconcile campaigns: %w", err))
	} else {
		state.report.Campaigns.Deleted = deleted
	}

	if !state.report.AdSets.Complete {
		f.logger.Printf("sync: account=%s ad set enumeration incomplete, skipping ad set reconciliation", accountID)
		return
	}
	deleted, err = f.reconciler.ReconcileLevel(ctx, accountID, models.LevelAdSet, state.adSetIDs)
	if err != nil {
		state.addBranchError(fmt.Errorf("reconcile ad sets: %w", err))
	} else {
		state.report.AdSets.Deleted = deleted
	}

	if !state.report.Ads.Complete {
		f.logger.Printf("sync: account=%s ad enumeration incomplete, skipping ad reconciliation", accountID)
		return
	}
	deleted, err = f.reconciler.ReconcileLevel(ctx, accountID, models.LevelAd, state.adIDs)
	if err != nil {
		state.addBranchError(fmt.Errorf("reconcile ads: %w", err))
	} else {
		state.report.Ads.Deleted = deleted
	}
}

func campaignMirrorFromRemote(accountID string, r platform.RemoteCampaign) *models.AdCampaignMirror {
	now := utils.UTCNow()
	return &models.AdCampaignMirror{
		ExternalID:      r.ID,
		AccountID:       accountID,
		Name:            r.Name,
		Status:          r.Status,
		EffectiveStatus: r.EffectiveStatus,
		Objective:       r.Objective,
		StartTime:       r.StartTime,
		StopTime:        r.StopTime,
		UpdatedAt:       &now,
	}
}

func adSetMirrorFromRemote(accountID string, r platform.RemoteAdSet) *models.AdSetMirror {
	now := utils.UTCNow()
	row := &models.AdSetMirror{
		ExternalID:      r.ID,
		AccountID:       accountID,
		CampaignID:      r.CampaignID,
		Name:            r.Name,
		Status:          r.Status,
		EffectiveStatus: r.EffectiveStatus,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		UpdatedAt:       &now,
	}
	if cents, err := parseBudgetCents(r.DailyBudget); err == nil {
		row.DailyBudgetCents = cents
	}
	return row
}

func adMirrorFromRemote(accountID string, r platform.RemoteAd) *models.AdMirror {
	now := utils.UTCNow()
	return &models.AdMirror{
		ExternalID:      r.ID,
		AccountID:       accountID,
		AdSetID:         r.AdSetID,
		Name:            r.Name,
		Status:          r.Status,
		EffectiveStatus: r.EffectiveStatus,
		CreativeID:      r.CreativeID,
		UpdatedAt:       &now,
	}
}

// parseBudgetCents parses the platform's string-encoded budget, already in
// minor currency units
func parseBudgetCents(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
