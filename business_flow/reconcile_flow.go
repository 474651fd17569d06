package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/jobradar/adpilot/models"
	"github.com/jobradar/adpilot/repository"
)

// Reconciler marks stored mirror rows DELETED when a completed enumeration
// pass no longer contains them. It only ever transitions rows; remote
// objects are never touched.
type Reconciler interface {
	ReconcileLevel(ctx context.Context, accountID string, level models.ObjectLevel, freshIDs map[string]struct{}) (int64, error)
}

// ReconcilerImpl implements mirror reconciliation over the three levels
type ReconcilerImpl struct {
	campaignMirrorRepo repository.AdCampaignMirrorRepository
	adSetMirrorRepo    repository.AdSetMirrorRepository
	adMirrorRepo       repository.AdMirrorRepository
	logger             *log.Logger
}

// NewReconciler creates a new reconciler instance
func NewReconciler(
	campaignMirrorRepo repository.AdCampaignMirrorRepository,
	adSetMirrorRepo repository.AdSetMirrorRepository,
	adMirrorRepo repository.AdMirrorRepository,
	logger *log.Logger,
) Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	return &ReconcilerImpl{
		campaignMirrorRepo: campaignMirrorRepo,
		adSetMirrorRepo:    adSetMirrorRepo,
		adMirrorRepo:       adMirrorRepo,
		logger:             logger,
	}
}

// ReconcileLevel computes stored-minus-fresh for one level of one account
// and marks the difference DELETED. Rows already DELETED are not counted
// again, so re-running with the same input is a no-op. The caller is
// responsible for only passing freshIDs from a COMPLETE enumeration.
func (r *ReconcilerImpl) ReconcileLevel(ctx context.Context, accountID string, level models.ObjectLevel, freshIDs map[string]struct{}) (int64, error) {
	stored, err := r.listStored(ctx, accountID, level)
	if err != nil {
		return 0, fmt.Errorf("list stored %s mirrors: %w", level, err)
	}

	var stale []string
	for _, id := range stored {
		if _, ok := freshIDs[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	marked, err := r.markDeleted(ctx, accountID, level, stale)
	if err != nil {
		return 0, fmt.Errorf("mark %s mirrors deleted: %w", level, err)
	}
	if marked > 0 {
		r.logger.Printf("reconcile: account=%s level=%s marked %d of %d stale mirrors deleted", accountID, level, marked, len(stale))
	}
	return marked, nil
}

func (r *ReconcilerImpl) listStored(ctx context.Context, accountID string, level models.ObjectLevel) ([]string, error) {
	switch level {
	case models.LevelCampaign:
		return r.campaignMirrorRepo.ListIDsByAccount(ctx, accountID)
	case models.LevelAdSet:
		return r.adSetMirrorRepo.ListIDsByAccount(ctx, accountID)
	case models.LevelAd:
		return r.adMirrorRepo.ListIDsByAccount(ctx, accountID)
	default:
		return nil, fmt.Errorf("unknown object level %q", level)
	}
}

func (r *ReconcilerImpl) markDeleted(ctx context.Context, accountID string, level models.ObjectLevel, ids []string) (int64, error) {
	switch level {
	case models.LevelCampaign:
		return r.campaignMirrorRepo.MarkDeleted(ctx, accountID, ids)
	case models.LevelAdSet:
		return r.adSetMirrorRepo.MarkDeleted(ctx, accountID, ids)
	case models.LevelAd:
		return r.adMirrorRepo.MarkDeleted(ctx, accountID, ids)
	default:
		return 0, fmt.Errorf("unknown object level %q", level)
	}
}
