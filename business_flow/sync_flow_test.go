package businessflow_test

import (
	"context"
	"testing"

	businessflow "github.com/jobradar/adpilot/business_flow"
	"github.com/jobradar/adpilot/models"
	"github.com/jobradar/adpilot/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const syncAccountID = "act_123"

// syncHarness wires a sync flow over in-memory stores with a small fixed
// remote hierarchy: c1 -> s1 -> {a1, a2}, c2 -> s2 -> {a3}
type syncHarness struct {
	accountRepo *fakeAccountRepo
	campaigns   *fakeMirrorStore
	adSets      *fakeMirrorStore
	ads         *fakeMirrorStore
	insights    *fakeInsightRepo
	adapter     *fakeAdapter
	flow        businessflow.SyncFlow
}

func newSyncHarness(t *testing.T) *syncHarness {
	t.Helper()

	h := &syncHarness{
		accountRepo: newFakeAccountRepo(models.AdAccount{ExternalID: syncAccountID, Platform: "meta", Name: "Recruiting", IsActive: true}),
		campaigns:   newFakeMirrorStore("c-stale"),
		adSets:      newFakeMirrorStore("s-stale"),
		ads:         newFakeMirrorStore("a-stale"),
		insights:    newFakeInsightRepo(),
		adapter:     newFakeAdapter(),
	}

	h.adapter.listCampaignsFn = func(accountID, cursor string) ([]platform.RemoteCampaign, string, error) {
		// Two pages to exercise cursor handling
		if cursor == "" {
			return []platform.RemoteCampaign{{ID: "c1", Name: "First", Status: "ACTIVE", EffectiveStatus: "ACTIVE"}}, "page2", nil
		}
		return []platform.RemoteCampaign{{ID: "c2", Name: "Second", Status: "PAUSED", EffectiveStatus: "PAUSED"}}, "", nil
	}
	h.adapter.listAdSetsFn = func(campaignID, cursor string) ([]platform.RemoteAdSet, string, error) {
		switch campaignID {
		case "c1":
			return []platform.RemoteAdSet{{ID: "s1", CampaignID: "c1", DailyBudget: "5000"}}, "", nil
		default:
			return []platform.RemoteAdSet{{ID: "s2", CampaignID: "c2", DailyBudget: "2500"}}, "", nil
		}
	}
	h.adapter.listAdsFn = func(adSetID, cursor string) ([]platform.RemoteAd, string, error) {
		switch adSetID {
		case "s1":
			return []platform.RemoteAd{{ID: "a1", AdSetID: "s1"}, {ID: "a2", AdSetID: "s1"}}, "", nil
		default:
			return []platform.RemoteAd{{ID: "a3", AdSetID: "s2"}}, "", nil
		}
	}
	h.adapter.getInsightsFn = func(req platform.InsightsRequest) ([]platform.RawInsightRow, string, error) {
		return []platform.RawInsightRow{{DateStart: "2026-08-30", Impressions: "100", Clicks: "5", Spend: "1.50"}}, "", nil
	}

	reconciler := businessflow.NewReconciler(
		fakeCampaignMirrorRepo{h.campaigns},
		fakeAdSetMirrorRepo{h.adSets},
		fakeAdMirrorRepo{h.ads},
		nil,
	)
	upserter := businessflow.NewInsightUpserter(h.insights, nil)
	h.flow = businessflow.NewSyncFlow(
		h.accountRepo,
		fakeCampaignMirrorRepo{h.campaigns},
		fakeAdSetMirrorRepo{h.adSets},
		fakeAdMirrorRepo{h.ads},
		reconciler,
		upserter,
		h.adapter,
		nil,
		nil,
		2,
		7,
	)
	return h
}

func TestSyncAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("FullPass", func(t *testing.T) {
		h := newSyncHarness(t)

		report, err := h.flow.SyncAccount(ctx, syncAccountID)
		require.NoError(t, err)
		require.NotNil(t, report)
		assert.Equal(t, syncAccountID, report.AccountID)
		assert.Empty(t, report.BranchErrors)

		assert.Equal(t, 2, report.Campaigns.Enumerated)
		assert.Equal(t, 2, report.AdSets.Enumerated)
		assert.Equal(t, 3, report.Ads.Enumerated)
		assert.True(t, report.Campaigns.Complete)
		assert.True(t, report.AdSets.Complete)
		assert.True(t, report.Ads.Complete)

		// One daily row per object in the hierarchy
		assert.Equal(t, 7, report.InsightRowsUpserted)
		assert.Zero(t, report.InsightRowsFailed)
		assert.Equal(t, 7, h.insights.count())

		// Stale mirrors at every level were reconciled away
		assert.Equal(t, int64(1), report.Campaigns.Deleted)
		assert.Equal(t, int64(1), report.AdSets.Deleted)
		assert.Equal(t, int64(1), report.Ads.Deleted)
		assert.Equal(t, models.RemoteStatusDeleted, h.campaigns.statusOf("c-stale"))
		assert.Equal(t, models.RemoteStatusActive, h.campaigns.statusOf("c1"))
		assert.Equal(t, models.RemoteStatusDeleted, h.adSets.statusOf("s-stale"))
		assert.Equal(t, models.RemoteStatusDeleted, h.ads.statusOf("a-stale"))

		account, err := h.accountRepo.ByExternalID(ctx, syncAccountID)
		require.NoError(t, err)
		require.NotNil(t, account)
		assert.NotNil(t, account.LastSyncedAt)
	})

	t.Run("AdSetFailurePoisonsLowerLevels", func(t *testing.T) {
		h := newSyncHarness(t)
		h.adapter.listAdSetsFn = func(campaignID, cursor string) ([]platform.RemoteAdSet, string, error) {
			if campaignID == "c2" {
				return nil, "", &platform.Error{Op: "list ad sets", StatusCode: 500, Message: "upstream error"}
			}
			return []platform.RemoteAdSet{{ID: "s1", CampaignID: "c1", DailyBudget: "5000"}}, "", nil
		}

		report, err := h.flow.SyncAccount(ctx, syncAccountID)
		require.NoError(t, err)
		require.Len(t, report.BranchErrors, 1)
		assert.Contains(t, report.BranchErrors[0], "list ad sets")

		// c2's ad sets were never seen, so neither ad sets nor ads may be
		// reconciled from this pass
		assert.True(t, report.Campaigns.Complete)
		assert.False(t, report.AdSets.Complete)
		assert.False(t, report.Ads.Complete)
		assert.Equal(t, models.RemoteStatusDeleted, h.campaigns.statusOf("c-stale"))
		assert.Equal(t, models.RemoteStatusActive, h.adSets.statusOf("s-stale"))
		assert.Equal(t, models.RemoteStatusActive, h.ads.statusOf("a-stale"))
	})

	t.Run("AdFailurePoisonsAdsOnly", func(t *testing.T) {
		h := newSyncHarness(t)
		h.adapter.listAdsFn = func(adSetID, cursor string) ([]platform.RemoteAd, string, error) {
			if adSetID == "s2" {
				return nil, "", &platform.Error{Op: "list ads", StatusCode: 500, Message: "upstream error"}
			}
			return []platform.RemoteAd{{ID: "a1", AdSetID: "s1"}}, "", nil
		}

		report, err := h.flow.SyncAccount(ctx, syncAccountID)
		require.NoError(t, err)
		require.Len(t, report.BranchErrors, 1)

		assert.True(t, report.AdSets.Complete)
		assert.False(t, report.Ads.Complete)
		assert.Equal(t, models.RemoteStatusDeleted, h.adSets.statusOf("s-stale"))
		assert.Equal(t, models.RemoteStatusActive, h.ads.statusOf("a-stale"))
	})

	t.Run("CampaignEnumerationFailureAbortsPass", func(t *testing.T) {
		h := newSyncHarness(t)
		h.adapter.listCampaignsFn = func(accountID, cursor string) ([]platform.RemoteCampaign, string, error) {
			return nil, "", &platform.Error{Op: "list campaigns", StatusCode: 500, Message: "upstream error"}
		}

		report, err := h.flow.SyncAccount(ctx, syncAccountID)
		require.Error(t, err)
		assert.Nil(t, report)
		// Nothing was reconciled from the aborted pass
		assert.Equal(t, models.RemoteStatusActive, h.campaigns.statusOf("c-stale"))
	})

	t.Run("InsightFailuresAreCountedNotFatal", func(t *testing.T) {
		h := newSyncHarness(t)
		h.adapter.getInsightsFn = func(req platform.InsightsRequest) ([]platform.RawInsightRow, string, error) {
			return []platform.RawInsightRow{
				{DateStart: "2026-08-30", Impressions: "100"},
				{DateStart: "not-a-date", Impressions: "50"},
			}, "", nil
		}

		report, err := h.flow.SyncAccount(ctx, syncAccountID)
		require.NoError(t, err)
		assert.Equal(t, 7, report.InsightRowsUpserted)
		assert.Equal(t, 7, report.InsightRowsFailed)
		assert.True(t, report.Ads.Complete)
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		h := newSyncHarness(t)
		report, err := h.flow.SyncAccount(ctx, "act_missing")
		require.Error(t, err)
		assert.Nil(t, report)
		assert.True(t, businessflow.IsAccountNotFound(err))
	})

	t.Run("InactiveAccount", func(t *testing.T) {
		h := newSyncHarness(t)
		require.NoError(t, h.accountRepo.Save(ctx, &models.AdAccount{ExternalID: "act_off", IsActive: false}))

		report, err := h.flow.SyncAccount(ctx, "act_off")
		require.Error(t, err)
		assert.Nil(t, report)
		assert.True(t, businessflow.IsAccountInactive(err))
	})
}
