package businessflow_test

import (
	"context"
	"testing"

	businessflow "github.com/jobradar/adpilot/business_flow"
	"github.com/jobradar/adpilot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileLevel(t *testing.T) {
	ctx := context.Background()

	newReconciler := func(campaigns, adSets, ads *fakeMirrorStore) businessflow.Reconciler {
		return businessflow.NewReconciler(
			fakeCampaignMirrorRepo{campaigns},
			fakeAdSetMirrorRepo{adSets},
			fakeAdMirrorRepo{ads},
			nil,
		)
	}

	t.Run("MarksStaleMirrors", func(t *testing.T) {
		campaigns := newFakeMirrorStore("c1", "c2", "c3")
		r := newReconciler(campaigns, newFakeMirrorStore(), newFakeMirrorStore())

		marked, err := r.ReconcileLevel(ctx, "act_123", models.LevelCampaign, map[string]struct{}{"c1": {}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), marked)
		assert.Equal(t, models.RemoteStatusActive, campaigns.statusOf("c1"))
		assert.Equal(t, models.RemoteStatusDeleted, campaigns.statusOf("c2"))
		assert.Equal(t, models.RemoteStatusDeleted, campaigns.statusOf("c3"))
	})

	t.Run("RerunIsIdempotent", func(t *testing.T) {
		adSets := newFakeMirrorStore("s1", "s2")
		r := newReconciler(newFakeMirrorStore(), adSets, newFakeMirrorStore())

		fresh := map[string]struct{}{"s1": {}}
		marked, err := r.ReconcileLevel(ctx, "act_123", models.LevelAdSet, fresh)
		require.NoError(t, err)
		assert.Equal(t, int64(1), marked)

		marked, err = r.ReconcileLevel(ctx, "act_123", models.LevelAdSet, fresh)
		require.NoError(t, err)
		assert.Zero(t, marked)
	})

	t.Run("EmptyFreshSetMarksEverything", func(t *testing.T) {
		ads := newFakeMirrorStore("a1", "a2")
		r := newReconciler(newFakeMirrorStore(), newFakeMirrorStore(), ads)

		marked, err := r.ReconcileLevel(ctx, "act_123", models.LevelAd, map[string]struct{}{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), marked)
	})

	t.Run("NothingStale", func(t *testing.T) {
		campaigns := newFakeMirrorStore("c1")
		r := newReconciler(campaigns, newFakeMirrorStore(), newFakeMirrorStore())

		marked, err := r.ReconcileLevel(ctx, "act_123", models.LevelCampaign, map[string]struct{}{"c1": {}, "c9": {}})
		require.NoError(t, err)
		assert.Zero(t, marked)
		assert.Equal(t, models.RemoteStatusActive, campaigns.statusOf("c1"))
	})

	t.Run("UnknownLevel", func(t *testing.T) {
		r := newReconciler(newFakeMirrorStore(), newFakeMirrorStore(), newFakeMirrorStore())
		_, err := r.ReconcileLevel(ctx, "act_123", models.ObjectLevel("page"), nil)
		require.Error(t, err)
	})
}
