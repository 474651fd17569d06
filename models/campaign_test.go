package models_test

import (
	"testing"

	"github.com/jobradar/adpilot/models"
	"github.com/jobradar/adpilot/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCampaignStatusTransitions(t *testing.T) {
	cases := []struct {
		from    models.CampaignStatus
		to      models.CampaignStatus
		allowed bool
	}{
		{models.CampaignStatusDraft, models.CampaignStatusPublishing, true},
		{models.CampaignStatusDraft, models.CampaignStatusActive, false},
		{models.CampaignStatusDraft, models.CampaignStatusFailed, false},
		{models.CampaignStatusPublishing, models.CampaignStatusActive, true},
		{models.CampaignStatusPublishing, models.CampaignStatusFailed, true},
		{models.CampaignStatusPublishing, models.CampaignStatusDraft, false},
		{models.CampaignStatusFailed, models.CampaignStatusPublishing, true},
		{models.CampaignStatusFailed, models.CampaignStatusDraft, false},
		{models.CampaignStatusActive, models.CampaignStatusDraft, false},
		{models.CampaignStatusActive, models.CampaignStatusPublishing, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}

	assert.True(t, models.CampaignStatusDraft.Publishable())
	assert.True(t, models.CampaignStatusPublishing.Publishable())
	assert.True(t, models.CampaignStatusFailed.Publishable())
	assert.False(t, models.CampaignStatusActive.Publishable())
}

func TestCampaignStatusValidation(t *testing.T) {
	assert.True(t, models.CampaignStatusDraft.Valid())
	assert.True(t, models.CampaignStatusFailed.Valid())
	assert.False(t, models.CampaignStatus("archived").Valid())

	assert.True(t, models.CampaignStatusActive.IsTerminal())
	assert.True(t, models.CampaignStatusFailed.IsTerminal())
	assert.False(t, models.CampaignStatusPublishing.IsTerminal())

	_, err := models.CampaignStatus("archived").Value()
	require.Error(t, err)
}

func TestExternalIDMapScan(t *testing.T) {
	m := models.ExternalIDMap{
		CampaignID: utils.ToPtr("cmp-1"),
		AdSetID:    utils.ToPtr("set-1"),
	}
	v, err := m.Value()
	require.NoError(t, err)

	var got models.ExternalIDMap
	require.NoError(t, got.Scan(v))
	require.NotNil(t, got.CampaignID)
	assert.Equal(t, "cmp-1", *got.CampaignID)
	assert.Nil(t, got.AudienceID)

	// NULL column reads back as the empty map
	require.NoError(t, got.Scan(nil))
	assert.Nil(t, got.CampaignID)
}

func TestObjectLevel(t *testing.T) {
	assert.True(t, models.LevelCampaign.Valid())
	assert.True(t, models.LevelAdSet.Valid())
	assert.True(t, models.LevelAd.Valid())
	assert.False(t, models.ObjectLevel("page").Valid())
}

func TestTaskStatus(t *testing.T) {
	assert.True(t, models.TaskStatusSuccess.IsFinished())
	assert.True(t, models.TaskStatusFailure.IsFinished())
	assert.False(t, models.TaskStatusPending.IsFinished())
	assert.False(t, models.TaskStatusRunning.IsFinished())
	assert.False(t, models.TaskStatus("cancelled").Valid())
}

func TestActionListScan(t *testing.T) {
	list := models.ActionList{{ActionType: "lead", Value: "3"}}
	v, err := list.Value()
	require.NoError(t, err)

	var got models.ActionList
	require.NoError(t, got.Scan(v))
	require.Len(t, got, 1)
	assert.Equal(t, "lead", got[0].ActionType)

	require.NoError(t, got.Scan(nil))
	assert.Empty(t, got)
}
