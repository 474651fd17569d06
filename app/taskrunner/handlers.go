package taskrunner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jobradar/adpilot/app/middleware"
	businessflow "github.com/jobradar/adpilot/business_flow"
	"github.com/jobradar/adpilot/models"
)

// PublishDedupKey is the dedup key for one campaign's publish tasks
func PublishDedupKey(campaignID uint) string {
	return fmt.Sprintf("publish:%d", campaignID)
}

// SyncDedupKey is the dedup key for one account's sync tasks
func SyncDedupKey(accountID string) string {
	return "sync:" + accountID
}

// PublishHandler adapts the publish flow to the task interface. The flow's
// structured result becomes the task result even when publishing failed on
// the platform side; only infrastructure errors fail the task itself.
func PublishHandler(flow businessflow.PublishFlow) Handler {
	return func(ctx context.Context, task *models.Task) (any, error) {
		var payload models.PublishCampaignPayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode publish payload: %w", err)
		}
		if payload.CampaignID == 0 {
			return nil, fmt.Errorf("publish payload missing campaign_id")
		}
		result, err := flow.Publish(ctx, payload.CampaignID)
		if err != nil {
			return nil, err
		}
		middleware.ObservePublishRun(result.Success)
		return result, nil
	}
}

// SyncHandler adapts the sync flow to the task interface
func SyncHandler(flow businessflow.SyncFlow) Handler {
	return func(ctx context.Context, task *models.Task) (any, error) {
		var payload models.SyncAccountPayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode sync payload: %w", err)
		}
		if payload.AccountID == "" {
			return nil, fmt.Errorf("sync payload missing account_id")
		}
		report, err := flow.SyncAccount(ctx, payload.AccountID)
		if err != nil {
			return nil, err
		}
		middleware.ObserveSyncObjects("campaign", report.Campaigns.Enumerated)
		middleware.ObserveSyncObjects("adset", report.AdSets.Enumerated)
		middleware.ObserveSyncObjects("ad", report.Ads.Enumerated)
		middleware.ObserveInsightRows(report.InsightRowsUpserted, report.InsightRowsFailed)
		return report, nil
	}
}
