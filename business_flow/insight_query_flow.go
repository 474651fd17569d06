package businessflow

import (
	"context"
	"log"
	"time"

	"github.com/jobradar/adpilot/app/dto"
	"github.com/jobradar/adpilot/models"
	"github.com/jobradar/adpilot/repository"
)

// InsightQueryFlow serves read access to stored insight rows
type InsightQueryFlow interface {
	ListInsights(ctx context.Context, req *dto.ListInsightsRequest) (*dto.ListInsightsResponse, error)
}

// InsightQueryFlowImpl implements insight queries
type InsightQueryFlowImpl struct {
	insightRepo repository.InsightRepository
	logger      *log.Logger
}

// NewInsightQueryFlow creates a new insight query flow instance
func NewInsightQueryFlow(insightRepo repository.InsightRepository, logger *log.Logger) InsightQueryFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &InsightQueryFlowImpl{insightRepo: insightRepo, logger: logger}
}

// ListInsights returns one page of rows ordered by object then day
func (f *InsightQueryFlowImpl) ListInsights(ctx context.Context, req *dto.ListInsightsRequest) (*dto.ListInsightsResponse, error) {
	page := req.Page
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return nil, NewBusinessError("VALIDATION_ERROR", "Page must be positive", ErrInvalidPage)
	}
	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = 100
	}
	if pageSize < 1 || pageSize > 500 {
		return nil, NewBusinessError("VALIDATION_ERROR", "Page size out of range", ErrInvalidPageSize)
	}

	filter := models.InsightFilter{
		AccountID: req.AccountID,
		ObjectID:  req.ObjectID,
	}
	if req.Level != nil {
		level := models.ObjectLevel(*req.Level)
		if !level.Valid() {
			return nil, NewBusinessError("VALIDATION_ERROR", "Unknown object level", nil)
		}
		filter.Level = &level
	}
	var err error
	if filter.DateFrom, err = parseQueryDate(req.DateFrom); err != nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Invalid date_from", err)
	}
	if filter.DateTo, err = parseQueryDate(req.DateTo); err != nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Invalid date_to", err)
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return nil, NewBusinessError("VALIDATION_ERROR", "date_from must not be after date_to", ErrStartDateAfterEndDate)
	}

	rows, err := f.insightRepo.ByFilter(ctx, filter, "object_id ASC, date_start ASC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("INSIGHT_LIST_FAILED", "Failed to list insights", err)
	}

	items := make([]dto.InsightDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toInsightDTO(row))
	}
	return &dto.ListInsightsResponse{Items: items}, nil
}

func parseQueryDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(insightDateLayout, *s, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func toInsightDTO(row *models.Insight) dto.InsightDTO {
	out := dto.InsightDTO{
		ObjectID:    row.ObjectID,
		Level:       row.Level.String(),
		AccountID:   row.AccountID,
		DateStart:   row.DateStart.UTC().Format(insightDateLayout),
		Impressions: row.Impressions,
		Clicks:      row.Clicks,
		SpendCents:  row.SpendCents,
		CPCCents:    row.CPCCents,
		CTR:         row.CTR,

		ApplicationsSubmitted: row.ApplicationsSubmitted,
		ApplicationsValue:     row.ApplicationsValue,
		Leads:                 row.Leads,
		LeadsValue:            row.LeadsValue,

		RawActions:      row.RawActions,
		RawActionValues: row.RawActionValues,
	}
	if row.DateStop != nil {
		out.DateStop = row.DateStop.UTC().Format(insightDateLayout)
	}
	return out
}
