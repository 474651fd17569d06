package businessflow

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/jobradar/adpilot/models"
	"github.com/jobradar/adpilot/platform"
	"github.com/jobradar/adpilot/repository"
)

// Action types promoted from the raw action arrays to named columns. The
// full arrays are stored alongside so nothing is lost for types not listed
// here.
const (
	actionTypeSubmitApplication = "submit_application"
	actionTypeLead              = "lead"
)

const insightDateLayout = "2006-01-02"

// InsightUpserter turns one raw platform insight row into exactly one
// stored rollup, keyed on (object, level, day). Re-syncing the same day
// overwrites the stored metrics; the last fetch wins.
type InsightUpserter interface {
	Upsert(ctx context.Context, accountID, objectID string, level models.ObjectLevel, raw platform.RawInsightRow) error
}

// InsightUpserterImpl implements insight ingestion with defensive coercion
type InsightUpserterImpl struct {
	insightRepo repository.InsightRepository
	logger      *log.Logger
}

// NewInsightUpserter creates a new insight upserter instance
func NewInsightUpserter(insightRepo repository.InsightRepository, logger *log.Logger) InsightUpserter {
	if logger == nil {
		logger = log.Default()
	}
	return &InsightUpserterImpl{insightRepo: insightRepo, logger: logger}
}

// Upsert coerces the string-encoded metrics of one raw row and writes it.
// Malformed numeric fields degrade to zero with a log line; a malformed
// date makes the whole row unusable because it is part of the key, so the
// row is rejected with ErrInsightDateUnparseable.
func (u *InsightUpserterImpl) Upsert(ctx context.Context, accountID, objectID string, level models.ObjectLevel, raw platform.RawInsightRow) error {
	dateStart, err := time.ParseInLocation(insightDateLayout, raw.DateStart, time.UTC)
	if err != nil {
		return fmt.Errorf("object=%s date_start=%q: %w", objectID, raw.DateStart, ErrInsightDateUnparseable)
	}

	row := &models.Insight{
		ObjectID:    objectID,
		Level:       level,
		DateStart:   dateStart,
		AccountID:   accountID,
		Impressions: u.coerceInt(objectID, "impressions", raw.Impressions),
		Clicks:      u.coerceInt(objectID, "clicks", raw.Clicks),
		SpendCents:  u.coerceCents(objectID, "spend", raw.Spend),
	}

	if raw.DateStop != "" {
		if dateStop, err := time.ParseInLocation(insightDateLayout, raw.DateStop, time.UTC); err == nil {
			row.DateStop = &dateStop
		} else {
			u.logger.Printf("insight: object=%s unparseable date_stop %q, dropping field", objectID, raw.DateStop)
		}
	}
	if raw.CPC != "" {
		cpc := u.coerceCents(objectID, "cpc", raw.CPC)
		row.CPCCents = &cpc
	}
	if raw.CTR != "" {
		ctr := u.coerceFloat(objectID, "ctr", raw.CTR)
		row.CTR = &ctr
	}

	row.RawActions = toActionList(raw.Actions)
	row.RawActionValues = toActionList(raw.ActionValues)
	for _, action := range raw.Actions {
		switch action.ActionType {
		case actionTypeSubmitApplication:
			row.ApplicationsSubmitted = u.coerceInt(objectID, "actions."+action.ActionType, action.Value)
		case actionTypeLead:
			row.Leads = u.coerceInt(objectID, "actions."+action.ActionType, action.Value)
		}
	}
	for _, action := range raw.ActionValues {
		switch action.ActionType {
		case actionTypeSubmitApplication:
			row.ApplicationsValue = u.coerceFloat(objectID, "action_values."+action.ActionType, action.Value)
		case actionTypeLead:
			row.LeadsValue = u.coerceFloat(objectID, "action_values."+action.ActionType, action.Value)
		}
	}

	if err := u.insightRepo.Upsert(ctx, row); err != nil {
		return fmt.Errorf("upsert insight object=%s date=%s: %w", objectID, raw.DateStart, err)
	}
	return nil
}

// coerceInt parses a string-encoded integer metric, degrading to zero on
// malformed input so one bad field never drops a whole row
func (u *InsightUpserterImpl) coerceInt(objectID, field, value string) int64 {
	if value == "" {
		return 0
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		u.logger.Printf("insight: object=%s unparseable %s %q, defaulting to 0", objectID, field, value)
		return 0
	}
	return n
}

// coerceCents parses a string-encoded decimal currency amount into integer
// cents, degrading to zero on malformed input
func (u *InsightUpserterImpl) coerceCents(objectID, field, value string) int64 {
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		u.logger.Printf("insight: object=%s unparseable %s %q, defaulting to 0", objectID, field, value)
		return 0
	}
	return int64(math.Round(f * 100))
}

func (u *InsightUpserterImpl) coerceFloat(objectID, field, value string) float64 {
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		u.logger.Printf("insight: object=%s unparseable %s %q, defaulting to 0", objectID, field, value)
		return 0
	}
	return f
}

func toActionList(raw []platform.RawAction) models.ActionList {
	list := make(models.ActionList, 0, len(raw))
	for _, a := range raw {
		list = append(list, models.ActionCounter{ActionType: a.ActionType, Value: a.Value})
	}
	return list
}
