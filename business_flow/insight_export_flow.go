package businessflow

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/jobradar/adpilot/models"
	"github.com/jobradar/adpilot/repository"
	"github.com/xuri/excelize/v2"
)

const exportBatchSize = 1000

// InsightExportFlow builds downloadable Excel workbooks out of stored
// insight rows
type InsightExportFlow interface {
	ExportAccountInsightsExcel(ctx context.Context, accountID string, from, to *time.Time) (string, []byte, error)
}

// InsightExportFlowImpl implements the Excel export
type InsightExportFlowImpl struct {
	insightRepo repository.InsightRepository
	logger      *log.Logger
}

// NewInsightExportFlow creates a new insight export flow instance
func NewInsightExportFlow(insightRepo repository.InsightRepository, logger *log.Logger) InsightExportFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &InsightExportFlowImpl{insightRepo: insightRepo, logger: logger}
}

// ExportAccountInsightsExcel writes one workbook with one sheet per
// hierarchy level, rows ordered by object then day
func (f *InsightExportFlowImpl) ExportAccountInsightsExcel(ctx context.Context, accountID string, from, to *time.Time) (string, []byte, error) {
	if accountID == "" {
		return "", nil, NewBusinessError("VALIDATION_ERROR", "account_id must not be empty", nil)
	}
	if from != nil && to != nil && from.After(*to) {
		return "", nil, NewBusinessError("VALIDATION_ERROR", "date_from must not be after date_to", ErrStartDateAfterEndDate)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	levels := []struct {
		level models.ObjectLevel
		sheet string
	}{
		{models.LevelCampaign, "campaigns"},
		{models.LevelAdSet, "ad_sets"},
		{models.LevelAd, "ads"},
	}

	total := 0
	for i, lv := range levels {
		if i == 0 {
			xl.SetSheetName(xl.GetSheetName(0), lv.sheet)
		} else {
			_, _ = xl.NewSheet(lv.sheet)
		}

		header := []string{"object_id", "date_start", "date_stop", "impressions", "clicks", "spend_cents", "cpc_cents", "ctr", "applications_submitted", "applications_value", "leads", "leads_value"}
		_ = xl.SetSheetRow(lv.sheet, "A1", &header)

		n, err := f.writeLevel(ctx, xl, lv.sheet, accountID, lv.level, from, to)
		if err != nil {
			return "", nil, NewBusinessError("FETCH_INSIGHTS_FAILED", "Failed to fetch insights", err)
		}
		total += n
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	f.logger.Printf("export: account=%s wrote %d insight rows", accountID, total)
	filename := fmt.Sprintf("insights_%s.xlsx", accountID)
	return filename, buf.Bytes(), nil
}

func (f *InsightExportFlowImpl) writeLevel(ctx context.Context, xl *excelize.File, sheet, accountID string, level models.ObjectLevel, from, to *time.Time) (int, error) {
	filter := models.InsightFilter{
		AccountID: &accountID,
		Level:     &level,
		DateFrom:  from,
		DateTo:    to,
	}

	written := 0
	offset := 0
	for {
		rows, err := f.insightRepo.ByFilter(ctx, filter, "object_id ASC, date_start ASC", exportBatchSize, offset)
		if err != nil {
			return written, err
		}
		for _, row := range rows {
			record := insightRecord(row)
			cellRef, _ := excelize.CoordinatesToCellName(1, written+2)
			_ = xl.SetSheetRow(sheet, cellRef, &record)
			written++
		}
		if len(rows) < exportBatchSize {
			return written, nil
		}
		offset += exportBatchSize
	}
}

func insightRecord(row *models.Insight) []string {
	dateStop := ""
	if row.DateStop != nil {
		dateStop = row.DateStop.UTC().Format("2006-01-02")
	}
	cpc := ""
	if row.CPCCents != nil {
		cpc = strconv.FormatInt(*row.CPCCents, 10)
	}
	ctr := ""
	if row.CTR != nil {
		ctr = strconv.FormatFloat(*row.CTR, 'f', -1, 64)
	}
	return []string{
		row.ObjectID,
		row.DateStart.UTC().Format("2006-01-02"),
		dateStop,
		strconv.FormatInt(row.Impressions, 10),
		strconv.FormatInt(row.Clicks, 10),
		strconv.FormatInt(row.SpendCents, 10),
		cpc,
		ctr,
		strconv.FormatInt(row.ApplicationsSubmitted, 10),
		strconv.FormatFloat(row.ApplicationsValue, 'f', 2, 64),
		strconv.FormatInt(row.Leads, 10),
		strconv.FormatFloat(row.LeadsValue, 'f', 2, 64),
	}
}
