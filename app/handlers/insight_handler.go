package handlers

import (
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/jobradar/adpilot/app/dto"
	"github.com/jobradar/adpilot/app/taskrunner"
	businessflow "github.com/jobradar/adpilot/business_flow"
	"github.com/jobradar/adpilot/models"
)

// InsightHandlerInterface defines the contract for insight and sync handlers
type InsightHandlerInterface interface {
	ListInsights(c fiber.Ctx) error
	ExportInsights(c fiber.Ctx) error
	TriggerSync(c fiber.Ctx) error
}

// InsightHandler serves stored metric rows and sync triggers
type InsightHandler struct {
	queryFlow  businessflow.InsightQueryFlow
	exportFlow businessflow.InsightExportFlow
	runner     *taskrunner.Runner
	validator  *validator.Validate
}

// NewInsightHandler creates a new insight handler
func NewInsightHandler(queryFlow businessflow.InsightQueryFlow, exportFlow businessflow.InsightExportFlow, runner *taskrunner.Runner) *InsightHandler {
	return &InsightHandler{
		queryFlow:  queryFlow,
		exportFlow: exportFlow,
		runner:     runner,
		validator:  validator.New(),
	}
}

func (h *InsightHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *InsightHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ListInsights returns one page of stored daily metric rows
func (h *InsightHandler) ListInsights(c fiber.Ctx) error {
	var req dto.ListInsightsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", collectValidationErrors(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/insights", 15*time.Second)
	defer cancel()

	result, err := h.queryFlow.ListInsights(ctx, &req)
	if err != nil {
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "VALIDATION_ERROR", nil)
		}

		log.Println("Insight listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Insight listing failed", "INSIGHT_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Insights retrieved successfully", result)
}

// ExportInsights streams one account's insight rows as an Excel workbook
func (h *InsightHandler) ExportInsights(c fiber.Ctx) error {
	var req dto.ExportInsightsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", collectValidationErrors(err))
	}

	var from, to *time.Time
	if req.DateFrom != nil && *req.DateFrom != "" {
		t, err := time.ParseInLocation("2006-01-02", *req.DateFrom, time.UTC)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid date_from", "VALIDATION_ERROR", nil)
		}
		from = &t
	}
	if req.DateTo != nil && *req.DateTo != "" {
		t, err := time.ParseInLocation("2006-01-02", *req.DateTo, time.UTC)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid date_to", "VALIDATION_ERROR", nil)
		}
		to = &t
	}

	ctx, cancel := createRequestContext(c, "/api/v1/insights/export", 60*time.Second)
	defer cancel()

	filename, content, err := h.exportFlow.ExportAccountInsightsExcel(ctx, req.AccountID, from, to)
	if err != nil {
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "VALIDATION_ERROR", nil)
		}

		log.Println("Insight export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Insight export failed", "INSIGHT_EXPORT_FAILED", nil)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(content)
}

// TriggerSync enqueues an asynchronous sync run for one account
func (h *InsightHandler) TriggerSync(c fiber.Ctx) error {
	accountID := c.Params("account_id")
	if accountID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Account ID is required", "MISSING_ACCOUNT_ID", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/accounts/:account_id/sync", 10*time.Second)
	defer cancel()

	payload := models.SyncAccountPayload{AccountID: accountID}
	task, err := h.runner.Submit(ctx, models.TaskKindSyncAccount, payload, taskrunner.SyncDedupKey(accountID))
	if err != nil {
		log.Println("Sync task submission failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to enqueue sync task", "TASK_SUBMIT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusAccepted, "Sync task enqueued", fiber.Map{
		"task_uuid": task.UUID.String(),
		"status":    string(task.Status),
	})
}
