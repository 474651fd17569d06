package handlers

import (
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jobradar/adpilot/app/dto"
	"github.com/jobradar/adpilot/app/taskrunner"
	businessflow "github.com/jobradar/adpilot/business_flow"
	"github.com/jobradar/adpilot/models"
)

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
	PublishCampaign(c fiber.Ctx) error
	GetTaskStatus(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests. Publishing is
// asynchronous: the publish endpoint enqueues a task and returns its
// identifier, the task endpoint reports the outcome.
type CampaignHandler struct {
	campaignFlow businessflow.CampaignFlow
	runner       *taskrunner.Runner
	validator    *validator.Validate
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow, runner *taskrunner.Runner) *CampaignHandler {
	return &CampaignHandler{
		campaignFlow: campaignFlow,
		runner:       runner,
		validator:    validator.New(),
	}
}

func (h *CampaignHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CampaignHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateCampaign stores a new draft campaign
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", collectValidationErrors(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/campaigns", 30*time.Second)
	defer cancel()

	result, err := h.campaignFlow.CreateCampaign(ctx, &req)
	if err != nil {
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Ad account not found", "ACCOUNT_NOT_FOUND", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Ad account is inactive", "ACCOUNT_INACTIVE", nil)
		}
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "VALIDATION_ERROR", nil)
		}

		log.Println("Campaign creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign creation failed", "CAMPAIGN_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created successfully", result)
}

// GetCampaign returns one campaign by its UUID
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/campaigns/:uuid", 10*time.Second)
	defer cancel()

	result, err := h.campaignFlow.GetCampaign(ctx, campaignUUID)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign identifier", "VALIDATION_ERROR", nil)
		}

		log.Println("Campaign lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign lookup failed", "CAMPAIGN_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign retrieved successfully", result)
}

// ListCampaigns returns one page of campaigns
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	var req dto.ListCampaignsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", collectValidationErrors(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/campaigns", 10*time.Second)
	defer cancel()

	result, err := h.campaignFlow.ListCampaigns(ctx, &req)
	if err != nil {
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "VALIDATION_ERROR", nil)
		}

		log.Println("Campaign listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign listing failed", "CAMPAIGN_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", result)
}

// PublishCampaign enqueues an asynchronous publish run for one campaign
func (h *CampaignHandler) PublishCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/campaigns/:uuid/publish", 10*time.Second)
	defer cancel()

	campaign, err := h.campaignFlow.GetCampaign(ctx, campaignUUID)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign identifier", "VALIDATION_ERROR", nil)
		}

		log.Println("Campaign lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign lookup failed", "CAMPAIGN_LOOKUP_FAILED", nil)
	}

	// Publishing is allowed through: a run whose task exhausted its
	// retries leaves the campaign there, and re-triggering resumes it.
	status := models.CampaignStatus(campaign.Status)
	if !status.Publishable() {
		return h.ErrorResponse(c, fiber.StatusConflict, "Campaign is not in a publishable state", "CAMPAIGN_NOT_PUBLISHABLE", fiber.Map{
			"status": campaign.Status,
		})
	}

	payload := models.PublishCampaignPayload{CampaignID: campaign.ID}
	task, err := h.runner.Submit(ctx, models.TaskKindPublishCampaign, payload, taskrunner.PublishDedupKey(campaign.ID))
	if err != nil {
		log.Println("Publish task submission failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to enqueue publish task", "TASK_SUBMIT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusAccepted, "Publish task enqueued", fiber.Map{
		"task_uuid": task.UUID.String(),
		"status":    string(task.Status),
	})
}

// GetTaskStatus reports the state and result of one submitted task
func (h *CampaignHandler) GetTaskStatus(c fiber.Ctx) error {
	taskUUID := c.Params("uuid")
	parsed, err := uuid.Parse(taskUUID)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid task identifier", "VALIDATION_ERROR", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/tasks/:uuid", 10*time.Second)
	defer cancel()

	task, err := h.runner.GetStatus(ctx, parsed)
	if err != nil {
		log.Println("Task lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Task lookup failed", "TASK_LOOKUP_FAILED", nil)
	}
	if task == nil {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Task not found", "TASK_NOT_FOUND", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Task retrieved successfully", businessflow.ToTaskStatusDTO(*task))
}
