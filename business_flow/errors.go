package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Campaign-related errors
	ErrCampaignNotFound       = errors.New("campaign not found")
	ErrCampaignNotPublishable = errors.New("campaign is not in a publishable state")
	ErrCampaignPageIDRequired = errors.New("campaign page id is required")
	ErrCampaignNameRequired   = errors.New("campaign name is required")
	ErrCampaignBudgetRequired = errors.New("campaign daily budget is required")

	// Account-related errors
	ErrAccountNotFound = errors.New("ad account not found")
	ErrAccountInactive = errors.New("ad account is inactive")

	// Insight-related errors
	ErrInsightDateUnparseable = errors.New("insight row date is unparseable")

	// Task-related errors
	ErrTaskNotFound = errors.New("task not found")

	// Filter errors
	ErrInvalidPage           = errors.New("page must be at least 1")
	ErrInvalidPageSize       = errors.New("page size must be between 1 and 100")
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Helper functions to check specific error types

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignNotPublishable(err error) bool {
	return errors.Is(err, ErrCampaignNotPublishable)
}

func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsTaskNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound)
}

func IsValidationError(err error) bool {
	var be *BusinessError
	return errors.As(err, &be) && be.Code == "VALIDATION_ERROR"
}
