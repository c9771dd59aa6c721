package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime/types"
	"github.com/vcscsvcscs/carepath/internal/audit"
	"github.com/vcscsvcscs/carepath/internal/classifier"
	"github.com/vcscsvcscs/carepath/internal/questionnaire"
	"github.com/vcscsvcscs/carepath/internal/service"
	"github.com/vcscsvcscs/carepath/pkg/api"
	"go.uber.org/zap"
)

// Helper functions for type conversions between API types and internal models

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// optionalString returns nil for an empty string
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// optionalTime returns nil for the zero time
func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// uuidToString converts types.UUID to string
func uuidToString(u types.UUID) string {
	return uuid.UUID(u).String()
}

// stringToUUID converts a session ID to types.UUID
func stringToUUID(s string) types.UUID {
	u, err := uuid.Parse(s)
	if err != nil {
		return types.UUID(uuid.Nil)
	}
	return types.UUID(u)
}

// requestContext attaches the caller to the request context for the audit trail
func requestContext(c *gin.Context) *gin.Context {
	c.Request = c.Request.WithContext(
		audit.WithClient(c.Request.Context(), c.ClientIP(), c.Request.UserAgent()),
	)
	return c
}

// writeError maps service errors to HTTP responses
func writeError(c *gin.Context, logger *zap.Logger, err error, message string) {
	var (
		validationErr *questionnaire.ValidationError
		transportErr  *classifier.TransportError
	)

	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "Session not found",
		})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Required questions are unanswered",
			Details: stringPtr(strings.Join(validationErr.Keys, ", ")),
		})
	case errors.Is(err, questionnaire.ErrUnknownOption):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Unknown option for the current step",
			Details: stringPtr(err.Error()),
		})
	case errors.Is(err, questionnaire.ErrStepIncomplete):
		c.JSON(http.StatusConflict, api.ErrorResponse{
			Code:    "STEP_INCOMPLETE",
			Message: "Answer the current step before continuing",
		})
	case errors.Is(err, service.ErrSubmissionInProgress):
		c.JSON(http.StatusConflict, api.ErrorResponse{
			Code:    "SUBMISSION_IN_PROGRESS",
			Message: "A submission for this session is already in progress",
		})
	case errors.Is(err, service.ErrNoResult):
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Code:    "NO_RESULT",
			Message: "Session has not been classified yet",
		})
	case errors.As(err, &transportErr):
		details := transportErr.Body
		if transportErr.StatusCode == 0 {
			details = transportErr.Error()
		}
		logger.Error(message, zap.Error(err))
		c.JSON(http.StatusBadGateway, api.ErrorResponse{
			Code:    "CLASSIFICATION_FAILED",
			Message: message,
			Details: stringPtr(details),
		})
	default:
		logger.Error(message, zap.Error(err))
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: message,
			Details: stringPtr(err.Error()),
		})
	}
}

func toStepResponse(step service.StepView) api.StepResponse {
	options := make([]api.OptionResponse, 0, len(step.Options))
	for _, o := range step.Options {
		options = append(options, api.OptionResponse{
			Value:    o.Value,
			Label:    o.Label,
			Selected: o.Selected,
		})
	}
	return api.StepResponse{
		Key:         step.Key,
		Title:       step.Title,
		Help:        step.Help,
		Cardinality: api.StepResponseCardinality(step.Cardinality),
		Options:     options,
	}
}

func toResultResponse(result *service.ResultView) *api.TriageResultResponse {
	if result == nil {
		return nil
	}
	return &api.TriageResultResponse{
		Category:   result.Category,
		Tone:       api.Tone(result.Tone),
		Reasons:    result.Reasons,
		Disclaimer: optionalString(result.Disclaimer),
		Version:    optionalString(result.Version),
		Timestamp:  optionalTime(result.Timestamp),
	}
}

func toSessionResponse(view *service.SessionView) api.SessionResponse {
	return api.SessionResponse{
		SessionId:       stringToUUID(view.ID),
		Status:          api.SessionResponseStatus(view.Status),
		Step:            toStepResponse(view.Step),
		StepIndex:       view.StepIndex,
		StepCount:       view.StepCount,
		StepLabel:       view.StepLabel,
		ProgressPercent: view.ProgressPercent,
		CanAdvance:      view.CanAdvance,
		CanRetreat:      view.CanRetreat,
		IsLastStep:      view.IsLastStep,
		Submitting:      view.Submitting,
		Answers:         view.Answers,
		Result:          toResultResponse(view.Result),
		StartedAt:       view.StartedAt,
		UpdatedAt:       view.UpdatedAt,
		CompletedAt:     view.CompletedAt,
	}
}
