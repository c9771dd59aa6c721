package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/vcscsvcscs/carepath/internal/service"
	"github.com/vcscsvcscs/carepath/pkg/api"
	"go.uber.org/zap"
)

// QuestionnaireHandler implements questionnaire session endpoints
type QuestionnaireHandler struct {
	service *service.TriageService
	logger  *zap.Logger
}

// NewQuestionnaireHandler creates a new QuestionnaireHandler
func NewQuestionnaireHandler(service *service.TriageService, logger *zap.Logger) *QuestionnaireHandler {
	return &QuestionnaireHandler{
		service: service,
		logger:  logger,
	}
}

// GetApiV1QuestionnaireSteps lists the step catalog
func (h *QuestionnaireHandler) GetApiV1QuestionnaireSteps(c *gin.Context) {
	steps := h.service.Steps()

	response := api.StepsResponse{Steps: make([]api.StepResponse, 0, len(steps))}
	for _, step := range steps {
		response.Steps = append(response.Steps, toStepResponse(step))
	}

	c.JSON(http.StatusOK, response)
}

// PostApiV1QuestionnaireSessions starts a new session
func (h *QuestionnaireHandler) PostApiV1QuestionnaireSessions(c *gin.Context) {
	c = requestContext(c)

	view, err := h.service.StartSession(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err, "Failed to start session")
		return
	}

	c.JSON(http.StatusCreated, toSessionResponse(view))
}

// GetApiV1QuestionnaireSessionsSessionId returns the session state
func (h *QuestionnaireHandler) GetApiV1QuestionnaireSessionsSessionId(c *gin.Context, sessionId openapi_types.UUID) {
	view, err := h.service.GetSession(c.Request.Context(), uuidToString(sessionId))
	if err != nil {
		writeError(c, h.logger, err, "Failed to get session")
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(view))
}

// PostApiV1QuestionnaireSessionsSessionIdToggle selects or deselects an option
// on the current step
func (h *QuestionnaireHandler) PostApiV1QuestionnaireSessionsSessionIdToggle(c *gin.Context, sessionId openapi_types.UUID) {
	var req api.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	selected := true
	if req.Selected != nil {
		selected = *req.Selected
	}

	view, err := h.service.Toggle(c.Request.Context(), uuidToString(sessionId), req.Value, selected)
	if err != nil {
		writeError(c, h.logger, err, "Failed to update answer")
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(view))
}

// PostApiV1QuestionnaireSessionsSessionIdAdvance moves to the next step
func (h *QuestionnaireHandler) PostApiV1QuestionnaireSessionsSessionIdAdvance(c *gin.Context, sessionId openapi_types.UUID) {
	view, err := h.service.Advance(c.Request.Context(), uuidToString(sessionId))
	if err != nil {
		writeError(c, h.logger, err, "Failed to advance")
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(view))
}

// PostApiV1QuestionnaireSessionsSessionIdRetreat moves to the previous step
func (h *QuestionnaireHandler) PostApiV1QuestionnaireSessionsSessionIdRetreat(c *gin.Context, sessionId openapi_types.UUID) {
	view, err := h.service.Retreat(c.Request.Context(), uuidToString(sessionId))
	if err != nil {
		writeError(c, h.logger, err, "Failed to go back")
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(view))
}

// PostApiV1QuestionnaireSessionsSessionIdRestart clears all answers
func (h *QuestionnaireHandler) PostApiV1QuestionnaireSessionsSessionIdRestart(c *gin.Context, sessionId openapi_types.UUID) {
	c = requestContext(c)

	view, err := h.service.Restart(c.Request.Context(), uuidToString(sessionId))
	if err != nil {
		writeError(c, h.logger, err, "Failed to restart session")
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(view))
}
