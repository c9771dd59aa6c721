package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/vcscsvcscs/carepath/internal/service"
	"github.com/vcscsvcscs/carepath/pkg/api"
	"go.uber.org/zap"
)

// TriageHandler implements submission, result and history endpoints
type TriageHandler struct {
	service *service.TriageService
	logger  *zap.Logger
}

// NewTriageHandler creates a new TriageHandler
func NewTriageHandler(service *service.TriageService, logger *zap.Logger) *TriageHandler {
	return &TriageHandler{
		service: service,
		logger:  logger,
	}
}

// PostApiV1QuestionnaireSessionsSessionIdSubmit sends the answers for classification
func (h *TriageHandler) PostApiV1QuestionnaireSessionsSessionIdSubmit(c *gin.Context, sessionId openapi_types.UUID) {
	c = requestContext(c)
	sessionID := uuidToString(sessionId)

	result, err := h.service.Submit(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, h.logger, err, "Failed to classify answers")
		return
	}

	h.logger.Info("triage result returned",
		zap.String("session_id", sessionID),
		zap.String("category", result.Category),
	)

	c.JSON(http.StatusOK, toResultResponse(result))
}

// GetApiV1QuestionnaireSessionsSessionIdResultPdf downloads the result summary
func (h *TriageHandler) GetApiV1QuestionnaireSessionsSessionIdResultPdf(c *gin.Context, sessionId openapi_types.UUID) {
	sessionID := uuidToString(sessionId)

	data, err := h.service.ResultPDF(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, h.logger, err, "Failed to render result")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"triage-%s.pdf\"", sessionID))
	c.Data(http.StatusOK, "application/pdf", data)
}

// GetApiV1TriageHistory returns the most recent classifications
func (h *TriageHandler) GetApiV1TriageHistory(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err, "Failed to load history")
		return
	}

	response := api.HistoryResponse{Items: make([]api.HistoryItemResponse, 0, len(entries))}
	for _, e := range entries {
		response.Items = append(response.Items, api.HistoryItemResponse{
			Category:  e.Category,
			Tone:      api.Tone(e.Tone),
			Reasons:   e.Reasons,
			Version:   optionalString(e.Version),
			Timestamp: optionalTime(e.Timestamp),
		})
	}

	c.JSON(http.StatusOK, response)
}
