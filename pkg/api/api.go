// Package api provides primitives to interact with the CarePath HTTP API.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Defines values for SessionResponseStatus.
const (
	SessionResponseStatusActive    SessionResponseStatus = "active"
	SessionResponseStatusCompleted SessionResponseStatus = "completed"
)

// Defines values for StepResponseCardinality.
const (
	StepResponseCardinalityMulti         StepResponseCardinality = "multi"
	StepResponseCardinalityMultiWithNone StepResponseCardinality = "multi_with_none"
	StepResponseCardinalitySingle        StepResponseCardinality = "single"
)

// Defines values for Tone.
const (
	ToneEmergency Tone = "emergency"
	ToneSelfCare  Tone = "self_care"
	ToneSoon      Tone = "soon"
	ToneUrgent    Tone = "urgent"
)

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Code    string  `json:"code"`
	Details *string `json:"details,omitempty"`
	Message string  `json:"message"`
}

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Env     string `json:"env"`
	Status  string `json:"status"`
	Version string `json:"version"`
}

// HistoryItemResponse defines model for HistoryItemResponse.
type HistoryItemResponse struct {
	Category  string     `json:"category"`
	Reasons   []string   `json:"reasons"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Tone      Tone       `json:"tone"`
	Version   *string    `json:"version,omitempty"`
}

// HistoryResponse defines model for HistoryResponse.
type HistoryResponse struct {
	Items []HistoryItemResponse `json:"items"`
}

// OptionResponse defines model for OptionResponse.
type OptionResponse struct {
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
	Value    string `json:"value"`
}

// SessionResponse defines model for SessionResponse.
type SessionResponse struct {
	Answers         map[string][]string   `json:"answers"`
	CanAdvance      bool                  `json:"can_advance"`
	CanRetreat      bool                  `json:"can_retreat"`
	CompletedAt     *time.Time            `json:"completed_at,omitempty"`
	IsLastStep      bool                  `json:"is_last_step"`
	ProgressPercent int                   `json:"progress_percent"`
	Result          *TriageResultResponse `json:"result,omitempty"`
	SessionId       openapi_types.UUID    `json:"session_id"`
	StartedAt       time.Time             `json:"started_at"`
	Status          SessionResponseStatus `json:"status"`
	Step            StepResponse          `json:"step"`
	StepCount       int                   `json:"step_count"`
	StepIndex       int                   `json:"step_index"`
	StepLabel       string                `json:"step_label"`
	Submitting      bool                  `json:"submitting"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// SessionResponseStatus defines model for SessionResponse.Status.
type SessionResponseStatus string

// StepResponse defines model for StepResponse.
type StepResponse struct {
	Cardinality StepResponseCardinality `json:"cardinality"`
	Help        string                  `json:"help"`
	Key         string                  `json:"key"`
	Options     []OptionResponse        `json:"options"`
	Title       string                  `json:"title"`
}

// StepResponseCardinality defines model for StepResponse.Cardinality.
type StepResponseCardinality string

// StepsResponse defines model for StepsResponse.
type StepsResponse struct {
	Steps []StepResponse `json:"steps"`
}

// ToggleRequest defines model for ToggleRequest. Selected defaults to true.
type ToggleRequest struct {
	Selected *bool  `json:"selected,omitempty"`
	Value    string `json:"value" binding:"required"`
}

// Tone defines model for Tone.
type Tone string

// TriageResultResponse defines model for TriageResultResponse.
type TriageResultResponse struct {
	Category   string     `json:"category"`
	Disclaimer *string    `json:"disclaimer,omitempty"`
	Reasons    []string   `json:"reasons"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
	Tone       Tone       `json:"tone"`
	Version    *string    `json:"version,omitempty"`
}

// PostApiV1QuestionnaireSessionsSessionIdToggleJSONRequestBody defines body for PostApiV1QuestionnaireSessionsSessionIdToggle for application/json ContentType.
type PostApiV1QuestionnaireSessionsSessionIdToggleJSONRequestBody = ToggleRequest

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Health check
	// (GET /health)
	GetHealth(c *gin.Context)
	// List questionnaire steps
	// (GET /api/v1/questionnaire/steps)
	GetApiV1QuestionnaireSteps(c *gin.Context)
	// Start a questionnaire session
	// (POST /api/v1/questionnaire/sessions)
	PostApiV1QuestionnaireSessions(c *gin.Context)
	// Get session state
	// (GET /api/v1/questionnaire/sessions/{sessionId})
	GetApiV1QuestionnaireSessionsSessionId(c *gin.Context, sessionId openapi_types.UUID)
	// Move to the next step
	// (POST /api/v1/questionnaire/sessions/{sessionId}/advance)
	PostApiV1QuestionnaireSessionsSessionIdAdvance(c *gin.Context, sessionId openapi_types.UUID)
	// Discard all answers
	// (POST /api/v1/questionnaire/sessions/{sessionId}/restart)
	PostApiV1QuestionnaireSessionsSessionIdRestart(c *gin.Context, sessionId openapi_types.UUID)
	// Download the result summary
	// (GET /api/v1/questionnaire/sessions/{sessionId}/result/pdf)
	GetApiV1QuestionnaireSessionsSessionIdResultPdf(c *gin.Context, sessionId openapi_types.UUID)
	// Move to the previous step
	// (POST /api/v1/questionnaire/sessions/{sessionId}/retreat)
	PostApiV1QuestionnaireSessionsSessionIdRetreat(c *gin.Context, sessionId openapi_types.UUID)
	// Submit answers for classification
	// (POST /api/v1/questionnaire/sessions/{sessionId}/submit)
	PostApiV1QuestionnaireSessionsSessionIdSubmit(c *gin.Context, sessionId openapi_types.UUID)
	// Toggle an option on the current step
	// (POST /api/v1/questionnaire/sessions/{sessionId}/toggle)
	PostApiV1QuestionnaireSessionsSessionIdToggle(c *gin.Context, sessionId openapi_types.UUID)
	// Past classifications
	// (GET /api/v1/triage/history)
	GetApiV1TriageHistory(c *gin.Context)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandler       func(*gin.Context, error, int)
}

type MiddlewareFunc func(c *gin.Context)

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(c *gin.Context) {
	for _, middleware := range siw.HandlerMiddlewares {
		middleware(c)
		if c.IsAborted() {
			return
		}
	}

	siw.Handler.GetHealth(c)
}

// GetApiV1QuestionnaireSteps operation middleware
func (siw *ServerInterfaceWrapper) GetApiV1QuestionnaireSteps(c *gin.Context) {
	for _, middleware := range siw.HandlerMiddlewares {
		middleware(c)
		if c.IsAborted() {
			return
		}
	}

	siw.Handler.GetApiV1QuestionnaireSteps(c)
}

// PostApiV1QuestionnaireSessions operation middleware
func (siw *ServerInterfaceWrapper) PostApiV1QuestionnaireSessions(c *gin.Context) {
	for _, middleware := range siw.HandlerMiddlewares {
		middleware(c)
		if c.IsAborted() {
			return
		}
	}

	siw.Handler.PostApiV1QuestionnaireSessions(c)
}

// withSessionId binds the sessionId path parameter and runs the middlewares
func (siw *ServerInterfaceWrapper) withSessionId(c *gin.Context, next func(*gin.Context, openapi_types.UUID)) {
	var err error

	// ------------- Path parameter "sessionId" -------------
	var sessionId openapi_types.UUID

	err = runtime.BindStyledParameterWithOptions("simple", "sessionId", c.Param("sessionId"), &sessionId, runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter sessionId: %w", err), http.StatusBadRequest)
		return
	}

	for _, middleware := range siw.HandlerMiddlewares {
		middleware(c)
		if c.IsAborted() {
			return
		}
	}

	next(c, sessionId)
}

// GetApiV1QuestionnaireSessionsSessionId operation middleware
func (siw *ServerInterfaceWrapper) GetApiV1QuestionnaireSessionsSessionId(c *gin.Context) {
	siw.withSessionId(c, siw.Handler.GetApiV1QuestionnaireSessionsSessionId)
}

// PostApiV1QuestionnaireSessionsSessionIdAdvance operation middleware
func (siw *ServerInterfaceWrapper) PostApiV1QuestionnaireSessionsSessionIdAdvance(c *gin.Context) {
	siw.withSessionId(c, siw.Handler.PostApiV1QuestionnaireSessionsSessionIdAdvance)
}

// PostApiV1QuestionnaireSessionsSessionIdRestart operation middleware
func (siw *ServerInterfaceWrapper) PostApiV1QuestionnaireSessionsSessionIdRestart(c *gin.Context) {
	siw.withSessionId(c, siw.Handler.PostApiV1QuestionnaireSessionsSessionIdRestart)
}

// GetApiV1QuestionnaireSessionsSessionIdResultPdf operation middleware
func (siw *ServerInterfaceWrapper) GetApiV1QuestionnaireSessionsSessionIdResultPdf(c *gin.Context) {
	siw.withSessionId(c, siw.Handler.GetApiV1QuestionnaireSessionsSessionIdResultPdf)
}

// PostApiV1QuestionnaireSessionsSessionIdRetreat operation middleware
func (siw *ServerInterfaceWrapper) PostApiV1QuestionnaireSessionsSessionIdRetreat(c *gin.Context) {
	siw.withSessionId(c, siw.Handler.PostApiV1QuestionnaireSessionsSessionIdRetreat)
}

// PostApiV1QuestionnaireSessionsSessionIdSubmit operation middleware
func (siw *ServerInterfaceWrapper) PostApiV1QuestionnaireSessionsSessionIdSubmit(c *gin.Context) {
	siw.withSessionId(c, siw.Handler.PostApiV1QuestionnaireSessionsSessionIdSubmit)
}

// PostApiV1QuestionnaireSessionsSessionIdToggle operation middleware
func (siw *ServerInterfaceWrapper) PostApiV1QuestionnaireSessionsSessionIdToggle(c *gin.Context) {
	siw.withSessionId(c, siw.Handler.PostApiV1QuestionnaireSessionsSessionIdToggle)
}

// GetApiV1TriageHistory operation middleware
func (siw *ServerInterfaceWrapper) GetApiV1TriageHistory(c *gin.Context) {
	for _, middleware := range siw.HandlerMiddlewares {
		middleware(c)
		if c.IsAborted() {
			return
		}
	}

	siw.Handler.GetApiV1TriageHistory(c)
}

// GinServerOptions provides options for the Gin server.
type GinServerOptions struct {
	BaseURL      string
	Middlewares  []MiddlewareFunc
	ErrorHandler func(*gin.Context, error, int)
}

// RegisterHandlers creates http.Handler with routing matching OpenAPI spec.
func RegisterHandlers(router gin.IRouter, si ServerInterface) {
	RegisterHandlersWithOptions(router, si, GinServerOptions{})
}

// RegisterHandlersWithOptions creates http.Handler with additional options
func RegisterHandlersWithOptions(router gin.IRouter, si ServerInterface, options GinServerOptions) {
	errorHandler := options.ErrorHandler
	if errorHandler == nil {
		errorHandler = func(c *gin.Context, err error, statusCode int) {
			details := err.Error()
			c.JSON(statusCode, ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid request parameters",
				Details: &details,
			})
		}
	}

	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandler:       errorHandler,
	}

	router.GET(options.BaseURL+"/health", wrapper.GetHealth)
	router.GET(options.BaseURL+"/api/v1/questionnaire/steps", wrapper.GetApiV1QuestionnaireSteps)
	router.POST(options.BaseURL+"/api/v1/questionnaire/sessions", wrapper.PostApiV1QuestionnaireSessions)
	router.GET(options.BaseURL+"/api/v1/questionnaire/sessions/:sessionId", wrapper.GetApiV1QuestionnaireSessionsSessionId)
	router.POST(options.BaseURL+"/api/v1/questionnaire/sessions/:sessionId/advance", wrapper.PostApiV1QuestionnaireSessionsSessionIdAdvance)
	router.POST(options.BaseURL+"/api/v1/questionnaire/sessions/:sessionId/restart", wrapper.PostApiV1QuestionnaireSessionsSessionIdRestart)
	router.GET(options.BaseURL+"/api/v1/questionnaire/sessions/:sessionId/result/pdf", wrapper.GetApiV1QuestionnaireSessionsSessionIdResultPdf)
	router.POST(options.BaseURL+"/api/v1/questionnaire/sessions/:sessionId/retreat", wrapper.PostApiV1QuestionnaireSessionsSessionIdRetreat)
	router.POST(options.BaseURL+"/api/v1/questionnaire/sessions/:sessionId/submit", wrapper.PostApiV1QuestionnaireSessionsSessionIdSubmit)
	router.POST(options.BaseURL+"/api/v1/questionnaire/sessions/:sessionId/toggle", wrapper.PostApiV1QuestionnaireSessionsSessionIdToggle)
	router.GET(options.BaseURL+"/api/v1/triage/history", wrapper.GetApiV1TriageHistory)
}
