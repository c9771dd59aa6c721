package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// All incoming requests are logged with method, path, session and timestamp
func TestProperty_RequestLogging(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("all requests are logged with required fields", prop.ForAll(
		func(method string, sessionID string) bool {
			path := "/api/v1/questionnaire/sessions/" + sessionID
			// Create observed logger
			core, logs := observer.New(zapcore.InfoLevel)
			logger := zap.New(core)

			// Create test router
			gin.SetMode(gin.TestMode)
			router := gin.New()
			router.Use(RequestLoggingMiddleware(logger))

			// Add test route
			router.Handle(method, "/api/v1/questionnaire/sessions/:sessionId", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			// Create test request
			req := httptest.NewRequest(method, path, nil)
			w := httptest.NewRecorder()

			// Execute request
			router.ServeHTTP(w, req)

			// Verify log entry was created
			logEntries := logs.All()
			if len(logEntries) == 0 {
				t.Logf("No log entries found")
				return false
			}

			// Find the request log entry
			var requestLog *observer.LoggedEntry
			for i := range logEntries {
				if logEntries[i].Message == "Request completed" {
					requestLog = &logEntries[i]
					break
				}
			}

			if requestLog == nil {
				t.Logf("Request log entry not found")
				return false
			}

			// Verify required fields
			fields := requestLog.ContextMap()

			if fields["method"] != method {
				t.Logf("Method mismatch: expected %s, got %v", method, fields["method"])
				return false
			}

			if fields["path"] != path {
				t.Logf("Path mismatch: expected %s, got %v", path, fields["path"])
				return false
			}

			if fields["session_id"] != sessionID {
				t.Logf("session_id mismatch: expected %s, got %v", sessionID, fields["session_id"])
				return false
			}

			// Timestamp should be present
			if _, ok := fields["timestamp"]; !ok {
				t.Logf("timestamp field missing")
				return false
			}

			// Duration should be present
			if _, ok := fields["duration"]; !ok {
				t.Logf("duration field missing")
				return false
			}

			// Status should be present
			if _, ok := fields["status"]; !ok {
				t.Logf("status field missing")
				return false
			}

			return true
		},
		gen.OneConstOf("GET", "POST"),
		gen.Identifier(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Errors are logged with stack traces and request context
func TestProperty_ErrorLoggingDetail(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("errors are logged with stack traces and context", prop.ForAll(
		func(errorMessage string, path string) bool {
			// Create observed logger
			core, logs := observer.New(zapcore.ErrorLevel)
			logger := zap.New(core)

			// Create test router
			gin.SetMode(gin.TestMode)
			router := gin.New()
			router.Use(ErrorLoggingMiddleware(logger))

			// Add test route that generates an error
			router.GET(path, func(c *gin.Context) {
				c.Error(gin.Error{
					Err:  &testError{msg: errorMessage},
					Type: gin.ErrorTypePrivate,
				})
				c.Status(http.StatusInternalServerError)
			})

			// Create test request
			req := httptest.NewRequest("GET", path, nil)
			w := httptest.NewRecorder()

			// Execute request
			router.ServeHTTP(w, req)

			// Verify error log entry was created
			logEntries := logs.All()
			if len(logEntries) == 0 {
				t.Logf("No error log entries found")
				return false
			}

			// Find the error log entry
			var errorLog *observer.LoggedEntry
			for i := range logEntries {
				if logEntries[i].Message == "Request error occurred" {
					errorLog = &logEntries[i]
					break
				}
			}

			if errorLog == nil {
				t.Logf("Error log entry not found")
				return false
			}

			// Verify required fields
			fields := errorLog.ContextMap()

			// Error should be present
			if _, ok := fields["error"]; !ok {
				t.Logf("error field missing")
				return false
			}

			// Method should be present
			if fields["method"] != "GET" {
				t.Logf("method field missing or incorrect")
				return false
			}

			// Path should be present
			if fields["path"] != path {
				t.Logf("path field missing or incorrect")
				return false
			}

			// Stack trace should be present
			if _, ok := fields["stack_trace"]; !ok {
				t.Logf("stack_trace field missing")
				return false
			}

			return true
		},
		gen.AlphaString(),
		gen.OneConstOf("/api/v1/questionnaire/steps", "/api/v1/triage/history", "/health"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Slow requests are reported with their duration, fast ones are not
func TestProperty_SlowRequestLogging(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("only requests slower than the threshold are reported", prop.ForAll(
		func(delayMs int, thresholdMs int) bool {
			core, logs := observer.New(zapcore.WarnLevel)
			logger := zap.New(core)

			gin.SetMode(gin.TestMode)
			router := gin.New()
			router.Use(SlowRequestMiddleware(logger, time.Duration(thresholdMs)*time.Millisecond))
			router.POST("/submit", func(c *gin.Context) {
				time.Sleep(time.Duration(delayMs) * time.Millisecond)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest("POST", "/submit", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			entries := logs.FilterMessage("Slow request").All()
			if delayMs > thresholdMs {
				if len(entries) != 1 {
					t.Logf("expected a slow request entry for delay %dms threshold %dms", delayMs, thresholdMs)
					return false
				}
				_, ok := entries[0].ContextMap()["duration"]
				return ok
			}
			return len(entries) == 0
		},
		gen.OneConstOf(0, 30),
		gen.OneConstOf(10, 60),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Request IDs are echoed when supplied and generated as UUIDs otherwise
func TestProperty_RequestID(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("request id is propagated or generated", prop.ForAll(
		func(supplied string) bool {
			gin.SetMode(gin.TestMode)
			router := gin.New()
			router.Use(RequestIDMiddleware())

			var seen string
			router.GET("/health", func(c *gin.Context) {
				seen = c.GetString("request_id")
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/health", nil)
			if supplied != "" {
				req.Header.Set("X-Request-ID", supplied)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			header := w.Header().Get("X-Request-ID")
			if header != seen {
				return false
			}
			if supplied != "" {
				return header == supplied
			}
			_, err := uuid.Parse(header)
			return err == nil
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger := zap.New(core)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RecoveryMiddleware(logger))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	req := httptest.NewRequest("GET", "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":"INTERNAL_ERROR","message":"Internal server error"}`, w.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

// Helper types

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}
