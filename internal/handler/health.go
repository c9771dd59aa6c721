package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/carepath/pkg/api"
)

// HealthHandler implements the liveness endpoint
type HealthHandler struct {
	env     string
	version string
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(env, version string) *HealthHandler {
	return &HealthHandler{
		env:     env,
		version: version,
	}
}

// GetHealth reports the service as up
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Status:  "ok",
		Env:     h.env,
		Version: h.version,
	})
}
