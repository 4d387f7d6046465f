package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/db"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/database"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/logger"
)

// Liveness reports that the process is up
func Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// ReadinessHandler serves the readiness endpoint, which verifies the
// database connection and the applied schema version
type ReadinessHandler struct {
	databaseURL string
}

// NewReadinessHandler creates a readiness handler
func NewReadinessHandler(databaseURL string) *ReadinessHandler {
	return &ReadinessHandler{databaseURL: databaseURL}
}

// Check handles the readiness endpoint
func (h *ReadinessHandler) Check(c echo.Context) error {
	log := logger.FromEcho(c)

	response := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}

	if err := database.Ping(); err != nil {
		log.Error("Database ping error", zap.Error(err))
		response["status"] = "error"
		response["db_status"] = "error"
		return c.JSON(http.StatusServiceUnavailable, response)
	}
	response["db_status"] = "ok"

	version, dirty, err := db.Version(h.databaseURL)
	if err != nil {
		log.Error("Failed to read schema version", zap.Error(err))
		response["status"] = "error"
		response["schema_status"] = "error"
		return c.JSON(http.StatusServiceUnavailable, response)
	}
	if dirty {
		log.Error("Schema is in a dirty state", zap.Uint("version", version))
		response["status"] = "error"
		response["schema_status"] = "dirty"
		response["schema_version"] = version
		return c.JSON(http.StatusServiceUnavailable, response)
	}
	response["schema_version"] = version

	return c.JSON(http.StatusOK, response)
}
