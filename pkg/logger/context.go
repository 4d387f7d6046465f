package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const RequestIDKey = "X-Request-ID"

// FromEcho retrieves the request-scoped logger from echo.Context
func FromEcho(c echo.Context) *zap.Logger {
	// Try to get the logger from context first
	if l, ok := c.Get("logger").(*zap.Logger); ok {
		return l
	}

	// Otherwise, get the global logger and add request ID
	requestID, ok := c.Get(RequestIDKey).(string)
	if !ok {
		requestID = c.Request().Header.Get(RequestIDKey)
		if requestID == "" {
			requestID = "unknown"
		}
	}

	return GetLogger().With(zap.String("request_id", requestID))
}
