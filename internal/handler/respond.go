package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/apperr"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/metrics"
)

// errorBody is the standardized error envelope returned by every endpoint
type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// respondError maps the storage error taxonomy onto HTTP statuses.
// Cross-tenant violations deliberately answer 404: a row in another tenant
// must be indistinguishable from a row that does not exist.
func respondError(c echo.Context, log *zap.Logger, m *metrics.HTTPMetrics, err error) error {
	requestID := c.Request().Header.Get("X-Request-ID")

	var status int
	var code, message string

	var constraintErr *apperr.ConstraintError
	switch {
	case errors.Is(err, apperr.ErrMissingTenantContext):
		status, code, message = http.StatusUnauthorized, "missing_tenant_context", "No tenant scope was established for this request"
	case errors.Is(err, apperr.ErrCrossTenantViolation):
		if m != nil {
			m.ObserveIsolationRejection("application")
		}
		status, code, message = http.StatusNotFound, "not_found", "Record not found"
	case errors.Is(err, apperr.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", "Record not found"
	case errors.Is(err, apperr.ErrAuditImmutabilityViolation):
		status, code, message = http.StatusConflict, "audit_immutable", "Audit logs are append-only"
	case errors.Is(err, apperr.ErrDuplicateActiveIdentity):
		status, code, message = http.StatusConflict, "duplicate_identity", "Another active record already holds this identity"
	case errors.Is(err, apperr.ErrInvalidStatusTransition):
		status, code, message = http.StatusConflict, "invalid_transition", "Invalid status transition"
	case errors.As(err, &constraintErr):
		status, code, message = http.StatusUnprocessableEntity, "constraint_violation", constraintErr.Error()
	default:
		log.Error("Unhandled storage error", zap.Error(err))
		status, code, message = http.StatusInternalServerError, "internal_error", "Internal server error"
	}

	if status != http.StatusInternalServerError {
		log.Warn("Request rejected",
			zap.String("code", code),
			zap.Error(err))
	}
	return c.JSON(status, echo.Map{"error": errorBody{
		Code:      code,
		Message:   message,
		RequestID: requestID,
	}})
}

// respondBadRequest reports a malformed payload or parameter
func respondBadRequest(c echo.Context, log *zap.Logger, message string, err error) error {
	log.Warn(message, zap.Error(err))
	return c.JSON(http.StatusBadRequest, echo.Map{"error": errorBody{
		Code:      "bad_request",
		Message:   message,
		RequestID: c.Request().Header.Get("X-Request-ID"),
	}})
}

// pagination reads the shared limit/offset query parameters
func pagination(c echo.Context) (limit, offset int) {
	return intQueryParam(c, "limit"), intQueryParam(c, "offset")
}

func intQueryParam(c echo.Context, name string) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
