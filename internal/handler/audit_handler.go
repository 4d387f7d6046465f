package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/store"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/logger"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/metrics"
)

// RetractRequest defines the structure for audit retraction requests
type RetractRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// AuditHandler serves read access to the tenant's audit trail. There are no
// update or delete endpoints; corrections append a retraction entry.
type AuditHandler struct {
	audit   *store.AuditStore
	metrics *metrics.HTTPMetrics
}

// NewAuditHandler creates an audit handler
func NewAuditHandler(audit *store.AuditStore, m *metrics.HTTPMetrics) *AuditHandler {
	return &AuditHandler{audit: audit, metrics: m}
}

// List handles retrieving the tenant's audit trail, newest first
func (h *AuditHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)
	limit, offset := pagination(c)

	entries, err := h.audit.List(c.Request().Context(), c.QueryParam("resource_type"), limit, offset)
	if err != nil {
		return respondError(c, log, h.metrics, err)
	}
	log.Info("Audit entries retrieved", zap.Int("count", len(entries)))
	return c.JSON(http.StatusOK, entries)
}

// ListByResource handles retrieving the audit trail of one resource
func (h *AuditHandler) ListByResource(c echo.Context) error {
	log := logger.FromEcho(c)
	limit, offset := pagination(c)

	resourceID, err := uuid.Parse(c.Param("resource_id"))
	if err != nil {
		return respondBadRequest(c, log, "Invalid resource ID", err)
	}
	resourceType := c.Param("resource_type")

	entries, err := h.audit.ListByResource(c.Request().Context(), resourceType, resourceID, limit, offset)
	if err != nil {
		return respondError(c, log, h.metrics, err)
	}
	return c.JSON(http.StatusOK, entries)
}

// Get handles retrieving one audit entry by ID
func (h *AuditHandler) Get(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondBadRequest(c, log, "Invalid audit entry ID", err)
	}
	entry, err := h.audit.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, log, h.metrics, err)
	}
	return c.JSON(http.StatusOK, entry)
}

// Retract handles appending a compensating entry for an erroneous one. The
// original entry stays in place; readers pair the two by the referenced ID.
func (h *AuditHandler) Retract(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondBadRequest(c, log, "Invalid audit entry ID", err)
	}
	var req RetractRequest
	if err := c.Bind(&req); err != nil {
		return respondBadRequest(c, log, "Invalid request data", err)
	}
	if req.Reason == "" {
		return respondBadRequest(c, log, "Retraction reason is required", nil)
	}

	retraction, err := h.audit.Retract(c.Request().Context(), id, actorID(c), req.Reason)
	if err != nil {
		return respondError(c, log, h.metrics, err)
	}
	h.metrics.ObserveAuditWrite(store.AuditActionRetract)

	log.Info("Audit entry retracted",
		zap.String("original_id", id.String()),
		zap.String("retraction_id", retraction.ID.String()))
	return c.JSON(http.StatusCreated, retraction)
}
