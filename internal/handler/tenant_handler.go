package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/model"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/store"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/jwtutil"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/logger"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/metrics"
)

// TenantRequest defines the structure for tenant provisioning requests
type TenantRequest struct {
	Name      string  `json:"name" validate:"required"`
	Status    string  `json:"status"`
	KMSKeyARN *string `json:"kms_key_arn"`
}

// TenantStatusRequest defines the structure for status change requests
type TenantStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// TenantHandler serves tenant provisioning and lifecycle endpoints
type TenantHandler struct {
	tenants *store.TenantStore
	audit   *store.AuditStore
	metrics *metrics.HTTPMetrics
}

// NewTenantHandler creates a tenant handler
func NewTenantHandler(tenants *store.TenantStore, audit *store.AuditStore, m *metrics.HTTPMetrics) *TenantHandler {
	return &TenantHandler{tenants: tenants, audit: audit, metrics: m}
}

// GetCurrent handles retrieving the authenticated tenant's own record
func (h *TenantHandler) GetCurrent(c echo.Context) error {
	log := logger.FromEcho(c)

	tenant, err := h.tenants.Current(c.Request().Context())
	if err != nil {
		return respondError(c, log, h.metrics, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// Create handles provisioning a new tenant. System scope only.
func (h *TenantHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	log.Info("Provisioning new tenant")

	var req TenantRequest
	if err := c.Bind(&req); err != nil {
		return respondBadRequest(c, log, "Invalid request data", err)
	}
	if req.Name == "" {
		return respondBadRequest(c, log, "Tenant name is required", nil)
	}

	tenant := &model.Tenant{
		Name:      req.Name,
		Status:    req.Status,
		KMSKeyARN: req.KMSKeyARN,
	}
	ctx := c.Request().Context()
	if err := h.tenants.Create(ctx, tenant); err != nil {
		return respondError(c, log, h.metrics, err)
	}

	h.recordAudit(c, store.AuditActionCreate, "tenant", tenant.ID)
	log.Info("Tenant provisioned",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("name", tenant.Name))
	return c.JSON(http.StatusCreated, tenant)
}

// List handles retrieving all tenants. System scope only.
func (h *TenantHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)

	tenants, err := h.tenants.List(c.Request().Context())
	if err != nil {
		return respondError(c, log, h.metrics, err)
	}
	log.Info("Tenants retrieved", zap.Int("count", len(tenants)))
	return c.JSON(http.StatusOK, tenants)
}

// Get handles retrieving one tenant by ID. System scope only.
func (h *TenantHandler) Get(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondBadRequest(c, log, "Invalid tenant ID", err)
	}
	tenant, err := h.tenants.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, log, h.metrics, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// SetStatus handles moving a tenant between lifecycle states. System scope only.
func (h *TenantHandler) SetStatus(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondBadRequest(c, log, "Invalid tenant ID", err)
	}
	var req TenantStatusRequest
	if err := c.Bind(&req); err != nil {
		return respondBadRequest(c, log, "Invalid request data", err)
	}

	if err := h.tenants.SetStatus(c.Request().Context(), id, req.Status); err != nil {
		return respondError(c, log, h.metrics, err)
	}

	h.recordAudit(c, store.AuditActionUpdate, "tenant", id)
	log.Info("Tenant status changed",
		zap.String("tenant_id", id.String()),
		zap.String("status", req.Status))
	return c.JSON(http.StatusOK, echo.Map{"message": "Tenant status updated"})
}

// Delete handles offboarding a tenant. System scope only.
func (h *TenantHandler) Delete(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondBadRequest(c, log, "Invalid tenant ID", err)
	}
	if err := h.tenants.SoftDelete(c.Request().Context(), id); err != nil {
		return respondError(c, log, h.metrics, err)
	}

	h.recordAudit(c, store.AuditActionDelete, "tenant", id)
	log.Info("Tenant offboarded", zap.String("tenant_id", id.String()))
	return c.JSON(http.StatusOK, echo.Map{"message": "Tenant deleted"})
}

// Restore handles reversing a tenant offboarding. System scope only.
func (h *TenantHandler) Restore(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondBadRequest(c, log, "Invalid tenant ID", err)
	}
	if err := h.tenants.Restore(c.Request().Context(), id); err != nil {
		return respondError(c, log, h.metrics, err)
	}

	h.recordAudit(c, store.AuditActionRestore, "tenant", id)
	log.Info("Tenant restored", zap.String("tenant_id", id.String()))
	return c.JSON(http.StatusOK, echo.Map{"message": "Tenant restored"})
}

// recordAudit appends an audit entry for an administrative tenant operation.
// Audit failures are logged but do not fail the completed operation.
func (h *TenantHandler) recordAudit(c echo.Context, action, resourceType string, resourceID uuid.UUID) {
	log := logger.FromEcho(c)
	entry := &model.AuditLog{
		UserID:       actorID(c),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    strPtr(c.RealIP()),
		UserAgent:    strPtr(c.Request().UserAgent()),
	}
	if err := h.audit.Record(c.Request().Context(), entry); err != nil {
		log.Error("Failed to append audit entry",
			zap.String("action", action),
			zap.Error(err))
		return
	}
	h.metrics.ObserveAuditWrite(action)
}

// actorID resolves the acting user from validated claims, if present
func actorID(c echo.Context) *uuid.UUID {
	claims, ok := c.Get("user").(*jwtutil.UserClaims)
	if !ok {
		return nil
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil
	}
	return &id
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
