package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/model"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/store"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/logger"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/metrics"
)

// UserRequest defines the structure for user provisioning requests
type UserRequest struct {
	Email         string  `json:"email" validate:"required,email"`
	ExternalIDPID *string `json:"external_idp_id"`
	FullName      *string `json:"full_name"`
	Role          *string `json:"role"`
}

// UserHandler serves user lifecycle endpoints within the active tenant
type UserHandler struct {
	users   *store.UserStore
	audit   *store.AuditStore
	metrics *metrics.HTTPMetrics
}

// NewUserHandler creates a user handler
func NewUserHandler(users *store.UserStore, audit *store.AuditStore, m *metrics.HTTPMetrics) *UserHandler {
	return &UserHandler{users: users, audit: audit, metrics: m}
}

// Create handles provisioning a user in the active tenant
func (h *UserHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	log.Info("Provisioning new user")

	var req UserRequest
	if err := c.Bind(&req); err != nil {
		return respondBadRequest(c, log, "Invalid request data", err)
	}
	if req.Email == "" {
		return respondBadRequest(c, log, "Email is required", nil)
	}

	user := &model.User{
		Email:         req.Email,
		ExternalIDPID: req.ExternalIDPID,
		FullName:      req.FullName,
		Role:          req.Role,
	}
	if err := h.users.Create(c.Request().Context(), user); err != nil {
		return respondError(c, log, h.metrics, err)
	}

	h.recordAudit(c, store.AuditActionCreate, user.ID)
	log.Info("User provisioned",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))
	return c.JSON(http.StatusCreated, user)
}

// List handles retrieving the tenant's active users
func (h *UserHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)
	limit, offset := pagination(c)

	users, err := h.users.List(c.Request().Context(), limit, offset)
	if err != nil {
		return respondError(c, log, h.metrics, err)
	}
	log.Info("Users retrieved", zap.Int("count", len(users)))
	return c.JSON(http.StatusOK, users)
}

// ListDeleted handles retrieving the tenant's soft-deleted users
func (h *UserHandler) ListDeleted(c echo.Context) error {
	log := logger.FromEcho(c)
	limit, offset := pagination(c)

	users, err := h.users.ListDeleted(c.Request().Context(), limit, offset)
	if err != nil {
		return respondError(c, log, h.metrics, err)
	}
	return c.JSON(http.StatusOK, users)
}

// Get handles retrieving one active user by ID
func (h *UserHandler) Get(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondBadRequest(c, log, "Invalid user ID", err)
	}
	user, err := h.users.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, log, h.metrics, err)
	}
	return c.JSON(http.StatusOK, user)
}

// Delete handles offboarding a user. The record is retained and the email
// becomes reusable for a new active user.
func (h *UserHandler) Delete(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondBadRequest(c, log, "Invalid user ID", err)
	}
	if err := h.users.SoftDelete(c.Request().Context(), id); err != nil {
		return respondError(c, log, h.metrics, err)
	}

	h.recordAudit(c, store.AuditActionDelete, id)
	log.Info("User offboarded", zap.String("user_id", id.String()))
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted"})
}

// Restore handles reversing a user offboarding
func (h *UserHandler) Restore(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondBadRequest(c, log, "Invalid user ID", err)
	}
	user, err := h.users.Restore(c.Request().Context(), id)
	if err != nil {
		return respondError(c, log, h.metrics, err)
	}

	h.recordAudit(c, store.AuditActionRestore, id)
	log.Info("User restored",
		zap.String("user_id", id.String()),
		zap.String("email", user.Email))
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) recordAudit(c echo.Context, action string, resourceID uuid.UUID) {
	log := logger.FromEcho(c)
	entry := &model.AuditLog{
		UserID:       actorID(c),
		Action:       action,
		ResourceType: "user",
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
