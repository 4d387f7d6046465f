package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/model"
)

// Audit actions recorded by the handlers. Free-form actions are allowed;
// these constants cover the built-in operations.
const (
	AuditActionCreate  = "create"
	AuditActionUpdate  = "update"
	AuditActionDelete  = "delete"
	AuditActionRestore = "restore"
	AuditActionSearch  = "search"
	AuditActionRetract = "audit.retract"
)

// AuditStore is the single write path into the append-only audit log.
// There is no update or delete method on purpose; corrections go through
// Retract, which appends a compensating entry.
type AuditStore struct {
	*Store
}

// NewAuditStore creates an audit store
func NewAuditStore(s *Store) *AuditStore {
	return &AuditStore{Store: s}
}

// Record appends one audit entry within the active tenant. The tenant ID
// comes from the request context, never from the caller.
func (s *AuditStore) Record(ctx context.Context, entry *model.AuditLog) error {
	return s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		if err := checkOwnership(tenantID, entry.TenantID); err != nil {
			return err
		}
		entry.TenantID = tenantID
		if entry.Metadata == nil {
			entry.Metadata = model.JSONMap{}
		}
		return tx.Create(entry).Error
	})
}

// Get returns one audit entry by ID within the active tenant
func (s *AuditStore) Get(ctx context.Context, id uuid.UUID) (*model.AuditLog, error) {
	var entry model.AuditLog
	err := s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		return tx.Scopes(byTenant(tenantID)).Where("id = ?", id).First(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns the tenant's audit trail, newest first, optionally filtered
// by resource type
func (s *AuditStore) List(ctx context.Context, resourceType string, limit, offset int) ([]model.AuditLog, error) {
	var entries []model.AuditLog
	err := s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		q := tx.Scopes(byTenant(tenantID))
		if resourceType != "" {
			q = q.Where("resource_type = ?", resourceType)
		}
		return q.Order("created_at DESC").
			Limit(normalizeLimit(limit)).Offset(offset).
			Find(&entries).Error
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListByResource returns the audit trail for one specific resource
func (s *AuditStore) ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID, limit, offset int) ([]model.AuditLog, error) {
	var entries []model.AuditLog
	err := s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		return tx.Scopes(byTenant(tenantID)).
			Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
			Order("created_at DESC").
			Limit(normalizeLimit(limit)).Offset(offset).
			Find(&entries).Error
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Retract appends a compensating entry pointing at an erroneous one. The
// original row stays in place untouched; the retraction references it by ID
// so readers can pair the two.
func (s *AuditStore) Retract(ctx context.Context, originalID uuid.UUID, userID *uuid.UUID, reason string) (*model.AuditLog, error) {
	var retraction model.AuditLog
	err := s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		var original model.AuditLog
		if err := tx.Scopes(byTenant(tenantID)).
			Where("id = ?", originalID).First(&original).Error; err != nil {
			return err
		}
		retraction = model.AuditLog{
			TenantID:     tenantID,
			UserID:       userID,
			Action:       AuditActionRetract,
			ResourceType: "audit_log",
			ResourceID:   original.ID,
			Metadata: model.JSONMap{
				"retracts": original.ID.String(),
				"reason":   reason,
			},
		}
		return tx.Create(&retraction).Error
	})
	if err != nil {
		return nil, err
	}
	return &retraction, nil
}
