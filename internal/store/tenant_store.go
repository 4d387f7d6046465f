package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/apperr"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/model"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/tenantctx"
)

// TenantStore manages tenant rows. Provisioning, suspension and offboarding
// are administrative operations and require the system context; a tenant may
// only read its own row through the regular scoped path.
type TenantStore struct {
	*Store
}

// NewTenantStore creates a tenant store
func NewTenantStore(s *Store) *TenantStore {
	return &TenantStore{Store: s}
}

// Create provisions a new tenant. System context only.
func (s *TenantStore) Create(ctx context.Context, tenant *model.Tenant) error {
	if tenant.Status == "" {
		tenant.Status = model.TenantStatusTrial
	}
	if !model.ValidStatus(tenant.Status) {
		return apperr.NewConstraintError("chk_tenants_status")
	}
	return s.systemScoped(ctx, func(tx *gorm.DB) error {
		return tx.Create(tenant).Error
	})
}

// Current returns the active tenant's own row
func (s *TenantStore) Current(ctx context.Context) (*model.Tenant, error) {
	var tenant model.Tenant
	err := s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		return tx.Where("id = ?", tenantID).First(&tenant).Error
	})
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// Get returns one tenant by ID. System context only.
func (s *TenantStore) Get(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	var tenant model.Tenant
	err := s.systemScoped(ctx, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).First(&tenant).Error
	})
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// List returns all active tenants. System context only.
func (s *TenantStore) List(ctx context.Context) ([]model.Tenant, error) {
	var tenants []model.Tenant
	err := s.systemScoped(ctx, func(tx *gorm.DB) error {
		return tx.Order("created_at DESC").Find(&tenants).Error
	})
	if err != nil {
		return nil, err
	}
	return tenants, nil
}

// SetStatus moves a tenant between active, suspended and trial.
// System context only.
func (s *TenantStore) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !model.ValidStatus(status) {
		return apperr.NewConstraintError("chk_tenants_status")
	}
	return s.systemScoped(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&model.Tenant{}).Where("id = ?", id).Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
}

// SoftDelete offboards a tenant. The row and all its child rows stay in
// place for the retention window; only the tenant itself is marked deleted
// here, which removes it from every default query. System context only.
func (s *TenantStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if id == tenantctx.SystemTenantID() {
		return apperr.ErrCrossTenantViolation
	}
	return s.systemScoped(ctx, func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&model.Tenant{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
}

// Restore reverses a tenant offboarding within the retention window.
// System context only.
func (s *TenantStore) Restore(ctx context.Context, id uuid.UUID) error {
	return s.systemScoped(ctx, func(tx *gorm.DB) error {
		res := tx.Unscoped().Model(&model.Tenant{}).
			Where("id = ? AND deleted_at IS NOT NULL", id).
			UpdateColumn("deleted_at", nil)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
}
