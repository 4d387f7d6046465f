package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/apperr"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/model"
)

// UserStore manages user rows inside the active tenant
type UserStore struct {
	*Store
}

// NewUserStore creates a user store
func NewUserStore(s *Store) *UserStore {
	return &UserStore{Store: s}
}

// Create provisions a user inside the active tenant. The tenant ID is taken
// from the request context; a caller-supplied mismatching ID is rejected
// before any SQL runs.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	return s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		if err := checkOwnership(tenantID, user.TenantID); err != nil {
			return err
		}
		user.TenantID = tenantID
		return tx.Create(user).Error
	})
}

// Get returns one active user by ID
func (s *UserStore) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		return tx.Scopes(byTenant(tenantID)).Where("id = ?", id).First(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail returns the active user holding the given email, if any
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		return tx.Scopes(byTenant(tenantID)).Where("email = ?", email).First(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns the tenant's active users, newest first
func (s *UserStore) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	var users []model.User
	err := s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		return tx.Scopes(byTenant(tenantID)).
			Order("created_at DESC").
			Limit(normalizeLimit(limit)).Offset(offset).
			Find(&users).Error
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ListDeleted returns the tenant's soft-deleted users, for restore flows
func (s *UserStore) ListDeleted(ctx context.Context, limit, offset int) ([]model.User, error) {
	var users []model.User
	err := s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		return tx.Scopes(model.Deleted, byTenant(tenantID)).
			Order("deleted_at DESC").
			Limit(normalizeLimit(limit)).Offset(offset).
			Find(&users).Error
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// SoftDelete offboards a user. The row keeps every attribute; only the
// deletion marker is set, which excludes it from all default queries and
// frees its email for reuse.
func (s *UserStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		res := tx.Scopes(byTenant(tenantID)).Where("id = ?", id).Delete(&model.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
}

// Restore reverses a soft delete. The restored row is identical to the
// pre-delete row except for the cleared marker; updated_at is deliberately
// left untouched. If the email was re-provisioned to an active user in the
// meantime the restore is rejected.
func (s *UserStore) Restore(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		if err := tx.Scopes(model.Deleted, byTenant(tenantID)).
			Where("id = ?", id).First(&user).Error; err != nil {
			return err
		}

		var active int64
		if err := tx.Model(&model.User{}).Scopes(byTenant(tenantID)).
			Where("email = ?", user.Email).Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return apperr.ErrDuplicateActiveIdentity
		}

		if err := tx.Unscoped().Model(&model.User{}).
			Scopes(byTenant(tenantID)).Where("id = ?", id).
			UpdateColumn("deleted_at", nil).Error; err != nil {
			return err
		}
		user.DeletedAt = gorm.DeletedAt{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// TouchLastLogin records a successful authentication
func (s *UserStore) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	return s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		res := tx.Model(&model.User{}).Scopes(byTenant(tenantID)).
			Where("id = ?", id).UpdateColumn("last_login_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
}

const defaultListLimit = 50

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return defaultListLimit
	}
	return limit
}
