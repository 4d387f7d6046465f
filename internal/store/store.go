// Package store implements the isolation-enforced data access layer.
//
// Every operation on a tenant-scoped entity passes two independent filters:
// a transaction-local app.current_tenant_id setting checked by the database
// row-level security policies, and an application-side tenant predicate
// injected into each query. Either layer alone rejects cross-tenant access;
// the duplication is deliberate so a bug in one layer cannot leak rows.
package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/apperr"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/tenantctx"
)

// Store holds the shared database handle for all entity stores
type Store struct {
	db *gorm.DB
}

// NewStore creates a store backed by the given database handle
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// scoped runs fn inside one transaction bound to the tenant established by
// tenantctx.Begin. The unit of work fails closed when no context was set.
//
// set_config(..., true) is transaction-local: the setting disappears at
// commit or rollback, so a pooled connection returns to the pool unscoped.
func (s *Store) scoped(ctx context.Context, fn func(tx *gorm.DB, tenantID uuid.UUID) error) error {
	tenantID, err := tenantctx.Current(ctx)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := setTenantSetting(tx, tenantID); err != nil {
			return err
		}
		return fn(tx, tenantID)
	})
	return apperr.Translate(err)
}

// systemScoped runs fn for a narrowly-scoped administrative unit of work.
// It refuses anything but an explicit system context; the default request
// context never qualifies.
func (s *Store) systemScoped(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if !tenantctx.IsSystem(ctx) {
		return apperr.ErrCrossTenantViolation
	}
	err := s.db.WithContext(ctx).Transaction(fn)
	return apperr.Translate(err)
}

// setTenantSetting binds the row-level security policies to this
// transaction's tenant. Non-Postgres dialects (unit tests on SQLite) have no
// policies to bind; the application-side predicates still apply there.
func setTenantSetting(tx *gorm.DB, tenantID uuid.UUID) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT set_config('app.current_tenant_id', ?, true)", tenantID.String()).Error
}

// byTenant is the application-side half of the isolation enforcer: the
// tenant predicate injected into every query against tenant-scoped tables.
func byTenant(tenantID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// checkOwnership verifies a write target belongs to the active tenant before
// any SQL is issued. The database policies re-check independently.
func checkOwnership(tenantID, rowTenantID uuid.UUID) error {
	if rowTenantID != uuid.Nil && rowTenantID != tenantID {
		return apperr.ErrCrossTenantViolation
	}
	return nil
}
