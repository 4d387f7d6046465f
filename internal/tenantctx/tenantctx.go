// Package tenantctx establishes the active tenant for one logical unit of
// work (request or transaction). The scope lives in a context.Context value,
// never in a package-level variable, so concurrent units of work for
// different tenants cannot observe each other's context.
package tenantctx

import (
	"context"

	"github.com/google/uuid"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/apperr"
)

type contextKey int

const (
	tenantIDKey contextKey = iota
	systemScopeKey
)

// Begin establishes the tenant scope for the current unit of work and
// returns the derived context. A nil tenant ID is rejected so that a missing
// claim cannot silently become an unscoped session.
func Begin(ctx context.Context, tenantID uuid.UUID) (context.Context, error) {
	if tenantID == uuid.Nil {
		return ctx, apperr.ErrMissingTenantContext
	}
	return context.WithValue(ctx, tenantIDKey, tenantID), nil
}

// Current returns the active tenant for this unit of work. A unit of work
// that never called Begin fails closed with ErrMissingTenantContext rather
// than operating unscoped.
//
// The system tenant is the all-zero UUID, which is also uuid.Nil; only the
// explicit system scope flag distinguishes it from an absent context.
func Current(ctx context.Context) (uuid.UUID, error) {
	if IsSystem(ctx) {
		return SystemTenantID(), nil
	}
	id, ok := ctx.Value(tenantIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, apperr.ErrMissingTenantContext
	}
	return id, nil
}

// End clears the tenant scope. Contexts derived from the returned context
// fail closed again.
func End(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, tenantIDKey, uuid.Nil)
	return context.WithValue(ctx, systemScopeKey, false)
}

// WithSystem marks a narrowly-scoped administrative unit of work operating
// as the system tenant. It is never the default; callers must opt in per
// operation (e.g. tenant provisioning).
func WithSystem(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, systemScopeKey, true)
	return context.WithValue(ctx, tenantIDKey, SystemTenantID())
}

// IsSystem reports whether this unit of work holds the administrative scope
func IsSystem(ctx context.Context) bool {
	on, ok := ctx.Value(systemScopeKey).(bool)
	return ok && on
}

// SystemTenantID returns the well-known all-zero system tenant identifier
func SystemTenantID() uuid.UUID {
	return uuid.MustParse("00000000-0000-0000-0000-000000000000")
}
