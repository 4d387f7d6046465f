package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Sentinel errors form the small, stable set of error kinds callers outside
// the storage layer are allowed to see. Raw database error text never
// crosses this boundary.
var (
	// ErrMissingTenantContext is returned when an entity operation runs in a
	// unit of work that never established a tenant scope. Fails closed: the
	// operation is denied rather than executed unscoped.
	ErrMissingTenantContext = errors.New("no tenant context established for this operation")

	// ErrCrossTenantViolation is returned when either isolation layer rejects
	// an access whose tenant does not match the active context.
	ErrCrossTenantViolation = errors.New("operation rejected: row belongs to a different tenant")

	// ErrAuditImmutabilityViolation is returned when an update or delete was
	// attempted against an audit log row.
	ErrAuditImmutabilityViolation = errors.New("audit logs are append-only and cannot be modified or deleted")

	// ErrDuplicateActiveIdentity is returned when a create or restore would
	// produce two active rows holding the same natural key within a tenant.
	ErrDuplicateActiveIdentity = errors.New("another active record already holds this identity")

	// ErrInvalidStatusTransition is returned when a document status update
	// does not follow the processing -> completed/failed direction.
	ErrInvalidStatusTransition = errors.New("invalid document status transition")

	// ErrNotFound is returned when no row matches within the active tenant
	// scope. Cross-tenant rows are indistinguishable from absent rows.
	ErrNotFound = errors.New("record not found")
)

// ConstraintError reports a structural constraint failure (foreign key,
// check, uniqueness) with the name of the violated constraint so callers can
// react specifically.
type ConstraintError struct {
	Constraint string
	cause      error
}

func (e *ConstraintError) Error() string {
	if e.Constraint == "" {
		return "constraint violation"
	}
	return fmt.Sprintf("constraint violation: %s", e.Constraint)
}

func (e *ConstraintError) Unwrap() error { return e.cause }

// NewConstraintError builds a constraint violation detected before SQL ran
func NewConstraintError(constraint string) error {
	return &ConstraintError{Constraint: constraint}
}

// MigrationError reports a schema migration step that could not be applied
// or reverted. The manager halts at the failing step.
type MigrationError struct {
	Version uint
	cause   error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration step %d failed: %v", e.Version, e.cause)
}

func (e *MigrationError) Unwrap() error { return e.cause }

// NewMigrationError wraps a migration failure with the failing step version
func NewMigrationError(version uint, cause error) error {
	return &MigrationError{Version: version, cause: cause}
}

// The partial unique index that enforces one active email per tenant.
// Violations of this specific index mean an identity conflict, not a
// generic uniqueness failure.
const usersActiveEmailIndex = "idx_users_tenant_email_active"

// Translate maps raw driver and ORM errors into the storage layer's error
// taxonomy. Unrecognized errors are returned unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42501":
			// insufficient_privilege: the row-level security policy rejected
			// a write whose tenant_id does not match app.current_tenant_id
			return ErrCrossTenantViolation
		case "P0001":
			// raise_exception from the audit immutability trigger
			if strings.Contains(pgErr.Message, "immutable") {
				return ErrAuditImmutabilityViolation
			}
			return &ConstraintError{Constraint: pgErr.ConstraintName, cause: err}
		case "23505":
			// unique_violation
			if pgErr.ConstraintName == usersActiveEmailIndex {
				return ErrDuplicateActiveIdentity
			}
			return &ConstraintError{Constraint: pgErr.ConstraintName, cause: err}
		case "23503", "23514", "23502":
			// foreign_key_violation, check_violation, not_null_violation
			return &ConstraintError{Constraint: pgErr.ConstraintName, cause: err}
		}
		return err
	}

	// SQLite (unit tests) reports unique violations as plain strings
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		if strings.Contains(err.Error(), "users.") || strings.Contains(err.Error(), usersActiveEmailIndex) {
			return ErrDuplicateActiveIdentity
		}
		return &ConstraintError{cause: err}
	}
	if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
		return &ConstraintError{cause: err}
	}

	return err
}
