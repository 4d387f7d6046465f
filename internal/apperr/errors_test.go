package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTranslateNil(t *testing.T) {
	assert.NoError(t, Translate(nil))
}

func TestTranslateRecordNotFound(t *testing.T) {
	assert.ErrorIs(t, Translate(gorm.ErrRecordNotFound), ErrNotFound)
}

func TestTranslateRowLevelSecurityRejection(t *testing.T) {
	err := Translate(&pgconn.PgError{Code: "42501", Message: "new row violates row-level security policy"})
	assert.ErrorIs(t, err, ErrCrossTenantViolation)
}

func TestTranslateAuditTriggerRejection(t *testing.T) {
	err := Translate(&pgconn.PgError{Code: "P0001", Message: "audit logs are immutable and cannot be updated"})
	assert.ErrorIs(t, err, ErrAuditImmutabilityViolation)
}

func TestTranslateActiveEmailConflict(t *testing.T) {
	err := Translate(&pgconn.PgError{Code: "23505", ConstraintName: "idx_users_tenant_email_active"})
	assert.ErrorIs(t, err, ErrDuplicateActiveIdentity)
}

func TestTranslateOtherUniqueViolation(t *testing.T) {
	err := Translate(&pgconn.PgError{Code: "23505", ConstraintName: "tenants_pkey"})

	var constraintErr *ConstraintError
	require.ErrorAs(t, err, &constraintErr)
	assert.Equal(t, "tenants_pkey", constraintErr.Constraint)
}

func TestTranslateConstraintViolations(t *testing.T) {
	for _, code := range []string{"23503", "23514", "23502"} {
		err := Translate(&pgconn.PgError{Code: code, ConstraintName: "fk_documents_tenant"})

		var constraintErr *ConstraintError
		require.ErrorAs(t, err, &constraintErr, "code %s", code)
		assert.Equal(t, "fk_documents_tenant", constraintErr.Constraint)
	}
}

func TestTranslateSQLiteUniqueViolation(t *testing.T) {
	err := Translate(errors.New("UNIQUE constraint failed: users.email, users.tenant_id"))
	assert.ErrorIs(t, err, ErrDuplicateActiveIdentity)
}

func TestTranslateSQLiteForeignKeyViolation(t *testing.T) {
	err := Translate(errors.New("FOREIGN KEY constraint failed"))

	var constraintErr *ConstraintError
	assert.ErrorAs(t, err, &constraintErr)
}

func TestTranslatePassesUnknownErrorsThrough(t *testing.T) {
	cause := errors.New("connection refused")
	assert.Equal(t, cause, Translate(cause))
}

func TestTranslatePreservesWrappedCause(t *testing.T) {
	cause := &pgconn.PgError{Code: "23503", ConstraintName: "fk_documents_user"}
	err := Translate(fmt.Errorf("create document: %w", cause))

	var constraintErr *ConstraintError
	require.ErrorAs(t, err, &constraintErr)
	assert.ErrorAs(t, constraintErr.Unwrap(), &cause)
}

func TestMigrationErrorReportsVersion(t *testing.T) {
	err := NewMigrationError(5, errors.New("syntax error"))

	var migrationErr *MigrationError
	require.ErrorAs(t, err, &migrationErr)
	assert.Equal(t, uint(5), migrationErr.Version)
	assert.Contains(t, err.Error(), "step 5")
}
