package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/apperr"
)

func setupModelDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:model_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&Tenant{}, &User{}, &AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestBaseModelAssignsUUIDOnCreate(t *testing.T) {
	db := setupModelDB(t)

	tenant := Tenant{Name: "Acme Health"}
	require.NoError(t, db.Create(&tenant).Error)

	assert.NotEqual(t, uuid.Nil, tenant.ID)
	assert.False(t, tenant.CreatedAt.IsZero())
}

func TestBaseModelKeepsProvidedUUID(t *testing.T) {
	db := setupModelDB(t)

	id := uuid.New()
	tenant := Tenant{BaseModel: BaseModel{ID: id}, Name: "Fixed ID"}
	require.NoError(t, db.Create(&tenant).Error)

	assert.Equal(t, id, tenant.ID)
}

func TestSoftDeleteExcludesRowFromDefaultQueries(t *testing.T) {
	db := setupModelDB(t)

	tenant := Tenant{Name: "To Delete"}
	require.NoError(t, db.Create(&tenant).Error)
	require.NoError(t, db.Delete(&tenant).Error)

	var count int64
	require.NoError(t, db.Model(&Tenant{}).Where("id = ?", tenant.ID).Count(&count).Error)
	assert.Zero(t, count, "deleted row must not appear in default queries")

	// The row is still physically present
	var kept Tenant
	require.NoError(t, db.Scopes(Deleted).Where("id = ?", tenant.ID).First(&kept).Error)
	assert.True(t, kept.IsDeleted())
	assert.Equal(t, "To Delete", kept.Name)
}

func TestWithDeletedScopeSeesEverything(t *testing.T) {
	db := setupModelDB(t)

	active := Tenant{Name: "Active"}
	deleted := Tenant{Name: "Deleted"}
	require.NoError(t, db.Create(&active).Error)
	require.NoError(t, db.Create(&deleted).Error)
	require.NoError(t, db.Delete(&deleted).Error)

	var all []Tenant
	require.NoError(t, db.Scopes(WithDeleted).Find(&all).Error)
	assert.Len(t, all, 2)

	var onlyDeleted []Tenant
	require.NoError(t, db.Scopes(Deleted).Find(&onlyDeleted).Error)
	require.Len(t, onlyDeleted, 1)
	assert.Equal(t, "Deleted", onlyDeleted[0].Name)
}

func TestRestorePreservesAttributes(t *testing.T) {
	db := setupModelDB(t)

	tenant := Tenant{Name: "Round Trip", Status: TenantStatusActive}
	require.NoError(t, db.Create(&tenant).Error)
	originalUpdatedAt := tenant.UpdatedAt

	require.NoError(t, db.Delete(&tenant).Error)
	require.NoError(t, db.Unscoped().Model(&Tenant{}).
		Where("id = ?", tenant.ID).
		UpdateColumn("deleted_at", nil).Error)

	var restored Tenant
	require.NoError(t, db.Where("id = ?", tenant.ID).First(&restored).Error)
	assert.Equal(t, "Round Trip", restored.Name)
	assert.Equal(t, TenantStatusActive, restored.Status)
	assert.True(t, restored.IsActive())
	assert.WithinDuration(t, originalUpdatedAt, restored.UpdatedAt, time.Second,
		"restore must not count as a modification")
}

func TestJSONMapRoundTrip(t *testing.T) {
	db := setupModelDB(t)

	tenant := Tenant{Name: "Audit Source"}
	require.NoError(t, db.Create(&tenant).Error)

	entry := AuditLog{
		TenantID:     tenant.ID,
		Action:       "create",
		ResourceType: "document",
		ResourceID:   uuid.New(),
		Metadata:     JSONMap{"filename": "report.pdf", "pages": float64(12)},
	}
	require.NoError(t, db.Create(&entry).Error)

	var got AuditLog
	require.NoError(t, db.Where("id = ?", entry.ID).First(&got).Error)
	assert.Equal(t, "report.pdf", got.Metadata["filename"])
	assert.Equal(t, float64(12), got.Metadata["pages"])
}

func TestAuditLogRejectsUpdate(t *testing.T) {
	db := setupModelDB(t)

	tenant := Tenant{Name: "Immutable"}
	require.NoError(t, db.Create(&tenant).Error)

	entry := AuditLog{
		TenantID:     tenant.ID,
		Action:       "create",
		ResourceType: "user",
		ResourceID:   uuid.New(),
	}
	require.NoError(t, db.Create(&entry).Error)

	entry.Action = "tampered"
	err := db.Save(&entry).Error
	assert.ErrorIs(t, err, apperr.ErrAuditImmutabilityViolation)

	var got AuditLog
	require.NoError(t, db.Where("id = ?", entry.ID).First(&got).Error)
	assert.Equal(t, "create", got.Action)
}

func TestAuditLogRejectsDelete(t *testing.T) {
	db := setupModelDB(t)

	tenant := Tenant{Name: "Immutable"}
	require.NoError(t, db.Create(&tenant).Error)

	entry := AuditLog{
		TenantID:     tenant.ID,
		Action:       "delete",
		ResourceType: "user",
		ResourceID:   uuid.New(),
	}
	require.NoError(t, db.Create(&entry).Error)

	err := db.Delete(&entry).Error
	assert.ErrorIs(t, err, apperr.ErrAuditImmutabilityViolation)

	var count int64
	require.NoError(t, db.Model(&AuditLog{}).Where("id = ?", entry.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDocumentStatusTransitions(t *testing.T) {
	processing := Document{Status: DocumentStatusProcessing}
	assert.True(t, processing.CanTransitionTo(DocumentStatusCompleted))
	assert.True(t, processing.CanTransitionTo(DocumentStatusFailed))
	assert.False(t, processing.CanTransitionTo(DocumentStatusProcessing))

	completed := Document{Status: DocumentStatusCompleted}
	assert.False(t, completed.CanTransitionTo(DocumentStatusFailed))
	assert.False(t, completed.CanTransitionTo(DocumentStatusProcessing))

	failed := Document{Status: DocumentStatusFailed}
	assert.False(t, failed.CanTransitionTo(DocumentStatusCompleted))
}

func TestTenantValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(TenantStatusActive))
	assert.True(t, ValidStatus(TenantStatusSuspended))
	assert.True(t, ValidStatus(TenantStatusTrial))
	assert.False(t, ValidStatus("archived"))
	assert.False(t, ValidStatus(""))
}

func TestSystemTenantDetection(t *testing.T) {
	system := Tenant{BaseModel: BaseModel{ID: SystemTenantID}}
	assert.True(t, system.IsSystem())

	regular := Tenant{BaseModel: BaseModel{ID: uuid.New()}}
	assert.False(t, regular.IsSystem())
}
