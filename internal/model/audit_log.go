package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/apperr"
)

// AuditLog is an immutable, append-only record of one action.
//
// There is deliberately no updated_at or deleted_at field: their absence is
// part of the invariant. Database triggers reject UPDATE and DELETE at the
// storage level; the GORM hooks below reject them at the application level
// before any SQL is issued. The only permitted mutation is creation.
type AuditLog struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID     uuid.UUID  `json:"tenant_id" gorm:"type:uuid;not null;index"`
	UserID       *uuid.UUID `json:"user_id,omitempty" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"type:varchar(255);not null;index"`
	ResourceType string     `json:"resource_type" gorm:"type:varchar(100);not null"`
	ResourceID   uuid.UUID  `json:"resource_id" gorm:"type:uuid;not null"`
	IPAddress    *string    `json:"ip_address,omitempty" gorm:"type:varchar(45)"`
	UserAgent    *string    `json:"user_agent,omitempty" gorm:"type:text"`
	Metadata     JSONMap    `json:"metadata" gorm:"type:jsonb;default:'{}'"`
	CreatedAt    time.Time  `json:"created_at"`

	// Relations
	Tenant *Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
	User   *User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// BeforeCreate assigns a UUID if one was not provided
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// BeforeUpdate rejects any attempt to modify an audit log row
func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return apperr.ErrAuditImmutabilityViolation
}

// BeforeDelete rejects any attempt to remove an audit log row
func (a *AuditLog) BeforeDelete(tx *gorm.DB) error {
	return apperr.ErrAuditImmutabilityViolation
}
