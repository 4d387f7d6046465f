package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account within exactly one tenant.
//
// (tenant_id, email) is unique only among non-deleted rows; the partial
// unique index idx_users_tenant_email_active lets a soft-deleted user's email
// be reused by a new account in the same tenant.
type User struct {
	BaseModel
	TenantID      uuid.UUID  `json:"tenant_id" gorm:"type:uuid;not null;index"`
	Email         string     `json:"email" gorm:"type:varchar(255);not null"`
	ExternalIDPID *string    `json:"external_idp_id,omitempty" gorm:"type:varchar(255)"`
	FullName      *string    `json:"full_name,omitempty" gorm:"type:varchar(255)"`
	Role          *string    `json:"role,omitempty" gorm:"type:varchar(50)"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	SoftDeleteModel

	// Relations
	Tenant *Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}
