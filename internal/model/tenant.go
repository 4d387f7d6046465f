package model

import "github.com/google/uuid"

// Tenant status values
const (
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
	TenantStatusTrial     = "trial"
)

// SystemTenantID is the well-known identifier of the seeded system tenant
// used for administrative, non-tenant-scoped operations.
var SystemTenantID = uuid.MustParse("00000000-0000-0000-0000-000000000000")

// Tenant represents an organization in the multi-tenant system.
// All tenant-scoped data references this table. Tenants are never physically
// deleted because audit logs and documents must retain a valid parent.
type Tenant struct {
	BaseModel
	Name      string  `json:"name" gorm:"type:varchar(255);not null"`
	Status    string  `json:"status" gorm:"type:varchar(50);not null;default:active"`
	KMSKeyARN *string `json:"kms_key_arn,omitempty" gorm:"type:varchar(512)"`
	SoftDeleteModel

	// Relations
	Users     []User     `json:"users,omitempty" gorm:"foreignKey:TenantID"`
	Documents []Document `json:"documents,omitempty" gorm:"foreignKey:TenantID"`
}

// TableName returns the table name for the Tenant model
func (Tenant) TableName() string {
	return "tenants"
}

// IsSystem reports whether this is the distinguished system tenant
func (t *Tenant) IsSystem() bool {
	return t.ID == SystemTenantID
}

// ValidStatus reports whether s is a known tenant status
func ValidStatus(s string) bool {
	switch s {
	case TenantStatusActive, TenantStatusSuspended, TenantStatusTrial:
		return true
	}
	return false
}
