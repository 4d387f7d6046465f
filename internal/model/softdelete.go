package model

import "gorm.io/gorm"

// SoftDeleteModel is composed into entities that support the soft-delete
// lifecycle. A set deleted_at marker means the row is logically deleted but
// physically retained; audit logs deliberately do not compose this.
//
// gorm.DeletedAt makes every default query exclude deleted rows; reading them
// back requires the explicit Deleted/WithDeleted helpers below.
type SoftDeleteModel struct {
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// IsDeleted reports whether the soft-delete marker is set.
// The Deleted query scope below is the equivalent predicate pushed into SQL.
func (m *SoftDeleteModel) IsDeleted() bool {
	return m.DeletedAt.Valid
}

// IsActive reports whether the row is live (marker unset)
func (m *SoftDeleteModel) IsActive() bool {
	return !m.DeletedAt.Valid
}

// Deleted is a query scope that returns only soft-deleted rows,
// for recovery and audit review
func Deleted(db *gorm.DB) *gorm.DB {
	return db.Unscoped().Where("deleted_at IS NOT NULL")
}

// WithDeleted is a query scope that returns rows regardless of
// soft-delete state
func WithDeleted(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}
