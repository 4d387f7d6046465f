package model

import (
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Document processing status values. Transitions are one-directional:
// processing -> completed or processing -> failed.
const (
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
)

// EmbeddingDimensions is the fixed dimensionality of document embeddings,
// matching the vector column declared by the schema migrations.
const EmbeddingDimensions = 1024

// Document represents a tenant-scoped artifact with a storage reference and
// an optional embedding vector for semantic search. The embedding stays null
// until asynchronous processing completes.
type Document struct {
	BaseModel
	TenantID    uuid.UUID        `json:"tenant_id" gorm:"type:uuid;not null;index"`
	UserID      uuid.UUID        `json:"user_id" gorm:"type:uuid;not null;index"`
	S3Key       string           `json:"s3_key" gorm:"type:varchar(1024);not null"`
	S3Bucket    string           `json:"s3_bucket" gorm:"type:varchar(255);not null"`
	Filename    string           `json:"filename" gorm:"type:varchar(512);not null"`
	ContentType *string          `json:"content_type,omitempty" gorm:"type:varchar(127)"`
	SizeBytes   *int64           `json:"size_bytes,omitempty"`
	Status      string           `json:"status" gorm:"type:varchar(50);not null;default:processing"`
	Metadata    JSONMap          `json:"metadata" gorm:"type:jsonb;default:'{}'"`
	Embedding   *pgvector.Vector `json:"-" gorm:"column:embedding_vector;type:vector(1024)"`
	SoftDeleteModel

	// Relations
	Tenant *Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
	User   *User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// TableName returns the table name for the Document model
func (Document) TableName() string {
	return "documents"
}

// CanTransitionTo reports whether the document status may move to next.
// Completed and failed are terminal.
func (d *Document) CanTransitionTo(next string) bool {
	if d.Status != DocumentStatusProcessing {
		return false
	}
	return next == DocumentStatusCompleted || next == DocumentStatusFailed
}
