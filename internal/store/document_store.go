package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/apperr"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/model"
)

// DocumentStore manages document metadata rows and the embedding lifecycle
// inside the active tenant
type DocumentStore struct {
	*Store
}

// NewDocumentStore creates a document store
func NewDocumentStore(s *Store) *DocumentStore {
	return &DocumentStore{Store: s}
}

// DocumentMatch is one similarity search hit. Distance is the raw cosine
// distance reported by the index; Similarity is 1 - distance.
type DocumentMatch struct {
	model.Document
	Distance   float64 `json:"distance" gorm:"column:distance"`
	Similarity float64 `json:"similarity" gorm:"-"`
}

// Create registers a document's metadata in processing state. The tenant ID
// is taken from the request context, never from the payload.
func (s *DocumentStore) Create(ctx context.Context, doc *model.Document) error {
	if doc.Status == "" {
		doc.Status = model.DocumentStatusProcessing
	}
	if doc.Metadata == nil {
		doc.Metadata = model.JSONMap{}
	}
	return s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		if err := checkOwnership(tenantID, doc.TenantID); err != nil {
			return err
		}
		doc.TenantID = tenantID
		return tx.Create(doc).Error
	})
}

// Get returns one active document by ID
func (s *DocumentStore) Get(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	err := s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		return tx.Scopes(byTenant(tenantID)).Where("id = ?", id).First(&doc).Error
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns the tenant's active documents, newest first
func (s *DocumentStore) List(ctx context.Context, limit, offset int) ([]model.Document, error) {
	var docs []model.Document
	err := s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		return tx.Scopes(byTenant(tenantID)).
			Order("created_at DESC").
			Limit(normalizeLimit(limit)).Offset(offset).
			Find(&docs).Error
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// ListByUser returns the active documents uploaded by one user
func (s *DocumentStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Document, error) {
	var docs []model.Document
	err := s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		return tx.Scopes(byTenant(tenantID)).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Limit(normalizeLimit(limit)).Offset(offset).
			Find(&docs).Error
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Complete marks a processing document as completed and stores its
// embedding. Only processing documents may transition; completed and failed
// are terminal.
func (s *DocumentStore) Complete(ctx context.Context, id uuid.UUID, embedding pgvector.Vector) (*model.Document, error) {
	return s.transition(ctx, id, model.DocumentStatusCompleted, &embedding)
}

// Fail marks a processing document as failed. No embedding is stored.
func (s *DocumentStore) Fail(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	return s.transition(ctx, id, model.DocumentStatusFailed, nil)
}

func (s *DocumentStore) transition(ctx context.Context, id uuid.UUID, next string, embedding *pgvector.Vector) (*model.Document, error) {
	var doc model.Document
	err := s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		if err := tx.Scopes(byTenant(tenantID)).Where("id = ?", id).First(&doc).Error; err != nil {
			return err
		}
		if !doc.CanTransitionTo(next) {
			return apperr.ErrInvalidStatusTransition
		}
		updates := map[string]interface{}{"status": next}
		if embedding != nil {
			updates["embedding_vector"] = *embedding
		}
		if err := tx.Model(&doc).Scopes(byTenant(tenantID)).Updates(updates).Error; err != nil {
			return err
		}
		doc.Status = next
		doc.Embedding = embedding
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// SoftDelete removes a document from default queries and from the
// similarity search index scope. The row and its embedding remain for the
// retention window.
func (s *DocumentStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		res := tx.Scopes(byTenant(tenantID)).Where("id = ?", id).Delete(&model.Document{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
}

// Restore reverses a soft delete within the retention window
func (s *DocumentStore) Restore(ctx context.Context, id uuid.UUID) error {
	return s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		res := tx.Unscoped().Model(&model.Document{}).
			Scopes(byTenant(tenantID)).
			Where("id = ? AND deleted_at IS NOT NULL", id).
			UpdateColumn("deleted_at", nil)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
}

// SimilaritySearch returns the tenant's documents nearest to the query
// embedding by cosine distance. Only active documents that finished
// embedding are candidates; rows below the similarity threshold are cut.
// Ties on distance break toward the newer document.
func (s *DocumentStore) SimilaritySearch(ctx context.Context, embedding []float32, limit int, threshold float64) ([]DocumentMatch, error) {
	if len(embedding) != model.EmbeddingDimensions {
		return nil, apperr.NewConstraintError("embedding_dimensions")
	}
	query := pgvector.NewVector(embedding)
	maxDistance := 1.0 - threshold

	var matches []DocumentMatch
	err := s.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		return tx.Raw(`
			SELECT d.*, (d.embedding_vector <=> ?) AS distance
			FROM documents d
			WHERE d.tenant_id = ?
			  AND d.deleted_at IS NULL
			  AND d.embedding_vector IS NOT NULL
			  AND (d.embedding_vector <=> ?) <= ?
			ORDER BY distance ASC, d.created_at DESC
			LIMIT ?`,
			query, tenantID, query, maxDistance, normalizeLimit(limit),
		).Scan(&matches).Error
	})
	if err != nil {
		return nil, err
	}
	for i := range matches {
		matches[i].Similarity = 1.0 - matches[i].Distance
	}
	return matches, nil
}
