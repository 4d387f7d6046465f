package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/model"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/store"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/logger"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/metrics"
)

// DocumentRequest defines the structure for document registration requests
type DocumentRequest struct {
	UserID      string        `json:"user_id" validate:"required"`
	S3Key       string        `json:"s3_key" validate:"required"`
	S3Bucket    string        `json:"s3_bucket" validate:"required"`
	Filename    string        `json:"filename" validate:"required"`
	ContentType *string       `json:"content_type"`
	SizeBytes   *int64        `json:"size_bytes"`
	Metadata    model.JSONMap `json:"metadata"`
}

// DocumentStatusRequest defines the structure for processing outcome updates
type DocumentStatusRequest struct {
	Status    string    `json:"status" validate:"required"`
	Embedding []float32 `json:"embedding"`
}

// SearchRequest defines the structure for similarity search requests
type SearchRequest struct {
	Embedding []float32 `json:"embedding" validate:"required"`
	Limit     int       `json:"limit"`
	Threshold *float64  `json:"threshold"`
}

// DocumentHandler serves document metadata and similarity search endpoints
type DocumentHandler struct {
	documents        *store.DocumentStore
	audit            *store.AuditStore
	metrics          *metrics.HTTPMetrics
	defaultLimit     int
	defaultThreshold float64
}

// NewDocumentHandler creates a document handler
func NewDocumentHandler(documents *store.DocumentStore, audit *store.AuditStore, m *metrics.HTTPMetrics, defaultLimit int, defaultThreshold float64) *DocumentHandler {
	return &DocumentHandler{
		documents:        documents,
		audit:            audit,
		metrics:          m,
		defaultLimit:     defaultLimit,
		defaultThreshold: defaultThreshold,
	}
}

// Create handles registering a document's metadata after its content landed
// in object storage. The document starts in processing state.
func (h *DocumentHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	log.Info("Registering new document")

	var req DocumentRequest
	if err := c.Bind(&req); err != nil {
		return respondBadRequest(c, log, "Invalid request data", err)
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return respondBadRequest(c, log, "Invalid user ID", err)
	}
	if req.S3Key == "" || req.S3Bucket == "" || req.Filename == "" {
		return respondBadRequest(c, log, "s3_key, s3_bucket and filename are required", nil)
	}

	doc := &model.Document{
		UserID:      userID,
		S3Key:       req.S3Key,
		S3Bucket:    req.S3Bucket,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		Metadata:    req.Metadata,
	}
	if err := h.documents.Create(c.Request().Context(), doc); err != nil {
		return respondError(c, log, h.metrics, err)
	}

	h.recordAudit(c, store.AuditActionCreate, doc.ID, nil)
	log.Info("Document registered",
		zap.String("document_id", doc.ID.String()),
		zap.String("filename", doc.Filename))
	return c.JSON(http.StatusCreated, doc)
}

// List handles retrieving the tenant's active documents
func (h *DocumentHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)
	limit, offset := pagination(c)

	var (
		docs []model.Document
		err  error
	)
	if rawUser := c.QueryParam("user_id"); rawUser != "" {
		userID, parseErr := uuid.Parse(rawUser)
		if parseErr != nil {
			return respondBadRequest(c, log, "Invalid user ID", parseErr)
		}
		docs, err = h.documents.ListByUser(c.Request().Context(), userID, limit, offset)
	} else {
		docs, err = h.documents.List(c.Request().Context(), limit, offset)
	}
	if err != nil {
		return respondError(c, log, h.metrics, err)
	}
	log.Info("Documents retrieved", zap.Int("count", len(docs)))
	return c.JSON(http.StatusOK, docs)
}

// Get handles retrieving one active document by ID
func (h *DocumentHandler) Get(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondBadRequest(c, log, "Invalid document ID", err)
	}
	doc, err := h.documents.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, log, h.metrics, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// SetStatus handles recording the outcome of asynchronous document
// processing. Completing requires the embedding; failed stores none.
func (h *DocumentHandler) SetStatus(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondBadRequest(c, log, "Invalid document ID", err)
	}
	var req DocumentStatusRequest
	if err := c.Bind(&req); err != nil {
		return respondBadRequest(c, log, "Invalid request data", err)
	}

	var doc *model.Document
	switch req.Status {
	case model.DocumentStatusCompleted:
		if len(req.Embedding) != model.EmbeddingDimensions {
			return respondBadRequest(c, log, "Completed documents require a full-dimension embedding", nil)
		}
		doc, err = h.documents.Complete(c.Request().Context(), id, pgvector.NewVector(req.Embedding))
	case model.DocumentStatusFailed:
		doc, err = h.documents.Fail(c.Request().Context(), id)
	default:
		return respondBadRequest(c, log, "Status must be completed or failed", nil)
	}
	if err != nil {
		return respondError(c, log, h.metrics, err)
	}

	h.recordAudit(c, store.AuditActionUpdate, id, model.JSONMap{"status": req.Status})
	log.Info("Document status updated",
		zap.String("document_id", id.String()),
		zap.String("status", req.Status))
	return c.JSON(http.StatusOK, doc)
}

// Delete handles soft-deleting a document. It immediately disappears from
// listings and from similarity search.
func (h *DocumentHandler) Delete(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondBadRequest(c, log, "Invalid document ID", err)
	}
	if err := h.documents.SoftDelete(c.Request().Context(), id); err != nil {
		return respondError(c, log, h.metrics, err)
	}

	h.recordAudit(c, store.AuditActionDelete, id, nil)
	log.Info("Document deleted", zap.String("document_id", id.String()))
	return c.JSON(http.StatusOK, echo.Map{"message": "Document deleted"})
}

// Restore handles reversing a document soft delete
func (h *DocumentHandler) Restore(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondBadRequest(c, log, "Invalid document ID", err)
	}
	if err := h.documents.Restore(c.Request().Context(), id); err != nil {
		return respondError(c, log, h.metrics, err)
	}

	h.recordAudit(c, store.AuditActionRestore, id, nil)
	log.Info("Document restored", zap.String("document_id", id.String()))
	return c.JSON(http.StatusOK, echo.Map{"message": "Document restored"})
}

// Search handles tenant-scoped similarity search over document embeddings
func (h *DocumentHandler) Search(c echo.Context) error {
	log := logger.FromEcho(c)

	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return respondBadRequest(c, log, "Invalid request data", err)
	}
	if len(req.Embedding) != model.EmbeddingDimensions {
		return respondBadRequest(c, log, "Query embedding must match the configured dimensions", nil)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = h.defaultLimit
	}
	threshold := h.defaultThreshold
	if req.Threshold != nil {
		if *req.Threshold < 0 || *req.Threshold > 1 {
			return respondBadRequest(c, log, "Threshold must be between 0 and 1", nil)
		}
		threshold = *req.Threshold
	}

	start := time.Now()
	matches, err := h.documents.SimilaritySearch(c.Request().Context(), req.Embedding, limit, threshold)
	if err != nil {
		return respondError(c, log, h.metrics, err)
	}
	h.metrics.ObserveVectorSearch(time.Since(start))

	log.Info("Similarity search completed",
		zap.Int("matches", len(matches)),
		zap.Float64("threshold", threshold),
		zap.Duration("duration", time.Since(start)))
	return c.JSON(http.StatusOK, echo.Map{
		"matches":   matches,
		"count":     len(matches),
		"threshold": threshold,
	})
}

func (h *DocumentHandler) recordAudit(c echo.Context, action string, resourceID uuid.UUID, meta model.JSONMap) {
	log := logger.FromEcho(c)
	entry := &model.AuditLog{
		UserID:       actorID(c),
		Action:       action,
		ResourceType: "document",
		ResourceID:   resourceID,
		IPAddress:    strPtr(c.RealIP()),
		UserAgent:    strPtr(c.Request().UserAgent()),
		Metadata:     meta,
	}
	if err := h.audit.Record(c.Request().Context(), entry); err != nil {
		log.Error("Failed to append audit entry",
			zap.String("action", action),
			zap.Error(err))
		return
	}
	h.metrics.ObserveAuditWrite(action)
}
