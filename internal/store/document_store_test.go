package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/apperr"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/model"
)

func seedUser(t *testing.T, base *Store, tenantID uuid.UUID, email string) *model.User {
	t.Helper()
	user := &model.User{Email: email}
	require.NoError(t, NewUserStore(base).Create(ctxFor(t, tenantID), user))
	return user
}

func newDocument(userID uuid.UUID, filename string) *model.Document {
	return &model.Document{
		UserID:   userID,
		S3Key:    "tenants/docs/" + filename,
		S3Bucket: "document-store",
		Filename: filename,
	}
}

func testEmbedding(seed float32) []float32 {
	v := make([]float32, model.EmbeddingDimensions)
	for i := range v {
		v[i] = seed
	}
	return v
}

func TestDocumentCreateDefaults(t *testing.T) {
	base, tenantA, _ := setupStoreDB(t)
	docs := NewDocumentStore(base)
	user := seedUser(t, base, tenantA.ID, "uploader@example.com")

	doc := newDocument(user.ID, "intake.pdf")
	require.NoError(t, docs.Create(ctxFor(t, tenantA.ID), doc))

	assert.Equal(t, tenantA.ID, doc.TenantID)
	assert.Equal(t, model.DocumentStatusProcessing, doc.Status)
	assert.NotNil(t, doc.Metadata)
	assert.Nil(t, doc.Embedding, "embedding stays null until processing completes")
}

func TestDocumentCreateRejectsForeignTenantID(t *testing.T) {
	base, tenantA, tenantB := setupStoreDB(t)
	docs := NewDocumentStore(base)
	user := seedUser(t, base, tenantA.ID, "uploader@example.com")

	doc := newDocument(user.ID, "leak.pdf")
	doc.TenantID = tenantB.ID
	err := docs.Create(ctxFor(t, tenantA.ID), doc)
	assert.ErrorIs(t, err, apperr.ErrCrossTenantViolation)
}

func TestDocumentGetIsTenantScoped(t *testing.T) {
	base, tenantA, tenantB := setupStoreDB(t)
	docs := NewDocumentStore(base)
	user := seedUser(t, base, tenantA.ID, "uploader@example.com")

	doc := newDocument(user.ID, "private.pdf")
	require.NoError(t, docs.Create(ctxFor(t, tenantA.ID), doc))

	_, err := docs.Get(ctxFor(t, tenantB.ID), doc.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDocumentCompleteStoresEmbedding(t *testing.T) {
	base, tenantA, _ := setupStoreDB(t)
	docs := NewDocumentStore(base)
	user := seedUser(t, base, tenantA.ID, "uploader@example.com")
	ctx := ctxFor(t, tenantA.ID)

	doc := newDocument(user.ID, "scan.pdf")
	require.NoError(t, docs.Create(ctx, doc))

	completed, err := docs.Complete(ctx, doc.ID, pgvector.NewVector(testEmbedding(0.25)))
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusCompleted, completed.Status)
	assert.NotNil(t, completed.Embedding)
}

func TestDocumentFailLeavesNoEmbedding(t *testing.T) {
	base, tenantA, _ := setupStoreDB(t)
	docs := NewDocumentStore(base)
	user := seedUser(t, base, tenantA.ID, "uploader@example.com")
	ctx := ctxFor(t, tenantA.ID)

	doc := newDocument(user.ID, "corrupt.pdf")
	require.NoError(t, docs.Create(ctx, doc))

	failed, err := docs.Fail(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusFailed, failed.Status)
	assert.Nil(t, failed.Embedding)
}

func TestDocumentTerminalStatesRejectTransitions(t *testing.T) {
	base, tenantA, _ := setupStoreDB(t)
	docs := NewDocumentStore(base)
	user := seedUser(t, base, tenantA.ID, "uploader@example.com")
	ctx := ctxFor(t, tenantA.ID)

	doc := newDocument(user.ID, "done.pdf")
	require.NoError(t, docs.Create(ctx, doc))
	_, err := docs.Complete(ctx, doc.ID, pgvector.NewVector(testEmbedding(0.5)))
	require.NoError(t, err)

	_, err = docs.Fail(ctx, doc.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidStatusTransition)

	_, err = docs.Complete(ctx, doc.ID, pgvector.NewVector(testEmbedding(0.6)))
	assert.ErrorIs(t, err, apperr.ErrInvalidStatusTransition)
}

func TestDocumentTransitionIsTenantScoped(t *testing.T) {
	base, tenantA, tenantB := setupStoreDB(t)
	docs := NewDocumentStore(base)
	user := seedUser(t, base, tenantA.ID, "uploader@example.com")

	doc := newDocument(user.ID, "elsewhere.pdf")
	require.NoError(t, docs.Create(ctxFor(t, tenantA.ID), doc))

	_, err := docs.Fail(ctxFor(t, tenantB.ID), doc.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDocumentSoftDeleteAndRestore(t *testing.T) {
	base, tenantA, _ := setupStoreDB(t)
	docs := NewDocumentStore(base)
	user := seedUser(t, base, tenantA.ID, "uploader@example.com")
	ctx := ctxFor(t, tenantA.ID)

	doc := newDocument(user.ID, "cycle.pdf")
	require.NoError(t, docs.Create(ctx, doc))

	require.NoError(t, docs.SoftDelete(ctx, doc.ID))
	_, err := docs.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, docs.Restore(ctx, doc.ID))
	got, err := docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "cycle.pdf", got.Filename)
}

func TestDocumentListByUser(t *testing.T) {
	base, tenantA, _ := setupStoreDB(t)
	docs := NewDocumentStore(base)
	alice := seedUser(t, base, tenantA.ID, "alice@example.com")
	bob := seedUser(t, base, tenantA.ID, "bob@example.com")
	ctx := ctxFor(t, tenantA.ID)

	require.NoError(t, docs.Create(ctx, newDocument(alice.ID, "a1.pdf")))
	require.NoError(t, docs.Create(ctx, newDocument(alice.ID, "a2.pdf")))
	require.NoError(t, docs.Create(ctx, newDocument(bob.ID, "b1.pdf")))

	mine, err := docs.ListByUser(ctx, alice.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := docs.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSimilaritySearchRejectsWrongDimensions(t *testing.T) {
	base, tenantA, _ := setupStoreDB(t)
	docs := NewDocumentStore(base)

	_, err := docs.SimilaritySearch(ctxFor(t, tenantA.ID), []float32{0.1, 0.2}, 10, 0.7)

	var constraintErr *apperr.ConstraintError
	require.ErrorAs(t, err, &constraintErr)
	assert.Equal(t, "embedding_dimensions", constraintErr.Constraint)
}

func TestSimilaritySearchFailsClosedWithoutContext(t *testing.T) {
	base, _, _ := setupStoreDB(t)
	docs := NewDocumentStore(base)

	_, err := docs.SimilaritySearch(context.Background(), testEmbedding(0.1), 10, 0.7)
	assert.ErrorIs(t, err, apperr.ErrMissingTenantContext)
}
