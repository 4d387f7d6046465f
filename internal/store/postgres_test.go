package store

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/apperr"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/db"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/model"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/tenantctx"
)

// setupPostgresDB connects to the database named by TEST_DATABASE_URL and
// ensures the schema is fully migrated. Tests are skipped when the variable
// is unset. Every test provisions its own tenants, so no cleanup between
// tests is needed (and audit rows could not be deleted anyway).
func setupPostgresDB(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres integration tests")
	}

	require.NoError(t, db.Migrate(url, zap.NewNop()))

	gdb, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		DSN:                  url,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return NewStore(gdb)
}

func provisionTenant(t *testing.T, base *Store, name string) *model.Tenant {
	t.Helper()
	tenant := &model.Tenant{Name: name, Status: model.TenantStatusActive}
	require.NoError(t, NewTenantStore(base).Create(tenantctx.WithSystem(context.Background()), tenant))
	return tenant
}

func TestPostgresScopedSetsTransactionLocalTenant(t *testing.T) {
	base := setupPostgresDB(t)
	tenant := provisionTenant(t, base, "GUC Tenant")
	ctx := ctxFor(t, tenant.ID)

	var inside string
	require.NoError(t, base.scoped(ctx, func(tx *gorm.DB, tenantID uuid.UUID) error {
		return tx.Raw("SELECT current_setting('app.current_tenant_id', true)").Scan(&inside).Error
	}))
	assert.Equal(t, tenant.ID.String(), inside)

	// The setting does not survive the transaction
	var outside *string
	require.NoError(t, base.db.Raw("SELECT current_setting('app.current_tenant_id', true)").Scan(&outside).Error)
	if outside != nil {
		assert.Empty(t, *outside)
	}
}

func TestPostgresCrossTenantRowsAreInvisible(t *testing.T) {
	base := setupPostgresDB(t)
	users := NewUserStore(base)
	tenantA := provisionTenant(t, base, "Iso A")
	tenantB := provisionTenant(t, base, "Iso B")

	user := &model.User{Email: "iso-a@example.com"}
	require.NoError(t, users.Create(ctxFor(t, tenantA.ID), user))

	_, err := users.Get(ctxFor(t, tenantB.ID), user.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	listed, err := users.List(ctxFor(t, tenantB.ID), 0, 0)
	require.NoError(t, err)
	for _, u := range listed {
		assert.NotEqual(t, user.ID, u.ID)
	}
}

func TestPostgresActiveEmailIndexBacksRestoreCheck(t *testing.T) {
	base := setupPostgresDB(t)
	users := NewUserStore(base)
	tenant := provisionTenant(t, base, "Email Index")
	ctx := ctxFor(t, tenant.ID)

	require.NoError(t, users.Create(ctx, &model.User{Email: "taken@example.com"}))
	err := users.Create(ctx, &model.User{Email: "taken@example.com"})
	assert.ErrorIs(t, err, apperr.ErrDuplicateActiveIdentity)
}

func TestPostgresAuditTriggerRejectsUpdateAndDelete(t *testing.T) {
	base := setupPostgresDB(t)
	audit := NewAuditStore(base)
	tenant := provisionTenant(t, base, "Audit Trigger")
	ctx := ctxFor(t, tenant.ID)

	entry := &model.AuditLog{
		Action:       AuditActionCreate,
		ResourceType: "user",
		ResourceID:   uuid.New(),
	}
	require.NoError(t, audit.Record(ctx, entry))

	// Raw SQL bypasses the ORM hooks; the trigger must still reject both
	err := apperr.Translate(base.db.Exec(
		"UPDATE audit_logs SET action = 'tampered' WHERE id = ?", entry.ID).Error)
	assert.ErrorIs(t, err, apperr.ErrAuditImmutabilityViolation)

	err = apperr.Translate(base.db.Exec(
		"DELETE FROM audit_logs WHERE id = ?", entry.ID).Error)
	assert.ErrorIs(t, err, apperr.ErrAuditImmutabilityViolation)

	got, err := audit.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, AuditActionCreate, got.Action)
}

// directionEmbedding builds a unit vector at the given angle from the query
// axis, so its cosine similarity to the axis is exactly cos(angle).
func directionEmbedding(angle float64) []float32 {
	v := make([]float32, model.EmbeddingDimensions)
	v[0] = float32(math.Cos(angle))
	v[1] = float32(math.Sin(angle))
	return v
}

func TestPostgresSimilaritySearch(t *testing.T) {
	base := setupPostgresDB(t)
	users := NewUserStore(base)
	docs := NewDocumentStore(base)
	tenantA := provisionTenant(t, base, "Search A")
	tenantB := provisionTenant(t, base, "Search B")
	ctxA := ctxFor(t, tenantA.ID)
	ctxB := ctxFor(t, tenantB.ID)

	userA := &model.User{Email: "search-a@example.com"}
	require.NoError(t, users.Create(ctxA, userA))
	userB := &model.User{Email: "search-b@example.com"}
	require.NoError(t, users.Create(ctxB, userB))

	seed := func(ctx context.Context, userID uuid.UUID, name string, angle float64) *model.Document {
		doc := newDocument(userID, name)
		require.NoError(t, docs.Create(ctx, doc))
		_, err := docs.Complete(ctx, doc.ID, pgvector.NewVector(directionEmbedding(angle)))
		require.NoError(t, err)
		return doc
	}

	near := seed(ctxA, userA.ID, "near.pdf", 0.1)       // similarity ~0.995
	mid := seed(ctxA, userA.ID, "mid.pdf", 0.5)         // similarity ~0.878
	far := seed(ctxA, userA.ID, "far.pdf", 1.3)         // similarity ~0.267, below threshold
	foreign := seed(ctxB, userB.ID, "foreign.pdf", 0.1) // other tenant, near match

	// A document still processing never matches
	pending := newDocument(userA.ID, "pending.pdf")
	require.NoError(t, docs.Create(ctxA, pending))

	// A deleted near-match never matches
	deleted := seed(ctxA, userA.ID, "deleted.pdf", 0.05)
	require.NoError(t, docs.SoftDelete(ctxA, deleted.ID))

	query := directionEmbedding(0)
	matches, err := docs.SimilaritySearch(ctxA, query, 10, 0.7)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, near.ID, matches[0].ID, "results ordered by descending similarity")
	assert.Equal(t, mid.ID, matches[1].ID)
	assert.InDelta(t, 0.995, matches[0].Similarity, 0.01)
	assert.InDelta(t, 0.878, matches[1].Similarity, 0.01)
	assert.Greater(t, matches[0].Similarity, matches[1].Similarity)

	for _, m := range matches {
		assert.NotEqual(t, foreign.ID, m.ID, "other tenants' documents never match")
		assert.NotEqual(t, far.ID, m.ID, "matches below the threshold are cut")
		assert.NotEqual(t, deleted.ID, m.ID)
		assert.NotEqual(t, pending.ID, m.ID)
	}

	// Lowering the threshold admits the far document
	matches, err = docs.SimilaritySearch(ctxA, query, 10, 0.1)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, far.ID, matches[2].ID)

	// The limit caps the result count after ordering
	matches, err = docs.SimilaritySearch(ctxA, query, 1, 0.1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, near.ID, matches[0].ID)
}

func TestPostgresSimilaritySearchManyTenants(t *testing.T) {
	base := setupPostgresDB(t)
	users := NewUserStore(base)
	docs := NewDocumentStore(base)

	type tenantDocs struct {
		ctx context.Context
		ids map[uuid.UUID]bool
	}
	tenants := make([]tenantDocs, 0, 5)

	for i := 0; i < 5; i++ {
		tenant := provisionTenant(t, base, "Fan Out")
		ctx := ctxFor(t, tenant.ID)
		user := &model.User{Email: "fanout@example.com"}
		require.NoError(t, users.Create(ctx, user))

		owned := map[uuid.UUID]bool{}
		for j := 0; j < 4; j++ {
			doc := newDocument(user.ID, "doc.pdf")
			require.NoError(t, docs.Create(ctx, doc))
			_, err := docs.Complete(ctx, doc.ID, pgvector.NewVector(directionEmbedding(float64(j)*0.2)))
			require.NoError(t, err)
			owned[doc.ID] = true
		}
		tenants = append(tenants, tenantDocs{ctx: ctx, ids: owned})
	}

	query := directionEmbedding(0)
	for _, td := range tenants {
		matches, err := docs.SimilaritySearch(td.ctx, query, 50, 0)
		require.NoError(t, err)
		assert.NotEmpty(t, matches)
		for _, m := range matches {
			assert.True(t, td.ids[m.ID], "search returned a row the tenant does not own")
		}
	}
}
