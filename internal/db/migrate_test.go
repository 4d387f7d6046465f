package db

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// These tests exercise the full up/down cycle and therefore need a database
// of their own: TEST_MIGRATE_DATABASE_URL, never the one the store
// integration tests run against.
func migrateTestURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TEST_MIGRATE_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_MIGRATE_DATABASE_URL not set; skipping migration tests")
	}
	return url
}

func TestMigrateUpDownCycle(t *testing.T) {
	url := migrateTestURL(t)
	log := zap.NewNop()

	require.NoError(t, Migrate(url, log))

	version, dirty, err := Version(url)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.EqualValues(t, 7, version, "all steps applied")

	// Applying again is a no-op
	require.NoError(t, Migrate(url, log))

	require.NoError(t, Rollback(url, log))
	version, dirty, err = Version(url)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Zero(t, version, "all steps reverted")

	// The schema comes back cleanly after a full teardown
	require.NoError(t, Migrate(url, log))
}

func TestMigrateToIntermediateVersion(t *testing.T) {
	url := migrateTestURL(t)
	log := zap.NewNop()

	require.NoError(t, Migrate(url, log))
	require.NoError(t, MigrateTo(url, 3, log))

	version, dirty, err := Version(url)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.EqualValues(t, 3, version)

	require.NoError(t, Migrate(url, log))
}
