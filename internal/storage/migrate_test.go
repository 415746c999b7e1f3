package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_reviews.sql", "001_bookmarks.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o755))

	pending, err := PendingMigrations(dir, map[string]bool{})
	require.NoError(t, err)
	assert.Equal(t, []string{"001_bookmarks.sql", "002_reviews.sql"}, pending)

	pending, err = PendingMigrations(dir, map[string]bool{"001_bookmarks.sql": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"002_reviews.sql"}, pending)
}

func TestPendingMigrations_ShippedDirectory(t *testing.T) {
	pending, err := PendingMigrations(filepath.Join("..", "..", "migrations"), nil)
	require.NoError(t, err)
	assert.Contains(t, pending, "001_bookmarks.sql")
}

func TestPendingMigrations_MissingDirectory(t *testing.T) {
	_, err := PendingMigrations(filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}
