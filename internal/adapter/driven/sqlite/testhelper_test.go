package sqlite

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestDB opens a migrated in-memory database named after the test, so
// parallel tests never share state. The name is escaped so it cannot leak
// into the DSN query string.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := openDB(context.Background(), fileDSN(url.PathEscape(t.Name()), true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = RunMigrations(db.Writer)
	require.NoError(t, err)
	return db
}
