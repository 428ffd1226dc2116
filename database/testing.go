package database

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

// NewTestDatabase returns a migrated in-memory sqlite database private to the
// test.
func NewTestDatabase(t testing.TB) *Database {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := Open(sqlite.Open(dsn))
	require.NoError(t, err)

	sqlDB, err := db.ORM().DB()
	require.NoError(t, err)
	// a single connection serialises writers the way row locks would
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	require.NoError(t, db.MigrateDatabase())

	return db
}
