package repository

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database. A single connection keeps
// it alive for the whole test and serializes writers the way the real
// deployment's row locks do.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, NewResourceRepo(gdb).Migrate())
	require.NoError(t, NewBookingRepo(gdb).Migrate())
	require.NoError(t, NewMessageRepo(gdb).Migrate())
	require.NoError(t, NewAuditRepo(gdb).Migrate())
	return gdb
}
