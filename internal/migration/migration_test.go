package migration

import (
	"io/fs"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/meterbook/internal/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestRunAutoMigratesSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Run(db, zap.NewNop()))
	assert.True(t, db.Migrator().HasTable(&kvstore.Entry{}))

	// idempotent
	require.NoError(t, Run(db, zap.NewNop()))
}

func TestRunRequiresDB(t *testing.T) {
	assert.Error(t, Run(nil, nil))
	assert.Error(t, RunMigrations(nil))
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
