package db

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDialectSelection(t *testing.T) {
	cases := map[string]string{
		TypeSQLite:   "sqlite",
		"":           "sqlite",
		TypePostgres: "postgres",
		TypeMySQL:    "mysql",
	}
	for typ, want := range cases {
		d, err := Dialect(Config{Type: typ, Host: "localhost", Port: "5432", Name: "meterbook"})
		require.NoError(t, err, typ)
		assert.Equal(t, want, d.Name(), typ)
	}

	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}

func TestOpenDialectorInstallsPlugins(t *testing.T) {
	database, err := OpenDialector(sqlite.Open("file::memory:"), Config{MaxOpenConn: 1}, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = Close(database) }()

	assert.Len(t, database.Config.Plugins, 2)
	assert.NoError(t, database.Exec("SELECT 1").Error)
}
