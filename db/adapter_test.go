package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/enemyai/config"
)

func TestOpen_Memory(t *testing.T) {
	g, err := Open(config.DatabaseConfig{Mode: ModeMemory})
	require.NoError(t, err)
	require.NoError(t, g.Exec("CREATE TABLE t (id INTEGER)").Error)
	require.NoError(t, g.Exec("INSERT INTO t VALUES (1)").Error)

	var n int64
	require.NoError(t, g.Raw("SELECT COUNT(*) FROM t").Scan(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestOpen_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ai.db")
	g, err := Open(config.DatabaseConfig{Mode: ModeSQLite, SQLitePath: path})
	require.NoError(t, err)
	assert.NoError(t, g.Exec("SELECT 1").Error)
	assert.FileExists(t, path)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Mode: "oracle"})
	assert.ErrorContains(t, err, "unknown mode")

	_, err = Open(config.DatabaseConfig{Mode: ModeMySQL})
	assert.ErrorContains(t, err, "mysql_dsn")
}
