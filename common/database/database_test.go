package database

import (
	"testing"

	"wisefido-wearable/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteDB_Memory(t *testing.T) {
	db, err := NewSQLiteDB(&config.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	defer Close(db)

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)

	var one int
	require.NoError(t, db.QueryRow("SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}

func TestNewSQLiteDB_File(t *testing.T) {
	path := t.TempDir() + "/history.db"
	db, err := NewSQLiteDB(&config.SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer Close(db)

	_, err = db.Exec("CREATE TABLE t (id INTEGER)")
	require.NoError(t, err)
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
