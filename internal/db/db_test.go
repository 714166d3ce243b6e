package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sqlite3")

	database, err := Open("sqlite://" + path)
	require.NoError(t, err)
	defer database.Close()

	assert.Equal(t, DialectSQLite, database.Dialect)

	var fk int
	require.NoError(t, database.Get(&fk, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, fk)
}

func TestMigrateCreatesTables(t *testing.T) {
	database := NewTestDB(t)

	for _, table := range []string{"users", "items", "settings", "revoked_tokens"} {
		var name string
		err := database.Get(&name, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		require.NoError(t, err, "table %s", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	database := NewTestDB(t)

	require.NoError(t, Migrate(database))
}

func TestItemStatusCheckConstraint(t *testing.T) {
	database := NewTestDB(t)

	_, err := database.Exec(`INSERT INTO users (username, email, password_hash) VALUES ('a', 'a@x.com', 'h')`)
	require.NoError(t, err)

	_, err = database.Exec(`INSERT INTO items (name, status, date_posted, owner_id) VALUES ('x', 'Stolen', CURRENT_TIMESTAMP, 1)`)
	assert.Error(t, err)

	_, err = database.Exec(`INSERT INTO items (name, status, date_posted, owner_id) VALUES ('x', 'Lost', CURRENT_TIMESTAMP, 1)`)
	assert.NoError(t, err)
}

func TestItemOwnerForeignKey(t *testing.T) {
	database := NewTestDB(t)

	_, err := database.Exec(`INSERT INTO items (name, status, date_posted, owner_id) VALUES ('x', 'Lost', CURRENT_TIMESTAMP, 42)`)
	assert.Error(t, err)
}

func TestBuilderPlaceholders(t *testing.T) {
	sqlite := &DB{Dialect: DialectSQLite}
	query, _, err := sqlite.Builder().Select("id").From("items").Where("id = ?", 1).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "id = ?")

	pg := &DB{Dialect: DialectPostgres}
	query, _, err = pg.Builder().Select("id").From("items").Where("id = ?", 1).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "id = $1")
}

func TestLowerFoldsNonASCII(t *testing.T) {
	database := NewTestDB(t)

	tests := map[string]string{
		"ČRNA DENARNICA": "črna denarnica",
		"Émile":          "émile",
		"WALLET":         "wallet",
	}
	for in, want := range tests {
		var got string
		require.NoError(t, database.Get(&got, `SELECT LOWER(?)`, in))
		assert.Equal(t, want, got)
	}

	var null *string
	require.NoError(t, database.Get(&null, `SELECT LOWER(NULL)`))
	assert.Nil(t, null)
}
