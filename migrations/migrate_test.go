package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestMigrationSourceParses(t *testing.T) {
	source, err := iofs.New(migrationFiles, "sql")
	require.NoError(t, err)
	defer source.Close()

	first, err := source.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)
}

func TestInitCreatesCoreTables(t *testing.T) {
	up, err := fs.ReadFile(migrationFiles, "sql/000001_init.up.sql")
	require.NoError(t, err)

	for _, table := range []string{
		"users", "user_devices", "friendships", "friend_requests", "blocks",
		"restrictions", "conversations", "conversation_participants",
		"messages", "message_attachments",
	} {
		assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
}

func TestRunAndRollback_BadDatabaseURL(t *testing.T) {
	err := Run("nope://localhost/gotalk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create migrator")

	err = Rollback("nope://localhost/gotalk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create migrator")
}
