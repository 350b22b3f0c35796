package postgres

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
)

func TestEmbeddedMigrations_ArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
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
			t.Errorf("unexpected file in migrations: %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestEmbeddedMigrations_CreateSchema(t *testing.T) {
	var all strings.Builder
	err := fs.WalkDir(migrationFS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".up.sql") {
			return err
		}
		b, err := fs.ReadFile(migrationFS, path)
		all.Write(b)
		return err
	})
	require.NoError(t, err)

	ddl := all.String()
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS molecules")
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS fragments")
	assert.Contains(t, ddl, "PRIMARY KEY (signature, with_sugar)")
}

func TestMigrator_DownRejectsNonPositiveSteps(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := NewMigrator(NewConnectionWithDB(db, logging.NewNopLogger()), logging.NewNopLogger())

	err = m.Down(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "greater than 0")
}
