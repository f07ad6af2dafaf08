package migration

import (
	"io/fs"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/acctsync/migrations"
)

func TestEmbeddedMigrations_ArePaired(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, f := range files {
		switch {
		case strings.HasSuffix(f, ".up.sql"):
			ups[strings.TrimSuffix(f, ".up.sql")] = true
		case strings.HasSuffix(f, ".down.sql"):
			downs[strings.TrimSuffix(f, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %s", f)
		}
	}
	assert.Equal(t, ups, downs)

	names := make([]string, 0, len(ups))
	for name := range ups {
		names = append(names, name)
	}
	sort.Strings(names)
	assert.True(t, strings.HasPrefix(names[0], "000001_"))
}

func TestEmbeddedMigrations_SyncRecordIdentityIndex(t *testing.T) {
	body, err := fs.ReadFile(migrations.FS, "000002_create_accounting_sync_records.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "CREATE UNIQUE INDEX IF NOT EXISTS idx_sync_records_identity")
	assert.Contains(t, string(body), "(entity_type, entity_id, system_id)")
}
