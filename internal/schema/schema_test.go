package schema

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productlogik/internal/database"
)

func TestMigrate_SQLite(t *testing.T) {
	db, err := database.Connect(fmt.Sprintf("file:schema_%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db), "migrating twice is a no-op")

	for _, table := range []string{"users", "uploads", "feedback_entries", "analysis_results", "usage_quotas", "upload_shares"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("analysis_results", "idx_analysis_results_upload"))
}
