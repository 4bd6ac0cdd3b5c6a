package migration

import (
	"testing"

	"github.com/smallbiznis/tenantly/pkg/db"
	"github.com/stretchr/testify/require"
)

func TestRunAutoMigratesNonPostgres(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)

	require.NoError(t, Run(conn))
	// A second run is a no-op.
	require.NoError(t, Run(conn))

	for _, table := range []string{
		"organizations", "profiles", "custom_domains", "invitations",
		"activity_logs", "identities", "identity_sessions", "outbox_events",
		"leads", "drip_campaigns", "drip_campaign_steps", "lead_pages",
	} {
		require.True(t, conn.Migrator().HasTable(table), table)
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := embeddedMigrations.ReadDir(migrationsDir)
	require.NoError(t, err)
	require.Len(t, entries, 4)
}

func TestRunRequiresConnection(t *testing.T) {
	require.Error(t, Run(nil))
}
