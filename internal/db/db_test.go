package db

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrateSQLite(t *testing.T) {
	conn, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "nested", "credits.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(conn))

	for _, table := range []string{"users", "bars", "bottle_plans", "wallets", "redemption_tokens", "ledger_entries"} {
		assert.True(t, conn.Migrator().HasTable(table), "missing table %s", table)
	}
	assert.True(t, conn.Migrator().HasIndex("redemption_tokens", "idx_token_wallet_used"))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "whatever")
	assert.Error(t, err)

	_, err = Open(DriverSQLite, "  ")
	assert.Error(t, err)
}

func TestSQLErrorsGoThroughLogrus(t *testing.T) {
	var buf bytes.Buffer
	std := logrus.StandardLogger()
	prevOut, prevLevel := std.Out, std.GetLevel()
	std.SetOutput(&buf)
	std.SetLevel(logrus.InfoLevel)
	t.Cleanup(func() {
		std.SetOutput(prevOut)
		std.SetLevel(prevLevel)
	})

	conn, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "credits.db"))
	require.NoError(t, err)
	require.Error(t, conn.Exec("SELECT * FROM no_such_table").Error)
	assert.Contains(t, buf.String(), "no_such_table")
}
