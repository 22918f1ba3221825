package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uof-cases/incident-service/internal/config"
	"github.com/uof-cases/incident-service/internal/database"
	"github.com/uof-cases/incident-service/internal/dbtest"
	"github.com/uof-cases/incident-service/internal/models"
)

func TestMigrate_CreatesTables(t *testing.T) {
	db := dbtest.New(t)

	for _, table := range []string{"reports", "statements", "statement_amendments", "report_log", "system_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex(&models.Report{}, "idx_reports_owner_subject_seq"))
	assert.True(t, db.Migrator().HasIndex(&models.Statement{}, "idx_statements_report_user"))
	require.NoError(t, database.Ping(db))
}

func TestConnect_RejectsUnknownDriver(t *testing.T) {
	_, err := database.Connect(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestConnect_SQLiteFile(t *testing.T) {
	cfg := &config.Config{DBDriver: "sqlite", SQLitePath: t.TempDir() + "/test.db"}

	db, err := database.Connect(cfg)
	require.NoError(t, err)
	defer database.Close(db)

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Ping(db))
}
