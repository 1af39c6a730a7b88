// Package repotest connects repository integration tests to a migrated Postgres database.
package repotest

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/thistle/pkg/database"
)

func GetTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetTestDB skips in -short mode or when no database is reachable, and migrates otherwise.
func GetTestDB(t *testing.T) database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	port, _ := strconv.Atoi(getenv("DB_PORT", "5432"))
	cfg := database.Config{
		Host:     getenv("DB_HOST", "localhost"),
		Port:     port,
		User:     getenv("DB_USER_NAME", "user"),
		Password: getenv("DB_PASSWORD", "password"),
		Name:     getenv("DB_NAME", "thistle"),
		SSLMode:  "disable",
	}

	logger := GetTestLogger()
	db, err := database.Connect(context.Background(), cfg, logger)
	if err != nil {
		t.Skipf("Skipping integration test, database unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: getenv("DB_MIGRATION_FOLDER_PATH", "../../../db/pg"),
	})
	require.NoError(t, migrations.Migrate(db.DBx().DB, cfg.Name), "Failed to migrate test database")

	return db
}
