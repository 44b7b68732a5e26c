package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/xxxsen/tenantrag/internal/config"
	"github.com/xxxsen/tenantrag/internal/db"
)

// OpenTestDB connects to the postgres pointed at by TEST_DB_HOST and applies
// migrations. The test is skipped when the variable is unset.
func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     envOr("TEST_DB_USER", "tenantrag"),
		Password: envOr("TEST_DB_PASSWORD", "tenantrag_pass"),
		DBName:   envOr("TEST_DB_NAME", "tenantrag_test"),
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
