package database

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/trogers1052/trade-journal/internal/models"
	"github.com/trogers1052/trade-journal/internal/storage"
)

// TestDB wraps a test database connection with cleanup
type TestDB struct {
	*DB
	container testcontainers.Container
}

// journalTables lists every table in dependency order
var journalTables = []string{"trades", "strategies", "events", "premarkets", "users"}

// SetupTestDB creates a new PostgreSQL container and returns a connected DB
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := New(connStr)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	testDB := &TestDB{DB: db, container: pgContainer}
	if err := testDB.MigrateUp(); err != nil {
		testDB.Cleanup(t)
		t.Fatalf("failed to run migrations: %v", err)
	}

	return testDB
}

// Cleanup closes the database connection and terminates the container
func (tdb *TestDB) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if tdb.DB != nil {
		tdb.DB.Close()
	}

	if tdb.container != nil {
		if err := tdb.container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	}
}

// TruncateAll empties every journal table for test isolation
func (tdb *TestDB) TruncateAll(t *testing.T) {
	t.Helper()

	stmt := "TRUNCATE TABLE " + strings.Join(journalTables, ", ") + " CASCADE"
	if _, err := tdb.conn.Exec(stmt); err != nil {
		t.Fatalf("failed to truncate journal tables: %v", err)
	}
}

// GetRawConn returns the underlying sql.DB for catalog queries
func (tdb *TestDB) GetRawConn() *sql.DB {
	return tdb.conn
}

// CreateTestStrategy inserts a strategy through a transaction
func (tdb *TestDB) CreateTestStrategy(t *testing.T, name string, entryRules, exitRules []string) *models.Strategy {
	t.Helper()

	s := &models.Strategy{Name: name, EntryRules: entryRules, ExitRules: exitRules}
	err := tdb.InTx(context.Background(), func(tx storage.JournalTx) error {
		return tx.CreateStrategy(context.Background(), s)
	})
	if err != nil {
		t.Fatalf("failed to create strategy: %v", err)
	}
	return s
}
