//go:build integration

package itests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/IntelliTect/Coalesce-sub010/internal"
	"github.com/IntelliTect/Coalesce-sub010/internal/db"
	"github.com/IntelliTect/Coalesce-sub010/internal/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const testDatabaseName = "coalesce_bulk_save_test"

// testDatabase is a throwaway Postgres database next to the one POSTGRES_DSN
// points at. admin connects to the maintenance database "postgres".
type testDatabase struct {
	name  string
	dsn   string
	admin string
	base  string
}

// newTestDatabase derives the test and admin DSNs. Only URL DSNs on a local
// host are accepted.
func newTestDatabase(baseDSN string) (*testDatabase, error) {
	if os.Getenv("APP_ENV") == "production" {
		return nil, errors.New("APP_ENV=production, refusing to create a test database")
	}
	u, err := url.Parse(baseDSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, errors.New("only URL DSN supported: postgres://...")
	}
	if host := u.Hostname(); host != "localhost" && host != "127.0.0.1" {
		return nil, fmt.Errorf("refuse non-local host for tests: %s", host)
	}

	td := &testDatabase{name: testDatabaseName, base: redactDSN(baseDSN)}
	u.Path = "/" + td.name
	td.dsn = u.String()
	u.Path = "/postgres"
	td.admin = u.String()
	return td, nil
}

// withAdmin runs fn on a short-lived connection to the maintenance database.
func (td *testDatabase) withAdmin(timeout time.Duration, fn func(ctx context.Context, conn *sql.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, err := sql.Open("pgx", td.admin)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, conn)
}

// create makes the database from scratch; leftovers of an aborted run are
// dropped first so migrations always start from version zero.
func (td *testDatabase) create() error {
	if err := td.drop(); err != nil {
		return err
	}
	return td.withAdmin(10*time.Second, func(ctx context.Context, conn *sql.DB) error {
		_, err := conn.ExecContext(ctx, `CREATE DATABASE `+quoteIdent(td.name))
		return err
	})
}

func (td *testDatabase) drop() error {
	return td.withAdmin(15*time.Second, func(ctx context.Context, conn *sql.DB) error {
		// открытые соединения мешают DROP DATABASE
		_, _ = conn.ExecContext(ctx, `
			SELECT pg_terminate_backend(pid)
			FROM pg_stat_activity
			WHERE datname = $1 AND pid <> pg_backend_pid()
		`, td.name)
		_, err := conn.ExecContext(ctx, `DROP DATABASE IF EXISTS `+quoteIdent(td.name))
		return err
	})
}

func (td *testDatabase) migrate() error {
	root, err := internal.FindRepoRoot()
	if err != nil {
		return fmt.Errorf("repo root not found: %w", err)
	}
	return db.MigrateUp(td.dsn, filepath.Join(root, "migrations"))
}

// setupTestDatabase creates and migrates the test database, then hands its
// DSN to open. The returned func drops it again.
func setupTestDatabase(baseDSN string, open func(dsn string) error) (func() error, error) {
	td, err := newTestDatabase(baseDSN)
	if err != nil {
		return nil, err
	}
	if err := td.create(); err != nil {
		return nil, fmt.Errorf("create DB %q: %w (POSTGRES_DSN -> %s). Ensure Postgres is running or set POSTGRES_DSN", td.name, err, td.base)
	}
	logger.Info("test_db_created", map[string]any{"database": td.name})

	if err := td.migrate(); err != nil {
		_ = td.drop()
		return nil, fmt.Errorf("migrate %q: %w", td.name, err)
	}
	logger.Info("test_db_migrated", map[string]any{"database": td.name})

	if open != nil {
		if err := open(td.dsn); err != nil {
			_ = td.drop()
			return nil, fmt.Errorf("open test DB failed: %w (POSTGRES_DSN -> %s)", err, td.base)
		}
	}
	return td.drop, nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil || u.User.Username() == "" {
		return dsn
	}
	u.User = url.UserPassword(u.User.Username(), "******")
	return u.String()
}
