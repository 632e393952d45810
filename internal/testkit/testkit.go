// Package testkit holds fixtures shared by package tests: the sample catalog
// from db/ and an in-memory SQLite database with its schema.
package testkit

import (
	"context"
	_ "embed"
	"path/filepath"
	"testing"

	"github.com/IntelliTect/Coalesce-sub010/internal"
	"github.com/IntelliTect/Coalesce-sub010/internal/db"
	"github.com/IntelliTect/Coalesce-sub010/internal/model"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// Catalog loads the sample model files.
func Catalog(t testing.TB) *model.Catalog {
	t.Helper()
	root, err := internal.FindRepoRoot()
	if err != nil {
		t.Fatalf("find repo root: %v", err)
	}
	c, err := model.LoadCatalog(filepath.Join(root, "db"))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return c
}

// SQLite opens a fresh in-memory database with the sample schema.
func SQLite(t testing.TB) *db.Handle {
	t.Helper()
	ctx := context.Background()
	h, err := db.OpenSQLite(ctx, "")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })

	if err := h.ExecScript(ctx, sqliteSchema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return h
}

// Bind resolves a type name or fails the test.
func Bind(t testing.TB, c *model.Catalog, name string) model.Binding {
	t.Helper()
	b, err := c.Bind(name)
	if err != nil {
		t.Fatalf("bind %s: %v", name, err)
	}
	return b
}

// Count returns the number of rows in table.
func Count(t testing.TB, h *db.Handle, table string) int {
	t.Helper()
	var n int
	if err := h.DB.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
