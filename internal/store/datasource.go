package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/IntelliTect/Coalesce-sub010/internal/db"
	"github.com/IntelliTect/Coalesce-sub010/internal/model"

	sq "github.com/Masterminds/squirrel"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DataSource reads and writes rows of one DTO's table. Records are keyed by
// the DTO's JSON property names; only the DTO's columns are touched.
type DataSource struct {
	dto    *model.Type
	format sq.PlaceholderFormat
}

func NewDataSource(dto *model.Type, dialect db.Dialect) *DataSource {
	return &DataSource{dto: dto, format: dialect.Placeholder()}
}

func (ds *DataSource) Type() *model.Type {
	return ds.dto
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (ds *DataSource) table() string {
	return quoteIdent(ds.dto.TableName())
}

func (ds *DataSource) pkColumn() string {
	return quoteIdent(ds.dto.PrimaryKey().Column)
}

func (ds *DataSource) columns() []string {
	cols := make([]string, 0, len(ds.dto.Properties))
	for _, p := range ds.dto.Properties {
		cols = append(cols, quoteIdent(p.Column))
	}
	return cols
}

// Get loads one row by primary key.
func (ds *DataSource) Get(ctx context.Context, q Querier, key any) (model.Record, error) {
	query, args, err := sq.Select(ds.columns()...).
		From(ds.table()).
		Where(sq.Eq{ds.pkColumn(): key}).
		PlaceholderFormat(ds.format).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s: %w", ds.dto.Name, err)
	}
	return ds.queryOne(ctx, q, query, args)
}

// Exists reports whether a row with the key is present.
func (ds *DataSource) Exists(ctx context.Context, q Querier, key any) (bool, error) {
	query, args, err := sq.Select("1").
		From(ds.table()).
		Where(sq.Eq{ds.pkColumn(): key}).
		Limit(1).
		PlaceholderFormat(ds.format).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists %s: %w", ds.dto.Name, err)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	found := rows.Next()
	return found, rows.Err()
}

// Insert writes the record and returns the stored row, including
// database-assigned values.
func (ds *DataSource) Insert(ctx context.Context, q Querier, rec model.Record) (model.Record, error) {
	var cols []string
	var vals []any
	for _, p := range ds.dto.Properties {
		if v, ok := rec[p.JSONName]; ok {
			cols = append(cols, quoteIdent(p.Column))
			vals = append(vals, v)
		}
	}
	returning := "RETURNING " + strings.Join(ds.columns(), ", ")

	if len(cols) == 0 {
		query := "INSERT INTO " + ds.table() + " DEFAULT VALUES " + returning
		return ds.queryOne(ctx, q, query, nil)
	}

	query, args, err := sq.Insert(ds.table()).
		Columns(cols...).
		Values(vals...).
		Suffix(returning).
		PlaceholderFormat(ds.format).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert %s: %w", ds.dto.Name, err)
	}
	return ds.queryOne(ctx, q, query, args)
}

// Update sets the columns present in rec on the row with the key and returns
// the stored row. ErrNotFound when no row matched.
func (ds *DataSource) Update(ctx context.Context, q Querier, key any, rec model.Record) (model.Record, error) {
	set := map[string]any{}
	pk := ds.dto.PrimaryKey()
	for _, p := range ds.dto.Properties {
		if p == pk {
			continue
		}
		if v, ok := rec[p.JSONName]; ok {
			set[quoteIdent(p.Column)] = v
		}
	}
	if len(set) == 0 {
		return ds.Get(ctx, q, key)
	}

	query, args, err := sq.Update(ds.table()).
		SetMap(set).
		Where(sq.Eq{ds.pkColumn(): key}).
		Suffix("RETURNING " + strings.Join(ds.columns(), ", ")).
		PlaceholderFormat(ds.format).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update %s: %w", ds.dto.Name, err)
	}
	return ds.queryOne(ctx, q, query, args)
}

// Delete removes the row with the key. It reports whether a row was removed.
func (ds *DataSource) Delete(ctx context.Context, q Querier, key any) (bool, error) {
	query, args, err := sq.Delete(ds.table()).
		Where(sq.Eq{ds.pkColumn(): key}).
		PlaceholderFormat(ds.format).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete %s: %w", ds.dto.Name, err)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (ds *DataSource) queryOne(ctx context.Context, q Querier, query string, args []any) (model.Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	rec, err := ds.scan(rows)
	if err != nil {
		return nil, err
	}
	// drain so that errors raised after the first row surface here
	for rows.Next() {
	}
	return rec, rows.Err()
}

func (ds *DataSource) scan(rows *sql.Rows) (model.Record, error) {
	props := ds.dto.Properties
	raw := make([]any, len(props))
	dest := make([]any, len(props))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan %s: %w", ds.dto.Name, err)
	}

	rec := make(model.Record, len(props))
	for i, p := range props {
		v, err := p.Coerce(raw[i])
		if err != nil {
			return nil, fmt.Errorf("scan %s.%s: %w", ds.dto.Name, p.JSONName, err)
		}
		rec[p.JSONName] = v
	}
	return rec, nil
}
