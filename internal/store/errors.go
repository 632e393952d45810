package store

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("record not found")

type ViolationKind string

const (
	ForeignKeyViolation ViolationKind = "foreign_key"
	UniqueViolation     ViolationKind = "unique"
	NotNullViolation    ViolationKind = "not_null"
)

// Violation describes a constraint the database rejected a statement for.
// Column and Table are best effort and may be empty.
type Violation struct {
	Kind   ViolationKind
	Table  string
	Column string
	// Referenced is set for foreign key violations raised by a delete of a
	// row that other rows still point at.
	Referenced bool
}

var (
	pgKeyDetailRe   = regexp.MustCompile(`Key \(([^)]+)\)=`)
	sqliteColumnRe  = regexp.MustCompile(`constraint failed: ([A-Za-z0-9_]+)\.([A-Za-z0-9_]+)`)
	retryableStates = map[string]bool{
		"40001": true, // serialization_failure
		"40P01": true, // deadlock_detected
		"55P03": true, // lock_not_available
	}
)

// AsViolation classifies err as a constraint violation.
func AsViolation(err error) (*Violation, bool) {
	if err == nil {
		return nil, false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		v := &Violation{Table: pgErr.TableName, Column: pgErr.ColumnName}
		switch pgErr.Code {
		case "23503":
			v.Kind = ForeignKeyViolation
			v.Referenced = strings.Contains(pgErr.Detail, "is still referenced")
		case "23505":
			v.Kind = UniqueViolation
		case "23502":
			v.Kind = NotNullViolation
		default:
			return nil, false
		}
		if v.Column == "" {
			if m := pgKeyDetailRe.FindStringSubmatch(pgErr.Detail); m != nil {
				v.Column = strings.TrimSpace(strings.Split(m[1], ",")[0])
			}
		}
		return v, true
	}

	// modernc.org/sqlite reports constraint failures only through the message
	msg := err.Error()
	var kind ViolationKind
	switch {
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		kind = ForeignKeyViolation
	case strings.Contains(msg, "UNIQUE constraint failed"):
		kind = UniqueViolation
	case strings.Contains(msg, "NOT NULL constraint failed"):
		kind = NotNullViolation
	default:
		return nil, false
	}
	v := &Violation{Kind: kind}
	if m := sqliteColumnRe.FindStringSubmatch(msg); m != nil {
		v.Table, v.Column = m[1], m[2]
	}
	return v, true
}

// IsRetryableError reports transient Postgres failures that a fresh
// transaction could get past.
func IsRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return retryableStates[pgErr.Code]
	}
	return false
}
