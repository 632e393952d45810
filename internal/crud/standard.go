package crud

import (
	"context"
	"errors"
	"fmt"

	"github.com/IntelliTect/Coalesce-sub010/internal/db"
	"github.com/IntelliTect/Coalesce-sub010/internal/logger"
	"github.com/IntelliTect/Coalesce-sub010/internal/model"
	"github.com/IntelliTect/Coalesce-sub010/internal/store"
)

// StandardBehaviors persist DTO data straight to the entity's table.
type StandardBehaviors struct {
	binding model.Binding
	source  *store.DataSource
	dialect db.Dialect
}

func NewStandardBehaviors(b model.Binding, source *store.DataSource, dialect db.Dialect) *StandardBehaviors {
	return &StandardBehaviors{binding: b, source: source, dialect: dialect}
}

func (s *StandardBehaviors) displayName() string {
	return s.binding.DeclaredFor().DisplayName()
}

// DetermineSaveKind: an empty key is a create. A non-empty key is an update
// when the database generates keys; otherwise the row's existence decides.
func (s *StandardBehaviors) DetermineSaveKind(ctx context.Context, q store.Querier, data model.Record) (SaveKind, error) {
	pk := s.binding.Dto.PrimaryKey()
	key := data[pk.JSONName]
	if model.IsEmptyKey(key) {
		return Create, nil
	}
	if pk.Generated {
		return Update, nil
	}
	exists, err := s.source.Exists(ctx, q, key)
	if err != nil {
		return Create, fmt.Errorf("determine save kind for %s: %w", s.binding.Dto.Name, err)
	}
	if exists {
		return Update, nil
	}
	return Create, nil
}

func (s *StandardBehaviors) Save(ctx context.Context, q store.Querier, data model.Record, params Parameters) (ItemResult, error) {
	kind, err := s.DetermineSaveKind(ctx, q, data)
	if err != nil {
		return ItemResult{}, err
	}

	if issues := s.validate(data, kind); len(issues) > 0 {
		return FromIssues(issues), nil
	}

	pk := s.binding.Dto.PrimaryKey()
	rec := s.writable(data, kind)

	var saved model.Record
	switch kind {
	case Create:
		saved, err = s.source.Insert(ctx, q, rec)
	case Update:
		key := data[pk.JSONName]
		saved, err = s.source.Update(ctx, q, key, rec)
		if errors.Is(err, store.ErrNotFound) {
			return s.notFound(key), nil
		}
	}
	if err != nil {
		if res, ok := s.violationResult(ctx, q, err, rec, false); ok {
			return res, nil
		}
		return ItemResult{}, fmt.Errorf("%s %s: %w", kind, s.binding.Dto.Name, err)
	}

	logger.Debug("item_saved", logger.Fields(ctx, map[string]any{
		"type": s.binding.Dto.Name,
		"kind": kind.String(),
		"key":  saved[pk.JSONName],
	}))
	return Success(saved), nil
}

func (s *StandardBehaviors) Delete(ctx context.Context, q store.Querier, key any, params Parameters) (ItemResult, error) {
	removed, err := s.source.Delete(ctx, q, key)
	if err != nil {
		if res, ok := s.violationResult(ctx, q, err, nil, true); ok {
			return res, nil
		}
		return ItemResult{}, fmt.Errorf("delete %s: %w", s.binding.Dto.Name, err)
	}
	if !removed {
		return s.notFound(key), nil
	}
	return Success(nil), nil
}

func (s *StandardBehaviors) Get(ctx context.Context, q store.Querier, key any, params Parameters) (ItemResult, error) {
	rec, err := s.source.Get(ctx, q, key)
	if errors.Is(err, store.ErrNotFound) {
		return s.notFound(key), nil
	}
	if err != nil {
		return ItemResult{}, fmt.Errorf("get %s: %w", s.binding.Dto.Name, err)
	}
	return Success(rec), nil
}

func (s *StandardBehaviors) notFound(key any) ItemResult {
	return Failure(fmt.Sprintf("%s item with ID %v was not found.", s.displayName(), key))
}

// validate checks required properties: all of them on create, only the
// supplied ones on update.
func (s *StandardBehaviors) validate(data model.Record, kind SaveKind) []ValidationIssue {
	var issues []ValidationIssue
	for _, p := range s.binding.Dto.Properties {
		if !p.Required || !p.IsClientWritable() {
			continue
		}
		v, supplied := data[p.JSONName]
		if kind == Update && !supplied {
			continue
		}
		if v == nil || v == "" {
			issues = append(issues, ValidationIssue{
				Property: p.JSONName,
				Issue:    fmt.Sprintf("The %s field is required.", p.DisplayName()),
			})
		}
	}
	return issues
}

// writable keeps the supplied values the client may set. The key of a row
// being created is kept when the client assigns keys.
func (s *StandardBehaviors) writable(data model.Record, kind SaveKind) model.Record {
	pk := s.binding.Dto.PrimaryKey()
	rec := model.Record{}
	for _, p := range s.binding.Dto.Properties {
		v, ok := data[p.JSONName]
		if !ok {
			continue
		}
		if p == pk {
			if kind == Create && !pk.Generated && !model.IsEmptyKey(v) {
				rec[p.JSONName] = v
			}
			continue
		}
		if p.IsClientWritable() {
			rec[p.JSONName] = v
		}
	}
	return rec
}

// violationResult turns a constraint violation into a failed result.
func (s *StandardBehaviors) violationResult(ctx context.Context, q store.Querier, err error, rec model.Record, deleting bool) (ItemResult, bool) {
	v, ok := store.AsViolation(err)
	if !ok {
		return ItemResult{}, false
	}
	dto := s.binding.Dto
	prop := s.propertyByColumn(v.Column)

	switch v.Kind {
	case store.ForeignKeyViolation:
		if deleting || v.Referenced {
			return Failure(fmt.Sprintf("The %s is still referenced by at least one other item.", s.displayName())), true
		}
		if prop == nil || !prop.IsForeignKey() {
			prop = s.findDanglingReference(ctx, q, rec)
		}
		if prop != nil {
			msg := fmt.Sprintf("The value of %s is not valid.", prop.PrincipalType().DisplayName())
			return ItemResult{Message: msg, ValidationIssues: []ValidationIssue{{Property: prop.JSONName, Issue: msg}}}, true
		}
		return Failure("One of the referenced items does not exist."), true

	case store.UniqueViolation:
		if prop != nil {
			msg := fmt.Sprintf("A %s with the same %s already exists.", s.displayName(), prop.DisplayName())
			return ItemResult{Message: msg, ValidationIssues: []ValidationIssue{{Property: prop.JSONName, Issue: msg}}}, true
		}
		return Failure(fmt.Sprintf("A %s with the same values already exists.", s.displayName())), true

	case store.NotNullViolation:
		if prop != nil {
			return FromIssues([]ValidationIssue{{
				Property: prop.JSONName,
				Issue:    fmt.Sprintf("The %s field is required.", prop.DisplayName()),
			}}), true
		}
		return Failure(fmt.Sprintf("A required value of %s is missing.", dto.DisplayName())), true
	}
	return ItemResult{}, false
}

func (s *StandardBehaviors) propertyByColumn(column string) *model.Property {
	if column == "" {
		return nil
	}
	for _, p := range s.binding.Dto.Properties {
		if p.Column == column {
			return p
		}
	}
	return nil
}

// findDanglingReference probes the supplied foreign keys when the driver does
// not name the violated column. Only SQLite gets here: a failed Postgres
// statement aborts the transaction, but Postgres always names the column.
func (s *StandardBehaviors) findDanglingReference(ctx context.Context, q store.Querier, rec model.Record) *model.Property {
	if s.dialect != db.SQLite {
		return nil
	}
	for _, p := range s.binding.Dto.Properties {
		v, ok := rec[p.JSONName]
		if !p.IsForeignKey() || !ok || v == nil {
			continue
		}
		exists, err := store.NewDataSource(p.PrincipalType(), s.dialect).Exists(ctx, q, v)
		if err == nil && !exists {
			return p
		}
	}
	return nil
}
