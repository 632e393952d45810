package crud

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/IntelliTect/Coalesce-sub010/internal/db"
	"github.com/IntelliTect/Coalesce-sub010/internal/model"
	"github.com/IntelliTect/Coalesce-sub010/internal/store"
)

type SaveKind int

const (
	Create SaveKind = iota
	Update
)

func (k SaveKind) String() string {
	if k == Update {
		return "update"
	}
	return "create"
}

// Behaviors perform the mutations and reads for one (entity, DTO) pair.
// Business failures come back as failed results; errors are infrastructure
// problems.
type Behaviors interface {
	// DetermineSaveKind classifies data as a create or an update. It may
	// query the database.
	DetermineSaveKind(ctx context.Context, q store.Querier, data model.Record) (SaveKind, error)
	Save(ctx context.Context, q store.Querier, data model.Record, params Parameters) (ItemResult, error)
	Delete(ctx context.Context, q store.Querier, key any, params Parameters) (ItemResult, error)
	Get(ctx context.Context, q store.Querier, key any, params Parameters) (ItemResult, error)
}

// Constructor builds behaviors for a binding over its data source.
type Constructor func(b model.Binding, source *store.DataSource, dialect db.Dialect) Behaviors

var ErrUnknownDataSource = errors.New("data source not found")

// Factory hands out behaviors by declared-for type. Types without a
// registered constructor get StandardBehaviors.
type Factory struct {
	dialect db.Dialect

	mu     sync.RWMutex
	custom map[string]Constructor
}

func NewFactory(dialect db.Dialect) *Factory {
	return &Factory{dialect: dialect, custom: map[string]Constructor{}}
}

func (f *Factory) Dialect() db.Dialect {
	return f.dialect
}

// Register overrides the behaviors of the type with the given name.
func (f *Factory) Register(typeName string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.custom[typeName] = ctor
}

// For returns the behaviors for b under the requested data source.
func (f *Factory) For(b model.Binding, params Parameters) (Behaviors, error) {
	if name := params.dataSourceName(); name != DefaultDataSource {
		return nil, fmt.Errorf("%w: '%s' for %s", ErrUnknownDataSource, name, b.DeclaredFor().Name)
	}
	source := store.NewDataSource(b.Dto, f.dialect)

	f.mu.RLock()
	ctor, ok := f.custom[b.DeclaredFor().Name]
	f.mu.RUnlock()
	if ok {
		return ctor(b, source, f.dialect), nil
	}
	return NewStandardBehaviors(b, source, f.dialect), nil
}
