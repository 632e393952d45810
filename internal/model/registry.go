package model

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownType = errors.New("unknown type")
	ErrUnkeyed     = errors.New("type has no primary key")
)

// Catalog is the read-only mapping from client type name to type description.
// It is built once at startup and shared by every request.
type Catalog struct {
	types   map[string]*Type
	ordered []*Type
}

// NewCatalog indexes, links, and validates the given types.
func NewCatalog(types ...*Type) (*Catalog, error) {
	c := &Catalog{
		types:   make(map[string]*Type, len(types)),
		ordered: make([]*Type, 0, len(types)),
	}
	for _, t := range types {
		if t.Name == "" {
			return nil, errors.New("type without a name")
		}
		if _, dup := c.types[t.Name]; dup {
			return nil, fmt.Errorf("duplicate type %q", t.Name)
		}
		c.types[t.Name] = t
		c.ordered = append(c.ordered, t)
	}
	if err := c.link(); err != nil {
		return nil, fmt.Errorf("link error: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	return c, nil
}

// Lookup finds an entity or custom DTO by its client type name (exact match).
func (c *Catalog) Lookup(name string) (*Type, bool) {
	t, ok := c.types[name]
	return t, ok
}

// Types returns the catalog's types in load order.
func (c *Catalog) Types() []*Type {
	out := make([]*Type, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Binding pairs the entity a request item persists to with the DTO its data is shaped as.
type Binding struct {
	Entity *Type
	Dto    *Type
}

// DeclaredFor is the type whose security and behaviors apply: the entity for
// generated DTOs, the DTO itself for custom DTOs.
func (b Binding) DeclaredFor() *Type {
	if b.Dto == nil || b.Dto.IsGeneratedDto() {
		return b.Entity
	}
	return b.Dto
}

// Bind resolves a client type name to its (entity, DTO) pair.
func (c *Catalog) Bind(name string) (Binding, error) {
	t, ok := c.types[name]
	if !ok {
		return Binding{}, fmt.Errorf("%w '%s'", ErrUnknownType, name)
	}
	var b Binding
	if t.IsDto() {
		b = Binding{Entity: t.EntityType(), Dto: t}
	} else {
		b = Binding{Entity: t, Dto: t.GeneratedDto()}
	}
	if b.Dto == nil {
		return Binding{}, fmt.Errorf("cannot construct '%s%s'", t.Name, GeneratedDtoSuffix)
	}
	if b.Dto.PrimaryKey() == nil {
		return Binding{}, fmt.Errorf("%w: '%s'", ErrUnkeyed, name)
	}
	return b, nil
}
