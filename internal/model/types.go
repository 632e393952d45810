package model

import "strings"

// Kind tells entities (table-mapped types) apart from custom DTOs.
type Kind string

const (
	KindEntity Kind = "entity"
	KindDto    Kind = "dto"
)

// PropertyRole is the part a property plays in relationships.
type PropertyRole string

const (
	RoleValue      PropertyRole = "value"
	RolePrimaryKey PropertyRole = "primary_key"
	RoleForeignKey PropertyRole = "foreign_key"
)

// GeneratedDtoSuffix names the DTO synthesized for every entity.
const GeneratedDtoSuffix = "DtoGen"

// Type describes one CRUD-capable class in the catalog.
type Type struct {
	Name        string       `yaml:"-"` // client type name, from the file name
	Kind        Kind         `yaml:"kind"`
	Table       string       `yaml:"table"`
	Display     string       `yaml:"display_name"`
	Entity      string       `yaml:"entity"` // dto only: the entity it persists to
	Properties  []*Property  `yaml:"properties"`
	Security    SecurityInfo `yaml:"security"`
	Description string       `yaml:"description"`

	// runtime links, set by the linker
	entityRef    *Type
	generatedDto *Type
	generatedFor *Type
	primaryKey   *Property
	byName       map[string]*Property
}

// Property describes one member of a Type.
type Property struct {
	Name           string       `yaml:"name"`
	JSONName       string       `yaml:"json"`
	Column         string       `yaml:"column"`
	Type           string       `yaml:"type"` // int, string, bool, float, uuid, datetime, date
	Role           PropertyRole `yaml:"role"`
	Principal      string       `yaml:"principal"` // foreign keys: the referenced type
	ClientWritable *bool        `yaml:"client_writable"`
	Required       bool         `yaml:"required"`
	Nullable       bool         `yaml:"nullable"`
	Generated      bool         `yaml:"generated"` // primary keys: assigned by the database

	principalRef *Type
}

// SecurityInfo holds the declared permission for each action.
// A nil entry means "not declared" and falls back to requiring an authenticated user.
type SecurityInfo struct {
	Read   *Permission `yaml:"read"`
	Create *Permission `yaml:"create"`
	Edit   *Permission `yaml:"edit"`
	Delete *Permission `yaml:"delete"`
}

type Permission struct {
	Roles          []string `yaml:"roles"`
	AllowAnonymous bool     `yaml:"allow_anonymous"`
	DenyAll        bool     `yaml:"deny_all"`
}

func (p *Permission) HasRoles() bool {
	return p != nil && len(p.Roles) > 0
}

// AllowAnonymousAny reports whether any action is open to anonymous users.
func (s SecurityInfo) AllowAnonymousAny() bool {
	for _, p := range []*Permission{s.Read, s.Create, s.Edit, s.Delete} {
		if p != nil && p.AllowAnonymous {
			return true
		}
	}
	return false
}

// DisplayName returns the configured display name or the type name split into words.
func (t *Type) DisplayName() string {
	if t.Display != "" {
		return t.Display
	}
	return splitWords(t.Name)
}

func (t *Type) IsDto() bool {
	return t.Kind == KindDto
}

// IsGeneratedDto reports whether t was synthesized for an entity.
func (t *Type) IsGeneratedDto() bool {
	return t.generatedFor != nil
}

// EntityType returns the entity t persists to (itself for entities).
func (t *Type) EntityType() *Type {
	if t.generatedFor != nil {
		return t.generatedFor
	}
	if t.entityRef != nil {
		return t.entityRef
	}
	return t
}

// GeneratedDto returns the DTO synthesized for an entity.
func (t *Type) GeneratedDto() *Type {
	return t.generatedDto
}

// TableName is the table rows of t live in.
func (t *Type) TableName() string {
	if t.Table != "" {
		return t.Table
	}
	return t.EntityType().Table
}

func (t *Type) PrimaryKey() *Property {
	return t.primaryKey
}

// PropertyByName matches either the property name or its JSON name,
// ignoring case.
func (t *Type) PropertyByName(name string) *Property {
	if t == nil {
		return nil
	}
	if t.byName != nil {
		return t.byName[strings.ToLower(name)]
	}
	for _, p := range t.Properties {
		if strings.EqualFold(p.Name, name) || strings.EqualFold(p.JSONName, name) {
			return p
		}
	}
	return nil
}

func (p *Property) IsForeignKey() bool {
	return p.Role == RoleForeignKey
}

func (p *Property) IsPrimaryKey() bool {
	return p.Role == RolePrimaryKey
}

// IsClientWritable defaults to true except for database-generated keys.
func (p *Property) IsClientWritable() bool {
	if p.ClientWritable != nil {
		return *p.ClientWritable
	}
	return !(p.IsPrimaryKey() && p.Generated)
}

// PrincipalType returns the type a foreign key points at.
func (p *Property) PrincipalType() *Type {
	return p.principalRef
}

// DisplayName returns the property name split into words.
func (p *Property) DisplayName() string {
	return splitWords(p.Name)
}

func splitWords(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if (prev >= 'a' && prev <= 'z') || (prev >= '0' && prev <= '9') || (prev >= 'A' && prev <= 'Z' && nextLower) {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
