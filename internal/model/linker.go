package model

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// link fills defaults and resolves cross-type references. Entities are linked
// before DTOs so that DTOs can check their columns against the entity.
func (c *Catalog) link() error {
	for _, t := range c.ordered {
		if err := linkProperties(t); err != nil {
			return err
		}
	}

	for _, t := range c.ordered {
		switch t.Kind {
		case KindEntity:
			if t.Entity != "" {
				return fmt.Errorf("entity '%s' must not declare 'entity'", t.Name)
			}
			if !identRe.MatchString(t.Table) {
				return fmt.Errorf("entity '%s' must have a valid table name, got %q", t.Name, t.Table)
			}
		case KindDto:
			target, ok := c.types[t.Entity]
			if !ok {
				return fmt.Errorf("dto '%s': entity '%s' not found", t.Name, t.Entity)
			}
			if target.Kind != KindEntity {
				return fmt.Errorf("dto '%s': '%s' is not an entity", t.Name, t.Entity)
			}
			t.entityRef = target
			if t.Table == "" {
				t.Table = target.Table
			}
		}

		// foreign keys must point at a keyed type in the catalog
		for _, p := range t.Properties {
			if !p.IsForeignKey() {
				continue
			}
			principal, ok := c.types[p.Principal]
			if !ok {
				return fmt.Errorf("invalid foreign key: type '%s' not found in '%s.%s'", p.Principal, t.Name, p.Name)
			}
			if principal.primaryKey == nil {
				return fmt.Errorf("invalid foreign key: '%s' has no primary key ('%s.%s')", p.Principal, t.Name, p.Name)
			}
			p.principalRef = principal
		}
	}

	for _, t := range c.ordered {
		if t.Kind == KindDto {
			if err := checkDtoColumns(t); err != nil {
				return err
			}
			continue
		}
		t.generatedDto = synthesizeDto(t)
	}
	return nil
}

func linkProperties(t *Type) error {
	t.byName = make(map[string]*Property, len(t.Properties)*2)
	t.primaryKey = nil
	for _, p := range t.Properties {
		if p == nil || p.Name == "" {
			return fmt.Errorf("type '%s' has a property without a name", t.Name)
		}
		if p.JSONName == "" {
			p.JSONName = toCamelCase(p.Name)
		}
		if p.Column == "" {
			p.Column = toSnakeCase(p.Name)
		}
		if p.Role == "" {
			p.Role = RoleValue
		}
		if p.Type == "" {
			p.Type = "string"
		}
		if !identRe.MatchString(p.Column) {
			return fmt.Errorf("property '%s.%s' has an invalid column name %q", t.Name, p.Name, p.Column)
		}
		if p.IsForeignKey() && p.Principal == "" {
			return fmt.Errorf("foreign key '%s.%s' must declare 'principal'", t.Name, p.Name)
		}
		if !p.IsForeignKey() && p.Principal != "" {
			return fmt.Errorf("property '%s.%s' declares 'principal' but is not a foreign key", t.Name, p.Name)
		}
		if p.IsPrimaryKey() {
			if t.primaryKey != nil {
				return fmt.Errorf("type '%s' declares more than one primary key ('%s', '%s')", t.Name, t.primaryKey.Name, p.Name)
			}
			t.primaryKey = p
		}
		for _, name := range []string{p.Name, p.JSONName} {
			key := strings.ToLower(name)
			if other, dup := t.byName[key]; dup && other != p {
				return fmt.Errorf("type '%s': property name %q is used twice", t.Name, name)
			}
			t.byName[key] = p
		}
	}
	return nil
}

func checkDtoColumns(dto *Type) error {
	entity := dto.entityRef
	columns := make(map[string]bool, len(entity.Properties))
	for _, p := range entity.Properties {
		columns[p.Column] = true
	}
	for _, p := range dto.Properties {
		if !columns[p.Column] {
			return fmt.Errorf("dto '%s.%s' maps to column '%s' which '%s' does not have", dto.Name, p.Name, p.Column, entity.Name)
		}
	}
	return nil
}

// synthesizeDto builds the conventional generated DTO for an entity.
func synthesizeDto(entity *Type) *Type {
	dto := &Type{
		Name:         entity.Name + GeneratedDtoSuffix,
		Kind:         KindDto,
		Table:        entity.Table,
		Entity:       entity.Name,
		Display:      entity.Display,
		entityRef:    entity,
		generatedFor: entity,
	}
	for _, p := range entity.Properties {
		cp := *p
		dto.Properties = append(dto.Properties, &cp)
	}
	// cannot fail: the entity's properties already linked
	_ = linkProperties(dto)
	return dto
}

func toSnakeCase(s string) string {
	var result []rune
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
			result = append(result, '_')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// toCamelCase lowers the leading run of capitals: "CaseKey" -> "caseKey", "ID" -> "id", "URLPath" -> "urlPath".
func toCamelCase(s string) string {
	runes := []rune(s)
	for i := range runes {
		if !unicode.IsUpper(runes[i]) {
			break
		}
		if i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			break
		}
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}
