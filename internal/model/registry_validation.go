package model

import (
	"fmt"
	"sort"
	"strings"
)

// validate runs the checks that need a fully linked catalog.
func (c *Catalog) validate() error {
	for _, t := range c.ordered {
		pk := t.PrimaryKey()
		if pk == nil {
			continue
		}
		if pk.Nullable {
			return fmt.Errorf("primary key '%s.%s' cannot be nullable", t.Name, pk.Name)
		}
		if pk.Generated && pk.ClientWritable != nil && *pk.ClientWritable {
			return fmt.Errorf("generated primary key '%s.%s' cannot be client writable", t.Name, pk.Name)
		}
		for _, p := range t.Properties {
			if p.IsForeignKey() && p.PrincipalType() != nil && p.Type != p.PrincipalType().PrimaryKey().Type {
				return fmt.Errorf(
					"foreign key '%s.%s' has type %q but '%s' is keyed by %q",
					t.Name, p.Name, p.Type, p.Principal, p.PrincipalType().PrimaryKey().Type,
				)
			}
		}
	}
	return nil
}

// RequiredReferenceCycles lists cycles formed only by non-nullable foreign keys.
// Rows on such a cycle can never all be created in one bulk save: every item
// waits on another item's key.
func (c *Catalog) RequiredReferenceCycles() []string {
	seen := map[string]bool{}
	var cycles []string
	for _, t := range c.ordered {
		if t.Kind != KindEntity {
			continue
		}
		dfsRequiredRefs(t, []string{t.Name}, map[string]bool{t.Name: true}, seen, &cycles)
	}
	sort.Strings(cycles)
	return cycles
}

// dfsRequiredRefs walks required FKs from t. A cycle is reported once, keyed
// by its rotation that starts at the smallest type name.
func dfsRequiredRefs(t *Type, path []string, onPath map[string]bool, seen map[string]bool, out *[]string) {
	for _, p := range t.Properties {
		if !p.IsForeignKey() || p.Nullable {
			continue
		}
		next := p.PrincipalType().EntityType()
		if onPath[next.Name] {
			start := indexOf(path, next.Name)
			cycle := canonicalCycle(path[start:])
			if !seen[cycle] {
				seen[cycle] = true
				*out = append(*out, cycle)
			}
			continue
		}
		newPath := append(path[:len(path):len(path)], next.Name)
		onPath[next.Name] = true
		dfsRequiredRefs(next, newPath, onPath, seen, out)
		delete(onPath, next.Name)
	}
}

func canonicalCycle(nodes []string) string {
	min := 0
	for i := range nodes {
		if nodes[i] < nodes[min] {
			min = i
		}
	}
	rotated := append(append([]string{}, nodes[min:]...), nodes[:min]...)
	rotated = append(rotated, rotated[0])
	return strings.Join(rotated, " → ")
}

func indexOf(xs []string, s string) int {
	for i, x := range xs {
		if x == s {
			return i
		}
	}
	return -1
}
