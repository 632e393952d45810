package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Allowed keys per object kind
var allowedTypeKeys = map[string]bool{
	"kind":         true,
	"table":        true,
	"display_name": true,
	"entity":       true,
	"properties":   true,
	"security":     true,
	"description":  true,
}

var allowedPropertyKeys = map[string]bool{
	"name":            true,
	"json":            true,
	"column":          true,
	"type":            true,
	"role":            true,
	"principal":       true,
	"client_writable": true,
	"required":        true,
	"nullable":        true,
	"generated":       true,
}

var allowedSecurityKeys = map[string]bool{
	"read":   true,
	"create": true,
	"edit":   true,
	"delete": true,
}

var allowedPermissionKeys = map[string]bool{
	"roles":           true,
	"allow_anonymous": true,
	"deny_all":        true,
}

var allowedKindValues = map[string]bool{
	string(KindEntity): true,
	string(KindDto):    true,
}

var allowedPropertyTypeValues = map[string]bool{
	"int":      true,
	"string":   true,
	"bool":     true,
	"float":    true,
	"uuid":     true,
	"datetime": true,
	"date":     true,
}

var allowedRoleValues = map[string]bool{
	string(RoleValue):      true,
	string(RolePrimaryKey): true,
	string(RoleForeignKey): true,
}

func validateYAMLNode(node *yaml.Node, context string) error {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			if err := validateYAMLNode(child, "type"); err != nil {
				return err
			}
		}

	case yaml.MappingNode:
		var allowedKeys map[string]bool
		switch context {
		case "type":
			allowedKeys = allowedTypeKeys
		case "property":
			allowedKeys = allowedPropertyKeys
		case "security":
			allowedKeys = allowedSecurityKeys
		case "permission":
			allowedKeys = allowedPermissionKeys
		default:
			allowedKeys = nil // free form
		}

		for i := 0; i < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valNode := node.Content[i+1]
			key := keyNode.Value

			if allowedKeys != nil && !allowedKeys[key] {
				return fmt.Errorf("unknown key '%s' in %s (line %d)", key, context, keyNode.Line)
			}

			switch {
			case context == "type" && key == "kind" && !allowedKindValues[valNode.Value]:
				return fmt.Errorf("unknown kind '%s' (line %d)", valNode.Value, valNode.Line)
			case context == "property" && key == "type" && !allowedPropertyTypeValues[valNode.Value]:
				return fmt.Errorf("unknown type value '%s' in property (line %d)", valNode.Value, valNode.Line)
			case context == "property" && key == "role" && !allowedRoleValues[valNode.Value]:
				return fmt.Errorf("unknown role '%s' in property (line %d)", valNode.Value, valNode.Line)
			}

			nextContext := ""
			switch {
			case context == "type" && key == "properties":
				nextContext = "properties-seq"
			case context == "type" && key == "security":
				nextContext = "security"
			case context == "security":
				nextContext = "permission"
			case context == "property" || context == "permission":
				nextContext = "value"
			default:
				nextContext = context
			}

			if err := validateYAMLNode(valNode, nextContext); err != nil {
				return err
			}
		}

	case yaml.SequenceNode:
		if context == "properties-seq" {
			for _, item := range node.Content {
				if item.Kind != yaml.MappingNode {
					return fmt.Errorf("property entries must be mappings (line %d)", item.Line)
				}
				if err := validateYAMLNode(item, "property"); err != nil {
					return err
				}
			}
		} else {
			for _, item := range node.Content {
				if err := validateYAMLNode(item, context); err != nil {
					return err
				}
			}
		}

	case yaml.ScalarNode:
		// scalars are checked from their parent mapping
	}

	return nil
}
