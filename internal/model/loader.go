package model

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/IntelliTect/Coalesce-sub010/internal/logger"

	"gopkg.in/yaml.v3"
)

// LoadCatalog reads every *.yml file in dir and builds a linked, validated catalog.
// The file name (without extension) is the client type name.
func LoadCatalog(dir string) (*Catalog, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no model files found in %s", dir)
	}

	sources := make(map[string][]byte, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		sources[name] = data
	}
	return ParseCatalog(sources)
}

// ParseCatalog builds a catalog from in-memory model sources keyed by type name.
func ParseCatalog(sources map[string][]byte) (*Catalog, error) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	types := make([]*Type, 0, len(names))
	for _, name := range names {
		t, err := parseType(name, sources[name])
		if err != nil {
			return nil, err
		}
		types = append(types, t)
		logger.Debug("model_loaded", map[string]any{
			"type":       name,
			"properties": len(t.Properties),
		})
	}
	return NewCatalog(types...)
}

func parseType(name string, data []byte) (*Type, error) {
	// 1. structural validation on the node tree
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("YAML parse error in %s: %w", name, err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty YAML in %s", name)
	}
	if err := validateYAMLNode(root.Content[0], "type"); err != nil {
		return nil, fmt.Errorf("validation error in %s: %w", name, err)
	}

	// 2. decode into the type
	var t Type
	if err := root.Decode(&t); err != nil {
		return nil, fmt.Errorf("unmarshal error in %s: %w", name, err)
	}
	t.Name = name
	if t.Kind == "" {
		t.Kind = KindEntity
	}
	return &t, nil
}
