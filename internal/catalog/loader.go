package catalog

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

func Default() (*Catalog, error) {
	return ParseYAML(defaultYAML)
}

func ParseYAML(raw []byte) (*Catalog, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("catalog yaml: %w", err)
	}
	return New(doc.ModuleTypes, doc.Shapes, doc.Sprites)
}

// LoadYAML reads the catalog from path, or the embedded default when path is empty.
func LoadYAML(path string) (*Catalog, error) {
	logger := slog.With("component", "catalog", "operation", "load_yaml", "path", path)

	if path == "" {
		logger.Debug("No catalog path configured, using embedded default")
		return Default()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Error("Failed to read catalog file", "error", err)
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	c, err := ParseYAML(raw)
	if err != nil {
		logger.Error("Failed to parse catalog file", "error", err)
		return nil, err
	}

	logger.Info("Catalog loaded", "module_types", len(c.types), "shapes", len(c.shapes))
	return c, nil
}
