// Package definition loads table catalogs from YAML, validates them against
// the catalog schema and keeps the active set in a lock-free registry.
package definition

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pitabwire/tabula/model"
)

// Loader reads catalog files. Each file holds the tables of one domain.
type Loader struct{}

// NewLoader creates a new catalog Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadAll walks every directory for *.yaml and *.yml files and parses each
// into a CatalogDefinition.
func (l *Loader) LoadAll(directories []string) ([]model.CatalogDefinition, error) {
	var defs []model.CatalogDefinition

	for _, dir := range directories {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isYAML(path) {
				return nil
			}
			def, err := l.LoadFile(path)
			if err != nil {
				return err
			}
			defs = append(defs, def)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning catalog directory %s: %w", dir, err)
		}
	}

	return defs, nil
}

// LoadFile parses one catalog file, rejecting unknown keys, and records its
// SHA-256 checksum and path.
func (l *Loader) LoadFile(path string) (model.CatalogDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.CatalogDefinition{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var def model.CatalogDefinition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil && !errors.Is(err, io.EOF) {
		return model.CatalogDefinition{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	def.Checksum = fmt.Sprintf("%x", sha256.Sum256(data))
	def.SourceFile = path
	return def, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
