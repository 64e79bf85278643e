package graph

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AaronLay10/behaviorgraph/internal/document"
)

// Parse reads a definition from document text.
func Parse(text []byte) (*Definition, error) {
	doc, err := document.ParseBytes(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse behavior graph: %w", err)
	}
	return FromDocument(doc)
}

// LoadFile loads a behavior graph from a JSON file.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read behavior graph file: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// LoadDir loads every *.json file in dir, keyed by file name without the
// extension.
func LoadDir(dir string) (map[string]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph directory: %w", err)
	}
	defs := make(map[string]*Definition)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		def, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		defs[strings.TrimSuffix(e.Name(), ".json")] = def
	}
	return defs, nil
}
