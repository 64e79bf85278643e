// Package skills loads the skill assets behavior graphs refer to by name.
package skills

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Asset is an externally defined unit of agent capability.
type Asset struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description" json:"description,omitempty"`
	Cooldown    float64           `yaml:"cooldown" json:"cooldown,omitempty"`
	Tags        []string          `yaml:"tags" json:"tags,omitempty"`
	Params      map[string]string `yaml:"params" json:"params,omitempty"`
}

// HasTag reports whether the asset carries tag.
func (a *Asset) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type catalogFile struct {
	Version int     `yaml:"version"`
	Skills  []Asset `yaml:"skills"`
}

// Catalog is an immutable name → asset lookup.
type Catalog struct {
	assets map[string]*Asset
}

// NewCatalog builds a catalog, rejecting empty and duplicate names.
func NewCatalog(assets ...Asset) (*Catalog, error) {
	c := &Catalog{assets: make(map[string]*Asset, len(assets))}
	for i := range assets {
		a := assets[i]
		if a.Name == "" {
			return nil, fmt.Errorf("skill %d: missing name", i)
		}
		if _, dup := c.assets[a.Name]; dup {
			return nil, fmt.Errorf("duplicate skill: %s", a.Name)
		}
		c.assets[a.Name] = &a
	}
	return c, nil
}

// Parse reads a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse skill catalog: %w", err)
	}
	if f.Version != 1 {
		return nil, fmt.Errorf("unsupported skills.yaml version: %d", f.Version)
	}
	return NewCatalog(f.Skills...)
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read skill catalog: %w", err)
	}
	return Parse(b)
}

// Skill returns the asset named name.
func (c *Catalog) Skill(name string) (*Asset, bool) {
	if c == nil {
		return nil, false
	}
	a, ok := c.assets[name]
	return a, ok
}

// Names returns every skill name, sorted.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.assets))
	for n := range c.assets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Map is a plain map lookup for callers that build assets in code.
type Map map[string]*Asset

// Skill returns the asset named name.
func (m Map) Skill(name string) (*Asset, bool) {
	a, ok := m[name]
	return a, ok
}
