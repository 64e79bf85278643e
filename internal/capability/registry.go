package capability

import (
	"fmt"
	"sort"
)

// Table is the static registration input: every function of every category.
type Table map[Category][]Entry

// Descriptor is a registered function bound to its ordinal.
type Descriptor struct {
	Category Category
	Ordinal  int
	Name     string
	Kind     Kind

	invoke  invokeFunc
	accepts func(p any) bool
}

// Accepts reports whether p implements the provider interface d targets.
func (d *Descriptor) Accepts(p any) bool {
	return d.accepts != nil && d.accepts(p)
}

// Call invokes d against the provider attached to set for d's category.
func (d *Descriptor) Call(set *Set, dt float64) (bool, error) {
	p, ok := set.Provider(d.Category)
	if !ok {
		return false, &ProviderMissingError{Category: d.Category, Capability: d.Name}
	}
	result, matched := d.invoke(p, dt)
	if !matched {
		return false, &ProviderMissingError{Category: d.Category, Capability: d.Name, Got: fmt.Sprintf("%T", p)}
	}
	return result, nil
}

// Registry maps (category, ordinal) and (category, name) to descriptors. It
// is immutable after NewRegistry and safe for concurrent readers.
type Registry struct {
	ordered map[Category][]*Descriptor
	named   map[Category]map[string]*Descriptor
}

// NewRegistry sorts each category's entries by name and assigns ordinals.
// Duplicate names inside a category are rejected because they would make the
// order depend on registration order.
func NewRegistry(table Table) (*Registry, error) {
	r := &Registry{
		ordered: make(map[Category][]*Descriptor, len(table)),
		named:   make(map[Category]map[string]*Descriptor, len(table)),
	}
	for cat, entries := range table {
		sorted := make([]Entry, len(entries))
		copy(sorted, entries)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

		byName := make(map[string]*Descriptor, len(sorted))
		list := make([]*Descriptor, 0, len(sorted))
		for i, e := range sorted {
			if e.Name == "" {
				return nil, fmt.Errorf("capability: empty name in category %s", cat)
			}
			if e.invoke == nil {
				return nil, fmt.Errorf("capability: %s.%s has no function", cat, e.Name)
			}
			if _, dup := byName[e.Name]; dup {
				return nil, fmt.Errorf("capability: duplicate name %s in category %s", e.Name, cat)
			}
			d := &Descriptor{
				Category: cat,
				Ordinal:  i,
				Name:     e.Name,
				Kind:     e.Kind,
				invoke:   e.invoke,
				accepts:  e.accepts,
			}
			byName[e.Name] = d
			list = append(list, d)
		}
		r.ordered[cat] = list
		r.named[cat] = byName
	}
	return r, nil
}

// MustRegistry is NewRegistry for static tables known to be valid.
func MustRegistry(table Table) *Registry {
	r, err := NewRegistry(table)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the descriptor at ordinal within cat. Repeated calls return
// the same *Descriptor.
func (r *Registry) Resolve(cat Category, ordinal int) (*Descriptor, error) {
	list, ok := r.ordered[cat]
	if !ok {
		return nil, &NotFoundError{Category: cat, Ordinal: ordinal, UnknownCategory: true}
	}
	if ordinal < 0 || ordinal >= len(list) {
		return nil, &NotFoundError{Category: cat, Ordinal: ordinal}
	}
	return list[ordinal], nil
}

// ResolveByName looks a function up by its registered name.
func (r *Registry) ResolveByName(cat Category, name string) (*Descriptor, error) {
	byName, ok := r.named[cat]
	if !ok {
		return nil, &NotFoundError{Category: cat, Ordinal: -1, Name: name, UnknownCategory: true}
	}
	d, ok := byName[name]
	if !ok {
		return nil, &NotFoundError{Category: cat, Ordinal: -1, Name: name}
	}
	return d, nil
}

// Describe returns cat's descriptors in ordinal order.
func (r *Registry) Describe(cat Category) []*Descriptor {
	return append([]*Descriptor(nil), r.ordered[cat]...)
}

// Len returns the number of functions in cat.
func (r *Registry) Len(cat Category) int {
	return len(r.ordered[cat])
}

// Categories returns the registered categories sorted by name.
func (r *Registry) Categories() []Category {
	cats := make([]Category, 0, len(r.ordered))
	for c := range r.ordered {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}
