package capability

import (
	"sort"
	"sync"
)

// Set holds the live providers attached to one agent, keyed by category.
// Providers may be detached while the agent runs; lookups are synchronized so
// inspection tools can do that from another goroutine.
type Set struct {
	mu        sync.RWMutex
	providers map[Category]any
}

// NewSet creates an empty provider set.
func NewSet() *Set {
	return &Set{providers: make(map[Category]any)}
}

// Attach adds or replaces the provider for cat and returns s for chaining.
func (s *Set) Attach(cat Category, p any) *Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[cat] = p
	return s
}

// Detach removes the provider for cat.
func (s *Set) Detach(cat Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.providers, cat)
}

// Provider returns the provider attached for cat.
func (s *Set) Provider(cat Category) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[cat]
	return p, ok && p != nil
}

// Has reports whether a provider is attached for cat.
func (s *Set) Has(cat Category) bool {
	_, ok := s.Provider(cat)
	return ok
}

// Categories returns the attached categories sorted by name.
func (s *Set) Categories() []Category {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cats := make([]Category, 0, len(s.providers))
	for c := range s.providers {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}
