// Package capability enumerates the query and action functions that behavior
// graphs bind to by (category, ordinal).
//
// Functions are registered once at startup from an explicit Table. Within a
// category they are sorted by name and numbered from zero; persisted graphs
// store only that number, so for a fixed table the ordinal → function mapping
// must never change.
package capability

import "strings"

// Category groups capability functions by the provider that implements them.
type Category string

const (
	Motion     Category = "Motion"
	Perception Category = "Perception"
	Inventory  Category = "Inventory"
	Resources  Category = "Resources"
	General    Category = "General"
	Skills     Category = "Skills"
)

// KnownCategories lists every category in a fixed order.
func KnownCategories() []Category {
	return []Category{Motion, Perception, Inventory, Resources, General, Skills}
}

// ParseCategory matches a persisted group name case-insensitively.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range KnownCategories() {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// Kind separates side-effect free queries from actions.
type Kind int

const (
	KindQuery Kind = iota
	KindAction
)

func (k Kind) String() string {
	if k == KindAction {
		return "action"
	}
	return "query"
}

// invokeFunc calls the wrapped function on provider p. matched is false when p
// does not implement the provider interface the function was registered for.
type invokeFunc func(p any, dt float64) (result, matched bool)

// Entry is one row of a registration table.
type Entry struct {
	Name    string
	Kind    Kind
	invoke  invokeFunc
	accepts func(p any) bool
}

func accepts[P any](p any) bool {
	_, ok := p.(P)
	return ok
}

// Query registers a boolean query on provider type P.
func Query[P any](name string, fn func(P) bool) Entry {
	return Entry{
		Name: name,
		Kind: KindQuery,
		invoke: func(p any, _ float64) (bool, bool) {
			v, ok := p.(P)
			if !ok {
				return false, false
			}
			return fn(v), true
		},
		accepts: accepts[P],
	}
}

// QueryDelta registers a query that receives the tick delta in seconds.
func QueryDelta[P any](name string, fn func(P, float64) bool) Entry {
	return Entry{
		Name: name,
		Kind: KindQuery,
		invoke: func(p any, dt float64) (bool, bool) {
			v, ok := p.(P)
			if !ok {
				return false, false
			}
			return fn(v, dt), true
		},
		accepts: accepts[P],
	}
}

// Action registers a side-effecting function. Plain actions always report
// success.
func Action[P any](name string, fn func(P)) Entry {
	return Entry{
		Name: name,
		Kind: KindAction,
		invoke: func(p any, _ float64) (bool, bool) {
			v, ok := p.(P)
			if !ok {
				return false, false
			}
			fn(v)
			return true, true
		},
		accepts: accepts[P],
	}
}

// ActionDelta registers an action that receives the tick delta in seconds.
func ActionDelta[P any](name string, fn func(P, float64)) Entry {
	return Entry{
		Name: name,
		Kind: KindAction,
		invoke: func(p any, dt float64) (bool, bool) {
			v, ok := p.(P)
			if !ok {
				return false, false
			}
			fn(v, dt)
			return true, true
		},
		accepts: accepts[P],
	}
}

// ActionResult registers an action that reports success or failure, which
// negative transitions can branch on.
func ActionResult[P any](name string, fn func(P) bool) Entry {
	e := Query(name, fn)
	e.Kind = KindAction
	return e
}
