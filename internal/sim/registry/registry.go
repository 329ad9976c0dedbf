// Package registry is the allow-list of entity ids the engine has actually
// created. Anything the generator references outside this list is dropped.
//
// A Registry is owned by the session controller and passed by reference; ids
// are only ever added.
package registry

import (
	"sort"
	"sync"
)

// Entity types.
const (
	TypeNPC    = "npc"
	TypeRegion = "region"
	TypeItem   = "item"
)

// Entity is anything addressable by a registry id.
type Entity interface {
	EntityID() string
}

type Registry struct {
	mu    sync.RWMutex
	known map[string]map[string]struct{}
}

func New() *Registry {
	return &Registry{known: map[string]map[string]struct{}{}}
}

// Register adds id to the known set for typ. Empty ids are ignored.
func (r *Registry) Register(typ, id string) {
	if r == nil || typ == "" || id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.known[typ]
	if set == nil {
		set = map[string]struct{}{}
		r.known[typ] = set
	}
	set[id] = struct{}{}
}

func (r *Registry) RegisterAll(typ string, ids ...string) {
	for _, id := range ids {
		r.Register(typ, id)
	}
}

func (r *Registry) Known(typ, id string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.known[typ][id]
	return ok
}

func (r *Registry) Count(typ string) int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.known[typ])
}

// IDs returns the sorted ids registered for typ.
func (r *Registry) IDs(typ string) []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	out := make([]string, 0, len(r.known[typ]))
	for id := range r.known[typ] {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Admits reports whether id would survive FilterEntities for typ: true when
// nothing of that type has been registered yet, otherwise only for known ids.
func (r *Registry) Admits(typ, id string) bool {
	if r.Count(typ) == 0 {
		return true
	}
	return r.Known(typ, id)
}

// FilterEntities returns items unchanged when typ has no registered ids.
// Otherwise it returns the items whose id is registered, in input order.
func FilterEntities[T Entity](r *Registry, typ string, items []T) []T {
	if r.Count(typ) == 0 {
		return items
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.known[typ]
	out := make([]T, 0, len(items))
	for _, it := range items {
		if _, ok := set[it.EntityID()]; ok {
			out = append(out, it)
		}
	}
	return out
}
