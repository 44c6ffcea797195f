package ecs

import (
	"fmt"
	"sync"
)

// TypeRegistry maps component identifiers to ComponentType indices. It is shared by
// every World an Engine creates and is safe for concurrent use.
type TypeRegistry struct {
	mu    sync.RWMutex
	byID  map[string]ComponentType
	names []string
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		byID:  make(map[string]ComponentType, MaxComponentTypes),
		names: make([]string, 0, MaxComponentTypes),
	}
}

// Type returns the ComponentType for id, assigning the next free index the first time
// id is seen. Running out of indices is a programming error and panics.
func (r *TypeRegistry) Type(id string) ComponentType {
	r.mu.RLock()
	t, ok := r.byID[id]
	r.mu.RUnlock()
	if ok {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byID[id]; ok {
		return t
	}
	if len(r.names) >= MaxComponentTypes {
		panic(fmt.Sprintf("ecs: too many component types (max %d), cannot add %q", MaxComponentTypes, id))
	}
	t = ComponentType(len(r.names))
	r.byID[id] = t
	r.names = append(r.names, id)
	return t
}

// Lookup returns the type for id without assigning one.
func (r *TypeRegistry) Lookup(id string) (ComponentType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	return t, ok
}

// Name returns the identifier t was assigned for, or "" if unknown.
func (r *TypeRegistry) Name(t ComponentType) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t < 0 || int(t) >= len(r.names) {
		return ""
	}
	return r.names[t]
}

// Count returns the number of assigned types.
func (r *TypeRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
