package ecs

import "math/bits"

// MaxComponentTypes bounds the number of component kinds; membership is one bit in a uint64.
const MaxComponentTypes = 64

// ComponentType identifies a component kind. Values come from a TypeRegistry.
type ComponentType int32

// InvalidComponentType marks "no component" in a ComponentUID.
const InvalidComponentType ComponentType = -1

func (t ComponentType) IsValid() bool { return t >= 0 && t < MaxComponentTypes }

// ComponentMask has bit t set when the entity has a component of type t.
type ComponentMask uint64

func (m ComponentMask) Has(t ComponentType) bool { return m&(1<<uint(t)) != 0 }

func (m ComponentMask) with(t ComponentType) ComponentMask    { return m | 1<<uint(t) }
func (m ComponentMask) without(t ComponentType) ComponentMask { return m &^ (1 << uint(t)) }

// next returns the lowest set type index >= from, or InvalidComponentType.
func (m ComponentMask) next(from ComponentType) ComponentType {
	if from >= MaxComponentTypes {
		return InvalidComponentType
	}
	rest := uint64(m) >> uint(from)
	if rest == 0 {
		return InvalidComponentType
	}
	return from + ComponentType(bits.TrailingZeros64(rest))
}

// MaskOf builds a mask from a list of types.
func MaskOf(types ...ComponentType) ComponentMask {
	var m ComponentMask
	for _, t := range types {
		m = m.with(t)
	}
	return m
}

// ComponentUID is a transient (entity, type, owning module) triple. Do not store it.
type ComponentUID struct {
	Entity EntityPtr
	Type   ComponentType
	Module Module
}

// InvalidComponent is returned by lookups that find nothing.
var InvalidComponent = ComponentUID{Entity: InvalidEntity, Type: InvalidComponentType}

func (c ComponentUID) IsValid() bool { return c.Entity.IsValid() }

// ComponentFactory creates and destroys components of one type inside the owning
// module. Implementations must call World.OnComponentCreated / OnComponentDestroyed
// once their own bookkeeping is done.
type ComponentFactory interface {
	CreateComponent(w *World, e EntityRef)
	DestroyComponent(w *World, e EntityRef)
}

// FactoryFuncs adapts a pair of functions to ComponentFactory.
type FactoryFuncs struct {
	Create  func(w *World, e EntityRef)
	Destroy func(w *World, e EntityRef)
}

func (f FactoryFuncs) CreateComponent(w *World, e EntityRef)  { f.Create(w, e) }
func (f FactoryFuncs) DestroyComponent(w *World, e EntityRef) { f.Destroy(w, e) }

// Store is a typed per-entity map used by modules to hold component data.
// Not safe for concurrent use; modules touch it from the world's goroutine only.
type Store[T any] struct {
	data map[EntityRef]*T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		data: make(map[EntityRef]*T, 64),
	}
}

func (s *Store[T]) Set(e EntityRef, c *T) {
	s.data[e] = c
}

func (s *Store[T]) Get(e EntityRef) (*T, bool) {
	c, ok := s.data[e]
	return c, ok
}

func (s *Store[T]) Remove(e EntityRef) {
	delete(s.data, e)
}

func (s *Store[T]) Has(e EntityRef) bool {
	_, ok := s.data[e]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

// Each visits every entry in unspecified order.
func (s *Store[T]) Each(fn func(EntityRef, *T)) {
	for e, c := range s.data {
		fn(e, c)
	}
}
