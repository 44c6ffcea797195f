package ecs

import (
	"fmt"

	"github.com/blackforge/engine/internal/core/geom"
)

// EntityRef is a handle known to point at a live slot. It carries no generation:
// after destroy and re-create, the same index names the new entity.
type EntityRef int32

// EntityPtr is a nullable entity handle. Convert to EntityRef with Ref or MustRef.
type EntityPtr int32

// InvalidEntity is the null EntityPtr.
const InvalidEntity EntityPtr = -1

func (e EntityRef) Index() int     { return int(e) }
func (e EntityRef) Ptr() EntityPtr { return EntityPtr(e) }

func (p EntityPtr) IsValid() bool { return p >= 0 }

// Ref returns the handle as an EntityRef and whether it was valid.
func (p EntityPtr) Ref() (EntityRef, bool) {
	return EntityRef(p), p >= 0
}

// MustRef converts a pointer that the caller knows is valid.
func (p EntityPtr) MustRef() EntityRef {
	if p < 0 {
		panic("ecs: MustRef on invalid entity")
	}
	return EntityRef(p)
}

// entityData is the per-slot metadata. valid tags which half is meaningful:
// live slots use components/partition, free slots use prev/next.
type entityData struct {
	valid      bool
	hierarchy  int32 // index into World.hierarchy, -1 when not in a hierarchy
	name       int32 // index into World.names, -1 when unnamed
	partition  PartitionHandle
	components ComponentMask
	queued     bool // in World.destroyQueue
	prev, next int32
}

// entityTable is the dense slot array plus the parallel transform array and the
// doubly-linked free list threaded through free slots. Pop order is LIFO.
type entityTable struct {
	data       []entityData
	transforms []geom.Transform
	firstFree  int32
	live       int
}

func newEntityTable(reserve int) entityTable {
	return entityTable{
		data:       make([]entityData, 0, reserve),
		transforms: make([]geom.Transform, 0, reserve),
		firstFree:  -1,
	}
}

// alloc returns a slot index, reusing the free-list head when there is one.
func (t *entityTable) alloc() int32 {
	if t.firstFree >= 0 {
		idx := t.firstFree
		next := t.data[idx].next
		if next >= 0 {
			t.data[next].prev = -1
		}
		t.firstFree = next
		t.live++
		return idx
	}
	idx := int32(len(t.data))
	t.data = append(t.data, entityData{})
	t.transforms = append(t.transforms, geom.Transform{})
	t.live++
	return idx
}

// release pushes a slot onto the free-list head.
func (t *entityTable) release(idx int32) {
	d := &t.data[idx]
	d.valid = false
	d.components = 0
	d.queued = false
	d.hierarchy = -1
	d.name = -1
	d.prev = -1
	d.next = t.firstFree
	if t.firstFree >= 0 {
		t.data[t.firstFree].prev = idx
	}
	t.firstFree = idx
	t.live--
}

// claim grows the table with free placeholder slots up to idx and unlinks idx from
// the free list. The slot must not be live.
func (t *entityTable) claim(idx int32) {
	for int32(len(t.data)) <= idx {
		n := int32(len(t.data))
		t.data = append(t.data, entityData{hierarchy: -1, name: -1, prev: -1, next: t.firstFree})
		t.transforms = append(t.transforms, geom.Transform{})
		if t.firstFree >= 0 {
			t.data[t.firstFree].prev = n
		}
		t.firstFree = n
	}
	d := &t.data[idx]
	if d.valid {
		panic(fmt.Sprintf("ecs: emplace of live entity %d", idx))
	}
	if t.firstFree == idx {
		t.firstFree = d.next
	}
	if d.prev >= 0 {
		t.data[d.prev].next = d.next
	}
	if d.next >= 0 {
		t.data[d.next].prev = d.prev
	}
	d.prev, d.next = -1, -1
	t.live++
}

func (t *entityTable) has(e EntityRef) bool {
	return e >= 0 && int(e) < len(t.data) && t.data[e].valid
}

// must returns the slot for e and panics when e is not live.
func (t *entityTable) must(e EntityRef) *entityData {
	d := &t.data[e]
	if !d.valid {
		panic(fmt.Sprintf("ecs: entity %d is not alive", e))
	}
	return d
}

// EntityMap remaps entity handles from a serialized source to the entities that
// were created for them, e.g. while loading a snapshot or instancing a prefab.
type EntityMap struct {
	m []EntityPtr
}

func NewEntityMap(reserve int) *EntityMap {
	return &EntityMap{m: make([]EntityPtr, 0, reserve)}
}

// Set records that src now lives at dst.
func (em *EntityMap) Set(src, dst EntityRef) {
	for len(em.m) <= int(src) {
		em.m = append(em.m, InvalidEntity)
	}
	em.m[src] = dst.Ptr()
}

// Get maps a nullable handle; unknown or invalid handles map to InvalidEntity.
func (em *EntityMap) Get(src EntityPtr) EntityPtr {
	if src < 0 || int(src) >= len(em.m) {
		return InvalidEntity
	}
	return em.m[src]
}

// GetRef maps a handle that must have been recorded.
func (em *EntityMap) GetRef(src EntityRef) EntityRef {
	return em.Get(src.Ptr()).MustRef()
}

// Len returns the size of the source index space covered by the map.
func (em *EntityMap) Len() int {
	return len(em.m)
}
