package ecs

import (
	"errors"
	"fmt"

	"github.com/blackforge/engine/internal/core/geom"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

var (
	ErrHierarchyCycle     = errors.New("hierarchy can not contain a cycle")
	ErrBadMagic           = errors.New("wrong or corrupted world file")
	ErrUnsupportedVersion = errors.New("unsupported world version")
	ErrMissingModule      = errors.New("missing module")
	ErrCorrupted          = errors.New("unexpected end of world data")
)

// DestroyPolicy decides what happens to the children of a destroyed entity.
type DestroyPolicy uint8

const (
	// DestroyDetach turns children into roots, keeping their global transform.
	DestroyDetach DestroyPolicy = iota
	// DestroyCascade destroys the whole subtree.
	DestroyCascade
	// DestroyReparent hands children to the destroyed entity's parent.
	DestroyReparent
)

func (p DestroyPolicy) String() string {
	switch p {
	case DestroyCascade:
		return "cascade"
	case DestroyReparent:
		return "reparent"
	default:
		return "detach"
	}
}

// ParseDestroyPolicy accepts "detach", "cascade" or "reparent".
func ParseDestroyPolicy(s string) (DestroyPolicy, error) {
	switch s {
	case "", "detach":
		return DestroyDetach, nil
	case "cascade":
		return DestroyCascade, nil
	case "reparent":
		return DestroyReparent, nil
	}
	return DestroyDetach, fmt.Errorf("unknown destroy policy %q", s)
}

type componentTypeEntry struct {
	module      Module
	factory     ComponentFactory
	transformed Signal[EntityRef]
}

// World owns entities, their transforms, hierarchy, names and component membership.
// Component data lives in modules. A World is accessed only from one goroutine; it takes no locks.
type World struct {
	engine *Engine
	log    *zap.Logger
	opts   Options

	// entities.data and entities.transforms are indexed by EntityRef.
	entities  entityTable
	hierarchy denseTable[hierarchyNode] // indexed by entityData.hierarchy
	names     denseTable[string]        // indexed by entityData.name

	types   [MaxComponentTypes]*componentTypeEntry
	modules []Module

	partitions      []Partition
	partitionGen    PartitionHandle
	activePartition PartitionHandle

	entityCreated      Signal[EntityRef]
	entityDestroyed    Signal[EntityRef]
	entityTransformed  Signal[EntityRef]
	componentAdded     Signal[ComponentUID]
	componentDestroyed Signal[ComponentUID]

	propagation  []EntityRef
	destroyQueue []EntityRef
}

func newWorld(engine *Engine, opts Options) *World {
	if opts.ReservedEntities <= 0 {
		opts.ReservedEntities = DefaultOptions().ReservedEntities
	}
	w := &World{
		engine:       engine,
		log:          engine.log,
		opts:         opts,
		entities:     newEntityTable(opts.ReservedEntities),
		modules:      make([]Module, 0, 8),
		propagation:  make([]EntityRef, 0, 64),
		destroyQueue: make([]EntityRef, 0, 64),
	}
	w.hierarchy = newDenseTable[hierarchyNode](64, func(owner EntityRef, idx int32) {
		w.entities.data[owner].hierarchy = idx
	})
	w.names = newDenseTable[string](64, func(owner EntityRef, idx int32) {
		w.entities.data[owner].name = idx
	})
	w.SetActivePartition(w.CreatePartition(""))
	return w
}

func (w *World) Engine() *Engine      { return w.engine }
func (w *World) Types() *TypeRegistry { return w.engine.Types }
func (w *World) Logger() *zap.Logger  { return w.log }
func (w *World) Options() Options     { return w.opts }

func (w *World) EntityCreated() *Signal[EntityRef]         { return &w.entityCreated }
func (w *World) EntityDestroyed() *Signal[EntityRef]       { return &w.entityDestroyed }
func (w *World) EntityTransformed() *Signal[EntityRef]     { return &w.entityTransformed }
func (w *World) ComponentAdded() *Signal[ComponentUID]     { return &w.componentAdded }
func (w *World) ComponentDestroyed() *Signal[ComponentUID] { return &w.componentDestroyed }

// AddModule attaches a module. Module names are unique per world.
func (w *World) AddModule(m Module) {
	if w.Module(m.Name()) != nil {
		panic(fmt.Sprintf("ecs: module %q added twice", m.Name()))
	}
	w.modules = append(w.modules, m)
}

// Module finds a module by name, nil if absent.
func (w *World) Module(name string) Module {
	for _, m := range w.modules {
		if m.Name() == name {
			return m
		}
	}
	return nil
}

func (w *World) Modules() []Module { return w.modules }

// Update advances every module implementing Updater, in registration order.
func (w *World) Update(dt float64) {
	for _, m := range w.modules {
		if u, ok := m.(Updater); ok {
			u.Update(dt)
		}
	}
}

// Close releases modules in reverse order. The world must not be used afterwards.
func (w *World) Close() {
	for i := len(w.modules) - 1; i >= 0; i-- {
		if c, ok := w.modules[i].(Closer); ok {
			c.Close()
		}
	}
	w.modules = nil
}

// CreateEntity allocates a slot, reusing the most recently freed one first.
func (w *World) CreateEntity(pos mgl64.Vec3, rot mgl64.Quat) EntityRef {
	idx := w.entities.alloc()
	w.entities.transforms[idx] = geom.NewTransform(pos, rot)
	w.entities.data[idx] = entityData{
		valid:     true,
		hierarchy: -1,
		name:      -1,
		partition: w.activePartition,
		prev:      -1,
		next:      -1,
	}
	e := EntityRef(idx)
	w.entityCreated.Emit(e)
	return e
}

// EmplaceEntity makes the specific slot e live, growing the table with free
// placeholder slots as needed. Used when an exact index must be reproduced.
func (w *World) EmplaceEntity(e EntityRef) {
	w.entities.claim(int32(e))
	w.entities.transforms[e] = geom.Identity
	w.entities.data[e] = entityData{
		valid:     true,
		hierarchy: -1,
		name:      -1,
		partition: w.activePartition,
		prev:      -1,
		next:      -1,
	}
	w.entityCreated.Emit(e)
}

// DestroyEntity removes e with its components and name. Children are handled
// according to Options.DestroyPolicy. Destroying a dead entity panics.
func (w *World) DestroyEntity(e EntityRef) {
	w.entities.must(e)
	switch w.opts.DestroyPolicy {
	case DestroyCascade:
		subtree := w.descendants(e)
		for i := len(subtree) - 1; i >= 0; i-- {
			// observers may already have destroyed part of the subtree
			if c := subtree[i]; w.entities.has(c) && w.IsDescendant(e, c) {
				w.destroyOne(c)
			}
		}
		if !w.entities.has(e) {
			return
		}
	case DestroyReparent:
		parent := w.Parent(e)
		for c := w.FirstChild(e); c.IsValid(); c = w.FirstChild(e) {
			w.setParent(parent, c.MustRef())
		}
	default:
		for c := w.FirstChild(e); c.IsValid(); c = w.FirstChild(e) {
			w.setParent(InvalidEntity, c.MustRef())
		}
	}
	w.destroyOne(e)
}

// destroyOne destroys an entity that has no children left.
func (w *World) destroyOne(e EntityRef) {
	w.entities.must(e)
	w.setParent(InvalidEntity, e)

	mask := w.entities.data[e].components
	for t := mask.next(0); t != InvalidComponentType; t = mask.next(t + 1) {
		entry := w.types[t]
		entry.factory.DestroyComponent(w, e)
		if !w.entities.data[e].valid {
			return // an observer destroyed e
		}
		after := w.entities.data[e].components
		if after.Has(t) {
			panic(fmt.Sprintf("ecs: module %q did not report destruction of %q on entity %d",
				entry.module.Name(), w.Types().Name(t), e))
		}
		mask = after
	}

	if n := w.entities.data[e].name; n >= 0 {
		w.names.remove(n)
		w.entities.data[e].name = -1
	}
	w.entities.release(int32(e))
	w.entityDestroyed.Emit(e)
}

// MarkForDestruction queues e for FlushDestroyQueue. Queuing twice is harmless.
func (w *World) MarkForDestruction(e EntityRef) {
	d := w.entities.must(e)
	if d.queued {
		return
	}
	d.queued = true
	w.destroyQueue = append(w.destroyQueue, e)
}

// FlushDestroyQueue destroys every queued entity still alive. Called at the end of a
// tick so that nothing is destroyed while modules iterate.
func (w *World) FlushDestroyQueue() int {
	n := 0
	for i := 0; i < len(w.destroyQueue); i++ {
		e := w.destroyQueue[i]
		if w.entities.has(e) && w.entities.data[e].queued {
			w.DestroyEntity(e)
			n++
		}
	}
	w.destroyQueue = w.destroyQueue[:0]
	return n
}

// HasEntity reports whether e is a live entity. Out of range handles are not.
func (w *World) HasEntity(e EntityRef) bool {
	return w.entities.has(e)
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return w.entities.live
}

// FirstEntity returns the live entity with the lowest index.
func (w *World) FirstEntity() EntityPtr {
	return w.nextLive(0)
}

// NextEntity returns the next live entity after e in index order.
func (w *World) NextEntity(e EntityRef) EntityPtr {
	return w.nextLive(int(e) + 1)
}

func (w *World) nextLive(from int) EntityPtr {
	for i := from; i < len(w.entities.data); i++ {
		if w.entities.data[i].valid {
			return EntityPtr(i)
		}
	}
	return InvalidEntity
}
