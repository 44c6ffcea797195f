package ecs

import (
	"fmt"

	"go.uber.org/zap"
)

// RegisterComponentType binds type t to the module that owns it and the factory the
// world calls to create and destroy it.
func (w *World) RegisterComponentType(t ComponentType, m Module, f ComponentFactory) {
	if !t.IsValid() {
		panic(fmt.Sprintf("ecs: invalid component type %d", t))
	}
	entry := w.typeEntry(t)
	if entry.factory != nil {
		panic(fmt.Sprintf("ecs: component type %q registered twice", w.Types().Name(t)))
	}
	entry.module = m
	entry.factory = f
	w.log.Debug("component type registered",
		zap.String("type", w.Types().Name(t)),
		zap.String("module", m.Name()))
}

func (w *World) typeEntry(t ComponentType) *componentTypeEntry {
	if w.types[t] == nil {
		w.types[t] = &componentTypeEntry{}
	}
	return w.types[t]
}

func (w *World) mustFactory(t ComponentType) *componentTypeEntry {
	if !t.IsValid() || w.types[t] == nil || w.types[t].factory == nil {
		panic(fmt.Sprintf("ecs: component type %d (%q) is not registered", t, w.Types().Name(t)))
	}
	return w.types[t]
}

// ModuleFor returns the module owning t, nil when t is not registered.
func (w *World) ModuleFor(t ComponentType) Module {
	if !t.IsValid() || w.types[t] == nil {
		return nil
	}
	return w.types[t].module
}

// ComponentTransformed is fired for every entity having a component of type t
// whenever that entity's global transform changes.
func (w *World) ComponentTransformed(t ComponentType) *Signal[EntityRef] {
	return &w.typeEntry(t).transformed
}

// CreateComponent asks t's module to create a component on e.
func (w *World) CreateComponent(t ComponentType, e EntityRef) {
	w.entities.must(e)
	entry := w.mustFactory(t)
	entry.factory.CreateComponent(w, e)
}

// DestroyComponent asks t's module to destroy e's component of type t.
func (w *World) DestroyComponent(e EntityRef, t ComponentType) {
	w.entities.must(e)
	entry := w.mustFactory(t)
	entry.factory.DestroyComponent(w, e)
}

// OnComponentCreated is called by a module after it created a component.
func (w *World) OnComponentCreated(e EntityRef, t ComponentType, m Module) {
	d := w.entities.must(e)
	w.mustFactory(t)
	d.components = d.components.with(t)
	w.componentAdded.Emit(ComponentUID{Entity: e.Ptr(), Type: t, Module: m})
}

// OnComponentDestroyed is called by a module after it destroyed a component.
// Reporting a component the entity does not have panics.
func (w *World) OnComponentDestroyed(e EntityRef, t ComponentType, m Module) {
	d := w.entities.must(e)
	if !d.components.Has(t) {
		panic(fmt.Sprintf("ecs: entity %d has no %q component to destroy", e, w.Types().Name(t)))
	}
	d.components = d.components.without(t)
	w.componentDestroyed.Emit(ComponentUID{Entity: e.Ptr(), Type: t, Module: m})
}

func (w *World) HasComponent(e EntityRef, t ComponentType) bool {
	return w.entities.must(e).components.Has(t)
}

// Component returns the UID of e's component of type t, or InvalidComponent.
func (w *World) Component(e EntityRef, t ComponentType) ComponentUID {
	if !w.HasComponent(e, t) {
		return InvalidComponent
	}
	return ComponentUID{Entity: e.Ptr(), Type: t, Module: w.types[t].module}
}

// ComponentsMask returns the raw membership bitmask of e.
func (w *World) ComponentsMask(e EntityRef) ComponentMask {
	return w.entities.must(e).components
}

// FirstComponent returns e's component with the lowest type index.
func (w *World) FirstComponent(e EntityRef) ComponentUID {
	return w.componentFrom(e, 0)
}

// NextComponent returns the component of the same entity following c in type order.
func (w *World) NextComponent(c ComponentUID) ComponentUID {
	return w.componentFrom(c.Entity.MustRef(), c.Type+1)
}

func (w *World) componentFrom(e EntityRef, from ComponentType) ComponentUID {
	t := w.entities.must(e).components.next(from)
	if t == InvalidComponentType {
		return InvalidComponent
	}
	return ComponentUID{Entity: e.Ptr(), Type: t, Module: w.types[t].module}
}
