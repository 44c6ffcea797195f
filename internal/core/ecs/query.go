package ecs

import "iter"

// Entities iterates live entities in index order. Destroying the yielded entity
// inside the loop is allowed; creating entities may or may not be observed.
func (w *World) Entities() iter.Seq[EntityRef] {
	return func(yield func(EntityRef) bool) {
		for e := w.FirstEntity(); e.IsValid(); e = w.NextEntity(e.MustRef()) {
			if !yield(e.MustRef()) {
				return
			}
		}
	}
}

// Components iterates e's components in type order.
func (w *World) Components(e EntityRef) iter.Seq[ComponentUID] {
	return func(yield func(ComponentUID) bool) {
		for c := w.FirstComponent(e); c.IsValid(); c = w.NextComponent(c) {
			if !yield(c) {
				return
			}
		}
	}
}

// EntitiesWith iterates live entities that have every one of the given types.
// It scans the entity table, testing each mask against the query mask.
func (w *World) EntitiesWith(types ...ComponentType) iter.Seq[EntityRef] {
	want := MaskOf(types...)
	return func(yield func(EntityRef) bool) {
		for i := range w.entities.data {
			d := &w.entities.data[i]
			if !d.valid || d.components&want != want {
				continue
			}
			if !yield(EntityRef(i)) {
				return
			}
		}
	}
}
