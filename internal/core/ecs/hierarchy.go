package ecs

import (
	"iter"

	"github.com/blackforge/engine/internal/core/geom"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// hierarchyNode exists only for entities that have a parent or children.
// Children form a singly linked list: parent.firstChild -> child.nextSibling -> ...
type hierarchyNode struct {
	parent      EntityPtr
	firstChild  EntityPtr
	nextSibling EntityPtr
	local       geom.Transform
}

func (w *World) node(e EntityRef) *hierarchyNode {
	idx := w.entities.data[e].hierarchy
	if idx < 0 {
		return nil
	}
	return w.hierarchy.at(idx)
}

// Parent returns e's parent or InvalidEntity.
func (w *World) Parent(e EntityRef) EntityPtr {
	w.entities.must(e)
	if n := w.node(e); n != nil {
		return n.parent
	}
	return InvalidEntity
}

// FirstChild returns the head of e's child list or InvalidEntity.
func (w *World) FirstChild(e EntityRef) EntityPtr {
	w.entities.must(e)
	if n := w.node(e); n != nil {
		return n.firstChild
	}
	return InvalidEntity
}

// NextSibling returns the entity after e in its parent's child list.
func (w *World) NextSibling(e EntityRef) EntityPtr {
	w.entities.must(e)
	if n := w.node(e); n != nil {
		return n.nextSibling
	}
	return InvalidEntity
}

// Children iterates e's direct children, most recently attached first.
func (w *World) Children(e EntityRef) iter.Seq[EntityRef] {
	return func(yield func(EntityRef) bool) {
		for c := w.FirstChild(e); c.IsValid(); c = w.NextSibling(c.MustRef()) {
			if !yield(c.MustRef()) {
				return
			}
		}
	}
}

// IsDescendant reports whether descendant sits anywhere below ancestor.
// An entity is not its own descendant.
func (w *World) IsDescendant(ancestor, descendant EntityRef) bool {
	for p := w.Parent(descendant); p.IsValid(); p = w.Parent(p.MustRef()) {
		if p == ancestor.Ptr() {
			return true
		}
	}
	return false
}

// HierarchySize returns the number of allocated hierarchy nodes.
func (w *World) HierarchySize() int {
	return w.hierarchy.len()
}

// SetParent attaches child under parent, or detaches it when parent is InvalidEntity.
// The child keeps its global transform; its local transform is derived from it.
// A parent that is child itself or one of its descendants is rejected with
// ErrHierarchyCycle and nothing changes.
func (w *World) SetParent(parent EntityPtr, child EntityRef) error {
	w.entities.must(child)
	if p, ok := parent.Ref(); ok {
		w.entities.must(p)
		if p == child || w.IsDescendant(child, p) {
			w.log.Error("hierarchy can not contain a cycle",
				zap.Int32("parent", int32(p)),
				zap.Int32("child", int32(child)))
			return ErrHierarchyCycle
		}
	}
	w.setParent(parent, child)
	return nil
}

func (w *World) setParent(parent EntityPtr, child EntityRef) {
	childIdx := w.entities.data[child].hierarchy
	if childIdx >= 0 {
		if old, ok := w.hierarchy.at(childIdx).parent.Ref(); ok {
			w.unlink(old, child)
			n := w.hierarchy.at(childIdx)
			n.parent = InvalidEntity
			n.nextSibling = InvalidEntity
			w.collectGarbage(old)
			childIdx = w.entities.data[child].hierarchy
		}
	} else if parent.IsValid() {
		childIdx = w.allocNode(child)
	}

	if p, ok := parent.Ref(); ok {
		parentIdx := w.entities.data[p].hierarchy
		if parentIdx < 0 {
			parentIdx = w.allocNode(p)
		}
		cn := w.hierarchy.at(childIdx)
		pn := w.hierarchy.at(parentIdx)
		cn.parent = parent
		cn.local = geom.ComputeLocal(w.entities.transforms[p], w.entities.transforms[child])
		cn.nextSibling = pn.firstChild
		pn.firstChild = child.Ptr()
		return
	}
	if childIdx >= 0 {
		w.collectGarbage(child)
	}
}

func (w *World) allocNode(e EntityRef) int32 {
	idx := w.hierarchy.add(e, hierarchyNode{
		parent:      InvalidEntity,
		firstChild:  InvalidEntity,
		nextSibling: InvalidEntity,
		local:       geom.Identity,
	})
	w.entities.data[e].hierarchy = idx
	return idx
}

// unlink removes child from parent's sibling list.
func (w *World) unlink(parent, child EntityRef) {
	pn := w.node(parent)
	cn := w.node(child)
	if pn.firstChild == child.Ptr() {
		pn.firstChild = cn.nextSibling
		return
	}
	for s := pn.firstChild; s.IsValid(); {
		sn := w.node(s.MustRef())
		if sn.nextSibling == child.Ptr() {
			sn.nextSibling = cn.nextSibling
			return
		}
		s = sn.nextSibling
	}
}

// collectGarbage frees e's node once it has neither parent nor children.
func (w *World) collectGarbage(e EntityRef) {
	idx := w.entities.data[e].hierarchy
	n := w.hierarchy.at(idx)
	if n.parent.IsValid() || n.firstChild.IsValid() {
		return
	}
	w.hierarchy.remove(idx)
	w.entities.data[e].hierarchy = -1
}

// descendants lists every entity below e in pre-order, without recursion.
func (w *World) descendants(e EntityRef) []EntityRef {
	var out []EntityRef
	stack := []EntityRef{e}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for c := range w.Children(cur) {
			out = append(out, c)
			stack = append(stack, c)
		}
	}
	return out
}

// LocalTransform returns e's transform relative to its parent; for roots it is the
// global transform.
func (w *World) LocalTransform(e EntityRef) geom.Transform {
	w.entities.must(e)
	if n := w.node(e); n != nil && n.parent.IsValid() {
		return n.local
	}
	return w.entities.transforms[e]
}

// LocalScale returns the scale part of LocalTransform.
func (w *World) LocalScale(e EntityRef) mgl64.Vec3 {
	return w.LocalTransform(e).Scale
}

// SetLocalTransform sets e relative to its parent and moves e and its subtree.
// Roots fall back to SetTransform.
func (w *World) SetLocalTransform(e EntityRef, t geom.Transform) {
	w.entities.must(e)
	n := w.node(e)
	if n == nil || !n.parent.IsValid() {
		w.SetTransform(e, t)
		return
	}
	t.Rot = t.Rot.Normalize()
	n.local = t
	w.updateGlobal(e, n)
}

// SetLocalPosition sets the local position; roots fall back to SetPosition.
func (w *World) SetLocalPosition(e EntityRef, pos mgl64.Vec3) {
	w.entities.must(e)
	n := w.node(e)
	if n == nil || !n.parent.IsValid() {
		w.SetPosition(e, pos)
		return
	}
	n.local.Pos = pos
	w.updateGlobal(e, n)
}

// SetLocalRotation sets the local rotation; roots fall back to SetRotation.
func (w *World) SetLocalRotation(e EntityRef, rot mgl64.Quat) {
	w.entities.must(e)
	n := w.node(e)
	if n == nil || !n.parent.IsValid() {
		w.SetRotation(e, rot)
		return
	}
	n.local.Rot = rot.Normalize()
	w.updateGlobal(e, n)
}

// updateGlobal recomputes e's global transform from its parent and local transform.
// The local transform is kept as given rather than re-derived.
func (w *World) updateGlobal(e EntityRef, n *hierarchyNode) {
	parent := n.parent.MustRef()
	w.entities.transforms[e] = w.entities.transforms[parent].Compose(n.local)
	w.transformEntity(e, false)
}
