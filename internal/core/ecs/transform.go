package ecs

import (
	"github.com/blackforge/engine/internal/core/geom"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

func (w *World) Position(e EntityRef) mgl64.Vec3 {
	w.entities.must(e)
	return w.entities.transforms[e].Pos
}

func (w *World) Rotation(e EntityRef) mgl64.Quat {
	w.entities.must(e)
	return w.entities.transforms[e].Rot
}

func (w *World) Scale(e EntityRef) mgl64.Vec3 {
	w.entities.must(e)
	return w.entities.transforms[e].Scale
}

// Transform returns e's global transform.
func (w *World) Transform(e EntityRef) geom.Transform {
	w.entities.must(e)
	return w.entities.transforms[e]
}

func (w *World) SetPosition(e EntityRef, pos mgl64.Vec3) {
	w.entities.must(e)
	w.entities.transforms[e].Pos = pos
	w.transformEntity(e, true)
}

func (w *World) SetRotation(e EntityRef, rot mgl64.Quat) {
	w.entities.must(e)
	w.entities.transforms[e].Rot = rot.Normalize()
	w.transformEntity(e, true)
}

func (w *World) SetScale(e EntityRef, scale mgl64.Vec3) {
	w.entities.must(e)
	w.entities.transforms[e].Scale = scale
	w.transformEntity(e, true)
}

// SetTransform moves e in world space; descendants follow.
func (w *World) SetTransform(e EntityRef, t geom.Transform) {
	w.entities.must(e)
	t.Rot = t.Rot.Normalize()
	w.entities.transforms[e] = t
	w.transformEntity(e, true)
}

// SetTransformKeepChildren moves e alone: its children stay where they are in world
// space and their local transforms are re-derived.
func (w *World) SetTransformKeepChildren(e EntityRef, t geom.Transform) {
	w.entities.must(e)
	t.Rot = t.Rot.Normalize()
	w.entities.transforms[e] = t
	w.notifyTransformed(e)

	n := w.node(e)
	if n == nil {
		return
	}
	if p, ok := n.parent.Ref(); ok {
		n.local = geom.ComputeLocal(w.entities.transforms[p], t)
	}
	for c := n.firstChild; c.IsValid(); {
		cref := c.MustRef()
		cn := w.node(cref)
		cn.local = geom.ComputeLocal(t, w.entities.transforms[cref])
		c = cn.nextSibling
	}
}

// RelativeMatrix returns e's model matrix re-based around origin, in single precision.
func (w *World) RelativeMatrix(e EntityRef, origin mgl64.Vec3) mgl32.Mat4 {
	w.entities.must(e)
	return w.entities.transforms[e].RelativeMatrix(origin)
}

// transformEntity runs after e's global transform was written. It notifies observers,
// optionally re-derives e's local transform, and pushes the change down the subtree
// with an explicit worklist: child.global = parent.global * child.local.
func (w *World) transformEntity(e EntityRef, updateLocal bool) {
	w.notifyTransformed(e)

	n := w.node(e)
	if n == nil {
		return
	}
	if p, ok := n.parent.Ref(); ok && updateLocal {
		n.local = geom.ComputeLocal(w.entities.transforms[p], w.entities.transforms[e])
	}
	if !n.firstChild.IsValid() {
		return
	}

	// observers may move other entities re-entrantly; they get their own stack
	stack := append(w.propagation[:0], e)
	w.propagation = nil
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cn := w.node(cur)
		if cn == nil {
			continue
		}
		global := w.entities.transforms[cur]
		for c := cn.firstChild; c.IsValid(); {
			cref := c.MustRef()
			chn := w.node(cref)
			w.entities.transforms[cref] = global.Compose(chn.local)
			next := chn.nextSibling
			w.notifyTransformed(cref)
			stack = append(stack, cref)
			c = next
		}
	}
	w.propagation = stack[:0]
}

func (w *World) notifyTransformed(e EntityRef) {
	mask := w.entities.data[e].components
	for t := mask.next(0); t != InvalidComponentType; t = mask.next(t + 1) {
		if entry := w.types[t]; entry != nil {
			entry.transformed.Emit(e)
		}
	}
	w.entityTransformed.Emit(e)
}
