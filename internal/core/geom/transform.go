// Package geom holds the rigid transform math shared by the world and its modules.
//
// Positions are double precision so that large worlds do not jitter; anything handed
// to the renderer or physics is re-based around an origin first and only then
// downcast to float32 (see RelativeMatrix).
package geom

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a position/rotation/per-axis-scale triple.
type Transform struct {
	Pos   mgl64.Vec3
	Rot   mgl64.Quat
	Scale mgl64.Vec3
}

// Identity is the transform at the origin with no rotation and unit scale.
var Identity = Transform{
	Rot:   mgl64.QuatIdent(),
	Scale: mgl64.Vec3{1, 1, 1},
}

// NewTransform builds a transform with unit scale.
func NewTransform(pos mgl64.Vec3, rot mgl64.Quat) Transform {
	return Transform{Pos: pos, Rot: rot.Normalize(), Scale: mgl64.Vec3{1, 1, 1}}
}

// Compose returns t * local, i.e. local expressed in the space t lives in.
func (t Transform) Compose(local Transform) Transform {
	return Transform{
		Pos:   t.Pos.Add(t.Rot.Rotate(mulElem(local.Pos, t.Scale))),
		Rot:   t.Rot.Mul(local.Rot).Normalize(),
		Scale: mulElem(t.Scale, local.Scale),
	}
}

// ComputeLocal re-expresses the global transform child relative to parent, so that
// parent.Compose(ComputeLocal(parent, child)) == child.
func ComputeLocal(parent, child Transform) Transform {
	inv := parent.Rot.Conjugate()
	return Transform{
		Pos:   divElem(inv.Rotate(child.Pos.Sub(parent.Pos)), parent.Scale),
		Rot:   inv.Mul(child.Rot).Normalize(),
		Scale: divElem(child.Scale, parent.Scale),
	}
}

// ApproxEqual compares two transforms component-wise within eps. Quaternions q and -q
// describe the same rotation and compare equal.
func (t Transform) ApproxEqual(o Transform, eps float64) bool {
	if !t.Pos.ApproxEqualThreshold(o.Pos, eps) || !t.Scale.ApproxEqualThreshold(o.Scale, eps) {
		return false
	}
	if t.Rot.ApproxEqualThreshold(o.Rot, eps) {
		return true
	}
	neg := mgl64.Quat{W: -o.Rot.W, V: o.Rot.V.Mul(-1)}
	return t.Rot.ApproxEqualThreshold(neg, eps)
}

// RelativeMatrix builds a single precision model matrix for t re-based around origin.
// The subtraction happens in float64; only the small delta is downcast.
func (t Transform) RelativeMatrix(origin mgl64.Vec3) mgl32.Mat4 {
	m := t.Rot.Mat4().Mul4(mgl64.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
	delta := t.Pos.Sub(origin)
	m[12], m[13], m[14] = delta[0], delta[1], delta[2]

	var out mgl32.Mat4
	for i := range m {
		out[i] = float32(m[i])
	}
	return out
}

// EulerDegrees converts XYZ euler angles in degrees to a quaternion.
func EulerDegrees(x, y, z float64) mgl64.Quat {
	return mgl64.AnglesToQuat(mgl64.DegToRad(x), mgl64.DegToRad(y), mgl64.DegToRad(z), mgl64.XYZ).Normalize()
}

func mulElem(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// divElem divides component-wise; a zero divisor yields zero instead of Inf.
func divElem(a, b mgl64.Vec3) mgl64.Vec3 {
	var out mgl64.Vec3
	for i := range out {
		if b[i] != 0 {
			out[i] = a[i] / b[i]
		}
	}
	return out
}
