package render

import (
	"testing"

	"github.com/blackforge/engine/internal/core/ecs"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellGridNegativeCoordinates(t *testing.T) {
	assert.Equal(t, int32(-1), toCell(-0.5))
	assert.Equal(t, int32(-1), toCell(-gridCellSize))
	assert.Equal(t, int32(0), toCell(gridCellSize-0.001))

	g := newCellGrid()
	g.add(1, mgl64.Vec3{-1, 0, -1})
	g.add(2, mgl64.Vec3{1, 0, 1})
	g.add(3, mgl64.Vec3{500, 0, 500})
	assert.Equal(t, []ecs.EntityRef{1, 2}, g.near(mgl64.Vec3{}, 10))

	g.move(3, mgl64.Vec3{5, 0, 5})
	assert.Equal(t, []ecs.EntityRef{1, 2, 3}, g.near(mgl64.Vec3{}, 10))

	g.remove(1)
	g.remove(1)
	assert.Equal(t, 2, g.len())
	assert.Equal(t, []ecs.EntityRef{2, 3}, g.near(mgl64.Vec3{}, 1e6))
}

func TestDrawListNearFollowsHierarchy(t *testing.T) {
	w, m := newWorld(t)
	cart := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	crate := w.CreateEntity(mgl64.Vec3{0, 1, 0}, mgl64.QuatIdent())
	require.NoError(t, w.SetParent(cart.Ptr(), crate))
	m.AddModel(cart, "cart.mesh")
	m.AddModel(crate, "crate.mesh")
	distant := w.CreateEntity(mgl64.Vec3{40, 0, 0}, mgl64.QuatIdent())
	m.AddModel(distant, "tree.mesh")

	items := m.DrawListNear(mgl64.Vec3{}, 10)
	require.Len(t, items, 2)
	assert.Equal(t, cart, items[0].Entity)
	assert.Equal(t, crate, items[1].Entity)

	// moving the parent re-buckets the child too
	w.SetPosition(cart, mgl64.Vec3{200, 0, 0})
	assert.Empty(t, m.DrawListNear(mgl64.Vec3{}, 10))
	items = m.DrawListNear(mgl64.Vec3{200, 0, 0}, 10)
	require.Len(t, items, 2)
	assert.InDelta(t, 1, items[1].Matrix[13], 1e-6)

	w.DestroyEntity(distant)
	assert.Equal(t, 2, m.grid.len())
}
