package nav

import (
	"bytes"
	"testing"

	"github.com/blackforge/engine/internal/core/ecs"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWorld(t *testing.T) (*ecs.World, *Module) {
	t.Helper()
	eng := ecs.NewEngine(zap.NewNop())
	eng.RegisterPlugin(NewPlugin(zap.NewNop()))
	w := eng.NewWorld(ecs.DefaultOptions())
	t.Cleanup(w.Close)
	return w, From(w)
}

func TestMoveToArrives(t *testing.T) {
	w, m := newWorld(t)
	e := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	m.AddAgent(e).Speed = 2
	require.NoError(t, m.MoveTo(e, mgl64.Vec3{3, 0, 4}))

	var arrived []ecs.EntityRef
	m.Arrived().Subscribe(func(e ecs.EntityRef) { arrived = append(arrived, e) })

	w.Update(1)
	assert.InDelta(t, 2, w.Position(e).Len(), 1e-9)
	assert.Empty(t, arrived)

	w.Update(10)
	assert.True(t, w.Position(e).ApproxEqualThreshold(mgl64.Vec3{3, 0, 4}, 1e-9))
	assert.Equal(t, []ecs.EntityRef{e}, arrived)

	a, _ := m.Agent(e)
	assert.False(t, a.HasDestination)
	w.Update(1)
	assert.Len(t, arrived, 1)
}

func TestFollowStopsAtRadiusAndClearsOnDestroy(t *testing.T) {
	w, m := newWorld(t)
	hunter := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	prey := w.CreateEntity(mgl64.Vec3{10, 0, 0}, mgl64.QuatIdent())
	a := m.AddAgent(hunter)
	a.Speed = 100
	a.Radius = 1
	require.NoError(t, m.FollowEntity(hunter, prey))
	assert.Error(t, m.FollowEntity(hunter, hunter))

	w.Update(1)
	assert.True(t, w.Position(hunter).ApproxEqualThreshold(mgl64.Vec3{9, 0, 0}, 1e-9))

	w.DestroyEntity(prey)
	assert.False(t, a.Follow.IsValid())
	w.Update(1)
	assert.True(t, w.Position(hunter).ApproxEqualThreshold(mgl64.Vec3{9, 0, 0}, 1e-9))
}

func TestAgentCarriesChildren(t *testing.T) {
	w, m := newWorld(t)
	cart := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	cargo := w.CreateEntity(mgl64.Vec3{0, 1, 0}, mgl64.QuatIdent())
	require.NoError(t, w.SetParent(cart.Ptr(), cargo))
	m.AddAgent(cart).Speed = 1
	require.NoError(t, m.MoveTo(cart, mgl64.Vec3{5, 0, 0}))

	w.Update(1)
	assert.True(t, w.Position(cargo).ApproxEqualThreshold(mgl64.Vec3{1, 1, 0}, 1e-9))
}

func TestNavSnapshotRemapsFollow(t *testing.T) {
	src, sm := newWorld(t)
	prey := src.CreateEntity(mgl64.Vec3{5, 0, 0}, mgl64.QuatIdent())
	hunter := src.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	sm.AddAgent(hunter).Speed = 7
	require.NoError(t, sm.FollowEntity(hunter, prey))

	var buf bytes.Buffer
	require.NoError(t, src.Serialize(&buf, ecs.SerializeNone))

	dst, dm := newWorld(t)
	dst.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	em := ecs.NewEntityMap(0)
	_, err := dst.Deserialize(&buf, em)
	require.NoError(t, err)

	a, ok := dm.Agent(em.GetRef(hunter))
	require.True(t, ok)
	assert.Equal(t, 7.0, a.Speed)
	assert.Equal(t, em.GetRef(prey).Ptr(), a.Follow)
}
