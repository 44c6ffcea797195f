package ecs

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEntityReusesFreedSlot(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	counter := addCounterModule(w, "counter")

	e := w.CreateEntity(mgl64.Vec3{1, 2, 3}, mgl64.QuatRotate(1, mgl64.Vec3{0, 1, 0}))
	w.SetScale(e, mgl64.Vec3{4, 4, 4})
	w.CreateComponent(counter.typ, e)
	w.DestroyEntity(e)
	assert.False(t, w.HasEntity(e))

	again := w.CreateEntity(mgl64.Vec3{7, 8, 9}, mgl64.QuatIdent())
	require.Equal(t, e, again)
	assert.Equal(t, mgl64.Vec3{7, 8, 9}, w.Position(again))
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, w.Scale(again))
	assert.Equal(t, ComponentMask(0), w.ComponentsMask(again))
	assert.False(t, w.Parent(again).IsValid())
	assert.Empty(t, w.EntityName(again))
}

func TestFreeListIsLIFO(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())

	var all []EntityRef
	for i := 0; i < 100; i++ {
		all = append(all, w.CreateEntity(mgl64.Vec3{float64(i), 0, 0}, mgl64.QuatIdent()))
	}
	for i := 0; i < 100; i += 2 {
		w.DestroyEntity(all[i])
	}
	require.Equal(t, 50, w.EntityCount())

	live := map[EntityRef]bool{}
	for i := 1; i < 100; i += 2 {
		live[all[i]] = true
	}
	for i := 0; i < 50; i++ {
		e := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
		// the last slot freed comes back first: 98, 96, ..., 0
		assert.Equal(t, EntityRef(98-2*i), e)
		assert.False(t, live[e], "index %d handed out twice", e)
		live[e] = true
	}
	assert.Len(t, live, 100)
	assert.Equal(t, 100, w.EntityCount())
	assert.Len(t, w.entities.data, 100, "no slot appended while free slots remained")
}

func TestEntityIteration(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	a := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	b := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	c := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	w.DestroyEntity(b)

	assert.Equal(t, a.Ptr(), w.FirstEntity())
	assert.Equal(t, c.Ptr(), w.NextEntity(a))
	assert.Equal(t, InvalidEntity, w.NextEntity(c))

	var seen []EntityRef
	for e := range w.Entities() {
		seen = append(seen, e)
	}
	assert.Equal(t, []EntityRef{a, c}, seen)
}

func TestDestroyDeadEntityPanics(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	e := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	w.DestroyEntity(e)
	assert.Panics(t, func() { w.DestroyEntity(e) })
	assert.Panics(t, func() { w.Position(e) })
}

func TestEmplaceEntity(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())

	w.EmplaceEntity(5)
	require.True(t, w.HasEntity(5))
	assert.Equal(t, 1, w.EntityCount())
	for i := EntityRef(0); i < 5; i++ {
		assert.False(t, w.HasEntity(i))
	}

	// placeholders are ordinary free slots; the newest one pops first
	assert.Equal(t, EntityRef(4), w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent()))

	w.EmplaceEntity(2)
	got := map[EntityRef]bool{}
	for i := 0; i < 3; i++ {
		got[w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())] = true
	}
	assert.Equal(t, map[EntityRef]bool{0: true, 1: true, 3: true}, got)
	assert.Equal(t, EntityRef(6), w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent()))

	assert.Panics(t, func() { w.EmplaceEntity(5) })
}

func TestEntityMap(t *testing.T) {
	m := NewEntityMap(0)
	m.Set(3, 10)
	m.Set(0, 11)

	assert.Equal(t, EntityPtr(10), m.Get(3))
	assert.Equal(t, EntityRef(11), m.GetRef(0))
	assert.Equal(t, InvalidEntity, m.Get(1))
	assert.Equal(t, InvalidEntity, m.Get(InvalidEntity))
	assert.Equal(t, InvalidEntity, m.Get(99))
	assert.Equal(t, 4, m.Len())
	assert.Panics(t, func() { m.GetRef(2) })
}

func TestEntityCreatedAndDestroyedSignals(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	counter := addCounterModule(w, "counter")

	var created, destroyed []EntityRef
	w.EntityCreated().Subscribe(func(e EntityRef) { created = append(created, e) })
	sub := w.EntityDestroyed().Subscribe(func(e EntityRef) {
		// observers never see a half-destroyed entity
		assert.False(t, w.HasEntity(e))
		assert.False(t, counter.values.Has(e))
		destroyed = append(destroyed, e)
	})

	e := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	w.CreateComponent(counter.typ, e)
	w.DestroyEntity(e)
	assert.Equal(t, []EntityRef{e}, created)
	assert.Equal(t, []EntityRef{e}, destroyed)

	w.EntityDestroyed().Unsubscribe(sub)
	w.DestroyEntity(w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent()))
	assert.Len(t, destroyed, 1)
}

func TestDestroyQueue(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	a := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	b := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())

	w.MarkForDestruction(a)
	w.MarkForDestruction(a)
	w.MarkForDestruction(b)
	assert.True(t, w.HasEntity(a))

	// b dies early and its slot is reused before the flush
	w.DestroyEntity(b)
	reused := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	require.Equal(t, b, reused)

	assert.Equal(t, 1, w.FlushDestroyQueue())
	assert.False(t, w.HasEntity(a))
	assert.True(t, w.HasEntity(reused))
	assert.Equal(t, 0, w.FlushDestroyQueue())
}
