package ecs

import (
	"fmt"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentBitmask(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	health := addCounterModule(w, "health")
	ammo := addCounterModule(w, "ammo")
	e := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())

	w.CreateComponent(health.typ, e)
	w.CreateComponent(ammo.typ, e)
	assert.True(t, w.HasComponent(e, health.typ))
	assert.True(t, w.Component(e, ammo.typ).IsValid())
	assert.Equal(t, MaskOf(health.typ, ammo.typ), w.ComponentsMask(e))

	var types []ComponentType
	for c := range w.Components(e) {
		assert.Equal(t, e.Ptr(), c.Entity)
		types = append(types, c.Type)
	}
	assert.Equal(t, []ComponentType{health.typ, ammo.typ}, types)

	w.DestroyComponent(e, health.typ)
	assert.False(t, w.HasComponent(e, health.typ))
	assert.False(t, w.Component(e, health.typ).IsValid())
	assert.False(t, health.values.Has(e))
	for c := w.FirstComponent(e); c.IsValid(); c = w.NextComponent(c) {
		assert.NotEqual(t, health.typ, c.Type)
	}
	assert.Equal(t, ammo, w.Component(e, ammo.typ).Module)
}

func TestComponentSignals(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	counter := addCounterModule(w, "counter")
	e := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())

	var added, removed []ComponentUID
	w.ComponentAdded().Subscribe(func(c ComponentUID) { added = append(added, c) })
	w.ComponentDestroyed().Subscribe(func(c ComponentUID) { removed = append(removed, c) })

	w.CreateComponent(counter.typ, e)
	w.DestroyEntity(e)

	require.Len(t, added, 1)
	require.Len(t, removed, 1)
	assert.Equal(t, counter.typ, added[0].Type)
	assert.Equal(t, e.Ptr(), removed[0].Entity)
}

func TestForgottenComponentCallbackPanics(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	counter := addCounterModule(w, "counter")
	e := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	w.CreateComponent(counter.typ, e)

	counter.forget = true
	assert.Panics(t, func() { w.DestroyEntity(e) })
}

func TestUnregisteredComponentTypePanics(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	e := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	orphan := w.Types().Type("orphan")

	assert.Panics(t, func() { w.CreateComponent(orphan, e) })
	assert.Panics(t, func() { w.OnComponentDestroyed(e, orphan, nil) })
	assert.Nil(t, w.ModuleFor(orphan))
}

func TestRegisterComponentTypeTwicePanics(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	counter := addCounterModule(w, "counter")
	assert.Panics(t, func() { w.RegisterComponentType(counter.typ, counter, counter) })
}

func TestEntitiesWith(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	a := addCounterModule(w, "a")
	b := addCounterModule(w, "b")
	e1 := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	e2 := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	w.CreateComponent(a.typ, e1)
	w.CreateComponent(b.typ, e1)
	w.CreateComponent(a.typ, e2)

	var both, onlyA []EntityRef
	for e := range w.EntitiesWith(a.typ, b.typ) {
		both = append(both, e)
	}
	for e := range w.EntitiesWith(a.typ) {
		onlyA = append(onlyA, e)
	}
	assert.Equal(t, []EntityRef{e1}, both)
	assert.Equal(t, []EntityRef{e1, e2}, onlyA)
}

func TestTypeRegistry(t *testing.T) {
	r := NewTypeRegistry()
	mesh := r.Type("model_instance")
	assert.Equal(t, mesh, r.Type("model_instance"))
	assert.Equal(t, "model_instance", r.Name(mesh))
	_, ok := r.Lookup("camera")
	assert.False(t, ok)

	for i := r.Count(); i < MaxComponentTypes; i++ {
		r.Type(fmt.Sprintf("type_%d", i))
	}
	assert.Equal(t, MaxComponentTypes, r.Count())
	assert.Panics(t, func() { r.Type("one_too_many") })
	assert.Equal(t, mesh, r.Type("model_instance"))
}

func TestTypeRegistryConcurrentAssign(t *testing.T) {
	r := NewTypeRegistry()
	var wg sync.WaitGroup
	got := make([]ComponentType, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = r.Type("shared")
		}(i)
	}
	wg.Wait()
	for _, ty := range got {
		assert.Equal(t, got[0], ty)
	}
	assert.Equal(t, 1, r.Count())
}

func TestSignalUnsubscribeInsideHandler(t *testing.T) {
	var s Signal[int]
	var calls []string
	var first Subscription
	first = s.Subscribe(func(int) {
		calls = append(calls, "first")
		s.Unsubscribe(first)
	})
	s.Subscribe(func(int) { calls = append(calls, "second") })

	s.Emit(1)
	s.Emit(2)
	assert.Equal(t, []string{"first", "second", "second"}, calls)
	assert.Equal(t, 1, s.Len())
}

func TestSignalHandlerRemovedDuringEmitIsSkipped(t *testing.T) {
	var s Signal[int]
	var calls []string
	var second Subscription
	s.Subscribe(func(int) {
		calls = append(calls, "first")
		s.Unsubscribe(second)
	})
	second = s.Subscribe(func(int) { calls = append(calls, "second") })

	s.Emit(1)
	assert.Equal(t, []string{"first"}, calls)
	assert.Equal(t, 1, s.Len())
}

func TestModulesLifecycle(t *testing.T) {
	eng := NewEngine(nil)
	p := &recordingPlugin{}
	eng.RegisterPlugin(p)
	w := eng.NewWorld(DefaultOptions())

	require.NotNil(t, w.Module("recording"))
	assert.True(t, p.mod.initialized)
	w.Update(0.5)
	w.Update(0.25)
	assert.Equal(t, 0.75, p.mod.elapsed)
	assert.Panics(t, func() { w.AddModule(&recordingModule{}) })

	w.Close()
	assert.True(t, p.mod.closed)
	eng.Shutdown()
	assert.Empty(t, eng.Plugins())
}

type recordingPlugin struct{ mod *recordingModule }

func (p *recordingPlugin) Name() string { return "recording" }

func (p *recordingPlugin) CreateModules(w *World) {
	p.mod = &recordingModule{}
	w.AddModule(p.mod)
}

type recordingModule struct {
	initialized bool
	closed      bool
	elapsed     float64
}

func (m *recordingModule) Name() string      { return "recording" }
func (m *recordingModule) Init()             { m.initialized = true }
func (m *recordingModule) Update(dt float64) { m.elapsed += dt }
func (m *recordingModule) Close()            { m.closed = true }
