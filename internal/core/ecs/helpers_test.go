package ecs

import (
	"testing"

	"github.com/blackforge/engine/internal/core/stream"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestWorld(t *testing.T, opts Options) (*World, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	eng := NewEngine(zap.New(core))
	w := eng.NewWorld(opts)
	t.Cleanup(w.Close)
	return w, logs
}

// counterModule owns one component type whose data is a single int per entity.
type counterModule struct {
	w      *World
	name   string
	typ    ComponentType
	values *Store[int32]
	// forget skips the OnComponentDestroyed callback.
	forget bool
}

func addCounterModule(w *World, name string) *counterModule {
	m := &counterModule{
		w:      w,
		name:   name,
		typ:    w.Types().Type(name),
		values: NewStore[int32](),
	}
	w.AddModule(m)
	w.RegisterComponentType(m.typ, m, m)
	return m
}

func (m *counterModule) Name() string { return m.name }

func (m *counterModule) CreateComponent(w *World, e EntityRef) {
	v := int32(0)
	m.values.Set(e, &v)
	w.OnComponentCreated(e, m.typ, m)
}

func (m *counterModule) DestroyComponent(w *World, e EntityRef) {
	m.values.Remove(e)
	if !m.forget {
		w.OnComponentDestroyed(e, m.typ, m)
	}
}

func (m *counterModule) Version() int32 { return 1 }

func (m *counterModule) Serialize(b *stream.Writer) {
	b.WriteU32(uint32(m.values.Len()))
	m.values.Each(func(e EntityRef, v *int32) {
		b.WriteI32(int32(e))
		b.WriteI32(*v)
	})
}

func (m *counterModule) Deserialize(r *stream.Reader, em *EntityMap, _ int32) error {
	n := r.ReadU32()
	for i := uint32(0); i < n; i++ {
		src := EntityPtr(r.ReadI32())
		v := r.ReadI32()
		if r.Overflow() {
			return ErrCorrupted
		}
		e := em.Get(src).MustRef()
		m.values.Set(e, &v)
		m.w.OnComponentCreated(e, m.typ, m)
	}
	return nil
}
