// Package nav moves navmesh agents toward a destination or another entity.
// Agents steer in a straight line; there is no path search.
package nav

import (
	"fmt"

	"github.com/blackforge/engine/internal/core/ecs"
	"github.com/blackforge/engine/internal/core/stream"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

const (
	ModuleName = "nav"
	AgentType  = "navmesh_agent"
)

const moduleVersion int32 = 1

type Agent struct {
	Radius float64
	Height float64
	Speed  float64 // units per second

	Follow         ecs.EntityPtr
	Destination    mgl64.Vec3
	HasDestination bool
}

type Plugin struct {
	log *zap.Logger
}

func NewPlugin(log *zap.Logger) *Plugin {
	return &Plugin{log: log.Named(ModuleName)}
}

func (p *Plugin) Name() string { return ModuleName }

func (p *Plugin) CreateModules(w *ecs.World) {
	w.AddModule(newModule(w, p.log))
}

type Module struct {
	w      *ecs.World
	log    *zap.Logger
	typ    ecs.ComponentType
	agents *ecs.Store[Agent]

	arrived      ecs.Signal[ecs.EntityRef]
	destroyedSub ecs.Subscription
	scratch      []ecs.EntityRef
}

func newModule(w *ecs.World, log *zap.Logger) *Module {
	m := &Module{
		w:      w,
		log:    log,
		typ:    w.Types().Type(AgentType),
		agents: ecs.NewStore[Agent](),
	}
	w.RegisterComponentType(m.typ, m, m)
	m.destroyedSub = w.EntityDestroyed().Subscribe(m.onEntityDestroyed)
	return m
}

func From(w *ecs.World) *Module {
	m, _ := w.Module(ModuleName).(*Module)
	return m
}

func (m *Module) Name() string                 { return ModuleName }
func (m *Module) AgentType() ecs.ComponentType { return m.typ }

// Arrived fires when an agent reaches its destination.
func (m *Module) Arrived() *ecs.Signal[ecs.EntityRef] { return &m.arrived }

func (m *Module) CreateComponent(w *ecs.World, e ecs.EntityRef) {
	m.agents.Set(e, &Agent{Radius: 0.5, Height: 2, Speed: 3, Follow: ecs.InvalidEntity})
	w.OnComponentCreated(e, m.typ, m)
}

func (m *Module) DestroyComponent(w *ecs.World, e ecs.EntityRef) {
	m.agents.Remove(e)
	w.OnComponentDestroyed(e, m.typ, m)
}

func (m *Module) onEntityDestroyed(e ecs.EntityRef) {
	m.agents.Each(func(owner ecs.EntityRef, a *Agent) {
		if a.Follow == e.Ptr() {
			a.Follow = ecs.InvalidEntity
			m.log.Debug("follow target destroyed",
				zap.Int32("agent", int32(owner)),
				zap.Int32("target", int32(e)))
		}
	})
}

// AddAgent attaches an agent with default dimensions to e.
func (m *Module) AddAgent(e ecs.EntityRef) *Agent {
	if !m.agents.Has(e) {
		m.w.CreateComponent(m.typ, e)
	}
	a, _ := m.agents.Get(e)
	return a
}

func (m *Module) Agent(e ecs.EntityRef) (*Agent, bool) {
	return m.agents.Get(e)
}

// MoveTo sends e's agent to pos and stops following.
func (m *Module) MoveTo(e ecs.EntityRef, pos mgl64.Vec3) error {
	a, ok := m.agents.Get(e)
	if !ok {
		return fmt.Errorf("entity %d has no agent", e)
	}
	a.Follow = ecs.InvalidEntity
	a.Destination = pos
	a.HasDestination = true
	return nil
}

// FollowEntity makes e's agent chase target until stopped or target is destroyed.
func (m *Module) FollowEntity(e, target ecs.EntityRef) error {
	a, ok := m.agents.Get(e)
	if !ok {
		return fmt.Errorf("entity %d has no agent", e)
	}
	if e == target {
		return fmt.Errorf("agent %d can not follow itself", e)
	}
	a.Follow = target.Ptr()
	a.HasDestination = false
	return nil
}

func (m *Module) Stop(e ecs.EntityRef) {
	if a, ok := m.agents.Get(e); ok {
		a.Follow = ecs.InvalidEntity
		a.HasDestination = false
	}
}

// Update advances every agent by Speed*dt. Followers stop at Radius from their target.
func (m *Module) Update(dt float64) {
	m.scratch = m.scratch[:0]
	for e := range m.w.EntitiesWith(m.typ) {
		m.scratch = append(m.scratch, e)
	}
	for _, e := range m.scratch {
		a, ok := m.agents.Get(e)
		if !ok {
			continue
		}
		var target mgl64.Vec3
		stopAt := 0.0
		switch {
		case a.Follow.IsValid():
			target = m.w.Position(a.Follow.MustRef())
			stopAt = a.Radius
		case a.HasDestination:
			target = a.Destination
		default:
			continue
		}

		pos := m.w.Position(e)
		delta := target.Sub(pos)
		dist := delta.Len() - stopAt
		if dist <= 0 {
			m.arrive(e, a)
			continue
		}
		step := a.Speed * dt
		if step >= dist {
			m.w.SetPosition(e, pos.Add(delta.Normalize().Mul(dist)))
			m.arrive(e, a)
			continue
		}
		m.w.SetPosition(e, pos.Add(delta.Normalize().Mul(step)))
	}
}

func (m *Module) arrive(e ecs.EntityRef, a *Agent) {
	if !a.HasDestination {
		return
	}
	a.HasDestination = false
	m.arrived.Emit(e)
}

func (m *Module) Version() int32 { return moduleVersion }

func (m *Module) Serialize(b *stream.Writer) {
	b.WriteU32(uint32(m.agents.Len()))
	for e := range m.w.EntitiesWith(m.typ) {
		a, _ := m.agents.Get(e)
		b.WriteI32(int32(e))
		b.WriteF64(a.Radius)
		b.WriteF64(a.Height)
		b.WriteF64(a.Speed)
		b.WriteI32(int32(a.Follow))
		b.WriteVec3(a.Destination)
		b.WriteBool(a.HasDestination)
	}
}

func (m *Module) Deserialize(r *stream.Reader, em *ecs.EntityMap, version int32) error {
	if version > moduleVersion {
		return fmt.Errorf("%w: nav %d", ecs.ErrUnsupportedVersion, version)
	}
	n := r.ReadU32()
	for i := uint32(0); i < n; i++ {
		e := em.Get(ecs.EntityPtr(r.ReadI32()))
		a := &Agent{
			Radius: r.ReadF64(),
			Height: r.ReadF64(),
			Speed:  r.ReadF64(),
		}
		a.Follow = em.Get(ecs.EntityPtr(r.ReadI32()))
		a.Destination = r.ReadVec3()
		a.HasDestination = r.ReadBool()
		if r.Overflow() || !e.IsValid() {
			return fmt.Errorf("%w: nav agents", ecs.ErrCorrupted)
		}
		m.agents.Set(e.MustRef(), a)
		m.w.OnComponentCreated(e.MustRef(), m.typ, m)
	}
	return nil
}

func (m *Module) Close() {
	m.w.EntityDestroyed().Unsubscribe(m.destroyedSub)
}
