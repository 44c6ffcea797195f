// Package render owns the model_instance and camera component types and turns
// them into draw lists re-based around a camera origin.
package render

import (
	"fmt"
	"slices"

	"github.com/blackforge/engine/internal/core/ecs"
	"github.com/blackforge/engine/internal/core/stream"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

const (
	ModuleName = "render"
	ModelType  = "model_instance"
	CameraType = "camera"
)

const moduleVersion int32 = 1

// Model is a mesh placed at its entity's transform.
type Model struct {
	Path    string
	Visible bool
}

// Camera describes a perspective view from its entity. A valid LookAt turns the
// camera toward that entity instead of using the entity's own rotation.
type Camera struct {
	FOV    float32 // degrees
	Near   float32
	Far    float32
	LookAt ecs.EntityPtr
}

// DrawItem is one visible model with its model matrix relative to the draw origin.
type DrawItem struct {
	Entity ecs.EntityRef
	Path   string
	Matrix mgl32.Mat4
}

// Plugin creates a render Module in every world.
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

// Module holds render components of one world.
type Module struct {
	w   *ecs.World
	log *zap.Logger

	modelType  ecs.ComponentType
	cameraType ecs.ComponentType
	models     *ecs.Store[Model]
	cameras    *ecs.Store[Camera]

	moved map[ecs.EntityRef]struct{}
	grid  *cellGrid

	movedSub     ecs.Subscription
	destroyedSub ecs.Subscription
}

func newModule(w *ecs.World, log *zap.Logger) *Module {
	m := &Module{
		w:          w,
		log:        log,
		modelType:  w.Types().Type(ModelType),
		cameraType: w.Types().Type(CameraType),
		models:     ecs.NewStore[Model](),
		cameras:    ecs.NewStore[Camera](),
		moved:      make(map[ecs.EntityRef]struct{}),
		grid:       newCellGrid(),
	}
	w.RegisterComponentType(m.modelType, m, ecs.FactoryFuncs{Create: m.createModel, Destroy: m.destroyModel})
	w.RegisterComponentType(m.cameraType, m, ecs.FactoryFuncs{Create: m.createCamera, Destroy: m.destroyCamera})

	m.movedSub = w.ComponentTransformed(m.modelType).Subscribe(func(e ecs.EntityRef) {
		m.moved[e] = struct{}{}
		m.grid.move(e, w.Position(e))
	})
	m.destroyedSub = w.EntityDestroyed().Subscribe(m.onEntityDestroyed)
	return m
}

// From returns the render module of w, nil if the plugin is not installed.
func From(w *ecs.World) *Module {
	m, _ := w.Module(ModuleName).(*Module)
	return m
}

func (m *Module) Name() string { return ModuleName }

func (m *Module) ModelType() ecs.ComponentType  { return m.modelType }
func (m *Module) CameraType() ecs.ComponentType { return m.cameraType }

func (m *Module) createModel(w *ecs.World, e ecs.EntityRef) {
	m.models.Set(e, &Model{Visible: true})
	m.grid.add(e, w.Position(e))
	w.OnComponentCreated(e, m.modelType, m)
}

func (m *Module) destroyModel(w *ecs.World, e ecs.EntityRef) {
	m.models.Remove(e)
	m.grid.remove(e)
	delete(m.moved, e)
	w.OnComponentDestroyed(e, m.modelType, m)
}

func (m *Module) createCamera(w *ecs.World, e ecs.EntityRef) {
	m.cameras.Set(e, &Camera{FOV: 60, Near: 0.1, Far: 1000, LookAt: ecs.InvalidEntity})
	w.OnComponentCreated(e, m.cameraType, m)
}

func (m *Module) destroyCamera(w *ecs.World, e ecs.EntityRef) {
	m.cameras.Remove(e)
	w.OnComponentDestroyed(e, m.cameraType, m)
}

func (m *Module) onEntityDestroyed(e ecs.EntityRef) {
	m.cameras.Each(func(_ ecs.EntityRef, c *Camera) {
		if c.LookAt == e.Ptr() {
			c.LookAt = ecs.InvalidEntity
		}
	})
}

// AddModel attaches a visible model to e.
func (m *Module) AddModel(e ecs.EntityRef, path string) *Model {
	if !m.models.Has(e) {
		m.w.CreateComponent(m.modelType, e)
	}
	c, _ := m.models.Get(e)
	c.Path = path
	return c
}

func (m *Module) Model(e ecs.EntityRef) (*Model, bool) {
	return m.models.Get(e)
}

// AddCamera attaches a camera with default projection settings to e.
func (m *Module) AddCamera(e ecs.EntityRef) *Camera {
	if !m.cameras.Has(e) {
		m.w.CreateComponent(m.cameraType, e)
	}
	c, _ := m.cameras.Get(e)
	return c
}

func (m *Module) Camera(e ecs.EntityRef) (*Camera, bool) {
	return m.cameras.Get(e)
}

// TakeMoved returns models whose transform changed since the last call, in entity order.
func (m *Module) TakeMoved() []ecs.EntityRef {
	out := make([]ecs.EntityRef, 0, len(m.moved))
	for e := range m.moved {
		out = append(out, e)
	}
	clear(m.moved)
	slices.Sort(out)
	return out
}

// DrawList returns every visible model in entity order, with matrices relative to origin.
func (m *Module) DrawList(origin mgl64.Vec3) []DrawItem {
	items := make([]DrawItem, 0, m.models.Len())
	for e := range m.w.EntitiesWith(m.modelType) {
		c, _ := m.models.Get(e)
		if !c.Visible || c.Path == "" {
			continue
		}
		items = append(items, DrawItem{
			Entity: e,
			Path:   c.Path,
			Matrix: m.w.RelativeMatrix(e, origin),
		})
	}
	return items
}

// DrawListNear is DrawList limited to models within radius of origin, found
// through the cell grid.
func (m *Module) DrawListNear(origin mgl64.Vec3, radius float64) []DrawItem {
	var items []DrawItem
	for _, e := range m.grid.near(origin, radius) {
		c, ok := m.models.Get(e)
		if !ok || !c.Visible || c.Path == "" {
			continue
		}
		if m.w.Position(e).Sub(origin).Len() > radius {
			continue
		}
		items = append(items, DrawItem{
			Entity: e,
			Path:   c.Path,
			Matrix: m.w.RelativeMatrix(e, origin),
		})
	}
	return items
}

// View returns the view matrix of camera e with the camera itself as origin, so it
// pairs with DrawList(w.Position(e)).
func (m *Module) View(e ecs.EntityRef) (mgl32.Mat4, error) {
	c, ok := m.cameras.Get(e)
	if !ok {
		return mgl32.Ident4(), fmt.Errorf("entity %d has no camera", e)
	}
	eye := m.w.Position(e)
	var forward mgl64.Vec3
	if target, ok := c.LookAt.Ref(); ok && m.w.HasEntity(target) {
		forward = m.w.Position(target).Sub(eye)
	} else {
		forward = m.w.Rotation(e).Rotate(mgl64.Vec3{0, 0, -1})
	}
	if forward.Len() == 0 {
		forward = mgl64.Vec3{0, 0, -1}
	}
	f := vec32(forward.Normalize())
	return mgl32.LookAtV(mgl32.Vec3{}, f, mgl32.Vec3{0, 1, 0}), nil
}

// Projection returns camera e's perspective matrix for the given aspect ratio.
func (m *Module) Projection(e ecs.EntityRef, aspect float32) (mgl32.Mat4, error) {
	c, ok := m.cameras.Get(e)
	if !ok {
		return mgl32.Ident4(), fmt.Errorf("entity %d has no camera", e)
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.Near, c.Far), nil
}

func vec32(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

func (m *Module) Version() int32 { return moduleVersion }

func (m *Module) Serialize(b *stream.Writer) {
	b.WriteU32(uint32(m.models.Len()))
	for e := range m.w.EntitiesWith(m.modelType) {
		c, _ := m.models.Get(e)
		b.WriteI32(int32(e))
		b.WriteString(c.Path)
		b.WriteBool(c.Visible)
	}
	b.WriteU32(uint32(m.cameras.Len()))
	for e := range m.w.EntitiesWith(m.cameraType) {
		c, _ := m.cameras.Get(e)
		b.WriteI32(int32(e))
		b.WriteF32(c.FOV)
		b.WriteF32(c.Near)
		b.WriteF32(c.Far)
		b.WriteI32(int32(c.LookAt))
	}
}

func (m *Module) Deserialize(r *stream.Reader, em *ecs.EntityMap, version int32) error {
	if version > moduleVersion {
		return fmt.Errorf("%w: render %d", ecs.ErrUnsupportedVersion, version)
	}
	n := r.ReadU32()
	for i := uint32(0); i < n; i++ {
		e := em.Get(ecs.EntityPtr(r.ReadI32()))
		c := &Model{Path: r.ReadString(), Visible: r.ReadBool()}
		if r.Overflow() || !e.IsValid() {
			return fmt.Errorf("%w: render models", ecs.ErrCorrupted)
		}
		m.models.Set(e.MustRef(), c)
		m.grid.add(e.MustRef(), m.w.Position(e.MustRef()))
		m.w.OnComponentCreated(e.MustRef(), m.modelType, m)
	}
	n = r.ReadU32()
	for i := uint32(0); i < n; i++ {
		e := em.Get(ecs.EntityPtr(r.ReadI32()))
		c := &Camera{FOV: r.ReadF32(), Near: r.ReadF32(), Far: r.ReadF32()}
		c.LookAt = em.Get(ecs.EntityPtr(r.ReadI32()))
		if r.Overflow() || !e.IsValid() {
			return fmt.Errorf("%w: render cameras", ecs.ErrCorrupted)
		}
		m.cameras.Set(e.MustRef(), c)
		m.w.OnComponentCreated(e.MustRef(), m.cameraType, m)
	}
	m.log.Debug("render components loaded",
		zap.Int("models", m.models.Len()),
		zap.Int("cameras", m.cameras.Len()))
	return nil
}

func (m *Module) Close() {
	m.w.ComponentTransformed(m.modelType).Unsubscribe(m.movedSub)
	m.w.EntityDestroyed().Unsubscribe(m.destroyedSub)
}
