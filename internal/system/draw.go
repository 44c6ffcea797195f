package system

import (
	"time"

	"github.com/blackforge/engine/internal/core/ecs"
	coresys "github.com/blackforge/engine/internal/core/system"
	"github.com/blackforge/engine/internal/module/render"
	"go.uber.org/zap"
)

// DrawSystem builds the draw list relative to the active camera every tick, cut
// at the camera's far plane when the entity has a camera component.
// There is no GPU backend; the list is kept for inspection and logged at debug.
// Phase 3 (Render).
type DrawSystem struct {
	world  *ecs.World
	render *render.Module
	camera string
	log    *zap.Logger

	items []render.DrawItem
	moved int
}

// NewDrawSystem returns nil when w has no render module.
func NewDrawSystem(w *ecs.World, camera string, log *zap.Logger) *DrawSystem {
	r := render.From(w)
	if r == nil {
		return nil
	}
	return &DrawSystem{world: w, render: r, camera: camera, log: log}
}

func (s *DrawSystem) Phase() coresys.Phase { return coresys.PhaseRender }

func (s *DrawSystem) Update(_ time.Duration) {
	cam, ok := s.world.FindByName(ecs.InvalidEntity, s.camera).Ref()
	if !ok {
		s.items = s.items[:0]
		return
	}
	s.moved = len(s.render.TakeMoved())
	origin := s.world.Position(cam)
	if c, ok := s.render.Camera(cam); ok {
		s.items = s.render.DrawListNear(origin, float64(c.Far))
	} else {
		s.items = s.render.DrawList(origin)
	}
	if ce := s.log.Check(zap.DebugLevel, "draw list built"); ce != nil {
		ce.Write(zap.Int("items", len(s.items)), zap.Int("moved", s.moved))
	}
}

// Items returns the draw list of the last tick.
func (s *DrawSystem) Items() []render.DrawItem { return s.items }

// Moved returns how many drawable entities moved during the last tick.
func (s *DrawSystem) Moved() int { return s.moved }
