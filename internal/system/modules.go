package system

import (
	"time"

	"github.com/blackforge/engine/internal/core/ecs"
	coresys "github.com/blackforge/engine/internal/core/system"
	"github.com/blackforge/engine/internal/module/script"
)

// ModuleSystem advances one world module per tick. The host registers these
// instead of calling World.Update so that modules interleave with host systems.
type ModuleSystem struct {
	name    string
	updater ecs.Updater
	phase   coresys.Phase
}

// NewModuleSystems wraps every updating module of w. Scripts run in the script
// phase ahead of the other modules.
func NewModuleSystems(w *ecs.World) []*ModuleSystem {
	var out []*ModuleSystem
	for _, m := range w.Modules() {
		u, ok := m.(ecs.Updater)
		if !ok {
			continue
		}
		phase := coresys.PhaseSimulate
		if m.Name() == script.ModuleName {
			phase = coresys.PhaseScript
		}
		out = append(out, &ModuleSystem{name: m.Name(), updater: u, phase: phase})
	}
	return out
}

func (s *ModuleSystem) Name() string { return s.name }

func (s *ModuleSystem) Phase() coresys.Phase { return s.phase }

func (s *ModuleSystem) Update(dt time.Duration) {
	s.updater.Update(dt.Seconds())
}
