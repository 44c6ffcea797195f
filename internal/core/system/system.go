package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseEvents   Phase = iota // 0: deliver last tick's events
	PhaseScript                // 1: Lua behaviours
	PhaseSimulate              // 2: world modules (nav, ...)
	PhaseRender                // 3: draw list for the active camera
	PhasePersist               // 4: periodic snapshots
	PhaseCleanup               // 5: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseEvents:
		return "events"
	case PhaseScript:
		return "script"
	case PhaseSimulate:
		return "simulate"
	case PhaseRender:
		return "render"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
