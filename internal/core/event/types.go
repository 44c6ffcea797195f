package event

import "github.com/blackforge/engine/internal/core/ecs"

// Host-side world events, bridged from World signals so that reactions run at
// the start of the next tick instead of inside the mutation that caused them.

type EntitySpawned struct {
	Entity ecs.EntityRef
}

type EntityDespawned struct {
	Entity ecs.EntityRef
}

type AgentArrived struct {
	Entity ecs.EntityRef
}

type SnapshotSaved struct {
	Target   string // file path or database snapshot name
	Bytes    int
	Entities int
}
