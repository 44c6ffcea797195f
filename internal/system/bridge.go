package system

import (
	"github.com/blackforge/engine/internal/core/ecs"
	"github.com/blackforge/engine/internal/core/event"
	"github.com/blackforge/engine/internal/module/nav"
)

// BridgeWorldEvents forwards world signals into bus events. The returned func
// removes the subscriptions.
func BridgeWorldEvents(w *ecs.World, bus *event.Bus) func() {
	created := w.EntityCreated().Subscribe(func(e ecs.EntityRef) {
		event.Emit(bus, event.EntitySpawned{Entity: e})
	})
	destroyed := w.EntityDestroyed().Subscribe(func(e ecs.EntityRef) {
		event.Emit(bus, event.EntityDespawned{Entity: e})
	})

	var arrived ecs.Subscription
	n := nav.From(w)
	if n != nil {
		arrived = n.Arrived().Subscribe(func(e ecs.EntityRef) {
			event.Emit(bus, event.AgentArrived{Entity: e})
		})
	}

	return func() {
		w.EntityCreated().Unsubscribe(created)
		w.EntityDestroyed().Unsubscribe(destroyed)
		if n != nil {
			n.Arrived().Unsubscribe(arrived)
		}
	}
}
