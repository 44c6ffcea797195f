package system

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/blackforge/engine/internal/core/ecs"
	"github.com/blackforge/engine/internal/core/event"
	coresys "github.com/blackforge/engine/internal/core/system"
	"go.uber.org/zap"
)

// SnapshotStore keeps serialized worlds by name.
type SnapshotStore interface {
	Save(ctx context.Context, name string, blob []byte) error
}

// SnapshotSystem periodically serializes the world into every store.
// Phase 4 (Persist).
type SnapshotSystem struct {
	world     *ecs.World
	bus       *event.Bus
	stores    []SnapshotStore
	name      string
	flags     ecs.SerializeFlags
	log       *zap.Logger
	tickCount int
	interval  int // 0 disables periodic saves
}

func NewSnapshotSystem(w *ecs.World, bus *event.Bus, name string, flags ecs.SerializeFlags, intervalTicks int, log *zap.Logger, stores ...SnapshotStore) *SnapshotSystem {
	return &SnapshotSystem{
		world:    w,
		bus:      bus,
		stores:   stores,
		name:     name,
		flags:    flags,
		log:      log,
		interval: intervalTicks,
	}
}

func (s *SnapshotSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *SnapshotSystem) Update(_ time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.SaveNow(ctx); err != nil {
		s.log.Error("periodic snapshot failed", zap.Error(err))
	}
}

// SaveNow serializes the world once and hands the blob to every store. A failing
// store does not stop the others; the first error is returned.
func (s *SnapshotSystem) SaveNow(ctx context.Context) error {
	var buf bytes.Buffer
	if err := s.world.Serialize(&buf, s.flags); err != nil {
		return fmt.Errorf("serialize world: %w", err)
	}
	blob := buf.Bytes()

	var firstErr error
	saved := 0
	for _, st := range s.stores {
		if err := st.Save(ctx, s.name, blob); err != nil {
			s.log.Error("snapshot store failed", zap.String("name", s.name), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		saved++
		if s.bus != nil {
			event.Emit(s.bus, event.SnapshotSaved{
				Target:   s.name,
				Bytes:    len(blob),
				Entities: s.world.EntityCount(),
			})
		}
	}
	if saved > 0 {
		s.log.Info("world snapshot saved",
			zap.String("name", s.name),
			zap.Int("stores", saved),
			zap.Int("bytes", len(blob)),
			zap.Int("entities", s.world.EntityCount()))
	}
	return firstErr
}
