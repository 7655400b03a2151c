package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/worldtree/internal/core/event"
	coresys "github.com/l1jgo/worldtree/internal/core/system"
	"github.com/l1jgo/worldtree/internal/persist"
	"github.com/l1jgo/worldtree/internal/world"
)

// SnapshotStore saves world dumps. *persist.SnapshotRepo implements it.
type SnapshotStore interface {
	Save(ctx context.Context, worldName string, tick uint64, dump string) (bool, error)
}

// PersistenceSystem snapshots the world dump every interval ticks.
// Phase 5 (Persist).
type PersistenceSystem struct {
	world     *world.World
	state     *world.WorldState
	store     SnapshotStore
	log       *zap.Logger
	tickCount uint64
	interval  uint64
	timeout   time.Duration
}

func NewPersistenceSystem(w *world.World, ws *world.WorldState, store SnapshotStore, log *zap.Logger, intervalTicks uint64) *PersistenceSystem {
	if intervalTicks == 0 {
		intervalTicks = 1
	}
	return &PersistenceSystem{
		world:    w,
		state:    ws,
		store:    store,
		log:      log,
		interval: intervalTicks,
		timeout:  5 * time.Second,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.Save()
}

// Save writes a snapshot immediately. Called for graceful shutdown too.
// An unchanged tree is not stored twice.
func (s *PersistenceSystem) Save() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	dump := s.world.ToString()
	saved, err := s.store.Save(ctx, s.world.Name(), s.state.Tick, dump)
	if err != nil {
		s.log.Error("snapshot save failed", zap.String("world", s.world.Name()), zap.Error(err))
		return
	}
	if !saved {
		s.log.Debug("world unchanged, snapshot skipped", zap.Uint64("tick", s.state.Tick))
		return
	}
	if bus := s.world.Bus(); bus != nil {
		event.Emit(bus, event.SnapshotSaved{Tick: s.state.Tick, Digest: persist.Digest(dump)})
	}
}
