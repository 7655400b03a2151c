package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/worldtree/internal/clock"
	"github.com/l1jgo/worldtree/internal/core/event"
	coresys "github.com/l1jgo/worldtree/internal/core/system"
	"github.com/l1jgo/worldtree/internal/world"
)

// UpdateSystem advances the clock and updates the whole world tree once.
// Phase 2 (Update).
type UpdateSystem struct {
	world *world.World
	state *world.WorldState
	clock *clock.GameClock
	log   *zap.Logger
}

func NewUpdateSystem(w *world.World, ws *world.WorldState, c *clock.GameClock, log *zap.Logger) *UpdateSystem {
	return &UpdateSystem{world: w, state: ws, clock: c, log: log}
}

func (s *UpdateSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *UpdateSystem) Update(_ time.Duration) {
	ws := s.state
	s.clock.Update(&ws.GameTime)
	ws.Tick++

	s.world.Update(ws)

	for _, err := range ws.TakeErrors() {
		s.log.Warn("action failed", zap.Uint64("tick", ws.Tick), zap.Error(err))
	}
	if bus := s.world.Bus(); bus != nil {
		event.Emit(bus, event.TickCompleted{Tick: ws.Tick, Total: ws.GameTime.TotalGameTime})
	}
}
