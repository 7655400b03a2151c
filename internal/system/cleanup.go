package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/worldtree/internal/core/system"
	"github.com/l1jgo/worldtree/internal/world"
)

// CleanupSystem releases the nodes queued for destruction during the tick.
// Queued nodes stay reachable until here, so actions later in the same tick
// still see them.
type CleanupSystem struct {
	world *world.World
	log   *zap.Logger
}

func NewCleanupSystem(w *world.World, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{world: w, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	n := s.world.Arena().Pending()
	if n == 0 {
		return
	}
	s.world.FlushDestroyQueue()
	s.log.Debug("destroy queue flushed", zap.Int("queued", n), zap.Int("live", s.world.Arena().Live()))
}
