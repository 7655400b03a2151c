package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/worldtree/internal/core/event"
	coresys "github.com/l1jgo/worldtree/internal/core/system"
)

// EventDispatchSystem delivers the events emitted during the previous tick.
// Phase 1 (PreUpdate).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

// LogEvents subscribes debug logging for every world tree event.
func LogEvents(bus *event.Bus, log *zap.Logger) {
	event.Subscribe(bus, func(e event.NodeCreated) {
		log.Debug("node created", zap.String("kind", e.Kind), zap.String("name", e.Name), zap.String("class", e.Class))
	})
	event.Subscribe(bus, func(e event.NodeDestroyed) {
		log.Debug("node destroyed", zap.String("kind", e.Kind), zap.String("name", e.Name))
	})
	event.Subscribe(bus, func(e event.SnapshotSaved) {
		log.Info("snapshot saved", zap.Uint64("tick", e.Tick), zap.String("digest", e.Digest))
	})
}
