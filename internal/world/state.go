package world

import (
	"github.com/l1jgo/worldtree/internal/clock"
	"github.com/l1jgo/worldtree/internal/factory"
)

// WorldState is the per-tick context threaded through every Update call.
// World, Sector, Entity and Action name the node currently being updated.
// Accessed only from the game loop goroutine.
type WorldState struct {
	GameTime clock.GameTime
	Tick     uint64

	World  *World
	Sector *Sector
	Entity *Entity
	Action Action

	// Actions builds the actions created at runtime by CreateAction.
	Actions *factory.Registry[Action]

	errs []error
}

func NewWorldState(actions *factory.Registry[Action]) *WorldState {
	return &WorldState{Actions: actions}
}

// Report records an error raised by an action during the current tick.
func (ws *WorldState) Report(err error) {
	ws.errs = append(ws.errs, err)
}

// TakeErrors returns and clears the errors reported since the last call.
func (ws *WorldState) TakeErrors() []error {
	out := ws.errs
	ws.errs = nil
	return out
}

// markForDestruction queues n in the destroy queue of the arena holding it.
func markForDestruction(n Node) {
	t := n.Tree()
	t.Arena().MarkForDestruction(t.Scope)
}
