package world

import (
	"github.com/l1jgo/worldtree/internal/attr"
	"github.com/l1jgo/worldtree/internal/core/event"
	"github.com/l1jgo/worldtree/internal/factory"
)

// World is the root of a world tree. It owns its sectors and world-level
// actions, the arena every node of the tree lives in, and the deferred
// destruction queue flushed by CleanupSystem each tick.
type World struct {
	attr.Attributed
	name string
	bus  *event.Bus
}

var worldSchema = attr.NewSchema("World",
	attr.String(AttrName, func(w *World) *string { return &w.name }),
	attr.Table[World](AttrSectors),
	attr.Table[World](AttrActions),
)

// NewWorld creates a world in a fresh arena.
func NewWorld(name string) *World {
	w := &World{name: name}
	attr.Reflect(&w.Attributed, nil, w, worldSchema)
	return w
}

func (w *World) Kind() Kind             { return KindWorld }
func (w *World) Name() string           { return w.name }
func (w *World) SetName(name string)    { w.name = name }
func (w *World) Tree() *attr.Attributed { return &w.Attributed }
func (w *World) Bus() *event.Bus        { return w.bus }
func (w *World) SetBus(b *event.Bus)    { w.bus = b }
func (w *World) Sectors() []*Sector     { return collect[*Sector](w.Find(AttrSectors)) }
func (w *World) Actions() []Action      { return collect[Action](w.Find(AttrActions)) }

// CreateSector creates a sector named name at the end of Sectors.
func (w *World) CreateSector(name string) (*Sector, error) {
	s := NewSector(name, w.Arena())
	if err := w.AdoptSector(s); err != nil {
		s.Scope.Destroy()
		return nil, err
	}
	emitCreated(s, sectorSchema.Name())
	return s, nil
}

// AdoptSector moves s, from wherever it was, to the end of Sectors.
func (w *World) AdoptSector(s *Sector) error {
	return w.Adopt(s.Scope, AttrSectors)
}

// CreateAction builds an action of class from reg and appends it to Actions.
func (w *World) CreateAction(reg *factory.Registry[Action], name, class string) (Action, error) {
	return createAction(w, reg, name, class)
}

func (w *World) AdoptAction(a Action) error {
	return w.Adopt(a.Tree().Scope, AttrActions)
}

// Update updates every sector, then every world-level action.
func (w *World) Update(ws *WorldState) {
	ws.World = w
	for _, s := range w.Sectors() {
		if s.Alive() {
			s.Update(ws)
		}
	}
	updateActions(w.Actions(), ws)
}

// MarkForDestruction queues n for end-of-tick destruction.
func (w *World) MarkForDestruction(n Node) {
	w.Arena().MarkForDestruction(n.Tree().Scope)
}

// FlushDestroyQueue destroys all queued nodes with their subtrees.
// Called by CleanupSystem at the end of each tick.
func (w *World) FlushDestroyQueue() {
	w.Arena().FlushDestroyQueue(func(s *attr.Scope) {
		n := NodeOf(s)
		if n != nil && w.bus != nil {
			event.Emit(w.bus, event.NodeDestroyed{Kind: n.Kind().String(), Name: n.Name()})
		}
	})
}

// Destroy destroys the whole tree.
func (w *World) Destroy() {
	w.Scope.Destroy()
}

func emitCreated(n Node, class string) {
	if w := WorldOf(n); w != nil && w.bus != nil {
		event.Emit(w.bus, event.NodeCreated{Kind: n.Kind().String(), Name: n.Name(), Class: class})
	}
}
