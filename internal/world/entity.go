package world

import (
	"github.com/l1jgo/worldtree/internal/attr"
	"github.com/l1jgo/worldtree/internal/factory"
)

// Entity is a named object in a sector. It carries its own actions and any
// auxiliary attributes the world file or its scripts give it.
type Entity struct {
	attr.Attributed
	name string
}

var entitySchema = attr.NewSchema("Entity",
	attr.String(AttrName, func(e *Entity) *string { return &e.name }),
	attr.Table[Entity](AttrActions),
)

// NewEntity creates a root entity in ar (a fresh arena when nil).
func NewEntity(name string, ar *attr.Arena) *Entity {
	e := &Entity{name: name}
	attr.Reflect(&e.Attributed, ar, e, entitySchema)
	return e
}

func (e *Entity) Kind() Kind             { return KindEntity }
func (e *Entity) Name() string           { return e.name }
func (e *Entity) SetName(name string)    { e.name = name }
func (e *Entity) Tree() *attr.Attributed { return &e.Attributed }
func (e *Entity) Actions() []Action      { return collect[Action](e.Find(AttrActions)) }

// Sector returns the sector holding e, or nil while e is detached.
func (e *Entity) Sector() *Sector {
	s, _ := NodeOf(e.Parent()).(*Sector)
	return s
}

func (e *Entity) CreateAction(reg *factory.Registry[Action], name, class string) (Action, error) {
	return createAction(e, reg, name, class)
}

func (e *Entity) AdoptAction(a Action) error {
	return e.Adopt(a.Tree().Scope, AttrActions)
}

func (e *Entity) Update(ws *WorldState) {
	prev := ws.Entity
	ws.Entity = e
	updateActions(e.Actions(), ws)
	ws.Entity = prev
}
