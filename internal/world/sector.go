package world

import (
	"github.com/l1jgo/worldtree/internal/attr"
	"github.com/l1jgo/worldtree/internal/factory"
)

// Sector groups entities and sector-level actions inside a World.
type Sector struct {
	attr.Attributed
	name string
}

var sectorSchema = attr.NewSchema("Sector",
	attr.String(AttrName, func(s *Sector) *string { return &s.name }),
	attr.Table[Sector](AttrEntities),
	attr.Table[Sector](AttrActions),
)

// NewSector creates a root sector in ar (a fresh arena when nil).
func NewSector(name string, ar *attr.Arena) *Sector {
	s := &Sector{name: name}
	attr.Reflect(&s.Attributed, ar, s, sectorSchema)
	return s
}

func (s *Sector) Kind() Kind             { return KindSector }
func (s *Sector) Name() string           { return s.name }
func (s *Sector) SetName(name string)    { s.name = name }
func (s *Sector) Tree() *attr.Attributed { return &s.Attributed }
func (s *Sector) Entities() []*Entity    { return collect[*Entity](s.Find(AttrEntities)) }
func (s *Sector) Actions() []Action      { return collect[Action](s.Find(AttrActions)) }

// World returns the world holding s, or nil while s is detached.
func (s *Sector) World() *World {
	w, _ := NodeOf(s.Parent()).(*World)
	return w
}

// CreateEntity builds an entity of class from reg, names it and appends it
// to Entities.
func (s *Sector) CreateEntity(reg *factory.Registry[*Entity], name, class string) (*Entity, error) {
	e, err := reg.Create(class)
	if err != nil {
		return nil, err
	}
	e.SetName(name)
	if err := s.AdoptEntity(e); err != nil {
		e.Scope.Destroy()
		return nil, err
	}
	emitCreated(e, class)
	return e, nil
}

func (s *Sector) AdoptEntity(e *Entity) error {
	return s.Adopt(e.Scope, AttrEntities)
}

func (s *Sector) CreateAction(reg *factory.Registry[Action], name, class string) (Action, error) {
	return createAction(s, reg, name, class)
}

func (s *Sector) AdoptAction(a Action) error {
	return s.Adopt(a.Tree().Scope, AttrActions)
}

// Update updates every entity, then every sector-level action.
func (s *Sector) Update(ws *WorldState) {
	prev := ws.Sector
	ws.Sector = s
	for _, e := range s.Entities() {
		if e.Alive() {
			e.Update(ws)
		}
	}
	updateActions(s.Actions(), ws)
	ws.Sector = prev
}
