package world

import (
	"fmt"

	"github.com/l1jgo/worldtree/internal/attr"
	"github.com/l1jgo/worldtree/internal/core/errs"
	"github.com/l1jgo/worldtree/internal/core/rtti"
	"github.com/l1jgo/worldtree/internal/factory"
)

// ActionType is the runtime type shared by every action class.
var ActionType = rtti.Register("Action", attr.AttributedType)

// Action is a named unit of behavior updated once per tick by the node that
// holds it. New classes embed BaseAction and are registered in an action
// factory registry.
type Action interface {
	Node
	rtti.Object
	Container() ActionContainer
}

// BaseAction carries the Name attribute and does nothing on update.
type BaseAction struct {
	attr.Attributed
	name string
}

var actionSchema = attr.NewSchema("Action",
	attr.String(AttrName, func(a *BaseAction) *string { return &a.name }),
)

func NewBaseAction(name string) *BaseAction {
	a := &BaseAction{name: name}
	attr.Reflect(&a.Attributed, nil, a, actionSchema)
	return a
}

func (a *BaseAction) RuntimeType() *rtti.Type { return ActionType }

func (a *BaseAction) QueryInterface(id rtti.ID) rtti.Object {
	if id == ActionType.ID() {
		return a
	}
	return a.Attributed.QueryInterface(id)
}

func (a *BaseAction) Kind() Kind             { return KindAction }
func (a *BaseAction) Name() string           { return a.name }
func (a *BaseAction) SetName(name string)    { a.name = name }
func (a *BaseAction) Tree() *attr.Attributed { return &a.Attributed }
func (a *BaseAction) Update(*WorldState)     {}

// Container returns the node whose Actions hold a, or nil while a is
// detached.
func (a *BaseAction) Container() ActionContainer {
	c, _ := NodeOf(a.Parent()).(ActionContainer)
	return c
}

// FindAction returns the first action of c named name, or nil.
func FindAction(c ActionContainer, name string) Action {
	for _, a := range c.Actions() {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

func createAction(c ActionContainer, reg *factory.Registry[Action], name, class string) (Action, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: no action registry", errs.ErrInvalidArgument)
	}
	a, err := reg.Create(class)
	if err != nil {
		return nil, err
	}
	a.SetName(name)
	if err := c.AdoptAction(a); err != nil {
		a.Tree().Destroy()
		return nil, err
	}
	emitCreated(a, class)
	return a, nil
}

// updateActions updates a snapshot of actions. Actions destroyed earlier in
// the same pass are skipped.
func updateActions(actions []Action, ws *WorldState) {
	prev := ws.Action
	for _, a := range actions {
		if !a.Tree().Alive() {
			continue
		}
		ws.Action = a
		a.Update(ws)
	}
	ws.Action = prev
}
