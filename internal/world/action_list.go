package world

import (
	"github.com/l1jgo/worldtree/internal/attr"
	"github.com/l1jgo/worldtree/internal/core/rtti"
	"github.com/l1jgo/worldtree/internal/factory"
)

var ActionListType = rtti.Register("ActionList", ActionType)

// ActionList is an action holding its own Actions, updated in order.
type ActionList struct {
	BaseAction
}

var actionListSchema = attr.Extend("ActionList", actionSchema,
	func(l *ActionList) *BaseAction { return &l.BaseAction },
	attr.Table[ActionList](AttrActions),
)

func NewActionList(name string) *ActionList {
	l := &ActionList{}
	l.name = name
	attr.Reflect(&l.Attributed, nil, l, actionListSchema)
	return l
}

func (l *ActionList) RuntimeType() *rtti.Type { return ActionListType }

func (l *ActionList) QueryInterface(id rtti.ID) rtti.Object {
	if id == ActionListType.ID() {
		return l
	}
	return l.BaseAction.QueryInterface(id)
}

func (l *ActionList) Actions() []Action { return collect[Action](l.Find(AttrActions)) }

func (l *ActionList) CreateAction(reg *factory.Registry[Action], name, class string) (Action, error) {
	return createAction(l, reg, name, class)
}

func (l *ActionList) AdoptAction(a Action) error {
	return l.Adopt(a.Tree().Scope, AttrActions)
}

func (l *ActionList) Update(ws *WorldState) {
	updateActions(l.Actions(), ws)
}
