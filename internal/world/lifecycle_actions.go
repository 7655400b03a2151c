package world

import (
	"fmt"

	"github.com/l1jgo/worldtree/internal/attr"
	"github.com/l1jgo/worldtree/internal/core/errs"
	"github.com/l1jgo/worldtree/internal/core/rtti"
)

var CreateActionType = rtti.Register("CreateAction", ActionType)

// CreateAction adds an action named InstanceName of class ClassName to its
// own container on its first update, then queues itself for destruction.
type CreateAction struct {
	BaseAction
	instanceName string
	className    string
	fired        bool
}

var createActionSchema = attr.Extend("CreateAction", actionSchema,
	func(a *CreateAction) *BaseAction { return &a.BaseAction },
	attr.String("InstanceName", func(a *CreateAction) *string { return &a.instanceName }),
	attr.String("ClassName", func(a *CreateAction) *string { return &a.className }),
)

func NewCreateAction(name, instanceName, className string) *CreateAction {
	a := &CreateAction{instanceName: instanceName, className: className}
	a.name = name
	attr.Reflect(&a.Attributed, nil, a, createActionSchema)
	return a
}

func (a *CreateAction) RuntimeType() *rtti.Type { return CreateActionType }

func (a *CreateAction) QueryInterface(id rtti.ID) rtti.Object {
	if id == CreateActionType.ID() {
		return a
	}
	return a.BaseAction.QueryInterface(id)
}

func (a *CreateAction) InstanceName() string { return a.instanceName }

// TargetClass is the ClassName attribute: the class of the action created.
func (a *CreateAction) TargetClass() string { return a.className }

func (a *CreateAction) Update(ws *WorldState) {
	c := a.Container()
	if c == nil || a.fired {
		return
	}
	a.fired = true
	if _, err := createAction(c, ws.Actions, a.instanceName, a.className); err != nil {
		ws.Report(fmt.Errorf("action %s: create %s %q: %w", a.name, a.className, a.instanceName, err))
	}
	markForDestruction(a)
}

var DestroyActionType = rtti.Register("DestroyAction", ActionType)

// DestroyAction queues the sibling action named InstanceName, and itself,
// for destruction at the end of the tick.
type DestroyAction struct {
	BaseAction
	instanceName string
}

var destroyActionSchema = attr.Extend("DestroyAction", actionSchema,
	func(a *DestroyAction) *BaseAction { return &a.BaseAction },
	attr.String("InstanceName", func(a *DestroyAction) *string { return &a.instanceName }),
)

func NewDestroyAction(name, instanceName string) *DestroyAction {
	a := &DestroyAction{instanceName: instanceName}
	a.name = name
	attr.Reflect(&a.Attributed, nil, a, destroyActionSchema)
	return a
}

func (a *DestroyAction) RuntimeType() *rtti.Type { return DestroyActionType }

func (a *DestroyAction) QueryInterface(id rtti.ID) rtti.Object {
	if id == DestroyActionType.ID() {
		return a
	}
	return a.BaseAction.QueryInterface(id)
}

func (a *DestroyAction) InstanceName() string { return a.instanceName }

func (a *DestroyAction) Update(ws *WorldState) {
	c := a.Container()
	if c == nil {
		return
	}
	var target Action
	for _, s := range c.Actions() {
		if s.Name() == a.instanceName && s != Action(a) {
			target = s
			break
		}
	}
	if target != nil {
		markForDestruction(target)
	} else {
		ws.Report(fmt.Errorf("action %s: destroy %q: %w", a.name, a.instanceName, errs.ErrNotFound))
	}
	markForDestruction(a)
}
