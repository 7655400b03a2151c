package world

import (
	"fmt"
	"sort"

	"github.com/l1jgo/worldtree/internal/attr"
	"github.com/l1jgo/worldtree/internal/core/rtti"
	"github.com/l1jgo/worldtree/internal/scripting"
)

var ScriptActionType = rtti.Register("ScriptAction", ActionType)

// ScriptRunner calls a script update function. *scripting.Engine implements it.
type ScriptRunner interface {
	CallUpdate(function string, ctx scripting.ActionContext) (map[string]string, error)
}

// ScriptAction hands its attributes to a script function every update and
// writes back whatever attributes the function returns. Attributes the
// action does not have yet are added as auxiliary string attributes.
type ScriptAction struct {
	BaseAction
	class    string
	function string
	runner   ScriptRunner
}

var scriptActionSchema = attr.Extend("ScriptAction", actionSchema,
	func(a *ScriptAction) *BaseAction { return &a.BaseAction },
	attr.String("Function", func(a *ScriptAction) *string { return &a.function }),
)

func NewScriptAction(class, function string, runner ScriptRunner) *ScriptAction {
	a := &ScriptAction{class: class, function: function, runner: runner}
	attr.Reflect(&a.Attributed, nil, a, scriptActionSchema)
	return a
}

func (a *ScriptAction) RuntimeType() *rtti.Type { return ScriptActionType }

func (a *ScriptAction) QueryInterface(id rtti.ID) rtti.Object {
	if id == ScriptActionType.ID() {
		return a
	}
	return a.BaseAction.QueryInterface(id)
}

// Class is the registry class the action was created as.
func (a *ScriptAction) Class() string    { return a.class }
func (a *ScriptAction) Function() string { return a.function }

func (a *ScriptAction) Update(ws *WorldState) {
	if a.runner == nil {
		return
	}
	updates, err := a.runner.CallUpdate(a.function, scripting.ActionContext{
		Action:     a.name,
		Class:      a.class,
		Attributes: a.snapshot(),
		Tick:       ws.Tick,
		Elapsed:    ws.GameTime.ElapsedGameTime,
		Total:      ws.GameTime.TotalGameTime,
	})
	if err != nil {
		ws.Report(fmt.Errorf("action %s: %w", a.name, err))
		return
	}
	names := make([]string, 0, len(updates))
	for name := range updates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := a.apply(name, updates[name]); err != nil {
			ws.Report(fmt.Errorf("action %s: attribute %q: %w", a.name, name, err))
		}
	}
}

// snapshot returns the first element of every textual attribute.
func (a *ScriptAction) snapshot() map[string]string {
	out := make(map[string]string, a.Len())
	a.Each(func(name string, v *attr.Value) bool {
		switch v.Type() {
		case attr.TypeUnknown, attr.TypeScope, attr.TypePointer:
			return true
		}
		if name == attr.ThisAttribute || v.Len() == 0 {
			return true
		}
		if text, err := v.ToString(0); err == nil {
			out[name] = text
		}
		return true
	})
	return out
}

func (a *ScriptAction) apply(name, text string) error {
	v := a.Find(name)
	if v == nil {
		var err error
		if v, err = a.AddAuxiliaryAttribute(name); err != nil {
			return err
		}
	}
	if v.Type() == attr.TypeUnknown {
		if err := v.SetType(attr.TypeString); err != nil {
			return err
		}
	}
	if v.Len() == 0 {
		return v.PushFromString(text)
	}
	return v.SetFromString(text, 0)
}
