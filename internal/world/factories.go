package world

import "github.com/l1jgo/worldtree/internal/factory"

// Factories holds the class registries the world file parser and
// CreateAction build nodes from.
type Factories struct {
	Entities *factory.Registry[*Entity]
	Actions  *factory.Registry[Action]
}

// NewFactories returns registries holding the built-in classes.
func NewFactories() *Factories {
	f := &Factories{
		Entities: factory.New[*Entity]("entity"),
		Actions:  factory.New[Action]("action"),
	}
	f.Entities.MustRegister("Entity", func() *Entity { return NewEntity("", nil) })
	f.Actions.MustRegister("Action", func() Action { return NewBaseAction("") })
	f.Actions.MustRegister("ActionList", func() Action { return NewActionList("") })
	f.Actions.MustRegister("CreateAction", func() Action { return NewCreateAction("", "", "") })
	f.Actions.MustRegister("DestroyAction", func() Action { return NewDestroyAction("", "") })
	return f
}

// RegisterScriptClass registers class as a ScriptAction running function.
func (f *Factories) RegisterScriptClass(class, function string, runner ScriptRunner) error {
	return f.Actions.Register(class, func() Action { return NewScriptAction(class, function, runner) })
}
