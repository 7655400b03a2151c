package world

import (
	"errors"
	"slices"
	"testing"

	"github.com/l1jgo/worldtree/internal/attr"
	"github.com/l1jgo/worldtree/internal/core/errs"
	"github.com/l1jgo/worldtree/internal/core/event"
	"github.com/l1jgo/worldtree/internal/core/rtti"
)

const skyrimDump = `{"Name": "Skyrim", "Sectors": [{"Name": "Whiterun", "Entities": [{"Name": "Bannered Mare", "Actions": [{"Name": "Init", "Capacity": "10"}, {"Name": "Upgrade", "Capacity": "5"}], "Owner": "Hulda", "Beds": "10"}]}]}`

func mustAux[E any](t *testing.T, a *attr.Attributed, name string, e E) {
	t.Helper()
	v, err := a.AddAuxiliaryAttribute(name)
	if err != nil {
		t.Fatal(err)
	}
	if err := attr.PushBack(v, e); err != nil {
		t.Fatal(err)
	}
}

func buildSkyrim(t *testing.T, f *Factories) (*World, *Sector, *Entity) {
	t.Helper()
	w := NewWorld("Skyrim")
	s, err := w.CreateSector("Whiterun")
	if err != nil {
		t.Fatal(err)
	}
	e, err := s.CreateEntity(f.Entities, "Bannered Mare", "Entity")
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range []struct {
		name     string
		capacity int32
	}{{"Init", 10}, {"Upgrade", 5}} {
		act, err := e.CreateAction(f.Actions, a.name, "Action")
		if err != nil {
			t.Fatal(err)
		}
		mustAux(t, act.Tree(), "Capacity", a.capacity)
	}
	mustAux(t, e.Tree(), "Owner", "Hulda")
	mustAux(t, e.Tree(), "Beds", int32(10))
	return w, s, e
}

func TestSkyrimDump(t *testing.T) {
	f := NewFactories()
	w, s, e := buildSkyrim(t, f)
	defer w.Destroy()

	if got := w.ToString(); got != skyrimDump {
		t.Errorf("dump:\n got %s\nwant %s", got, skyrimDump)
	}
	if s.World() != w || e.Sector() != s {
		t.Errorf("parent navigation broken")
	}
	if got := Path(e); got != "Sectors/0/Entities/0" {
		t.Errorf("Path = %q", got)
	}
	if sc, err := w.Resolve(Path(e.Actions()[1])); err != nil || sc != e.Actions()[1].Tree().Scope {
		t.Errorf("Resolve(%q) = %v, %v", Path(e.Actions()[1]), sc, err)
	}
	if WorldOf(e.Actions()[0]) != w {
		t.Errorf("WorldOf action")
	}
	if c := e.Actions()[0].Container(); c != ActionContainer(e) {
		t.Errorf("Container = %v", c)
	}
	if e.IsPrescribedAttribute("Owner") || !e.IsAuxiliaryAttribute("Beds") {
		t.Errorf("attribute classification wrong")
	}
}

func TestRenameThroughAttribute(t *testing.T) {
	f := NewFactories()
	w, s, _ := buildSkyrim(t, f)
	defer w.Destroy()

	if err := s.Find(AttrName).SetFromString("Riverwood", 0); err != nil {
		t.Fatal(err)
	}
	if s.Name() != "Riverwood" {
		t.Errorf("bound Name not written through: %q", s.Name())
	}
	s.SetName("Falkreath")
	if text, _ := s.Find(AttrName).ToString(0); text != "Falkreath" {
		t.Errorf("attribute does not see native field: %q", text)
	}
}

func TestDestroyReleasesEverything(t *testing.T) {
	w, _, _ := buildSkyrim(t, NewFactories())
	ar := w.Arena()
	if ar.Live() != 5 {
		t.Fatalf("Live = %d, want 5", ar.Live())
	}
	w.Destroy()
	if ar.Live() != 0 || ar.Allocated() != ar.Released() {
		t.Errorf("Live %d allocated %d released %d", ar.Live(), ar.Allocated(), ar.Released())
	}
	w.Destroy()
}

func TestAdoptSectorFromAnotherTree(t *testing.T) {
	w := NewWorld("Skyrim")
	defer w.Destroy()
	s := NewSector("Riverwood", nil)
	e := NewEntity("Sleeping Giant", s.Arena())
	if err := s.AdoptEntity(e); err != nil {
		t.Fatal(err)
	}
	if err := w.AdoptSector(s); err != nil {
		t.Fatal(err)
	}
	if s.Arena() != w.Arena() || e.Arena() != w.Arena() {
		t.Errorf("subtree did not migrate")
	}
	if s.World() != w || e.Sector() != s || len(w.Sectors()) != 1 {
		t.Errorf("links broken after adopt")
	}
	if err := s.Adopt(w.Scope, "Loop"); err == nil {
		t.Errorf("adopting an ancestor succeeded")
	}
}

type recorder struct {
	BaseAction
	log *[]string
}

var recorderSchema = attr.Extend("Recorder", actionSchema, func(p *recorder) *BaseAction { return &p.BaseAction })

func newRecorder(name string, log *[]string) *recorder {
	p := &recorder{log: log}
	p.name = name
	attr.Reflect(&p.Attributed, nil, p, recorderSchema)
	return p
}

func (p *recorder) Update(ws *WorldState) {
	where := ws.World.Name()
	if ws.Sector != nil {
		where += "/" + ws.Sector.Name()
	}
	if ws.Entity != nil {
		where += "/" + ws.Entity.Name()
	}
	if ws.Action != Action(p) {
		where += " (wrong action)"
	}
	*p.log = append(*p.log, where+":"+p.name)
}

func TestUpdateOrder(t *testing.T) {
	var log []string
	f := NewFactories()
	w := NewWorld("W")
	defer w.Destroy()
	for _, sn := range []string{"S1", "S2"} {
		s, _ := w.CreateSector(sn)
		e, _ := s.CreateEntity(f.Entities, "E"+sn[1:], "Entity")
		_ = e.AdoptAction(newRecorder("a", &log))
		list, _ := e.CreateAction(f.Actions, "list", "ActionList")
		_ = list.(*ActionList).AdoptAction(newRecorder("nested", &log))
		_ = s.AdoptAction(newRecorder("b", &log))
	}
	_ = w.AdoptAction(newRecorder("c", &log))

	ws := NewWorldState(f.Actions)
	w.Update(ws)
	want := []string{
		"W/S1/E1:a", "W/S1/E1:nested", "W/S1:b",
		"W/S2/E2:a", "W/S2/E2:nested", "W/S2:b",
		"W:c",
	}
	if !slices.Equal(log, want) {
		t.Errorf("update order\n got %v\nwant %v", log, want)
	}
	if ws.Sector != nil || ws.Entity != nil || ws.Action != nil || ws.World != w {
		t.Errorf("world state not restored after update")
	}
}

func actionNames(c ActionContainer) []string {
	var out []string
	for _, a := range c.Actions() {
		out = append(out, a.Name())
	}
	return out
}

func TestCreateAndDestroyActions(t *testing.T) {
	f := NewFactories()
	w, _, e := buildSkyrim(t, f)
	defer w.Destroy()
	bus := event.NewBus()
	w.SetBus(bus)

	if err := e.AdoptAction(NewCreateAction("Spawn", "Spawned", "ActionList")); err != nil {
		t.Fatal(err)
	}
	if err := e.AdoptAction(NewDestroyAction("Kill", "Init")); err != nil {
		t.Fatal(err)
	}

	ws := NewWorldState(f.Actions)
	w.Update(ws)
	if errs := ws.TakeErrors(); len(errs) != 0 {
		t.Fatalf("errors: %v", errs)
	}
	if got := actionNames(e); !slices.Equal(got, []string{"Init", "Upgrade", "Spawn", "Kill", "Spawned"}) {
		t.Fatalf("before flush: %v", got)
	}
	if w.Arena().Pending() != 3 {
		t.Errorf("Pending = %d, want 3", w.Arena().Pending())
	}

	var created []event.NodeCreated
	var destroyed []string
	event.Subscribe(bus, func(ev event.NodeCreated) { created = append(created, ev) })
	event.Subscribe(bus, func(ev event.NodeDestroyed) { destroyed = append(destroyed, ev.Name) })

	w.FlushDestroyQueue()
	if got := actionNames(e); !slices.Equal(got, []string{"Upgrade", "Spawned"}) {
		t.Errorf("after flush: %v", got)
	}
	if _, ok := rtti.As[*ActionList](e.Actions()[1]); !ok {
		t.Errorf("Spawned is not an ActionList")
	}

	bus.SwapBuffers()
	bus.DispatchAll()
	if len(created) != 1 || created[0] != (event.NodeCreated{Kind: "Action", Name: "Spawned", Class: "ActionList"}) {
		t.Errorf("created events = %v", created)
	}
	slices.Sort(destroyed)
	if !slices.Equal(destroyed, []string{"Init", "Kill", "Spawn"}) {
		t.Errorf("destroyed events = %v", destroyed)
	}

	w.Update(ws)
	w.FlushDestroyQueue()
	if got := actionNames(e); !slices.Equal(got, []string{"Upgrade", "Spawned"}) {
		t.Errorf("second tick changed actions: %v", got)
	}
}

func TestLifecycleActionErrors(t *testing.T) {
	f := NewFactories()
	w, _, e := buildSkyrim(t, f)
	defer w.Destroy()
	_ = e.AdoptAction(NewDestroyAction("Kill", "Nobody"))
	_ = e.AdoptAction(NewCreateAction("Spawn", "X", "NoSuchClass"))

	ws := NewWorldState(f.Actions)
	w.Update(ws)
	got := ws.TakeErrors()
	if len(got) != 2 || !errors.Is(got[0], errs.ErrNotFound) || !errors.Is(got[1], errs.ErrNotFound) {
		t.Fatalf("errors = %v", got)
	}
	if ws.TakeErrors() != nil {
		t.Errorf("errors not cleared")
	}
	w.FlushDestroyQueue()
	if got := actionNames(e); !slices.Equal(got, []string{"Init", "Upgrade"}) {
		t.Errorf("failed actions not removed: %v", got)
	}
}

func TestActionTypes(t *testing.T) {
	f := NewFactories()
	if !slices.Equal(f.Actions.Names(), []string{"Action", "ActionList", "CreateAction", "DestroyAction"}) {
		t.Errorf("built-in classes = %v", f.Actions.Names())
	}
	a, err := f.Actions.Create("CreateAction")
	if err != nil {
		t.Fatal(err)
	}
	if !rtti.Is(a, ActionType.ID()) || !rtti.Is(a, attr.AttributedType.ID()) || rtti.Is(a, ActionListType.ID()) {
		t.Errorf("type chain of %s wrong", a.RuntimeType())
	}
	base, ok := rtti.As[*BaseAction](a)
	if !ok || base != &a.(*CreateAction).BaseAction {
		t.Errorf("As[*BaseAction] = %v, %v", base, ok)
	}
	if act, ok := rtti.As[Action](NewBaseAction("x")); !ok || act.Name() != "x" {
		t.Errorf("As[Action] = %v, %v", act, ok)
	}
	guard := NewEntity("Guard", nil)
	defer guard.Destroy()
	if _, ok := rtti.As[Action](guard); ok {
		t.Errorf("entity converted to Action")
	}
	if a.Tree().ClassName() != "CreateAction" {
		t.Errorf("ClassName = %q", a.Tree().ClassName())
	}
	if names := a.Tree().PrescribedAttributes(); !slices.Equal(names, []string{"this", "Name", "InstanceName", "ClassName"}) {
		t.Errorf("prescribed = %v", names)
	}
}
