package rtti

import (
	"errors"
	"testing"

	"github.com/l1jgo/worldtree/internal/core/errs"
)

var (
	animalType = Register("Animal", nil)
	dogType    = Register("Dog", animalType)
	rockType   = Register("Rock", nil)
)

type animal struct{ legs int }

func (*animal) RuntimeType() *Type { return animalType }
func (a *animal) QueryInterface(id ID) Object {
	if id == animalType.ID() {
		return a
	}
	return nil
}

type dog struct {
	animal
	name string
}

func (*dog) RuntimeType() *Type { return dogType }
func (d *dog) QueryInterface(id ID) Object {
	if id == dogType.ID() {
		return d
	}
	return d.animal.QueryInterface(id)
}
func (d *dog) ToString() string { return d.name }
func (d *dog) FromString(s string) error {
	d.name = s
	return nil
}
func (d *dog) Equals(other Object) bool {
	o, ok := As[*dog](other)
	return ok && o.name == d.name
}

type rock struct{}

func (*rock) RuntimeType() *Type            { return rockType }
func (r *rock) QueryInterface(id ID) Object { return nil }

func TestIdentity(t *testing.T) {
	if animalType.ID() == dogType.ID() || dogType.ID() == rockType.ID() {
		t.Fatalf("ids are not unique")
	}
	if dogType.Parent() != animalType || dogType.Name() != "Dog" {
		t.Errorf("bad dog type: %v parent %v", dogType, dogType.Parent())
	}
}

func TestIsWalksParentChain(t *testing.T) {
	d := &dog{name: "Rex"}
	if !Is(d, dogType.ID()) || !Is(d, animalType.ID()) {
		t.Errorf("dog should be Dog and Animal")
	}
	if Is(d, rockType.ID()) {
		t.Errorf("dog is not a Rock")
	}
	if !IsNamed(d, "Animal") || IsNamed(d, "Rock") {
		t.Errorf("IsNamed mismatch")
	}
	if Is(&animal{}, dogType.ID()) {
		t.Errorf("an animal is not necessarily a dog")
	}
	if Is(nil, animalType.ID()) {
		t.Errorf("nil is nothing")
	}
}

func TestQueryInterfaceAndAs(t *testing.T) {
	d := &dog{animal: animal{legs: 4}, name: "Rex"}
	if QueryInterface(d, rockType.ID()) != nil {
		t.Errorf("QueryInterface for unrelated id should be nil")
	}
	a, ok := As[*animal](d)
	if !ok || a != &d.animal || a.legs != 4 {
		t.Errorf("As[*animal] = %v, %v", a, ok)
	}
	back, ok := As[*dog](d)
	if !ok || back != d {
		t.Errorf("As[*dog] = %v, %v", back, ok)
	}
	if _, ok := As[*dog](&animal{}); ok {
		t.Errorf("plain animal downcast to dog")
	}
	if _, ok := As[*rock](d); ok {
		t.Errorf("dog downcast to rock")
	}
}

type named interface {
	Object
	ToString() string
}

func TestAsInterface(t *testing.T) {
	if TypeOf[named]() != nil {
		t.Errorf("interface has a registered type")
	}
	d := &dog{name: "Rex"}
	n, ok := As[named](d)
	if !ok || n.ToString() != "Rex" {
		t.Errorf("As[named](dog) = %v, %v", n, ok)
	}
	if _, ok := As[named](&animal{}); ok {
		t.Errorf("animal has no textual form")
	}
	if _, ok := As[named](nil); ok {
		t.Errorf("nil object converted")
	}
}

func TestEqual(t *testing.T) {
	r1, r2 := &rock{}, &rock{}
	if !Equal(r1, r1) || Equal(r1, r2) {
		t.Errorf("default equality must be identity")
	}
	if !Equal(&dog{name: "a"}, &dog{name: "a"}) || Equal(&dog{name: "a"}, &dog{name: "b"}) {
		t.Errorf("Equaler override not used")
	}
	if Equal(r1, nil) || !Equal(nil, nil) {
		t.Errorf("nil handling")
	}
}

func TestStringHooks(t *testing.T) {
	d := &dog{name: "Rex"}
	if s, err := ToString(d); err != nil || s != "Rex" {
		t.Errorf("ToString = %q, %v", s, err)
	}
	if err := FromString(d, "Fido"); err != nil || d.name != "Fido" {
		t.Errorf("FromString: %v, name %q", err, d.name)
	}
	if _, err := ToString(&rock{}); !errors.Is(err, errs.ErrUnsupported) {
		t.Errorf("ToString(rock) err = %v", err)
	}
	if err := FromString(&rock{}, "x"); !errors.Is(err, errs.ErrUnsupported) {
		t.Errorf("FromString(rock) err = %v", err)
	}
}
