// Package rtti gives polymorphic nodes a runtime type identity that does not
// depend on Go reflection: each concrete type registers once, naming its
// parent type, and the resulting chain answers Is/QueryInterface/As.
package rtti

import (
	"fmt"
	"sync/atomic"

	"github.com/l1jgo/worldtree/internal/core/errs"
)

// ID identifies a registered type for the lifetime of the process.
// IDs are not stable across runs.
type ID uint64

var nextID atomic.Uint64

// Type is the static identity of one concrete type.
type Type struct {
	id     ID
	name   string
	parent *Type
}

// Register issues a new type identity. Call it once per type, at package init.
func Register(name string, parent *Type) *Type {
	return &Type{
		id:     ID(nextID.Add(1)),
		name:   name,
		parent: parent,
	}
}

func (t *Type) ID() ID         { return t.id }
func (t *Type) Name() string   { return t.name }
func (t *Type) Parent() *Type  { return t.parent }
func (t *Type) String() string { return t.name }

// Is reports whether id names t or one of its ancestors.
func (t *Type) Is(id ID) bool {
	for c := t; c != nil; c = c.parent {
		if c.id == id {
			return true
		}
	}
	return false
}

// IsNamed reports whether name names t or one of its ancestors.
func (t *Type) IsNamed(name string) bool {
	for c := t; c != nil; c = c.parent {
		if c.name == name {
			return true
		}
	}
	return false
}

// Object is implemented by every node that takes part in runtime typing.
//
// RuntimeType must not dereference its receiver: As calls it on the zero
// value of the target type to learn the target's identity.
//
// QueryInterface returns the object viewed as the type with the given id,
// or nil. For a type that embeds its parent, the parent view is the
// embedded value, so each level answers for its own id and defers upward.
type Object interface {
	RuntimeType() *Type
	QueryInterface(id ID) Object
}

// Equaler overrides identity equality.
type Equaler interface {
	Equals(other Object) bool
}

// Stringer is implemented by types with a textual form.
type Stringer interface {
	ToString() string
}

// FromStringer is implemented by types that can be set from text.
type FromStringer interface {
	FromString(s string) error
}

// Is reports whether o's type chain contains id. A nil object is nothing.
func Is(o Object, id ID) bool {
	return o != nil && o.RuntimeType().Is(id)
}

// IsNamed reports whether o's type chain contains name.
func IsNamed(o Object, name string) bool {
	return o != nil && o.RuntimeType().IsNamed(name)
}

// QueryInterface returns o viewed as the type with id, or nil.
func QueryInterface(o Object, id ID) Object {
	if o == nil || !o.RuntimeType().Is(id) {
		return nil
	}
	return o.QueryInterface(id)
}

// TypeOf returns the registered type of T, or nil when T is an interface.
func TypeOf[T Object]() *Type {
	var zero T
	if any(zero) == nil {
		return nil
	}
	return zero.RuntimeType()
}

// As downcasts o to T when T appears in o's type chain. An interface T is
// a plain type assertion on o.
func As[T Object](o Object) (T, bool) {
	var zero T
	rt := TypeOf[T]()
	if rt == nil {
		t, ok := o.(T)
		return t, ok
	}
	q := QueryInterface(o, rt.ID())
	if q == nil {
		return zero, false
	}
	t, ok := q.(T)
	return t, ok
}

// Equal compares by identity unless a implements Equaler.
func Equal(a, b Object) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if eq, ok := a.(Equaler); ok {
		return eq.Equals(b)
	}
	return a == b
}

// ToString returns o's textual form, failing for types without one.
func ToString(o Object) (string, error) {
	if o == nil {
		return "", fmt.Errorf("%w: nil object has no textual form", errs.ErrInvalidArgument)
	}
	s, ok := o.(Stringer)
	if !ok {
		return "", fmt.Errorf("%w: %s does not implement ToString", errs.ErrUnsupported, o.RuntimeType())
	}
	return s.ToString(), nil
}

// FromString sets o from text, failing for types that cannot be parsed.
func FromString(o Object, text string) error {
	if o == nil {
		return fmt.Errorf("%w: nil object cannot be parsed into", errs.ErrInvalidArgument)
	}
	f, ok := o.(FromStringer)
	if !ok {
		return fmt.Errorf("%w: %s does not implement FromString", errs.ErrUnsupported, o.RuntimeType())
	}
	return f.FromString(text)
}
