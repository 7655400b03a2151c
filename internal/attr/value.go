package attr

import (
	"fmt"

	"github.com/l1jgo/worldtree/internal/core/arena"
	"github.com/l1jgo/worldtree/internal/core/errs"
	"github.com/l1jgo/worldtree/internal/core/rtti"
)

// Value is a homogeneously typed array. The zero Value is empty and untyped;
// the first typed write locks its type.
//
// A Value either owns its elements or is bound to a field of some native
// object. Bound values support in-place writes only: PushBack, Resize,
// RemoveAt and Clear fail with ErrUnsupported.
//
// Scope elements are owned children of the Scope holding the Value. They are
// added through Scope.AppendScope and Scope.Adopt, never through PushBack.
type Value struct {
	typ        Type
	store      storage
	arena      *Arena
	collection bool
}

// Type returns the element type, TypeUnknown until the first typed write.
func (v *Value) Type() Type { return v.typ }

// Len returns the number of elements.
func (v *Value) Len() int {
	if v.store == nil {
		return 0
	}
	return v.store.len()
}

// IsBound reports whether the elements live in a native object.
func (v *Value) IsBound() bool { return v.store != nil && v.store.bound() }

// IsCollection reports whether the value is a declared child collection,
// which the textual dump always renders as a list.
func (v *Value) IsCollection() bool { return v.collection }

// SetType locks the element type. Setting the type a value already has is a no-op.
func (v *Value) SetType(t Type) error {
	if t == TypeUnknown || int(t) >= len(typeNames) {
		return fmt.Errorf("%w: cannot set type %s", errs.ErrInvalidArgument, t)
	}
	if v.typ == t {
		return nil
	}
	if v.typ != TypeUnknown {
		return mismatch(v.typ, t)
	}
	v.typ = t
	v.store = newOwned(t)
	return nil
}

func (v *Value) checkIndex(i int) error {
	if i < 0 || i >= v.Len() {
		return fmt.Errorf("%w: index %d, length %d", errs.ErrOutOfRange, i, v.Len())
	}
	return nil
}

// resizable returns the owned storage of v, failing for bound and nested-scope values.
func (v *Value) resizable(op string) (resizable, error) {
	if v.typ == TypeUnknown {
		return nil, fmt.Errorf("%w: %s on an untyped value", errs.ErrInvalidArgument, op)
	}
	if v.typ == TypeScope {
		return nil, fmt.Errorf("%w: %s on nested scopes, use the owning Scope", errs.ErrUnsupported, op)
	}
	r, ok := v.store.(resizable)
	if !ok {
		return nil, fmt.Errorf("%w: %s on a bound value", errs.ErrUnsupported, op)
	}
	return r, nil
}

// Resize grows the value with zero elements or truncates it.
func (v *Value) Resize(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative size %d", errs.ErrInvalidArgument, n)
	}
	r, err := v.resizable("resize")
	if err != nil {
		return err
	}
	r.resize(n)
	return nil
}

// RemoveAt deletes element i, shifting later elements down.
func (v *Value) RemoveAt(i int) error {
	r, err := v.resizable("remove")
	if err != nil {
		return err
	}
	if err := v.checkIndex(i); err != nil {
		return err
	}
	r.removeAt(i)
	return nil
}

// Clear removes every element and keeps the type.
func (v *Value) Clear() error {
	if v.store == nil {
		return nil
	}
	r, err := v.resizable("clear")
	if err != nil {
		return err
	}
	r.clear()
	return nil
}

// Get returns element i as E.
func Get[E any](v *Value, i int) (E, error) {
	var zero E
	t := typeFor[E]()
	if v.typ != t || t == TypeUnknown {
		return zero, mismatch(v.typ, t)
	}
	if err := v.checkIndex(i); err != nil {
		return zero, err
	}
	if t == TypeScope {
		s, err := v.scopeAt(i)
		if err != nil {
			return zero, err
		}
		return any(s).(E), nil
	}
	return cast[E](v.store.at(i)), nil
}

// Set overwrites element i. Bound values write through to the native field.
func Set[E any](v *Value, e E, i int) error {
	t := typeFor[E]()
	if v.typ != t || t == TypeUnknown {
		return mismatch(v.typ, t)
	}
	if t == TypeScope {
		return fmt.Errorf("%w: nested scopes are replaced through the owning Scope", errs.ErrUnsupported)
	}
	if err := v.checkIndex(i); err != nil {
		return err
	}
	return v.store.put(i, e)
}

// PushBack appends e, locking the type on the first write.
func PushBack[E any](v *Value, e E) error {
	t := typeFor[E]()
	if t == TypeUnknown {
		return fmt.Errorf("%w: %T is not a value element type", errs.ErrTypeMismatch, &e)
	}
	if t == TypeScope {
		return fmt.Errorf("%w: nested scopes are added through Scope.Adopt", errs.ErrUnsupported)
	}
	if err := v.SetType(t); err != nil {
		return err
	}
	o, ok := v.store.(*owned[E])
	if !ok {
		return fmt.Errorf("%w: push onto a bound value", errs.ErrUnsupported)
	}
	o.items = append(o.items, e)
	return nil
}

// Assign replaces the contents with es. A bound value accepts the assignment
// only when the length matches, writing element by element.
func Assign[E any](v *Value, es ...E) error {
	t := typeFor[E]()
	if t == TypeUnknown || t == TypeScope {
		return fmt.Errorf("%w: cannot assign %s elements", errs.ErrUnsupported, t)
	}
	if err := v.SetType(t); err != nil {
		return err
	}
	if v.IsBound() {
		if len(es) != v.Len() {
			return fmt.Errorf("%w: bound value has %d elements, assigned %d", errs.ErrUnsupported, v.Len(), len(es))
		}
		for i, e := range es {
			if err := v.store.put(i, e); err != nil {
				return err
			}
		}
		return nil
	}
	v.store.(*owned[E]).items = append([]E(nil), es...)
	return nil
}

// Bind makes v a view over external memory. n reports the current length,
// get and set access element i. A nil set makes the view read-only.
// v must be empty and either untyped or already of E's type.
func Bind[E any](v *Value, n func() int, get func(i int) E, set func(i int, e E)) error {
	t := typeFor[E]()
	if t == TypeUnknown || t == TypeScope {
		return fmt.Errorf("%w: cannot bind %s elements", errs.ErrUnsupported, t)
	}
	if v.Len() > 0 {
		return fmt.Errorf("%w: bind over a non-empty value", errs.ErrInvalidArgument)
	}
	if v.typ != TypeUnknown && v.typ != t {
		return mismatch(v.typ, t)
	}
	v.typ = t
	v.store = &view[E]{n: n, get: get, set: set}
	return nil
}

// ToString renders element i.
func (v *Value) ToString(i int) (string, error) {
	if err := v.checkIndex(i); err != nil {
		return "", err
	}
	switch v.typ {
	case TypeScope:
		s, err := v.scopeAt(i)
		if err != nil {
			return "", err
		}
		return s.ToString(), nil
	case TypePointer:
		return rtti.ToString(cast[rtti.Object](v.store.at(i)))
	}
	return formatElement(v.store.at(i)), nil
}

// SetFromString parses text into element i.
func (v *Value) SetFromString(text string, i int) error {
	if v.typ == TypeUnknown {
		return fmt.Errorf("%w: parse into an untyped value", errs.ErrInvalidArgument)
	}
	if err := v.checkIndex(i); err != nil {
		return err
	}
	if v.typ == TypePointer {
		return rtti.FromString(cast[rtti.Object](v.store.at(i)), text)
	}
	e, err := parseElement(v.typ, text)
	if err != nil {
		return err
	}
	return v.store.put(i, e)
}

// PushFromString parses text and appends it.
func (v *Value) PushFromString(text string) error {
	if v.typ == TypePointer {
		return fmt.Errorf("%w: no object to parse a pointer into", errs.ErrUnsupported)
	}
	r, err := v.resizable("push")
	if err != nil {
		return err
	}
	e, err := parseElement(v.typ, text)
	if err != nil {
		return err
	}
	n := v.Len()
	r.resize(n + 1)
	return v.store.put(n, e)
}

// Equal compares type, length and elements. Nested scopes compare by
// content, pointers through rtti.Equal.
func (v *Value) Equal(o *Value) bool {
	if v == o {
		return true
	}
	if v == nil || o == nil || v.typ != o.typ || v.Len() != o.Len() {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		switch v.typ {
		case TypeScope:
			a, errA := v.scopeAt(i)
			b, errB := o.scopeAt(i)
			if errA != nil || errB != nil || !a.Equal(b) {
				return false
			}
		case TypePointer:
			if !rtti.Equal(cast[rtti.Object](v.store.at(i)), cast[rtti.Object](o.store.at(i))) {
				return false
			}
		default:
			if v.store.at(i) != o.store.at(i) {
				return false
			}
		}
	}
	return true
}

// Clone returns an owned copy. A bound value clones into a snapshot of the
// native data. Nested scopes are copied with Scope.Clone instead.
func (v *Value) Clone() (*Value, error) {
	if v.typ == TypeScope {
		return nil, fmt.Errorf("%w: clone the owning Scope to copy nested scopes", errs.ErrUnsupported)
	}
	c := &Value{typ: v.typ, collection: v.collection}
	if v.store != nil {
		c.store = v.store.snapshot()
	}
	return c, nil
}

// handles returns the child handles of a nested-scope value.
func (v *Value) handles() *owned[arena.Handle] {
	if v.typ != TypeScope {
		return nil
	}
	return v.store.(*owned[arena.Handle])
}

func (v *Value) scopeAt(i int) (*Scope, error) {
	h := v.store.at(i).(arena.Handle)
	if v.arena != nil {
		if s, ok := v.arena.Get(h); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: nested scope %v was destroyed", errs.ErrNotFound, h)
}
