package attr

import (
	"fmt"
	"slices"

	"github.com/l1jgo/worldtree/internal/core/errs"
)

// storage is the backing of a Value. It is either owned (a slice the Value
// may grow and shrink) or a view bound to memory owned by someone else, which
// only supports in-place writes.
type storage interface {
	len() int
	at(i int) any
	put(i int, e any) error
	bound() bool
	snapshot() storage
}

// resizable is implemented by owned storage only.
type resizable interface {
	resize(n int)
	removeAt(i int)
	clear()
}

// cast converts an element to E, mapping a nil interface to E's zero value.
func cast[E any](e any) E {
	v, _ := e.(E)
	return v
}

type owned[E any] struct {
	items []E
}

func (o *owned[E]) len() int       { return len(o.items) }
func (o *owned[E]) at(i int) any   { return o.items[i] }
func (o *owned[E]) bound() bool    { return false }
func (o *owned[E]) removeAt(i int) { o.items = slices.Delete(o.items, i, i+1) }
func (o *owned[E]) clear()         { o.items = nil }

func (o *owned[E]) put(i int, e any) error {
	o.items[i] = cast[E](e)
	return nil
}

func (o *owned[E]) snapshot() storage {
	return &owned[E]{items: slices.Clone(o.items)}
}

func (o *owned[E]) resize(n int) {
	if n <= len(o.items) {
		clear(o.items[n:])
		o.items = o.items[:n]
		return
	}
	o.items = append(o.items, make([]E, n-len(o.items))...)
}

// view reaches external memory through accessor closures. The closures are
// built over the owning object, so a view never outlives the object it was
// bound for: rebinding a copy means building new closures over the copy.
type view[E any] struct {
	n   func() int
	get func(i int) E
	set func(i int, e E)
}

func (v *view[E]) len() int     { return v.n() }
func (v *view[E]) at(i int) any { return v.get(i) }
func (v *view[E]) bound() bool  { return true }

func (v *view[E]) put(i int, e any) error {
	if v.set == nil {
		return fmt.Errorf("%w: bound value is read-only", errs.ErrUnsupported)
	}
	v.set(i, cast[E](e))
	return nil
}

// snapshot copies the viewed elements into owned storage.
func (v *view[E]) snapshot() storage {
	items := make([]E, v.n())
	for i := range items {
		items[i] = v.get(i)
	}
	return &owned[E]{items: items}
}
