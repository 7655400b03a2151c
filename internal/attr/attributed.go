package attr

import (
	"fmt"
	"slices"

	"github.com/l1jgo/worldtree/internal/core/arena"
	"github.com/l1jgo/worldtree/internal/core/errs"
	"github.com/l1jgo/worldtree/internal/core/rtti"
)

var AttributedType = rtti.Register("Attributed", ScopeType)

type schemaInfo interface {
	Name() string
	Names() []string
	Has(name string) bool
}

// Attributed is a Scope whose prescribed attributes mirror the fields of a
// native object, declared by a Schema. Attributes added later are auxiliary.
//
// Embed it in the native type and call Reflect from the constructor.
type Attributed struct {
	*Scope
	schema schemaInfo
}

// Reflect allocates the scope of a in ar (a fresh arena when nil) and binds
// "this" and every field of schema over owner.
func Reflect[T any](a *Attributed, ar *Arena, owner *T, schema *Schema[T]) {
	if ar == nil {
		ar = NewArena()
	}
	a.Scope = ar.NewScope()
	a.Scope.owner = owner
	a.schema = schema
	if err := Bind(a.Append(ThisAttribute),
		func() int { return 1 },
		func(int) rtti.Object { return a },
		nil); err != nil {
		panic(err)
	}
	for _, f := range schema.fields {
		if err := f.bind(owner, a.Scope); err != nil {
			panic(fmt.Sprintf("attr: schema %s field %q: %v", schema.name, f.name, err))
		}
	}
}

// Clone copies src into a new T: native fields are copied, every prescribed
// attribute is rebound to the copy, and auxiliary attributes and nested
// scopes are deep-copied into src's arena. attributedOf locates the
// Attributed embedded in a T.
func Clone[T any](src *T, schema *Schema[T], attributedOf func(*T) *Attributed) (*T, error) {
	dst := new(T)
	*dst = *src
	for _, f := range schema.fields {
		if f.clone != nil {
			f.clone(dst)
		}
	}
	sa := attributedOf(src)
	da := attributedOf(dst)
	*da = Attributed{}
	Reflect(da, sa.Arena(), dst, schema)
	for _, e := range sa.order {
		if e.Key == ThisAttribute {
			continue
		}
		if err := copyValue(da.Scope, e.Key, e.Value); err != nil {
			da.Destroy()
			return nil, err
		}
	}
	return dst, nil
}

// CopyFrom makes a hold a copy of src's attributes while keeping a's own
// bindings: prescribed attributes bound to fields of a are written through,
// "this" still refers to a, auxiliary attributes are replaced, and nested
// scopes are deep-copied. Prescribed scope attributes src lacks are kept.
// Nothing changes when a bound attribute cannot take src's value.
func (a *Attributed) CopyFrom(src *Scope) error {
	if src == nil || src == a.Scope {
		return nil
	}
	if err := a.checkCompatible(src); err != nil {
		return err
	}
	if a.Scope.IsAncestorOf(src) {
		src = src.Clone()
		defer src.Destroy()
	}
	a.dropAuxiliary()
	for _, e := range src.order {
		if e.Key == ThisAttribute {
			continue
		}
		if err := copyValue(a.Scope, e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// Move transfers src's attributes and parent slot to a. Bound and owned
// values are copied as in CopyFrom; child scopes change owner instead of
// being copied. src ends up a root holding only its prescribed attributes:
// its bindings stay, its nested scopes are empty.
func (a *Attributed) Move(src *Scope) error {
	if src == nil || src == a.Scope {
		return nil
	}
	if src.IsAncestorOf(a.Scope) || a.Scope.IsAncestorOf(src) {
		return fmt.Errorf("%w: move between a scope and its ancestor", errs.ErrInvalidArgument)
	}
	p := src.Parent()
	if p != nil && src.arena != a.arena {
		return fmt.Errorf("%w: move of a parented scope across arenas", errs.ErrInvalidArgument)
	}
	if err := a.checkCompatible(src); err != nil {
		return err
	}

	a.dropAuxiliary()
	for _, e := range src.order {
		if e.Key == ThisAttribute {
			continue
		}
		if e.Value.typ != TypeScope {
			if err := copyValue(a.Scope, e.Key, e.Value); err != nil {
				return err
			}
			continue
		}
		dv, err := a.scopeValue(e.Key)
		if err != nil {
			return err
		}
		a.destroyChildren(dv)
		dv.collection = dv.collection || e.Value.collection
		hs := e.Value.handles()
		children := make([]*Scope, 0, len(hs.items))
		for _, h := range hs.items {
			if c, ok := src.arena.Get(h); ok {
				children = append(children, c)
			}
		}
		for _, c := range children {
			if err := a.Adopt(c, e.Key); err != nil {
				return err
			}
		}
	}

	srcObj := attributedIn(src)
	for _, name := range src.Names() {
		if name == ThisAttribute || (srcObj != nil && srcObj.IsPrescribedAttribute(name)) {
			continue
		}
		src.RemoveAttribute(name)
	}

	a.Orphan()
	if p != nil {
		hs := p.Find(src.parentKey).handles()
		if i := slices.Index(hs.items, src.handle); i >= 0 {
			hs.items[i] = a.handle
		}
		a.parent = src.parent
		a.parentKey = src.parentKey
		src.parent = arena.Nil
		src.parentKey = ""
	}
	return nil
}

// checkCompatible reports the first prescribed attribute of a that cannot
// take the value src holds under the same name.
func (a *Attributed) checkCompatible(src *Scope) error {
	for _, e := range src.order {
		if e.Key == ThisAttribute || !a.IsPrescribedAttribute(e.Key) {
			continue
		}
		dv, sv := a.Find(e.Key), e.Value
		if dv == nil || sv.typ == TypeUnknown {
			continue
		}
		if dv.typ != TypeUnknown && dv.typ != sv.typ {
			return fmt.Errorf("attribute %q: %w", e.Key, mismatch(dv.typ, sv.typ))
		}
		if dv.IsBound() && dv.Len() != sv.Len() {
			return fmt.Errorf("%w: attribute %q is bound to %d elements, copying %d",
				errs.ErrUnsupported, e.Key, dv.Len(), sv.Len())
		}
	}
	return nil
}

func (a *Attributed) dropAuxiliary() {
	for _, name := range a.AuxiliaryAttributes() {
		a.RemoveAttribute(name)
	}
}

// attributedIn returns the Attributed whose "this" attribute s holds, or nil.
func attributedIn(s *Scope) *Attributed {
	v := s.Find(ThisAttribute)
	if v == nil || v.typ != TypePointer {
		return nil
	}
	o, err := Get[rtti.Object](v, 0)
	if err != nil {
		return nil
	}
	a, _ := o.(*Attributed)
	return a
}

func (a *Attributed) RuntimeType() *rtti.Type { return AttributedType }

func (a *Attributed) QueryInterface(id rtti.ID) rtti.Object {
	if id == AttributedType.ID() {
		return a
	}
	return a.Scope.QueryInterface(id)
}

// ClassName is the name of the schema the object was reflected with.
func (a *Attributed) ClassName() string { return a.schema.Name() }

func (a *Attributed) IsPrescribedAttribute(name string) bool { return a.schema.Has(name) }

func (a *Attributed) IsAttribute(name string) bool { return a.Find(name) != nil }

func (a *Attributed) IsAuxiliaryAttribute(name string) bool {
	return a.IsAttribute(name) && !a.IsPrescribedAttribute(name)
}

// AddAuxiliaryAttribute appends an attribute outside the schema. Adding an
// existing auxiliary attribute returns it unchanged.
func (a *Attributed) AddAuxiliaryAttribute(name string) (*Value, error) {
	if a.IsPrescribedAttribute(name) {
		return nil, fmt.Errorf("%w: %q is prescribed by %s", errs.ErrInvalidArgument, name, a.ClassName())
	}
	return a.Append(name), nil
}

// RemoveAuxiliaryAttribute deletes an auxiliary attribute.
func (a *Attributed) RemoveAuxiliaryAttribute(name string) error {
	if a.IsPrescribedAttribute(name) {
		return fmt.Errorf("%w: %q is prescribed by %s", errs.ErrInvalidArgument, name, a.ClassName())
	}
	if !a.RemoveAttribute(name) {
		return fmt.Errorf("%w: auxiliary attribute %q", errs.ErrNotFound, name)
	}
	return nil
}

// PrescribedAttributes returns the schema's names, "this" first.
func (a *Attributed) PrescribedAttributes() []string { return a.schema.Names() }

// AuxiliaryAttributes returns the attributes outside the schema in insertion order.
func (a *Attributed) AuxiliaryAttributes() []string {
	var names []string
	for _, e := range a.order {
		if !a.schema.Has(e.Key) {
			names = append(names, e.Key)
		}
	}
	return names
}

// Attributes returns every attribute name, prescribed first.
func (a *Attributed) Attributes() []string {
	names := a.schema.Names()
	return append(names, a.AuxiliaryAttributes()...)
}

// Equal compares class and attribute values.
func (a *Attributed) Equal(o *Attributed) bool {
	if a == o {
		return true
	}
	if a == nil || o == nil || a.ClassName() != o.ClassName() {
		return false
	}
	return a.Scope.Equal(o.Scope)
}

// Equals implements rtti.Equaler.
func (a *Attributed) Equals(other rtti.Object) bool {
	o, ok := rtti.As[*Attributed](other)
	return ok && a.Equal(o)
}
