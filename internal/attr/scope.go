package attr

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/l1jgo/worldtree/internal/core/arena"
	"github.com/l1jgo/worldtree/internal/core/errs"
	"github.com/l1jgo/worldtree/internal/core/hashmap"
	"github.com/l1jgo/worldtree/internal/core/rtti"
)

// ThisAttribute is the reserved self-reference every Attributed carries.
// The textual dump and equality skip it.
const ThisAttribute = "this"

var ScopeType = rtti.Register("Scope", nil)

// Scope is an ordered name -> Value table. Values of TypeScope own nested
// scopes, which makes a Scope the node of an owning tree: destroying a node
// destroys its whole subtree.
//
// Iteration follows insertion order, independently of where the hash map
// places the entries.
type Scope struct {
	arena     *Arena
	handle    arena.Handle
	entries   *hashmap.Map[string, *Value]
	order     []*hashmap.Entry[string, *Value]
	parent    arena.Handle
	parentKey string
	owner     any
}

func (s *Scope) RuntimeType() *rtti.Type { return ScopeType }

func (s *Scope) QueryInterface(id rtti.ID) rtti.Object {
	if id == ScopeType.ID() {
		return s
	}
	return nil
}

// Arena returns the arena the scope lives in.
func (s *Scope) Arena() *Arena { return s.arena }

// Handle returns the scope's handle in its arena.
func (s *Scope) Handle() arena.Handle { return s.handle }

// Alive reports whether the scope has not been destroyed.
func (s *Scope) Alive() bool { return s.arena.nodes.Alive(s.handle) }

// Owner returns the native object reflected into this scope, if any.
func (s *Scope) Owner() any { return s.owner }

// Find returns the value named name in this scope only, or nil.
func (s *Scope) Find(name string) *Value {
	if e, ok := s.entries.Find(name); ok {
		return e.Value
	}
	return nil
}

// Search looks for name in s, then in each ancestor. It returns the value and
// the scope that holds it, or nil, nil.
func (s *Scope) Search(name string) (*Value, *Scope) {
	for c := s; c != nil; c = c.Parent() {
		if v := c.Find(name); v != nil {
			return v, c
		}
	}
	return nil, nil
}

// Append returns the value named name, adding an empty one at the end of the
// order if it does not exist yet.
func (s *Scope) Append(name string) *Value {
	if v := s.Find(name); v != nil {
		return v
	}
	e, _ := s.entries.Insert(name, &Value{arena: s.arena})
	s.order = append(s.order, e)
	return e.Value
}

// Lookup returns the value named name without creating it.
func (s *Scope) Lookup(name string) (*Value, error) {
	if v := s.Find(name); v != nil {
		return v, nil
	}
	return nil, fmt.Errorf("%w: attribute %q", errs.ErrNotFound, name)
}

// At returns the value at position i of the insertion order.
func (s *Scope) At(i int) (*Value, error) {
	if i < 0 || i >= len(s.order) {
		return nil, fmt.Errorf("%w: attribute index %d, length %d", errs.ErrOutOfRange, i, len(s.order))
	}
	return s.order[i].Value, nil
}

// NameAt returns the name at position i of the insertion order.
func (s *Scope) NameAt(i int) (string, error) {
	if i < 0 || i >= len(s.order) {
		return "", fmt.Errorf("%w: attribute index %d, length %d", errs.ErrOutOfRange, i, len(s.order))
	}
	return s.order[i].Key, nil
}

// Len is the number of attributes.
func (s *Scope) Len() int { return len(s.order) }

// Names returns the attribute names in insertion order.
func (s *Scope) Names() []string {
	names := make([]string, len(s.order))
	for i, e := range s.order {
		names[i] = e.Key
	}
	return names
}

// Each visits attributes in insertion order until fn returns false.
func (s *Scope) Each(fn func(name string, v *Value) bool) {
	for _, e := range s.order {
		if !fn(e.Key, e.Value) {
			return
		}
	}
}

// Parent returns the scope owning s, or nil for a root.
func (s *Scope) Parent() *Scope {
	if s.parent.IsNil() {
		return nil
	}
	p, _ := s.arena.Get(s.parent)
	return p
}

// ParentKey is the attribute of the parent holding s.
func (s *Scope) ParentKey() string { return s.parentKey }

// ParentIndex is the position of s inside its parent's value, or -1 for a root.
func (s *Scope) ParentIndex() int {
	p := s.Parent()
	if p == nil {
		return -1
	}
	v := p.Find(s.parentKey)
	if v == nil || v.typ != TypeScope {
		return -1
	}
	return slices.Index(v.handles().items, s.handle)
}

// IsAncestorOf reports whether s is a strict ancestor of other.
func (s *Scope) IsAncestorOf(other *Scope) bool {
	if s.arena != other.arena {
		return false
	}
	for c := other.Parent(); c != nil; c = c.Parent() {
		if c == s {
			return true
		}
	}
	return false
}

func (s *Scope) scopeValue(name string) (*Value, error) {
	if v := s.Find(name); v != nil {
		if v.typ != TypeUnknown && v.typ != TypeScope {
			return nil, fmt.Errorf("attribute %q: %w", name, mismatch(v.typ, TypeScope))
		}
		if v.IsBound() {
			return nil, fmt.Errorf("%w: attribute %q is bound", errs.ErrUnsupported, name)
		}
	}
	v := s.Append(name)
	if err := v.SetType(TypeScope); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Scope) attach(child *Scope, name string, v *Value) {
	hs := v.handles()
	hs.items = append(hs.items, child.handle)
	child.parent = s.handle
	child.parentKey = name
}

// AppendScope creates a child scope at the end of the value named name.
func (s *Scope) AppendScope(name string) (*Scope, error) {
	v, err := s.scopeValue(name)
	if err != nil {
		return nil, err
	}
	child := s.arena.NewScope()
	s.attach(child, name, v)
	return child, nil
}

// Adopt moves child, with its subtree, under s at the end of the value named
// name. The child is orphaned from its previous parent first. A child from
// another arena moves into s's arena. Adopting s itself or one of its
// ancestors fails before anything changes.
func (s *Scope) Adopt(child *Scope, name string) error {
	if child == nil || !child.Alive() || !s.Alive() {
		return fmt.Errorf("%w: adopt of a destroyed or nil scope", errs.ErrInvalidArgument)
	}
	if child == s {
		return fmt.Errorf("%w: a scope cannot adopt itself", errs.ErrInvalidArgument)
	}
	if child.IsAncestorOf(s) {
		return fmt.Errorf("%w: a scope cannot adopt its ancestor", errs.ErrInvalidArgument)
	}
	if v := s.Find(name); v != nil {
		if v.typ != TypeUnknown && v.typ != TypeScope {
			return fmt.Errorf("attribute %q: %w", name, mismatch(v.typ, TypeScope))
		}
		if v.IsBound() {
			return fmt.Errorf("%w: attribute %q is bound", errs.ErrUnsupported, name)
		}
	}

	child.Orphan()
	if child.arena != s.arena {
		child.migrate(s.arena)
	}
	v, err := s.scopeValue(name)
	if err != nil {
		return err
	}
	s.attach(child, name, v)
	return nil
}

// Orphan detaches s from its parent. The parent's value no longer lists s.
func (s *Scope) Orphan() {
	p := s.Parent()
	if p != nil {
		if v := p.Find(s.parentKey); v != nil && v.typ == TypeScope {
			hs := v.handles()
			if i := slices.Index(hs.items, s.handle); i >= 0 {
				hs.removeAt(i)
			}
		}
	}
	s.parent = arena.Nil
	s.parentKey = ""
}

// migrate moves s and its subtree into another arena.
func (s *Scope) migrate(to *Arena) {
	from := s.arena
	from.nodes.Release(s.handle)
	s.arena = to
	s.handle = to.nodes.Insert(s)
	s.rehome(from)
}

// rehome points every direct child at s. Children still living in from are
// migrated to s's arena first.
func (s *Scope) rehome(from *Arena) {
	for _, e := range s.order {
		v := e.Value
		v.arena = s.arena
		if v.typ != TypeScope {
			continue
		}
		hs := v.handles()
		for i, h := range hs.items {
			child, ok := from.Get(h)
			if !ok {
				continue
			}
			if from != s.arena {
				child.migrate(s.arena)
				hs.items[i] = child.handle
			}
			child.parent = s.handle
		}
	}
}

// destroyChildren destroys every scope owned by v and empties it.
func (s *Scope) destroyChildren(v *Value) {
	if v.typ != TypeScope {
		return
	}
	hs := v.handles()
	items := hs.items
	hs.items = nil
	for _, h := range items {
		if child, ok := s.arena.Get(h); ok {
			child.parent = arena.Nil
			child.Destroy()
		}
	}
}

// RemoveAttribute deletes the attribute name, destroying any scopes it owns.
func (s *Scope) RemoveAttribute(name string) bool {
	v := s.Find(name)
	if v == nil {
		return false
	}
	s.destroyChildren(v)
	s.entries.Remove(name)
	for i, e := range s.order {
		if e.Key == name {
			s.order = slices.Delete(s.order, i, i+1)
			break
		}
	}
	return true
}

// Clear destroys every owned child and removes every attribute. s keeps its
// place in its parent.
func (s *Scope) Clear() {
	for _, e := range s.order {
		s.destroyChildren(e.Value)
	}
	s.entries.Clear()
	s.order = nil
}

// Destroy orphans s, destroys its subtree and releases its handle.
// Destroying a destroyed scope does nothing.
func (s *Scope) Destroy() {
	if !s.Alive() {
		return
	}
	s.Orphan()
	s.Clear()
	s.arena.nodes.Release(s.handle)
}

// Clone returns a deep copy of s as a new root in the same arena. The copy
// has no owner and no self-reference.
func (s *Scope) Clone() *Scope {
	return s.cloneInto(s.arena)
}

func (s *Scope) cloneInto(to *Arena) *Scope {
	c := to.NewScope()
	for _, e := range s.order {
		if e.Key == ThisAttribute {
			continue
		}
		// Fresh owned values never conflict.
		_ = copyValue(c, e.Key, e.Value)
	}
	return c
}

// copyValue makes dst[name] a copy of sv. Nested scopes are deep-copied and
// replace the scopes dst[name] owned; a bound destination is written in place.
func copyValue(dst *Scope, name string, sv *Value) error {
	dv := dst.Append(name)
	if sv.typ == TypeUnknown {
		return nil
	}
	if dv.typ != TypeUnknown && dv.typ != sv.typ {
		return fmt.Errorf("attribute %q: %w", name, mismatch(dv.typ, sv.typ))
	}
	dv.collection = dv.collection || sv.collection
	if sv.typ == TypeScope {
		if err := dv.SetType(TypeScope); err != nil {
			return err
		}
		dst.destroyChildren(dv)
		for i := 0; i < sv.Len(); i++ {
			child, err := sv.scopeAt(i)
			if err != nil {
				return err
			}
			dst.attach(child.cloneInto(dst.arena), name, dv)
		}
		return nil
	}
	if dv.IsBound() {
		if dv.Len() != sv.Len() {
			return fmt.Errorf("%w: attribute %q is bound to %d elements, copying %d",
				errs.ErrUnsupported, name, dv.Len(), sv.Len())
		}
		for i := 0; i < sv.Len(); i++ {
			if err := dv.store.put(i, sv.store.at(i)); err != nil {
				return err
			}
		}
		return nil
	}
	dv.typ = sv.typ
	dv.store = sv.store.snapshot()
	return nil
}

// CopyFrom replaces the contents of s with a deep copy of src. s keeps its
// parent. src may live anywhere, including inside s.
func (s *Scope) CopyFrom(src *Scope) error {
	if src == s {
		return nil
	}
	tmp := src.cloneInto(s.arena)
	s.Clear()
	s.take(tmp)
	tmp.Destroy()
	return nil
}

// take moves the entries of src into s, which must be empty.
func (s *Scope) take(src *Scope) {
	s.entries, s.order = src.entries, src.order
	src.entries = hashmap.New[string, *Value](0, nil)
	src.order = nil
	s.rehome(src.arena)
}

// Move transfers the contents and the parent slot of src to s. s is cleared
// and orphaned first; src is left an empty root. Moving between a scope and
// one of its ancestors fails.
func (s *Scope) Move(src *Scope) error {
	if src == s {
		return nil
	}
	if src.IsAncestorOf(s) || s.IsAncestorOf(src) {
		return fmt.Errorf("%w: move between a scope and its ancestor", errs.ErrInvalidArgument)
	}
	p := src.Parent()
	if p != nil && src.arena != s.arena {
		return fmt.Errorf("%w: move of a parented scope across arenas", errs.ErrInvalidArgument)
	}
	s.Clear()
	s.Orphan()
	s.take(src)
	if p != nil {
		v := p.Find(src.parentKey)
		hs := v.handles()
		if i := slices.Index(hs.items, src.handle); i >= 0 {
			hs.items[i] = s.handle
		}
		s.parent = src.parent
		s.parentKey = src.parentKey
		src.parent = arena.Nil
		src.parentKey = ""
	}
	return nil
}

// Resolve walks a slash-separated path of attribute names from s. A name may
// be followed by an element index ("Sectors/0/Entities/1"); the index
// defaults to 0. An empty path resolves to s.
func (s *Scope) Resolve(path string) (*Scope, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return s, nil
	}
	parts := strings.Split(path, "/")
	cur := s
	for i := 0; i < len(parts); i++ {
		v, err := cur.Lookup(parts[i])
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", path, err)
		}
		if v.typ != TypeScope {
			return nil, fmt.Errorf("resolve %q: attribute %q: %w", path, parts[i], mismatch(v.typ, TypeScope))
		}
		idx := 0
		if i+1 < len(parts) {
			if n, err := strconv.Atoi(parts[i+1]); err == nil {
				idx = n
				i++
			}
		}
		next, err := Get[*Scope](v, idx)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", path, err)
		}
		cur = next
	}
	return cur, nil
}

// Equal reports whether s and o hold equal values under the same names,
// ignoring order and the self-reference.
func (s *Scope) Equal(o *Scope) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil || s.countAttributes() != o.countAttributes() {
		return false
	}
	for _, e := range s.order {
		if e.Key == ThisAttribute {
			continue
		}
		ov := o.Find(e.Key)
		if ov == nil || !e.Value.Equal(ov) {
			return false
		}
	}
	return true
}

func (s *Scope) countAttributes() int {
	n := len(s.order)
	if s.entries.ContainsKey(ThisAttribute) {
		n--
	}
	return n
}

// Equals implements rtti.Equaler.
func (s *Scope) Equals(other rtti.Object) bool {
	o, ok := rtti.As[*Scope](other)
	return ok && s.Equal(o)
}

// ToString renders the scope as {"name": "value", "list": ["a", "b"],
// "child": {...}}. Empty attributes and the self-reference are skipped,
// leaf values are quoted and nested scopes are not. A value with several
// elements, or a declared collection, renders as a list.
func (s *Scope) ToString() string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	for _, e := range s.order {
		v := e.Value
		if e.Key == ThisAttribute || v.Len() == 0 {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(`"` + e.Key + `": `)
		list := v.Len() > 1 || v.collection
		if list {
			b.WriteByte('[')
		}
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				b.WriteString(", ")
			}
			if v.typ == TypeScope {
				b.WriteString(dumpElement(v, i))
			} else {
				b.WriteString(`"` + dumpElement(v, i) + `"`)
			}
		}
		if list {
			b.WriteByte(']')
		}
	}
	b.WriteByte('}')
	return b.String()
}

func (s *Scope) String() string { return s.ToString() }

// FromString always fails: the dump is not meant to be parsed back.
func (s *Scope) FromString(string) error {
	return fmt.Errorf("%w: scopes cannot be parsed from text", errs.ErrUnsupported)
}

func dumpElement(v *Value, i int) string {
	text, err := v.ToString(i)
	if err == nil {
		return text
	}
	if v.typ == TypePointer {
		if o := cast[rtti.Object](v.store.at(i)); o != nil {
			return "<" + o.RuntimeType().Name() + ">"
		}
		return "<nil>"
	}
	return ""
}
