package attr

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/l1jgo/worldtree/internal/core/rtti"
)

// Field declares one prescribed attribute of T: how to bind it into a scope
// for a given instance, and how to detach shared memory when the instance is
// copied.
type Field[T any] struct {
	name  string
	bind  func(owner *T, s *Scope) error
	clone func(dst *T)
}

// Name returns the attribute name.
func (f Field[T]) Name() string { return f.name }

// Schema is the static list of prescribed attributes of T, declared once per
// type and shared by every instance.
type Schema[T any] struct {
	name   string
	fields []Field[T]
	names  []string
}

// NewSchema declares the prescribed attributes of T. It panics on a
// duplicate or reserved name; schemas are package-level declarations.
func NewSchema[T any](name string, fields ...Field[T]) *Schema[T] {
	s := &Schema[T]{name: name, names: []string{ThisAttribute}}
	for _, f := range fields {
		if slices.Contains(s.names, f.name) {
			panic(fmt.Sprintf("attr: schema %s declares %q twice", name, f.name))
		}
		s.fields = append(s.fields, f)
		s.names = append(s.names, f.name)
	}
	return s
}

// Extend declares T's schema as P's fields, reached through embed, followed
// by T's own fields.
func Extend[T, P any](name string, parent *Schema[P], embed func(*T) *P, fields ...Field[T]) *Schema[T] {
	inherited := make([]Field[T], 0, len(parent.fields)+len(fields))
	for _, pf := range parent.fields {
		inherited = append(inherited, lift(pf, embed))
	}
	return NewSchema(name, append(inherited, fields...)...)
}

func lift[T, P any](pf Field[P], embed func(*T) *P) Field[T] {
	f := Field[T]{
		name: pf.name,
		bind: func(o *T, s *Scope) error { return pf.bind(embed(o), s) },
	}
	if pf.clone != nil {
		f.clone = func(dst *T) { pf.clone(embed(dst)) }
	}
	return f
}

// Name is the class name of the schema.
func (s *Schema[T]) Name() string { return s.name }

// Names returns the prescribed attribute names, "this" first.
func (s *Schema[T]) Names() []string { return slices.Clone(s.names) }

// Has reports whether name is prescribed.
func (s *Schema[T]) Has(name string) bool { return slices.Contains(s.names, name) }

func scalar[T, E any](name string, field func(*T) *E) Field[T] {
	return Field[T]{
		name: name,
		bind: func(o *T, s *Scope) error {
			return Bind(s.Append(name),
				func() int { return 1 },
				func(int) E { return *field(o) },
				func(_ int, e E) { *field(o) = e })
		},
	}
}

func slice[T, E any](name string, field func(*T) *[]E) Field[T] {
	return Field[T]{
		name: name,
		bind: func(o *T, s *Scope) error {
			return Bind(s.Append(name),
				func() int { return len(*field(o)) },
				func(i int) E { return (*field(o))[i] },
				func(i int, e E) { (*field(o))[i] = e })
		},
		clone: func(dst *T) {
			p := field(dst)
			*p = slices.Clone(*p)
		},
	}
}

func Int[T any](name string, field func(*T) *int32) Field[T] { return scalar(name, field) }

func Ints[T any](name string, field func(*T) *[]int32) Field[T] { return slice(name, field) }

func Float[T any](name string, field func(*T) *float32) Field[T] { return scalar(name, field) }

func Floats[T any](name string, field func(*T) *[]float32) Field[T] { return slice(name, field) }

func String[T any](name string, field func(*T) *string) Field[T] { return scalar(name, field) }

func Strings[T any](name string, field func(*T) *[]string) Field[T] { return slice(name, field) }

func Vec[T any](name string, field func(*T) *mgl32.Vec4) Field[T] { return scalar(name, field) }

func Vecs[T any](name string, field func(*T) *[]mgl32.Vec4) Field[T] { return slice(name, field) }

func Mat[T any](name string, field func(*T) *mgl32.Mat4) Field[T] { return scalar(name, field) }

func Mats[T any](name string, field func(*T) *[]mgl32.Mat4) Field[T] { return slice(name, field) }

func Object[T any](name string, field func(*T) *rtti.Object) Field[T] { return scalar(name, field) }

func Objects[T any](name string, field func(*T) *[]rtti.Object) Field[T] { return slice(name, field) }

// Table declares an owned collection of child scopes, such as the Sectors of
// a World. The dump always renders it as a list.
func Table[T any](name string) Field[T] {
	return Field[T]{
		name: name,
		bind: func(_ *T, s *Scope) error {
			v, err := s.scopeValue(name)
			if err != nil {
				return err
			}
			v.collection = true
			return nil
		},
	}
}

// Nested declares a single owned child scope created with the instance.
func Nested[T any](name string) Field[T] {
	return Field[T]{
		name: name,
		bind: func(_ *T, s *Scope) error {
			_, err := s.AppendScope(name)
			return err
		},
	}
}
