// Package factory maps class names to constructors so that polymorphic nodes
// can be built from a string read out of a document.
//
// A Registry is an ordinary value owned by whoever parses or builds a world;
// there is no process-wide registry.
package factory

import (
	"fmt"

	"github.com/l1jgo/worldtree/internal/core/errs"
	"github.com/l1jgo/worldtree/internal/core/hashmap"
)

// Constructor builds a new instance of one class.
type Constructor[T any] func() T

// Registry maps class name -> constructor.
type Registry[T any] struct {
	kind  string
	ctors *hashmap.Map[string, Constructor[T]]
	names []string
}

// New creates an empty registry. kind names what the registry builds
// ("entity", "action") and only appears in error messages.
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:  kind,
		ctors: hashmap.New[string, Constructor[T]](0, nil),
	}
}

// Register adds a class. Registering a name twice is an error.
func (r *Registry[T]) Register(class string, ctor Constructor[T]) error {
	if class == "" || ctor == nil {
		return fmt.Errorf("%w: %s class needs a name and a constructor", errs.ErrInvalidArgument, r.kind)
	}
	if _, inserted := r.ctors.Insert(class, ctor); !inserted {
		return fmt.Errorf("%w: %s class %q already registered", errs.ErrInvalidArgument, r.kind, class)
	}
	r.names = append(r.names, class)
	return nil
}

// MustRegister is Register for built-in classes wired at startup.
func (r *Registry[T]) MustRegister(class string, ctor Constructor[T]) {
	if err := r.Register(class, ctor); err != nil {
		panic(err)
	}
}

// Unregister removes a class. It reports whether the class was registered.
func (r *Registry[T]) Unregister(class string) bool {
	if !r.ctors.Remove(class) {
		return false
	}
	for i, n := range r.names {
		if n == class {
			r.names = append(r.names[:i], r.names[i+1:]...)
			break
		}
	}
	return true
}

// Create builds an instance of class.
func (r *Registry[T]) Create(class string) (T, error) {
	ctor, err := r.ctors.Get(class)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: no %s class %q", errs.ErrNotFound, r.kind, class)
	}
	return ctor(), nil
}

// Has reports whether class is registered.
func (r *Registry[T]) Has(class string) bool { return r.ctors.ContainsKey(class) }

// Names returns the class names in registration order.
func (r *Registry[T]) Names() []string { return append([]string(nil), r.names...) }

// Len is the number of registered classes.
func (r *Registry[T]) Len() int { return r.ctors.Len() }
