package attr

import (
	"github.com/l1jgo/worldtree/internal/core/arena"
	"github.com/l1jgo/worldtree/internal/core/hashmap"
)

// Arena owns every Scope of one tree. Parent and child links are handles
// into the arena, so a destroyed node stops resolving instead of dangling.
type Arena struct {
	nodes *arena.Arena[Scope]
}

func NewArena() *Arena {
	return &Arena{nodes: arena.New[Scope]()}
}

// NewScope allocates an empty root scope.
func (a *Arena) NewScope() *Scope {
	s := &Scope{
		arena:   a,
		entries: hashmap.New[string, *Value](0, nil),
	}
	s.handle = a.nodes.Insert(s)
	return s
}

// Get resolves a scope handle.
func (a *Arena) Get(h arena.Handle) (*Scope, bool) {
	return a.nodes.Get(h)
}

// Live is the number of scopes not yet destroyed.
func (a *Arena) Live() int { return a.nodes.Live() }

// Allocated counts every scope ever created in (or migrated into) the arena.
func (a *Arena) Allocated() uint64 { return a.nodes.Allocated() }

// Released counts every scope destroyed in (or migrated out of) the arena.
func (a *Arena) Released() uint64 { return a.nodes.Released() }

// MarkForDestruction queues s to be destroyed by the next FlushDestroyQueue.
func (a *Arena) MarkForDestruction(s *Scope) {
	if s.arena == a {
		a.nodes.MarkForDestruction(s.handle)
	}
}

// Pending is the number of scopes waiting in the destroy queue.
func (a *Arena) Pending() int { return a.nodes.Pending() }

// FlushDestroyQueue destroys every queued scope still alive. A scope whose
// ancestor was flushed first is already gone and is skipped.
func (a *Arena) FlushDestroyQueue(onDestroy func(*Scope)) {
	a.nodes.FlushDestroyQueue(func(_ arena.Handle, s *Scope) {
		if onDestroy != nil {
			onDestroy(s)
		}
		s.Destroy()
	})
}

// NewScope allocates a root scope in a fresh arena.
func NewScope() *Scope {
	return NewArena().NewScope()
}
