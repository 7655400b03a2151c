package arena

// Arena owns the handle pool and the node slots, and keeps allocation
// counters so callers can verify that every node is released exactly once.
// Accessed only from the goroutine that owns the tree; no locks.
type Arena[T any] struct {
	pool         *Pool
	slots        []*T
	live         int
	allocated    uint64
	released     uint64
	destroyQueue []Handle
}

func New[T any]() *Arena[T] {
	return &Arena[T]{
		pool:         NewPool(),
		slots:        make([]*T, 0, 64),
		destroyQueue: make([]Handle, 0, 16),
	}
}

// Insert stores node and returns its handle.
func (a *Arena[T]) Insert(node *T) Handle {
	h := a.pool.Create()
	idx := int(h.Index())
	for idx >= len(a.slots) {
		a.slots = append(a.slots, nil)
	}
	a.slots[idx] = node
	a.live++
	a.allocated++
	return h
}

// Get resolves h. Stale handles resolve to nothing.
func (a *Arena[T]) Get(h Handle) (*T, bool) {
	if !a.pool.Alive(h) {
		return nil, false
	}
	node := a.slots[h.Index()]
	return node, node != nil
}

// Alive reports whether h still resolves.
func (a *Arena[T]) Alive(h Handle) bool {
	return a.pool.Alive(h)
}

// Release frees the slot of h. It reports false if h was already released.
func (a *Arena[T]) Release(h Handle) bool {
	if !a.pool.Destroy(h) {
		return false
	}
	a.slots[h.Index()] = nil
	a.live--
	a.released++
	return true
}

// Live is the number of nodes currently stored.
func (a *Arena[T]) Live() int { return a.live }

// Allocated is the number of Insert calls over the arena's lifetime.
func (a *Arena[T]) Allocated() uint64 { return a.allocated }

// Released is the number of successful Release calls over the arena's lifetime.
func (a *Arena[T]) Released() uint64 { return a.released }

// MarkForDestruction queues h for end-of-tick destruction.
func (a *Arena[T]) MarkForDestruction(h Handle) {
	for _, q := range a.destroyQueue {
		if q == h {
			return
		}
	}
	a.destroyQueue = append(a.destroyQueue, h)
}

// Pending is the number of queued destructions.
func (a *Arena[T]) Pending() int { return len(a.destroyQueue) }

// FlushDestroyQueue hands every queued, still-alive node to destroy and
// clears the queue. destroy is responsible for releasing the handle.
func (a *Arena[T]) FlushDestroyQueue(destroy func(Handle, *T)) {
	queue := a.destroyQueue
	a.destroyQueue = make([]Handle, 0, cap(queue))
	for _, h := range queue {
		if node, ok := a.Get(h); ok {
			destroy(h, node)
		}
	}
}
