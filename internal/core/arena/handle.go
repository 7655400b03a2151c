// Package arena stores nodes behind generational handles. Parent/child links
// between nodes are handles rather than pointers, so a destroyed node can
// never be reached through a stale link: its generation no longer matches.
package arena

import "fmt"

// Handle encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale refs.
type Handle uint64

// Nil is never issued: generations start at 1.
const Nil Handle = 0

func NewHandle(index uint32, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

func (h Handle) Index() uint32      { return uint32(h) }
func (h Handle) Generation() uint32 { return uint32(h >> 32) }
func (h Handle) IsNil() bool        { return h == Nil }

func (h Handle) String() string {
	if h.IsNil() {
		return "nil"
	}
	return fmt.Sprintf("%d@%d", h.Index(), h.Generation())
}

// Pool manages handle allocation with generational indices and a free list.
type Pool struct {
	generations []uint32
	freeList    []uint32
	nextIndex   uint32
}

func NewPool() *Pool {
	return &Pool{
		generations: make([]uint32, 0, 64),
		freeList:    make([]uint32, 0, 16),
	}
}

func (p *Pool) Create() Handle {
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		return NewHandle(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	if int(idx) >= len(p.generations) {
		p.generations = append(p.generations, 1)
	}
	return NewHandle(idx, p.generations[idx])
}

func (p *Pool) Alive(h Handle) bool {
	if h.IsNil() {
		return false
	}
	idx := h.Index()
	if idx >= p.nextIndex {
		return false
	}
	return p.generations[idx] == h.Generation()
}

// Destroy retires h. It reports false for stale or unknown handles.
func (p *Pool) Destroy(h Handle) bool {
	if !p.Alive(h) {
		return false
	}
	idx := h.Index()
	p.generations[idx]++
	if p.generations[idx] == 0 {
		p.generations[idx] = 1 // wrapped; skip the Nil generation
	}
	p.freeList = append(p.freeList, idx)
	return true
}
