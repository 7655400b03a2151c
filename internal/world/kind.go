package world

import (
	"slices"
	"strconv"
	"strings"

	"github.com/l1jgo/worldtree/internal/attr"
	"github.com/l1jgo/worldtree/internal/factory"
)

// Kind is the closed set of node kinds in a world tree.
type Kind uint8

const (
	KindWorld Kind = iota
	KindSector
	KindEntity
	KindAction
)

func (k Kind) String() string {
	switch k {
	case KindWorld:
		return "World"
	case KindSector:
		return "Sector"
	case KindEntity:
		return "Entity"
	case KindAction:
		return "Action"
	}
	return "Unknown"
}

// Attribute names shared by every node kind.
const (
	AttrName     = "Name"
	AttrSectors  = "Sectors"
	AttrEntities = "Entities"
	AttrActions  = "Actions"
)

type Nameable interface {
	Name() string
	SetName(name string)
}

type Updatable interface {
	Update(ws *WorldState)
}

// Node is implemented by World, Sector, Entity and every Action.
type Node interface {
	Nameable
	Updatable
	Kind() Kind
	Tree() *attr.Attributed
}

// ActionContainer is a node that owns an Actions collection.
type ActionContainer interface {
	Node
	Actions() []Action
	AdoptAction(a Action) error
	CreateAction(reg *factory.Registry[Action], name, class string) (Action, error)
}

// NodeOf returns the node reflected into s, or nil.
func NodeOf(s *attr.Scope) Node {
	if s == nil {
		return nil
	}
	n, _ := s.Owner().(Node)
	return n
}

// ContainerOf returns the node owning n, or nil for a root.
func ContainerOf(n Node) Node {
	return NodeOf(n.Tree().Parent())
}

// WorldOf walks up from n to the World at the root of its tree.
func WorldOf(n Node) *World {
	s := n.Tree().Scope
	for p := s.Parent(); p != nil; p = p.Parent() {
		s = p
	}
	w, _ := s.Owner().(*World)
	return w
}

// Path returns the slash path of n from the root of its tree, in the form
// accepted by attr.Scope.Resolve ("Sectors/0/Entities/2").
func Path(n Node) string {
	var parts []string
	for s := n.Tree().Scope; s.Parent() != nil; s = s.Parent() {
		parts = append(parts, s.ParentKey()+"/"+strconv.Itoa(s.ParentIndex()))
	}
	slices.Reverse(parts)
	return strings.Join(parts, "/")
}

func collect[T any](v *attr.Value) []T {
	if v == nil {
		return nil
	}
	out := make([]T, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		s, err := attr.Get[*attr.Scope](v, i)
		if err != nil {
			continue
		}
		if n, ok := s.Owner().(T); ok {
			out = append(out, n)
		}
	}
	return out
}
