package parse

import (
	"slices"

	"github.com/l1jgo/worldtree/internal/core/hashmap"
)

// Attributes is the attribute list of one element, kept in document order.
type Attributes struct {
	values *hashmap.Map[string, string]
	order  []string
}

func NewAttributes() *Attributes {
	return &Attributes{values: hashmap.New[string, string](0, nil)}
}

// Set adds name or replaces its value in place.
func (a *Attributes) Set(name, value string) {
	e, inserted := a.values.Insert(name, value)
	if inserted {
		a.order = append(a.order, name)
		return
	}
	e.Value = value
}

func (a *Attributes) Get(name string) (string, bool) {
	e, ok := a.values.Find(name)
	if !ok {
		return "", false
	}
	return e.Value, true
}

func (a *Attributes) Has(name string) bool { return a.values.ContainsKey(name) }
func (a *Attributes) Len() int             { return len(a.order) }
func (a *Attributes) Names() []string      { return slices.Clone(a.order) }

func (a *Attributes) Clone() *Attributes {
	c := NewAttributes()
	for _, name := range a.order {
		v, _ := a.Get(name)
		c.Set(name, v)
	}
	return c
}
