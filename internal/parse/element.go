package parse

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/worldtree/internal/core/errs"
)

// Element is one node of a document, independent of its source format.
type Element struct {
	Name       string
	Attributes *Attributes
	Children   []*Element
}

type yamlElement struct {
	Element    string     `yaml:"element"`
	Attributes yaml.Node  `yaml:"attributes,omitempty"`
	Children   []*Element `yaml:"children,omitempty"`
}

func (e *Element) UnmarshalYAML(n *yaml.Node) error {
	var y yamlElement
	if err := n.Decode(&y); err != nil {
		return err
	}
	if y.Element == "" {
		return fmt.Errorf("%w: line %d: element without a name", errs.ErrInvalidArgument, n.Line)
	}
	e.Name = y.Element
	e.Children = y.Children
	e.Attributes = NewAttributes()
	a := &y.Attributes
	if a.IsZero() {
		return nil
	}
	if a.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: line %d: attributes of %s must be a mapping", errs.ErrInvalidArgument, a.Line, e.Name)
	}
	for i := 0; i+1 < len(a.Content); i += 2 {
		e.Attributes.Set(a.Content[i].Value, a.Content[i+1].Value)
	}
	return nil
}

func (e *Element) MarshalYAML() (any, error) {
	out := yamlElement{Element: e.Name, Children: e.Children}
	if e.Attributes != nil && e.Attributes.Len() > 0 {
		out.Attributes = yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
		for _, name := range e.Attributes.Names() {
			v, _ := e.Attributes.Get(name)
			out.Attributes.Content = append(out.Attributes.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: name},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v})
		}
	}
	return out, nil
}

// EncodeYAML writes root in the YAML element form.
func EncodeYAML(w io.Writer, root *Element) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return err
	}
	return enc.Close()
}

// Recorder is a helper that records every element into an Element tree.
type Recorder struct {
	root  *Element
	stack []*Element
}

func (r *Recorder) Initialize(string) {
	r.root = nil
	r.stack = r.stack[:0]
}

func (r *Recorder) CloneHelper(SharedData) (Helper, error) { return &Recorder{}, nil }

func (r *Recorder) StartElement(name string, attrs *Attributes) (bool, error) {
	e := &Element{Name: name, Attributes: attrs.Clone()}
	if n := len(r.stack); n > 0 {
		parent := r.stack[n-1]
		parent.Children = append(parent.Children, e)
	} else {
		r.root = e
	}
	r.stack = append(r.stack, e)
	return true, nil
}

func (r *Recorder) EndElement(string) (bool, error) {
	if len(r.stack) == 0 {
		return false, nil
	}
	r.stack = r.stack[:len(r.stack)-1]
	return true, nil
}

// Root is the root element of the last recorded document.
func (r *Recorder) Root() *Element { return r.root }
