// Package parse reads world documents. A Master walks the elements of an XML
// or YAML document and offers each one to its helpers in order; the first
// helper that handles an element consumes it.
package parse

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"
	"gopkg.in/yaml.v3"

	"github.com/l1jgo/worldtree/internal/core/errs"
)

// Helper handles the elements it knows. Returning false passes the element
// to the next helper; returning an error aborts the document.
type Helper interface {
	StartElement(name string, attrs *Attributes) (bool, error)
	EndElement(name string) (bool, error)
}

// Initializer is implemented by helpers that want to know which document is
// about to be parsed. fileName is empty for documents read from a stream.
type Initializer interface {
	Initialize(fileName string)
}

// SharedData is the state helpers fill while a document is parsed.
type SharedData interface {
	// Clone returns empty data of the same kind.
	Clone() SharedData
}

// DataHelper is implemented by helpers that fill the master's shared data.
// SetSharedData runs before each document and fails for data of the wrong
// kind.
type DataHelper interface {
	SetSharedData(data SharedData) error
}

// Cloner is implemented by helpers that can serve a cloned master.
type Cloner interface {
	CloneHelper(data SharedData) (Helper, error)
}

type Master struct {
	helpers  []Helper
	data     SharedData
	cloned   bool
	fileName string
	depth    int
	log      *zap.Logger
}

func NewMaster(log *zap.Logger) *Master {
	return &Master{log: log}
}

// AddHelper appends h. Adding the same helper twice fails, as does adding to
// a cloned master.
func (m *Master) AddHelper(h Helper) error {
	if m.cloned {
		return fmt.Errorf("%w: add helper to a cloned master", errs.ErrUnsupported)
	}
	if slices.Contains(m.helpers, h) {
		return fmt.Errorf("%w: helper %T already added", errs.ErrInvalidArgument, h)
	}
	m.helpers = append(m.helpers, h)
	return nil
}

// RemoveHelper removes h. A cloned master keeps its helpers.
func (m *Master) RemoveHelper(h Helper) bool {
	if m.cloned {
		return false
	}
	i := slices.Index(m.helpers, h)
	if i < 0 {
		return false
	}
	m.helpers = slices.Delete(m.helpers, i, i+1)
	return true
}

// SetSharedData replaces the data the helpers fill from the next document on.
func (m *Master) SetSharedData(data SharedData) { m.data = data }

func (m *Master) SharedData() SharedData { return m.data }

// Clone returns a master with empty shared data of the same kind and a clone
// of every helper bound to it. Every helper must implement Cloner. The clone
// cannot gain or lose helpers.
func (m *Master) Clone() (*Master, error) {
	c := &Master{cloned: true, log: m.log}
	if m.data != nil {
		c.data = m.data.Clone()
	}
	for _, h := range m.helpers {
		hc, ok := h.(Cloner)
		if !ok {
			return nil, fmt.Errorf("%w: helper %T cannot be cloned", errs.ErrUnsupported, h)
		}
		nh, err := hc.CloneHelper(c.data)
		if err != nil {
			return nil, err
		}
		c.helpers = append(c.helpers, nh)
	}
	return c, nil
}

// IsClone reports whether m was made by Clone.
func (m *Master) IsClone() bool { return m.cloned }

// FileName is the path of the document last parsed by ParseFile.
func (m *Master) FileName() string { return m.fileName }

// Depth is the number of elements currently open.
func (m *Master) Depth() int { return m.depth }

func (m *Master) begin(fileName string) error {
	m.fileName = fileName
	m.depth = 0
	for _, h := range m.helpers {
		if dh, ok := h.(DataHelper); ok && m.data != nil {
			if err := dh.SetSharedData(m.data); err != nil {
				return err
			}
		}
		if in, ok := h.(Initializer); ok {
			in.Initialize(fileName)
		}
	}
	return nil
}

func (m *Master) start(name string, attrs *Attributes) error {
	m.depth++
	for _, h := range m.helpers {
		handled, err := h.StartElement(name, attrs)
		if err != nil {
			return fmt.Errorf("<%s>: %w", name, err)
		}
		if handled {
			return nil
		}
	}
	m.log.Debug("unhandled element", zap.String("element", name), zap.Int("depth", m.depth))
	return nil
}

func (m *Master) end(name string) error {
	defer func() { m.depth-- }()
	for _, h := range m.helpers {
		handled, err := h.EndElement(name)
		if err != nil {
			return fmt.Errorf("</%s>: %w", name, err)
		}
		if handled {
			return nil
		}
	}
	return nil
}

// Parse reads an XML document. Encodings other than UTF-8 are decoded
// according to the charset of the XML declaration.
func (m *Master) Parse(r io.Reader) error {
	if err := m.begin(""); err != nil {
		return err
	}
	return m.parseXML(r)
}

func (m *Master) parseXML(r io.Reader) error {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			attrs := NewAttributes()
			for _, a := range t.Attr {
				attrs.Set(a.Name.Local, a.Value)
			}
			if err := m.start(t.Name.Local, attrs); err != nil {
				return m.located(dec, err)
			}
		case xml.EndElement:
			if err := m.end(t.Name.Local); err != nil {
				return m.located(dec, err)
			}
		}
	}
}

func (m *Master) located(dec *xml.Decoder, err error) error {
	line, _ := dec.InputPos()
	if m.fileName != "" {
		return fmt.Errorf("%s:%d: %w", m.fileName, line, err)
	}
	return fmt.Errorf("line %d: %w", line, err)
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("%w: charset %q: %v", errs.ErrUnsupported, label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("%w: charset %q", errs.ErrUnsupported, label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// ParseYAML reads a document in the YAML element form:
//
//	element: world
//	attributes: {name: Skyrim}
//	children:
//	  - element: sectors
func (m *Master) ParseYAML(r io.Reader) error {
	if err := m.begin(""); err != nil {
		return err
	}
	return m.parseYAML(r)
}

func (m *Master) parseYAML(r io.Reader) error {
	root, err := DecodeYAML(r)
	if err != nil {
		return err
	}
	return m.walk(root)
}

func (m *Master) walk(e *Element) error {
	if err := m.start(e.Name, e.Attributes); err != nil {
		return err
	}
	for _, c := range e.Children {
		if err := m.walk(c); err != nil {
			return err
		}
	}
	return m.end(e.Name)
}

// ParseFile parses the document at path, picking YAML for .yaml and .yml
// files and XML otherwise.
func (m *Master) ParseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := m.begin(path); err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := m.parseYAML(f); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	default:
		return m.parseXML(f)
	}
}

// DecodeYAML reads one document in the YAML element form.
func DecodeYAML(r io.Reader) (*Element, error) {
	var root Element
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty yaml document", errs.ErrInvalidArgument)
		}
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return &root, nil
}
