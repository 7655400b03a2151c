package parse

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/l1jgo/worldtree/internal/attr"
	"github.com/l1jgo/worldtree/internal/core/errs"
	"github.com/l1jgo/worldtree/internal/world"
)

// Element attribute names understood by WorldHelper.
const (
	AttrName  = "name"
	AttrClass = "class"
	AttrValue = "value"
	AttrPath  = "path"
)

const maxIncludeDepth = 16

// WorldData is the state of one world being parsed. It outlives the helpers
// that fill it: ExtractWorld hands the finished world to the caller.
type WorldData struct {
	factories *world.Factories
	world     *world.World
	current   world.Node
	stack     []string

	matrixName string
	matrixCols []mgl32.Vec4

	rpn      *RPNConverter
	includes int
}

func NewWorldData(f *world.Factories) *WorldData {
	return &WorldData{factories: f}
}

// Clone returns empty data with the same factories.
func (d *WorldData) Clone() SharedData { return NewWorldData(d.factories) }

// Depth is the number of world elements currently open.
func (d *WorldData) Depth() int { return len(d.stack) }

// ExtractWorld returns the parsed world, or nil, and forgets it. The caller
// owns the world from then on.
func (d *WorldData) ExtractWorld() *world.World {
	w := d.world
	d.world = nil
	d.current = nil
	d.stack = d.stack[:0]
	d.matrixName = ""
	d.matrixCols = nil
	return w
}

func (d *WorldData) parent() string {
	if len(d.stack) == 0 {
		return ""
	}
	return d.stack[len(d.stack)-1]
}

type (
	startHandler func(h *WorldHelper, attrs *Attributes) error
	endHandler   func(h *WorldHelper) error
)

type elementHandlers struct {
	start startHandler
	end   endHandler
}

var worldHandlers map[string]elementHandlers

func init() {
	worldHandlers = map[string]elementHandlers{
		"world":      {startWorld, endNode},
		"sectors":    {startList[*world.World], nil},
		"sector":     {startSector, endNode},
		"entities":   {startList[*world.Sector], nil},
		"entity":     {startEntity, endNode},
		"actions":    {startList[world.ActionContainer], nil},
		"action":     {startAction, endNode},
		"integer":    {startScalar(attr.TypeInteger), nil},
		"float":      {startScalar(attr.TypeFloat), nil},
		"string":     {startScalar(attr.TypeString), nil},
		"vector":     {startVector, nil},
		"matrix":     {startMatrix, endMatrix},
		"file":       {startFile, nil},
		"expression": {startExpression, nil},
	}
}

// WorldHelper builds a world from world, sector, entity and action elements
// and the typed attribute elements nested in them.
type WorldHelper struct {
	data *WorldData
	dir  string
	log  *zap.Logger
}

func NewWorldHelper(data *WorldData, log *zap.Logger) *WorldHelper {
	return &WorldHelper{data: data, log: log}
}

// Initialize records the directory file elements are resolved against.
func (h *WorldHelper) Initialize(fileName string) {
	if fileName != "" {
		h.dir = filepath.Dir(fileName)
	}
}

// SetSharedData points h at data, which must be a *WorldData.
func (h *WorldHelper) SetSharedData(data SharedData) error {
	wd, ok := data.(*WorldData)
	if !ok {
		return fmt.Errorf("%w: world helper needs *WorldData, got %T", errs.ErrTypeMismatch, data)
	}
	h.data = wd
	return nil
}

func (h *WorldHelper) CloneHelper(data SharedData) (Helper, error) {
	c := NewWorldHelper(h.data, h.log)
	if data == nil {
		c.data = NewWorldData(h.data.factories)
		return c, nil
	}
	return c, c.SetSharedData(data)
}

func (h *WorldHelper) StartElement(name string, attrs *Attributes) (bool, error) {
	eh, ok := worldHandlers[name]
	if !ok {
		return false, nil
	}
	if err := eh.start(h, attrs); err != nil {
		return true, err
	}
	h.data.stack = append(h.data.stack, name)
	return true, nil
}

func (h *WorldHelper) EndElement(name string) (bool, error) {
	eh, ok := worldHandlers[name]
	if !ok {
		return false, nil
	}
	if eh.end != nil {
		if err := eh.end(h); err != nil {
			return true, err
		}
	}
	h.data.stack = h.data.stack[:len(h.data.stack)-1]
	return true, nil
}

func required(attrs *Attributes, names ...string) ([]string, error) {
	out := make([]string, len(names))
	for i, n := range names {
		v, ok := attrs.Get(n)
		if !ok {
			return nil, fmt.Errorf("%w: missing required attribute %q", errs.ErrInvalidArgument, n)
		}
		out[i] = v
	}
	return out, nil
}

func currentAs[T any](d *WorldData) (T, error) {
	n, ok := d.current.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: element not allowed inside %s", errs.ErrInvalidArgument, describe(d.current))
	}
	return n, nil
}

func describe(n world.Node) string {
	if n == nil {
		return "the document root"
	}
	return fmt.Sprintf("%s %q", n.Kind(), n.Name())
}

func expectParent(d *WorldData, list string) error {
	if p := d.parent(); p != list {
		return fmt.Errorf("%w: parent element is <%s>, want <%s>", errs.ErrInvalidArgument, p, list)
	}
	return nil
}

func startWorld(h *WorldHelper, attrs *Attributes) error {
	d := h.data
	if d.world != nil {
		return fmt.Errorf("%w: document holds a second world", errs.ErrInvalidArgument)
	}
	a, err := required(attrs, AttrName)
	if err != nil {
		return err
	}
	d.world = world.NewWorld(a[0])
	d.current = d.world
	h.log.Debug("world", zap.String("name", a[0]))
	return nil
}

func startList[T any](h *WorldHelper, _ *Attributes) error {
	_, err := currentAs[T](h.data)
	return err
}

func startSector(h *WorldHelper, attrs *Attributes) error {
	d := h.data
	a, err := required(attrs, AttrName)
	if err != nil {
		return err
	}
	w, err := currentAs[*world.World](d)
	if err != nil {
		return err
	}
	if err := expectParent(d, "sectors"); err != nil {
		return err
	}
	s, err := w.CreateSector(a[0])
	if err != nil {
		return err
	}
	d.current = s
	h.log.Debug("sector", zap.String("name", a[0]))
	return nil
}

func startEntity(h *WorldHelper, attrs *Attributes) error {
	d := h.data
	a, err := required(attrs, AttrName, AttrClass)
	if err != nil {
		return err
	}
	s, err := currentAs[*world.Sector](d)
	if err != nil {
		return err
	}
	if err := expectParent(d, "entities"); err != nil {
		return err
	}
	e, err := s.CreateEntity(d.factories.Entities, a[0], a[1])
	if err != nil {
		return err
	}
	d.current = e
	h.log.Debug("entity", zap.String("name", a[0]), zap.String("class", a[1]))
	return nil
}

func startAction(h *WorldHelper, attrs *Attributes) error {
	d := h.data
	a, err := required(attrs, AttrName, AttrClass)
	if err != nil {
		return err
	}
	c, err := currentAs[world.ActionContainer](d)
	if err != nil {
		return err
	}
	if err := expectParent(d, "actions"); err != nil {
		return err
	}
	act, err := c.CreateAction(d.factories.Actions, a[0], a[1])
	if err != nil {
		return err
	}
	d.current = act
	h.log.Debug("action", zap.String("name", a[0]), zap.String("class", a[1]))
	return nil
}

func endNode(h *WorldHelper) error {
	d := h.data
	if d.current != nil {
		d.current = world.ContainerOf(d.current)
	}
	return nil
}

// target returns the attribute name of a typed element and the value it
// writes to, creating an auxiliary attribute when needed.
func target(d *WorldData, attrs *Attributes) (string, *attr.Value, error) {
	a, err := required(attrs, AttrName)
	if err != nil {
		return "", nil, err
	}
	if d.current == nil {
		return "", nil, fmt.Errorf("%w: attribute %q outside a world node", errs.ErrInvalidArgument, a[0])
	}
	return a[0], d.current.Tree().Append(a[0]), nil
}

func startScalar(t attr.Type) startHandler {
	return func(h *WorldHelper, attrs *Attributes) error {
		name, v, err := target(h.data, attrs)
		if err != nil {
			return err
		}
		if v.Type() != attr.TypeUnknown && v.Type() != t {
			return fmt.Errorf("attribute %q: %w: declared %s, holds %s", name, errs.ErrTypeMismatch, t, v.Type())
		}
		if err := v.SetType(t); err != nil {
			return err
		}
		text, ok := attrs.Get(AttrValue)
		if !ok {
			return nil
		}
		if v.IsBound() {
			err = v.SetFromString(text, 0)
		} else {
			err = v.PushFromString(text)
		}
		if err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
		return nil
	}
}

func parseVector(attrs *Attributes) (mgl32.Vec4, error) {
	var out mgl32.Vec4
	a, err := required(attrs, "x", "y", "z", "w")
	if err != nil {
		return out, err
	}
	for i, text := range a {
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return out, fmt.Errorf("%w: vector component %q", errs.ErrInvalidArgument, text)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func startVector(h *WorldHelper, attrs *Attributes) error {
	d := h.data
	vec, err := parseVector(attrs)
	if err != nil {
		return err
	}
	if d.matrixName != "" {
		if len(d.matrixCols) == 4 {
			return fmt.Errorf("%w: matrix %q has more than 4 vectors", errs.ErrInvalidArgument, d.matrixName)
		}
		d.matrixCols = append(d.matrixCols, vec)
		return nil
	}
	name, v, err := target(d, attrs)
	if err != nil {
		return err
	}
	if err := store(v, vec); err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	return nil
}

func startMatrix(h *WorldHelper, attrs *Attributes) error {
	d := h.data
	if d.matrixName != "" {
		return fmt.Errorf("%w: matrix inside matrix %q", errs.ErrInvalidArgument, d.matrixName)
	}
	name, _, err := target(d, attrs)
	if err != nil {
		return err
	}
	d.matrixName = name
	d.matrixCols = d.matrixCols[:0]
	return nil
}

// startExpression stores the RPN form of an infix expression as a string
// attribute.
func startExpression(h *WorldHelper, attrs *Attributes) error {
	d := h.data
	a, err := required(attrs, AttrValue)
	if err != nil {
		return err
	}
	name, v, err := target(d, attrs)
	if err != nil {
		return err
	}
	if d.rpn == nil {
		d.rpn = NewRPNConverter()
	}
	rpn, err := d.rpn.ConvertToRPN(a[0])
	if err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	if err := store(v, rpn); err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	return nil
}

func endMatrix(h *WorldHelper) error {
	d := h.data
	name := d.matrixName
	d.matrixName = ""
	if len(d.matrixCols) != 4 {
		return fmt.Errorf("%w: matrix %q has %d vectors, want 4", errs.ErrInvalidArgument, name, len(d.matrixCols))
	}
	c := d.matrixCols
	m := mgl32.Mat4FromCols(c[0], c[1], c[2], c[3])
	if err := store(d.current.Tree().Append(name), m); err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	return nil
}

// store appends e, or overwrites the first element of a bound attribute.
func store[E any](v *attr.Value, e E) error {
	if v.IsBound() {
		return attr.Set(v, e, 0)
	}
	return attr.PushBack(v, e)
}

// startFile parses another document in place, as if its root element
// appeared here. The path is relative to the including document.
func startFile(h *WorldHelper, attrs *Attributes) error {
	d := h.data
	a, err := required(attrs, AttrPath)
	if err != nil {
		return err
	}
	if d.includes >= maxIncludeDepth {
		return fmt.Errorf("%w: file %q nested too deep", errs.ErrInvalidArgument, a[0])
	}
	path := a[0]
	if !filepath.IsAbs(path) {
		path = filepath.Join(h.dir, path)
	}
	d.includes++
	defer func() { d.includes-- }()

	m := NewMaster(h.log)
	if err := m.AddHelper(NewWorldHelper(d, h.log)); err != nil {
		return err
	}
	h.log.Debug("include", zap.String("file", path))
	return m.ParseFile(path)
}
