// Package attr implements the dynamic attribute tree: the type-tagged Value
// array, the ordered Scope container that nests Values into an owning tree,
// and the schema-driven Attributed layer that mirrors native struct fields
// into a Scope.
//
// All tree mutation happens on one goroutine. Nothing here locks.
package attr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/l1jgo/worldtree/internal/core/arena"
	"github.com/l1jgo/worldtree/internal/core/errs"
	"github.com/l1jgo/worldtree/internal/core/rtti"
)

// Type tags the elements of a Value.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeInteger      // int32
	TypeFloat        // float32
	TypeString       // string
	TypeVector       // mgl32.Vec4
	TypeMatrix       // mgl32.Mat4
	TypeScope        // nested *Scope, stored as an arena handle
	TypePointer      // rtti.Object
)

var typeNames = [...]string{
	TypeUnknown: "Unknown",
	TypeInteger: "Integer",
	TypeFloat:   "Float",
	TypeString:  "String",
	TypeVector:  "Vector",
	TypeMatrix:  "Matrix",
	TypeScope:   "Scope",
	TypePointer: "Pointer",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// ParseType maps a case-insensitive type name ("integer", "Vector", ...) to its Type.
func ParseType(name string) (Type, error) {
	for t, n := range typeNames {
		if strings.EqualFold(n, name) && Type(t) != TypeUnknown {
			return Type(t), nil
		}
	}
	return TypeUnknown, fmt.Errorf("%w: unknown value type %q", errs.ErrInvalidArgument, name)
}

// typeFor returns the tag for element type E, or TypeUnknown when E is not
// one of the supported element types.
func typeFor[E any]() Type {
	switch any((*E)(nil)).(type) {
	case *int32:
		return TypeInteger
	case *float32:
		return TypeFloat
	case *string:
		return TypeString
	case *mgl32.Vec4:
		return TypeVector
	case *mgl32.Mat4:
		return TypeMatrix
	case **Scope:
		return TypeScope
	case *rtti.Object:
		return TypePointer
	}
	return TypeUnknown
}

// newOwned returns empty owned storage for t.
func newOwned(t Type) storage {
	switch t {
	case TypeInteger:
		return &owned[int32]{}
	case TypeFloat:
		return &owned[float32]{}
	case TypeString:
		return &owned[string]{}
	case TypeVector:
		return &owned[mgl32.Vec4]{}
	case TypeMatrix:
		return &owned[mgl32.Mat4]{}
	case TypeScope:
		return &owned[arena.Handle]{}
	case TypePointer:
		return &owned[rtti.Object]{}
	}
	return nil
}

func mismatch(have, want Type) error {
	return fmt.Errorf("%w: value holds %s, requested %s", errs.ErrTypeMismatch, have, want)
}

// formatElement renders one primitive element. Scope and pointer elements
// are rendered by the Value that owns them.
func formatElement(e any) string {
	switch x := e.(type) {
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case float32:
		return formatFloat(x)
	case string:
		return x
	case mgl32.Vec4:
		return joinFloats(x[:])
	case mgl32.Mat4:
		// Column vectors in order, as mgl32 stores them.
		return joinFloats(x[:])
	}
	return fmt.Sprint(e)
}

// formatFloat writes the shortest decimal that parses back to f, without an
// exponent.
func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', -1, 32)
}

func joinFloats(fs []float32) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = formatFloat(f)
	}
	return strings.Join(parts, ",")
}

// parseElement parses text into an element of type t.
func parseElement(t Type, text string) (any, error) {
	switch t {
	case TypeInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: integer %q: %v", errs.ErrInvalidArgument, text, err)
		}
		return int32(n), nil
	case TypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: float %q: %v", errs.ErrInvalidArgument, text, err)
		}
		return float32(f), nil
	case TypeString:
		return text, nil
	case TypeVector:
		var v mgl32.Vec4
		if err := parseFloats(text, v[:]); err != nil {
			return nil, err
		}
		return v, nil
	case TypeMatrix:
		var m mgl32.Mat4
		if err := parseFloats(text, m[:]); err != nil {
			return nil, err
		}
		return m, nil
	case TypeScope:
		return nil, fmt.Errorf("%w: a nested scope cannot be parsed from text", errs.ErrUnsupported)
	}
	return nil, fmt.Errorf("%w: cannot parse %s from text", errs.ErrUnsupported, t)
}

func parseFloats(text string, dst []float32) error {
	parts := strings.Split(text, ",")
	if len(parts) != len(dst) {
		return fmt.Errorf("%w: want %d comma-separated floats, got %d in %q",
			errs.ErrInvalidArgument, len(dst), len(parts), text)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return fmt.Errorf("%w: float %q: %v", errs.ErrInvalidArgument, p, err)
		}
		dst[i] = float32(f)
	}
	return nil
}
