// Package errs holds the failure taxonomy shared by the attribute tree, the
// reflection layer, the factory registry and the world parser. Failures are
// wrapped with context via fmt.Errorf("%w: ...") and tested with errors.Is.
package errs

import "errors"

var (
	// ErrTypeMismatch: a value was read or written as the wrong element type,
	// or a locked type was changed.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrNotFound: missing key on a read-only lookup, or unknown class name.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument: self-adoption, malformed or missing required input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrOutOfRange: index beyond the element or entry count.
	ErrOutOfRange = errors.New("out of range")
	// ErrUnsupported: operation without a meaningful definition for the target.
	ErrUnsupported = errors.New("unsupported operation")
)
