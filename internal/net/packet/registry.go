package packet

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/l1jgo/worldtree/internal/core/errs"
)

// SessionState is the protocol phase of an inspector session.
type SessionState int

const (
	StateHandshake     SessionState = iota // S_HELLO sent, awaiting C_HELLO
	StateReady                             // inspector commands accepted
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateHandshake:
		return "Handshake"
	case StateReady:
		return "Ready"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc handles one request. The session is passed as any so this
// package does not depend on the transport.
type HandlerFunc func(sess any, r *Reader)

type handlerEntry struct {
	name   string
	fn     HandlerFunc
	states []SessionState
}

// Registry maps opcodes to handlers, each allowed in a set of session states.
type Registry struct {
	handlers map[byte]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[byte]*handlerEntry),
		log:      log,
	}
}

// Register maps opcode to fn. name is used in logs and errors.
func (reg *Registry) Register(opcode byte, name string, states []SessionState, fn HandlerFunc) {
	reg.handlers[opcode] = &handlerEntry{
		name:   name,
		fn:     fn,
		states: slices.Clone(states),
	}
}

// Name returns the registered name of opcode, or its hex form.
func (reg *Registry) Name(opcode byte) string {
	if e, ok := reg.handlers[opcode]; ok {
		return e.name
	}
	return fmt.Sprintf("0x%02X", opcode)
}

// Dispatch runs the handler for data[0]. Unknown opcodes fail with
// errs.ErrNotFound, opcodes not allowed in state with errs.ErrUnsupported
// and a handler panic with errs.ErrInvalidArgument.
func (reg *Registry) Dispatch(sess any, state SessionState, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty packet", errs.ErrInvalidArgument)
	}
	opcode := data[0]
	entry, ok := reg.handlers[opcode]
	if !ok {
		return fmt.Errorf("%w: opcode 0x%02X", errs.ErrNotFound, opcode)
	}
	reg.log.Debug("RX",
		zap.String("op", entry.name),
		zap.Int("size", len(data)),
		zap.String("state", state.String()),
	)
	if !slices.Contains(entry.states, state) {
		return fmt.Errorf("%w: %s in state %s", errs.ErrUnsupported, entry.name, state)
	}
	return reg.safeCall(entry, sess, NewReader(data))
}

// safeCall keeps one malformed request from taking down the game loop.
func (reg *Registry) safeCall(entry *handlerEntry, sess any, r *Reader) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.String("op", entry.name),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("%w: %s handler panic: %v", errs.ErrInvalidArgument, entry.name, rec)
		}
	}()
	entry.fn(sess, r)
	return nil
}
