// Package handler answers inspector requests against the live world tree.
// Handlers run on the game loop goroutine, between ticks.
package handler

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/worldtree/internal/core/errs"
	"github.com/l1jgo/worldtree/internal/net"
	"github.com/l1jgo/worldtree/internal/net/packet"
	"github.com/l1jgo/worldtree/internal/world"
)

// Conn is the part of a session the handlers write to.
type Conn interface {
	Send(data []byte)
	SetState(st packet.SessionState)
	Close()
}

// Deps holds shared dependencies injected into all packet handlers.
type Deps struct {
	World *world.World
	Log   *zap.Logger
}

// RegisterAll registers all packet handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	reg.Register(packet.C_HELLO, "C_HELLO",
		[]packet.SessionState{packet.StateHandshake},
		func(sess any, r *packet.Reader) {
			HandleHello(sess.(Conn), r, deps)
		},
	)

	ready := []packet.SessionState{packet.StateReady}
	reg.Register(packet.C_DUMP, "C_DUMP", ready,
		func(sess any, r *packet.Reader) {
			HandleDump(sess.(Conn), r, deps)
		},
	)
	reg.Register(packet.C_NAMES, "C_NAMES", ready,
		func(sess any, r *packet.Reader) {
			HandleNames(sess.(Conn), r, deps)
		},
	)
	reg.Register(packet.C_SET, "C_SET", ready,
		func(sess any, r *packet.Reader) {
			HandleSet(sess.(Conn), r, deps)
		},
	)
}

// Compile-time check that sessions satisfy Conn.
var _ Conn = (*net.Session)(nil)

// HandleHello checks the inspector's protocol version. A mismatch is answered
// with S_ERROR and the session is closed.
func HandleHello(sess Conn, r *packet.Reader, deps *Deps) {
	version := r.ReadD()
	if err := r.Err(); err != nil {
		sendError(sess, packet.C_HELLO, err)
		sess.Close()
		return
	}
	if version != packet.ProtocolVersion {
		deps.Log.Warn("inspector version mismatch",
			zap.Int32("got", version),
			zap.Int32("want", packet.ProtocolVersion),
		)
		sendError(sess, packet.C_HELLO, fmt.Errorf("%w: protocol version %d, want %d",
			errs.ErrUnsupported, version, packet.ProtocolVersion))
		sess.Close()
		return
	}
	sess.SetState(packet.StateReady)
	sendOK(sess, packet.C_HELLO)
}

// HandleDump answers C_DUMP with the textual dump of the scope at path.
func HandleDump(sess Conn, r *packet.Reader, deps *Deps) {
	path := r.ReadS()
	if err := r.Err(); err != nil {
		sendError(sess, packet.C_DUMP, err)
		return
	}
	s, err := deps.World.Resolve(path)
	if err != nil {
		sendError(sess, packet.C_DUMP, err)
		return
	}
	dump := s.ToString()
	w := packet.NewWriterWithOpcode(packet.S_DUMP)
	if len(dump) > packet.MaxString {
		w.WriteC(1)
	} else {
		w.WriteC(0)
	}
	w.WriteS(path)
	w.WriteS(dump)
	sess.Send(w.Bytes())
}

// HandleNames answers C_NAMES with the attribute names of the scope at path,
// in insertion order.
func HandleNames(sess Conn, r *packet.Reader, deps *Deps) {
	path := r.ReadS()
	if err := r.Err(); err != nil {
		sendError(sess, packet.C_NAMES, err)
		return
	}
	s, err := deps.World.Resolve(path)
	if err != nil {
		sendError(sess, packet.C_NAMES, err)
		return
	}
	names := s.Names()
	if len(names) > 0xFFFF {
		names = names[:0xFFFF]
	}
	w := packet.NewWriterWithOpcode(packet.S_NAMES)
	w.WriteS(path)
	w.WriteH(uint16(len(names)))
	for _, n := range names {
		w.WriteS(n)
	}
	sess.Send(w.Bytes())
}

// HandleSet answers C_SET by parsing text into element index of the named
// attribute of the scope at path.
func HandleSet(sess Conn, r *packet.Reader, deps *Deps) {
	path := r.ReadS()
	name := r.ReadS()
	index := int(r.ReadH())
	text := r.ReadS()
	if err := r.Err(); err != nil {
		sendError(sess, packet.C_SET, err)
		return
	}

	s, err := deps.World.Resolve(path)
	if err != nil {
		sendError(sess, packet.C_SET, err)
		return
	}
	v, err := s.Lookup(name)
	if err != nil {
		sendError(sess, packet.C_SET, err)
		return
	}
	if err := v.SetFromString(text, index); err != nil {
		sendError(sess, packet.C_SET, fmt.Errorf("set %s/%s[%d]: %w", path, name, index, err))
		return
	}
	deps.Log.Info("attribute set by inspector",
		zap.String("path", path),
		zap.String("attribute", name),
		zap.Int("index", index),
	)
	sendOK(sess, packet.C_SET)
}

func sendOK(sess Conn, req byte) {
	w := packet.NewWriterWithOpcode(packet.S_OK)
	w.WriteC(req)
	sess.Send(w.Bytes())
}

func sendError(sess Conn, req byte, err error) {
	w := packet.NewWriterWithOpcode(packet.S_ERROR)
	w.WriteC(req)
	w.WriteS(err.Error())
	sess.Send(w.Bytes())
}
