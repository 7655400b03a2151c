package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/worldtree/internal/core/system"
	"github.com/l1jgo/worldtree/internal/net"
	"github.com/l1jgo/worldtree/internal/net/packet"
)

// SessionSource hands new and dead inspector sessions to the game loop.
// *net.Server implements it.
type SessionSource interface {
	NewSessions() <-chan *net.Session
	DeadSessions() <-chan uint64
	NotifyDead(sessionID uint64)
}

// InputSystem drains packet queues from all inspector sessions and
// dispatches them through the packet registry. Phase 0 (Input).
type InputSystem struct {
	source     SessionSource
	registry   *packet.Registry
	store      *net.SessionStore
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(source SessionSource, registry *packet.Registry, store *net.SessionStore, maxPerTick int, log *zap.Logger) *InputSystem {
	return &InputSystem{
		source:     source,
		registry:   registry,
		store:      store,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	// Accept new sessions
	for {
		select {
		case sess := <-s.source.NewSessions():
			s.store.Add(sess)
		default:
			goto doneNew
		}
	}
doneNew:

	// Process dead sessions
	for {
		select {
		case id := <-s.source.DeadSessions():
			s.store.Remove(id)
		default:
			goto doneDead
		}
	}
doneDead:

	var closed []uint64
	s.store.ForEach(func(sess *net.Session) {
		if sess.IsClosed() {
			closed = append(closed, sess.ID)
			return
		}
		s.drain(sess)
		// Early flush so replies leave while the rest of the tick runs.
		sess.FlushOutput()
	})
	for _, id := range closed {
		if sess := s.store.Get(id); sess != nil {
			sess.FlushOutput()
		}
		s.log.Info("inspector disconnected", zap.Uint64("session", id))
		s.source.NotifyDead(id)
		s.store.Remove(id)
	}
}

// drain dispatches up to maxPerTick queued packets of sess.
func (s *InputSystem) drain(sess *net.Session) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case data := <-sess.InQueue:
			err := s.registry.Dispatch(sess, sess.State(), data)
			if err == nil || len(data) == 0 {
				continue
			}
			s.log.Debug("packet dispatch error",
				zap.Uint64("session", sess.ID),
				zap.String("op", s.registry.Name(data[0])),
				zap.Error(err),
			)
			replyError(sess, data[0], err)
		default:
			return
		}
	}
}

// replyError answers a request the registry refused.
func replyError(sess *net.Session, opcode byte, err error) {
	w := packet.NewWriterWithOpcode(packet.S_ERROR)
	w.WriteC(opcode)
	w.WriteS(err.Error())
	sess.Send(w.Bytes())
}
