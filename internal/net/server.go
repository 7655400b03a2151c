package net

import (
	"net"
	"sync/atomic"

	"go.uber.org/zap"
)

// ServerOptions sizes the per-session queues and bounds concurrent
// inspectors.
type ServerOptions struct {
	InQueueSize  int
	OutQueueSize int
	MaxSessions  int
	Timeouts     Timeouts
}

// Server accepts inspector connections. New and dead sessions reach the game
// loop through channels; the server itself never touches the world tree.
type Server struct {
	listener net.Listener
	opts     ServerOptions
	nextID   atomic.Uint64
	active   atomic.Int32
	newConns chan *Session
	deadCh   chan uint64
	closeCh  chan struct{}
	log      *zap.Logger
}

func NewServer(bindAddr string, opts ServerOptions, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 1
	}
	return &Server{
		listener: ln,
		opts:     opts,
		newConns: make(chan *Session, opts.MaxSessions),
		deadCh:   make(chan uint64, opts.MaxSessions),
		closeCh:  make(chan struct{}),
		log:      log,
	}, nil
}

// AcceptLoop runs in its own goroutine until Shutdown. Connections beyond
// MaxSessions are closed right away; accepted ones get S_HELLO before they
// are handed to the game loop.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}

		if int(s.active.Load()) >= s.opts.MaxSessions {
			s.log.Warn("too many inspectors, rejecting connection",
				zap.String("ip", conn.RemoteAddr().String()),
				zap.Int("max", s.opts.MaxSessions),
			)
			conn.Close()
			continue
		}
		s.active.Add(1)

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, s.opts.InQueueSize, s.opts.OutQueueSize, s.opts.Timeouts, s.log)
		sess.Start()
		s.log.Info("inspector connected", zap.Uint64("session", id), zap.String("ip", sess.IP))

		select {
		case s.newConns <- sess:
		default:
			s.log.Warn("session queue full, rejecting connection", zap.Uint64("session", id))
			sess.Close()
			s.active.Add(-1)
		}
	}
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// NotifyDead reports a dead session to the game loop and frees its slot.
func (s *Server) NotifyDead(sessionID uint64) {
	s.active.Add(-1)
	select {
	case s.deadCh <- sessionID:
	default:
	}
}

// DeadSessions returns the channel of dead session IDs.
func (s *Server) DeadSessions() <-chan uint64 {
	return s.deadCh
}

// Active is the number of sessions holding a slot.
func (s *Server) Active() int {
	return int(s.active.Load())
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
