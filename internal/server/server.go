// Package server implements spec.md §6's external interface: a TCP
// listener accepting RESP connections, each handed off to the single
// reactor goroutine so every keyspace mutation is ordered (spec.md §4.A,
// §5).
//
// A connection's own goroutine only does I/O: read a request frame
// (internal/server/proto), submit it to the reactor, block for the
// reactor's reply, write it back. It never calls into
// internal/command/internal/keyspace directly (see DESIGN.md "Reactor
// translation").
package server

import (
	"bufio"
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pwanbul/redis-3.0/internal/command"
	"github.com/pwanbul/redis-3.0/internal/reactor"
	"github.com/pwanbul/redis-3.0/internal/server/proto"
	"github.com/pwanbul/redis-3.0/internal/txn"
)

// Server owns the RESP TCP listener and hands every accepted connection
// off to Reactor for serialized command execution.
type Server struct {
	Dispatcher *command.Dispatcher
	Reactor    *reactor.Reactor
	Tracker    *txn.Tracker
	Logger     zerolog.Logger

	listener net.Listener
	nextID   uint64

	mu      sync.Mutex
	conns   map[uint64]net.Conn
	closing bool
}

// New binds addr and returns a Server ready to Serve.
func New(addr string, dispatcher *command.Dispatcher, r *reactor.Reactor, tracker *txn.Tracker) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		Dispatcher: dispatcher,
		Reactor:    r,
		Tracker:    tracker,
		Logger:     zerolog.Nop(),
		listener:   ln,
		conns:      make(map[uint64]net.Conn),
	}, nil
}

// Addr returns the bound listener address, useful when addr was ":0".
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// NumClients reports the number of currently open connections; wired to
// internal/cron's client-maintenance slice sizing.
func (s *Server) NumClients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Serve accepts connections until ctx is canceled or Close is called,
// spawning one read-loop goroutine per connection.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting new connections and closes every open one.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closing = true
	conns := make([]net.Conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	return s.listener.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	id := atomic.AddUint64(&s.nextID, 1)
	corrID := uuid.New().String()
	log := s.Logger.With().Uint64("client_id", id).Str("conn_id", corrID).Str("addr", conn.RemoteAddr().String()).Logger()

	s.mu.Lock()
	s.conns[id] = conn
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
		conn.Close()
	}()

	client := command.NewClient(id, conn.RemoteAddr().String(), s.Tracker)
	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	log.Debug().Msg("client connected")
	for {
		args, err := proto.ReadCommand(reader)
		if err != nil {
			return
		}
		if len(args) == 0 {
			continue
		}

		done := make(chan struct{})
		var reply command.Reply
		s.Reactor.Submit(reactor.Command{
			Exec: func() { reply = s.Dispatcher.Dispatch(client, args[0], args[1:]) },
			Done: done,
		})
		<-done

		if err := proto.WriteReply(writer, reply); err != nil {
			return
		}
		if err := writer.Flush(); err != nil {
			return
		}
		if reply.Close {
			log.Debug().Msg("client closed connection")
			return
		}
	}
}
