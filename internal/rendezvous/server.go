package rendezvous

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"mirrorcast/internal/wire"
)

// ErrConfigInvalid is returned at construction when the listen address
// cannot be parsed.
var ErrConfigInvalid = errors.New("rendezvous: invalid listen address")

// ReplayRateLimit bounds how fast a per-connection worker replays the
// registry snapshot to a newly accepted connection. Changes forwarded after
// the snapshot are not rate limited.
const ReplayRateLimit = rate.Limit(1000)

// ReplayBurst is the token bucket burst size paired with ReplayRateLimit.
const ReplayBurst = 200

// Server is the TCP listener peers connect to as Signal Clients (C7): it
// replays the current registry snapshot as Start frames on accept, then
// forwards every subsequent Start/Stop in arrival order.
type Server struct {
	listener net.Listener
	registry *Registry
}

// New binds a listener at addr. addr must already be validated by the
// caller's configuration layer; a malformed addr yields ErrConfigInvalid.
func New(addr string, registry *Registry) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return &Server{listener: ln, registry: registry}, nil
}

// Addr returns the bound listen address, useful when addr was ":0".
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until the listener is closed. Each connection
// runs in its own goroutine; a write fault on one connection never affects
// another.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.serveConn(conn)
	}
}

// Close stops accepting new connections. In-flight connection workers are
// not stopped; each exits on its next write fault.
func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) serveConn(conn net.Conn) {
	connID := uuid.NewString()
	defer conn.Close()

	changes, cancel := s.registry.Subscribe()
	defer cancel()

	limiter := rate.NewLimiter(ReplayRateLimit, ReplayBurst)

	snapshot := s.registry.Snapshot()
	slog.Debug("rendezvous connection accepted", "conn_id", connID, "remote", conn.RemoteAddr(), "snapshot_size", len(snapshot))

	ctx := context.Background()
	for _, entry := range snapshot {
		_ = limiter.Wait(ctx)
		if err := writeSignal(conn, wire.StartSignal(entry.ID, entry.Port)); err != nil {
			slog.Warn("rendezvous snapshot replay failed", "conn_id", connID, "err", err)
			return
		}
	}

	for change := range changes {
		var sig wire.Signal
		if change.Start {
			sig = wire.StartSignal(change.ID, change.Port)
		} else {
			sig = wire.StopSignal(change.ID)
		}
		if err := writeSignal(conn, sig); err != nil {
			slog.Warn("rendezvous forward failed", "conn_id", connID, "err", err)
			return
		}
	}
}

func writeSignal(conn net.Conn, sig wire.Signal) error {
	_, err := conn.Write(wire.EncodeSignal(sig))
	return err
}
