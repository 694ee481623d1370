// Package server wires one authoritative world to a network transport:
// it drives the world's tick loop at a fixed rate, accepts client links
// and attaches them to the replication system for broadcast.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/driftsync/driftsync/internal/core/observability/log"
	"github.com/driftsync/driftsync/internal/core/replication"
	"github.com/driftsync/driftsync/internal/core/transport"
	"github.com/driftsync/driftsync/internal/core/world"
)

// closer is the common surface of the transport listeners.
type closer interface {
	Close() error
}

// Server owns one authoritative world instance and its network edge.
type Server struct {
	config Config
	logger log.Log

	world    *world.World
	repl     *replication.System
	listener closer

	sessionCount int64 // atomic

	running int32 // atomic bool
	worldUp bool
	group   *errgroup.Group
	cancel  context.CancelFunc

	// TLSConfig is required for the quic transport.
	TLSConfig *tls.Config
}

// NewServer builds a server around a fresh world. Gameplay systems are
// registered through World before Start.
func NewServer(config Config, logger log.Log) (*Server, error) {
	w := world.New(world.Config{
		FixedDeltaTime: config.FixedDeltaTime,
		MaxDeltaTime:   config.MaxDeltaTime,
	}, logger)

	err := w.Register(replication.SystemName, replication.New(replication.Config{
		Role:         replication.RoleAuthority,
		EnableDeltas: !config.AlwaysFullPackets,
	}))
	if err != nil {
		return nil, err
	}
	repl, _ := world.As[*replication.System](w, replication.SystemName)

	return &Server{
		config: config,
		logger: logger.With(log.String("module", "server")),
		world:  w,
		repl:   repl,
	}, nil
}

// World exposes the owned world for gameplay system registration.
func (s *Server) World() *world.World { return s.world }

// Start initializes and starts the world, opens the transport listener
// and launches the tick loop. It returns once running; Stop tears down.
// A failed Start leaves the server stopped and retryable.
func (s *Server) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return fmt.Errorf("server already running")
	}
	if err := s.start(ctx); err != nil {
		atomic.StoreInt32(&s.running, 0)
		return err
	}
	return nil
}

func (s *Server) start(ctx context.Context) error {
	if !s.worldUp {
		if err := s.world.Init(ctx); err != nil {
			return fmt.Errorf("world init: %w", err)
		}
		if err := s.world.Start(); err != nil {
			return fmt.Errorf("world start: %w", err)
		}
		s.worldUp = true
	}

	if err := s.listen(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.group, runCtx = errgroup.WithContext(runCtx)
	s.group.Go(func() error { return s.tickLoop(runCtx) })

	s.logger.Info("server started",
		log.String("addr", s.config.ListenAddr),
		log.String("transport", s.config.Transport),
		log.Int("tick_rate", s.config.TickRate))
	return nil
}

// Stop shuts the listener, the tick loop and the world down.
func (s *Server) Stop() error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return nil
	}

	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			s.logger.Warn("listener close failed", log.Error(err))
		}
	}
	var err error
	if s.cancel != nil {
		s.cancel()
		err = s.group.Wait()
	}
	s.world.Destroy()
	s.logger.Info("server stopped")
	return err
}

// Sessions returns the number of clients that ever attached.
func (s *Server) Sessions() int64 {
	return atomic.LoadInt64(&s.sessionCount)
}

func (s *Server) listen() error {
	onLink := func(l transport.Link) {
		n := atomic.AddInt64(&s.sessionCount, 1)
		s.logger.Info("client attached", log.Int64("session", n))
		s.repl.AttachLink(l)
	}

	switch s.config.Transport {
	case "websocket":
		listener, err := transport.ListenWebSocket(s.config.ListenAddr, s.logger, onLink)
		if err != nil {
			return fmt.Errorf("listen websocket: %w", err)
		}
		s.listener = listener
	case "quic":
		if s.TLSConfig == nil {
			return fmt.Errorf("quic transport requires a TLS config")
		}
		listener, err := transport.ListenQUIC(s.config.ListenAddr, s.TLSConfig, s.logger, onLink)
		if err != nil {
			return fmt.Errorf("listen quic: %w", err)
		}
		s.listener = listener
	default:
		return fmt.Errorf("unsupported transport %q", s.config.Transport)
	}
	return nil
}

// tickLoop drives the world at the configured rate. A tick error means
// that frame was aborted; the server logs it and keeps ticking rather
// than tearing the world down.
func (s *Server) tickLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.config.TickInterval())
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.world.Tick(time.Since(start)); err != nil {
				s.logger.Error("tick aborted", log.Error(err))
			}
		}
	}
}
