// Package client is the replica-side SDK: it owns a local world running a
// replica replication system, connects it to an authority over WebSocket or
// QUIC and keeps the mirrored entities up to date. Consumers read entity
// state between ticks; they never write it.
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/driftsync/driftsync/internal/core/entity"
	"github.com/driftsync/driftsync/internal/core/observability/log"
	"github.com/driftsync/driftsync/internal/core/replication"
	"github.com/driftsync/driftsync/internal/core/transport"
	"github.com/driftsync/driftsync/internal/core/world"
)

// Config holds client configuration.
type Config struct {
	// ServerAddr is a ws:// URL for the websocket transport or host:port
	// for QUIC.
	ServerAddr string
	// Transport selects "websocket" or "quic".
	Transport string
	// TLSConfig is required for QUIC; its NextProtos must include
	// transport.NextProto.
	TLSConfig *tls.Config

	// TickRate is how often the local world ticks, per second.
	TickRate int
	// FixedDeltaTime is the local gameplay step, seconds.
	FixedDeltaTime float64

	LogLevel log.Level
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		ServerAddr:     "ws://127.0.0.1:8080/sync",
		Transport:      "websocket",
		TickRate:       60,
		FixedDeltaTime: 1.0 / 30.0,
		LogLevel:       log.LevelInfo,
	}
}

// Client mirrors an authority's entities into a local replica world.
type Client struct {
	config Config
	logger log.Log

	world *world.World
	repl  *replication.System
	link  replication.Link

	cancel    context.CancelFunc
	done      chan struct{}
	connected int32
	closed    int32
}

// New builds a disconnected client with its replica world initialized and
// started.
func New(config Config) (*Client, error) {
	logger := log.New(config.LogLevel)

	w := world.New(world.Config{FixedDeltaTime: config.FixedDeltaTime}, logger)
	if err := w.Register(replication.SystemName, replication.New(replication.Config{
		Role: replication.RoleReplica,
	})); err != nil {
		return nil, err
	}
	if err := w.Init(context.Background()); err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}

	repl, _ := world.As[*replication.System](w, replication.SystemName)
	return &Client{
		config: config,
		logger: logger.With(log.String("module", "client")),
		world:  w,
		repl:   repl,
	}, nil
}

// Connect dials the authority and starts the local tick loop.
func (c *Client) Connect(ctx context.Context) error {
	if atomic.LoadInt32(&c.closed) == 1 {
		return ErrClosed
	}
	if !atomic.CompareAndSwapInt32(&c.connected, 0, 1) {
		return ErrAlreadyConnected
	}

	link, err := c.dial(ctx)
	if err != nil {
		atomic.StoreInt32(&c.connected, 0)
		return err
	}
	c.link = link
	c.repl.AttachLink(link)

	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.tickLoop(loopCtx)

	c.logger.Info("connected",
		log.String("addr", c.config.ServerAddr),
		log.String("transport", c.config.Transport))
	return nil
}

// Entities exposes the mirrored entity registry. Read between ticks only.
func (c *Client) Entities() *entity.Registry {
	return c.world.Entities()
}

// World exposes the replica world, e.g. to register local-only systems
// such as interpolation before Connect.
func (c *Client) World() *world.World { return c.world }

// Close disconnects and tears the replica world down.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	c.world.Destroy()
	return nil
}

func (c *Client) dial(ctx context.Context) (replication.Link, error) {
	switch c.config.Transport {
	case "websocket":
		return transport.DialWebSocket(ctx, c.config.ServerAddr, c.logger)
	case "quic":
		return transport.DialQUIC(ctx, c.config.ServerAddr, c.config.TLSConfig, c.logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrBadTransport, c.config.Transport)
	}
}

func (c *Client) tickLoop(ctx context.Context) {
	defer close(c.done)

	interval := time.Second / time.Duration(c.config.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.world.Tick(time.Since(start)); err != nil {
				c.logger.Error("tick failed", log.Error(err))
			}
		}
	}
}
