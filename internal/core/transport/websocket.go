package transport

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/driftsync/driftsync/internal/core/observability/log"
)

const (
	writeTimeout   = 10 * time.Second
	pongTimeout    = 60 * time.Second
	pingInterval   = 25 * time.Second
	recvBufferSize = 256
)

// WSLink adapts one gorilla websocket connection to the Link interface.
// Frames travel as binary messages.
type WSLink struct {
	conn   *websocket.Conn
	recv   chan []byte
	logger log.Log

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    int32
}

// NewWSLink wraps an established websocket connection and starts its read
// and ping pumps.
func NewWSLink(conn *websocket.Conn, logger log.Log) *WSLink {
	l := &WSLink{
		conn:   conn,
		recv:   make(chan []byte, recvBufferSize),
		logger: logger.With(log.String("transport", "websocket")),
	}
	conn.SetReadLimit(MaxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	go l.readPump()
	go l.pingPump()
	return l
}

// Send writes one binary frame. gorilla copies the payload during the
// write, so the caller may reuse the buffer afterwards.
func (l *WSLink) Send(frame []byte) error {
	if len(frame) > MaxFrameSize {
		return ErrFrameTooBig
	}
	if atomic.LoadInt32(&l.closed) == 1 {
		return ErrLinkClosed
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_ = l.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := l.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		l.shutdown()
		return err
	}
	return nil
}

// Receive returns the inbound frame channel; closed when the peer goes
// away.
func (l *WSLink) Receive() <-chan []byte {
	return l.recv
}

// Close tears the connection down.
func (l *WSLink) Close() error {
	l.shutdown()
	return nil
}

// shutdown marks the link closed and closes the connection. The read pump
// is the only sender into recv and therefore the only closer of it: it
// exits once the connection is gone and closes the channel from its defer,
// so a concurrent shutdown can never race a send.
func (l *WSLink) shutdown() {
	l.closeOnce.Do(func() {
		atomic.StoreInt32(&l.closed, 1)
		_ = l.conn.Close()
	})
}

func (l *WSLink) readPump() {
	defer func() {
		l.shutdown()
		close(l.recv)
	}()
	for {
		kind, data, err := l.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.logger.Debug("read pump stopped", log.Error(err))
			}
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		select {
		case l.recv <- data:
		default:
			// Receiver is not draining; dropping is safer than
			// blocking the pump. Full packets resync any entity a
			// dropped frame left behind.
		}
	}
}

func (l *WSLink) pingPump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for range ticker.C {
		if atomic.LoadInt32(&l.closed) == 1 {
			return
		}
		l.writeMu.Lock()
		_ = l.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		err := l.conn.WriteMessage(websocket.PingMessage, nil)
		l.writeMu.Unlock()
		if err != nil {
			l.shutdown()
			return
		}
	}
}

// WSServer accepts websocket links over an HTTP upgrade endpoint at /sync.
type WSServer struct {
	server   *http.Server
	upgrader websocket.Upgrader
	onLink   func(Link)
	logger   log.Log
}

// ListenWebSocket starts an HTTP server on addr and hands every upgraded
// connection to onLink.
func ListenWebSocket(addr string, logger log.Log, onLink func(Link)) (*WSServer, error) {
	s := &WSServer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		onLink: onLink,
		logger: logger.With(log.String("transport", "websocket")),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/sync", s.handleUpgrade)
	s.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("listener stopped", log.Error(err))
		}
	}()
	return s, nil
}

// Close stops accepting and shuts the HTTP server down.
func (s *WSServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *WSServer) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", log.Error(err))
		return
	}
	s.onLink(NewWSLink(conn, s.logger))
}

// DialWebSocket connects to a server's /sync endpoint.
func DialWebSocket(ctx context.Context, url string, logger log.Log) (*WSLink, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return NewWSLink(conn, logger), nil
}
