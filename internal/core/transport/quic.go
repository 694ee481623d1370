package transport

import (
	"context"
	"crypto/tls"
	"sync"
	"sync/atomic"

	"github.com/quic-go/quic-go"

	"github.com/driftsync/driftsync/internal/core/observability/log"
)

// NextProto is the ALPN identifier negotiated for sync traffic.
const NextProto = "driftsync/1"

// QUICLink carries frames as QUIC datagrams: unordered and unretransmitted.
// The protocol's timestamp and baseline checks reject reordered and gapped
// packets, and full packets resync whatever a lost datagram left behind.
type QUICLink struct {
	conn   *quic.Conn
	recv   chan []byte
	logger log.Log

	closeOnce sync.Once
	closed    int32
	cancel    context.CancelFunc
}

func newQUICLink(conn *quic.Conn, logger log.Log) *QUICLink {
	ctx, cancel := context.WithCancel(context.Background())
	l := &QUICLink{
		conn:   conn,
		recv:   make(chan []byte, recvBufferSize),
		logger: logger.With(log.String("transport", "quic")),
		cancel: cancel,
	}
	go l.readPump(ctx)
	return l
}

// Send ships one frame as a datagram. The payload is copied first because
// quic-go retains datagram buffers until transmission.
func (l *QUICLink) Send(frame []byte) error {
	if len(frame) > MaxFrameSize {
		return ErrFrameTooBig
	}
	if atomic.LoadInt32(&l.closed) == 1 {
		return ErrLinkClosed
	}

	buf := make([]byte, len(frame))
	copy(buf, frame)
	if err := l.conn.SendDatagram(buf); err != nil {
		return err
	}
	return nil
}

// Receive returns the inbound frame channel; closed when the connection
// goes away.
func (l *QUICLink) Receive() <-chan []byte {
	return l.recv
}

// Close tears the connection down.
func (l *QUICLink) Close() error {
	l.shutdown()
	return nil
}

// shutdown marks the link closed and closes the connection. Only the read
// pump closes recv, from its defer, so a concurrent shutdown can never
// race its channel send.
func (l *QUICLink) shutdown() {
	l.closeOnce.Do(func() {
		atomic.StoreInt32(&l.closed, 1)
		l.cancel()
		_ = l.conn.CloseWithError(0, "closed")
	})
}

func (l *QUICLink) readPump(ctx context.Context) {
	defer func() {
		l.shutdown()
		close(l.recv)
	}()
	for {
		data, err := l.conn.ReceiveDatagram(ctx)
		if err != nil {
			return
		}
		select {
		case l.recv <- data:
		default:
		}
	}
}

// QUICServer accepts datagram-enabled QUIC connections.
type QUICServer struct {
	listener *quic.Listener
	logger   log.Log
	cancel   context.CancelFunc
}

// ListenQUIC starts a QUIC listener on addr and hands every accepted
// connection to onLink. The TLS config must carry NextProto.
func ListenQUIC(addr string, tlsConf *tls.Config, logger log.Log, onLink func(Link)) (*QUICServer, error) {
	listener, err := quic.ListenAddr(addr, tlsConf, &quic.Config{EnableDatagrams: true})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &QUICServer{
		listener: listener,
		logger:   logger.With(log.String("transport", "quic")),
		cancel:   cancel,
	}

	go func() {
		for {
			conn, err := listener.Accept(ctx)
			if err != nil {
				return
			}
			onLink(newQUICLink(conn, s.logger))
		}
	}()
	return s, nil
}

// Close stops accepting new connections.
func (s *QUICServer) Close() error {
	s.cancel()
	return s.listener.Close()
}

// DialQUIC connects to a QUIC sync endpoint.
func DialQUIC(ctx context.Context, addr string, tlsConf *tls.Config, logger log.Log) (*QUICLink, error) {
	conn, err := quic.DialAddr(ctx, addr, tlsConf, &quic.Config{EnableDatagrams: true})
	if err != nil {
		return nil, err
	}
	return newQUICLink(conn, logger), nil
}
