// Package transport moves raw packet frames between worlds. It knows
// nothing about the wire format; the replication system is the only
// producer and consumer of frame bytes. Every implementation satisfies
// replication.Link.
package transport

import "errors"

var (
	ErrLinkClosed  = errors.New("transport: link is closed")
	ErrFrameTooBig = errors.New("transport: frame exceeds the size limit")
)

// MaxFrameSize bounds a single frame. State frames are tens of bytes;
// anything near this limit indicates a protocol violation.
const MaxFrameSize = 64 * 1024

// Link is one bidirectional raw-frame pipe. Send must not retain the
// frame after returning. Receive's channel is closed when the peer goes
// away or Close is called.
type Link interface {
	Send(frame []byte) error
	Receive() <-chan []byte
	Close() error
}
