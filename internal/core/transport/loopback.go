package transport

import "sync"

// loopbackPair holds the shared state of two connected halves.
type loopbackPair struct {
	mu     sync.Mutex
	closed bool
	ab     chan []byte
	ba     chan []byte
}

// Loopback is an in-memory link used by tests and single-process demos.
// NewLoopback returns two connected halves; frames sent on one side pop
// out of the other side's Receive channel, copied so the sender may reuse
// its buffer.
type Loopback struct {
	pair *loopbackPair
	out  chan []byte
	in   chan []byte
}

// NewLoopback creates a connected pair with the given per-direction
// buffer depth.
func NewLoopback(depth int) (*Loopback, *Loopback) {
	pair := &loopbackPair{
		ab: make(chan []byte, depth),
		ba: make(chan []byte, depth),
	}
	a := &Loopback{pair: pair, out: pair.ab, in: pair.ba}
	b := &Loopback{pair: pair, out: pair.ba, in: pair.ab}
	return a, b
}

// Send copies the frame to the peer. A full buffer drops the frame, which
// mimics a congested path; the protocol's baseline checks refuse to apply
// anything that skipped past the loss.
func (l *Loopback) Send(frame []byte) error {
	if len(frame) > MaxFrameSize {
		return ErrFrameTooBig
	}
	l.pair.mu.Lock()
	defer l.pair.mu.Unlock()
	if l.pair.closed {
		return ErrLinkClosed
	}

	buf := make([]byte, len(frame))
	copy(buf, frame)
	select {
	case l.out <- buf:
	default:
	}
	return nil
}

// Receive returns the inbound frame channel.
func (l *Loopback) Receive() <-chan []byte {
	return l.in
}

// Close shuts the pair down; closing either half closes both directions.
func (l *Loopback) Close() error {
	l.pair.mu.Lock()
	defer l.pair.mu.Unlock()
	if l.pair.closed {
		return nil
	}
	l.pair.closed = true
	close(l.pair.ab)
	close(l.pair.ba)
	return nil
}
