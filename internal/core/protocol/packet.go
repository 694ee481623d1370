// Package protocol implements the binary wire format that keeps replica
// worlds consistent with the authority. A packet carries one entity's
// quantized transform, either self-contained (full) or as integer offsets
// from the receiver's last snapshot (delta). The body layout is the only
// bit-exact contract of the simulation core.
package protocol

import (
	"encoding/binary"

	"github.com/driftsync/driftsync/internal/core/snapshot"
)

// Kind discriminates the closed set of packet shapes on the wire.
type Kind uint8

const (
	// KindFull is a self-contained state packet.
	KindFull Kind = 1
	// KindDelta is a state packet expressed as offsets from the
	// receiver's last snapshot for the entity.
	KindDelta Kind = 2
	// KindRemoval announces the entity left the authority's world.
	KindRemoval Kind = 3
)

// Body layout, little-endian:
//
//	[0,4,8]       3×int32  position
//	[12,14,16,18] 4×int16  rotation (x, y, z, w)
//	[20,24,28]    3×int32  velocity
//	[32]          uint8    state flags
const (
	BodySize = 33

	offPosition = 0
	offRotation = 12
	offVelocity = 20
	offState    = 32
)

// Frame envelope carried by the transport around the body:
//
//	[0]       uint8  kind
//	[1:9]     int64  timestamp, unix milliseconds
//	[9:17]    int64  base timestamp (delta packets only)
//	next      uint8  entity id length
//	next      id bytes
//	rest      body (absent for removals)
//
// frameHeaderSize is the minimum: kind + timestamp + id length.
const frameHeaderSize = 10

// Packet is one write-once wire unit. The body is never mutated after
// encoding; accessors hand out the internal slice and callers must treat
// it as read-only.
type Packet struct {
	entityID  string
	kind      Kind
	timestamp int64
	// baseTimestamp names the snapshot a delta was diffed against. The
	// receiver refuses to apply a delta onto any other baseline. Zero
	// for full and removal packets.
	baseTimestamp int64
	body          []byte
}

// EntityID returns the subject entity id.
func (p *Packet) EntityID() string { return p.entityID }

// Kind returns the packet shape.
func (p *Packet) Kind() Kind { return p.kind }

// IsFull reports whether the packet decodes without receiver state.
func (p *Packet) IsFull() bool { return p.kind == KindFull }

// Timestamp returns the capture time in unix milliseconds.
func (p *Packet) Timestamp() int64 { return p.timestamp }

// BaseTimestamp returns the timestamp of the snapshot a delta was diffed
// against; zero for full and removal packets.
func (p *Packet) BaseTimestamp() int64 { return p.baseTimestamp }

// Body returns the encoded state body. Read-only.
func (p *Packet) Body() []byte { return p.body }

// encodeBody writes snap's fields at the fixed offsets.
func encodeBody(snap snapshot.Snapshot) []byte {
	body := make([]byte, BodySize)
	for i, v := range snap.Position {
		binary.LittleEndian.PutUint32(body[offPosition+i*4:], uint32(v))
	}
	for i, v := range snap.Rotation {
		binary.LittleEndian.PutUint16(body[offRotation+i*2:], uint16(v))
	}
	for i, v := range snap.Velocity {
		binary.LittleEndian.PutUint32(body[offVelocity+i*4:], uint32(v))
	}
	body[offState] = snap.State
	return body
}

// decodeBody reads a body back into quantized fields. The timestamp is
// not part of the body; the caller takes it from the frame.
func decodeBody(body []byte) (snapshot.Snapshot, error) {
	if len(body) < BodySize {
		return snapshot.Snapshot{}, ErrShortPacket
	}
	var snap snapshot.Snapshot
	for i := range snap.Position {
		snap.Position[i] = int32(binary.LittleEndian.Uint32(body[offPosition+i*4:]))
	}
	for i := range snap.Rotation {
		snap.Rotation[i] = int16(binary.LittleEndian.Uint16(body[offRotation+i*2:]))
	}
	for i := range snap.Velocity {
		snap.Velocity[i] = int32(binary.LittleEndian.Uint32(body[offVelocity+i*4:]))
	}
	snap.State = body[offState]
	return snap, nil
}

// AppendFrame appends the transport envelope plus body to dst and returns
// the extended slice. dst may come from a buffer pool.
func AppendFrame(dst []byte, p *Packet) ([]byte, error) {
	if p.entityID == "" {
		return dst, ErrEmptyEntityID
	}
	if len(p.entityID) > 255 {
		return dst, ErrEntityIDTooBig
	}
	dst = append(dst, byte(p.kind))
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(p.timestamp))
	dst = append(dst, ts[:]...)
	if p.kind == KindDelta {
		binary.LittleEndian.PutUint64(ts[:], uint64(p.baseTimestamp))
		dst = append(dst, ts[:]...)
	}
	dst = append(dst, byte(len(p.entityID)))
	dst = append(dst, p.entityID...)
	dst = append(dst, p.body...)
	return dst, nil
}

// ParseFrame decodes one transport frame into a Packet. The body is copied
// out of data, so the caller may reuse its buffer.
func ParseFrame(data []byte) (*Packet, error) {
	if len(data) < frameHeaderSize {
		return nil, ErrInvalidFrame
	}
	kind := Kind(data[0])
	switch kind {
	case KindFull, KindDelta, KindRemoval:
	default:
		return nil, ErrUnknownKind
	}
	timestamp := int64(binary.LittleEndian.Uint64(data[1:9]))
	off := 9

	var baseTimestamp int64
	if kind == KindDelta {
		if len(data) < off+8+1 {
			return nil, ErrInvalidFrame
		}
		baseTimestamp = int64(binary.LittleEndian.Uint64(data[off : off+8]))
		off += 8
	}

	idLen := int(data[off])
	off++
	if idLen == 0 {
		return nil, ErrEmptyEntityID
	}
	if len(data) < off+idLen {
		return nil, ErrInvalidFrame
	}
	entityID := string(data[off : off+idLen])

	rest := data[off+idLen:]
	pkt := &Packet{
		entityID:      entityID,
		kind:          kind,
		timestamp:     timestamp,
		baseTimestamp: baseTimestamp,
	}
	if kind == KindRemoval {
		if len(rest) != 0 {
			return nil, ErrInvalidFrame
		}
		return pkt, nil
	}
	if len(rest) < BodySize {
		return nil, ErrShortPacket
	}
	pkt.body = make([]byte, BodySize)
	copy(pkt.body, rest[:BodySize])
	return pkt, nil
}
