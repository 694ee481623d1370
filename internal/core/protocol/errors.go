package protocol

import "errors"

// Core protocol errors
var (
	// Packet errors

	ErrShortPacket    = errors.New("packet body is too short")
	ErrInvalidFrame   = errors.New("invalid frame")
	ErrUnknownKind    = errors.New("unknown packet kind")
	ErrNotStatePacket = errors.New("packet carries no entity state")
	ErrEmptyEntityID  = errors.New("empty entity id")
	ErrEntityIDTooBig = errors.New("entity id exceeds 255 bytes")

	// Decode errors

	ErrNoBaseline = errors.New("delta packet has no baseline snapshot")
)
