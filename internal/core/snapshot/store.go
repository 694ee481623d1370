// Package snapshot holds the per-entity last-encoded wire state. Each side
// of a connection owns exactly one Store: the sender diffs candidate state
// against it, the receiver reconstructs delta packets from it. The two
// stores are reconciled only through packets, never shared memory.
package snapshot

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Snapshot is the quantized state of one entity as it was last put on the
// wire, plus the wall-clock timestamp (unix milliseconds) it was captured.
type Snapshot struct {
	Position  [3]int32
	Rotation  [4]int16
	Velocity  [3]int32
	State     uint8
	Timestamp int64
}

// Digest hashes the quantized fields (timestamp excluded) so callers can
// detect unchanged state without comparing field by field.
func (s Snapshot) Digest() uint64 {
	var buf [33]byte
	s.encodeFields(&buf)
	return xxhash.Sum64(buf[:])
}

func (s Snapshot) encodeFields(buf *[33]byte) {
	for i, p := range s.Position {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(p))
	}
	for i, r := range s.Rotation {
		binary.LittleEndian.PutUint16(buf[12+i*2:], uint16(r))
	}
	for i, v := range s.Velocity {
		binary.LittleEndian.PutUint32(buf[20+i*4:], uint32(v))
	}
	buf[32] = s.State
}

// Store maps entity ids to their last-known-good snapshot. It is mutated
// only by its owning replicator; gameplay systems never touch it.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{snapshots: make(map[string]Snapshot)}
}

// Lookup returns the snapshot for an entity, if one was ever committed.
func (s *Store) Lookup(entityID string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[entityID]
	return snap, ok
}

// Commit stores snap as the new last-known state for the entity,
// overwriting any previous snapshot.
func (s *Store) Commit(entityID string, snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[entityID] = snap
}

// Forget drops the snapshot for an entity that left tracking, either
// because it was destroyed or because it fell out of relevance range.
func (s *Store) Forget(entityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, entityID)
}

// Len returns the number of tracked entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

// Reset drops every snapshot. Used when a connection is torn down and the
// peer will need full packets again.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = make(map[string]Snapshot)
}
