package protocol

import (
	"fmt"

	"github.com/driftsync/driftsync/internal/core/codec"
	"github.com/driftsync/driftsync/internal/core/geom"
	"github.com/driftsync/driftsync/internal/core/snapshot"
)

// EntityState is the floating-point view of what crosses the wire for one
// entity. Gameplay systems mutate entities; the replication system samples
// them into EntityState values at commit time.
type EntityState struct {
	Position geom.Vector3
	Rotation geom.Quaternion
	Velocity geom.Vector3
	State    uint8
}

// Replicator encodes and decodes entity state packets against its own
// snapshot store. One instance lives on each side of a connection; the two
// stores are reconciled only through packets.
type Replicator struct {
	store *snapshot.Store

	// alwaysFull disables delta encoding. Fulls are self-contained and
	// simpler to reason about at 33 bytes per entity either way.
	alwaysFull bool
}

// NewReplicator creates a replicator with an empty snapshot store.
func NewReplicator(alwaysFull bool) *Replicator {
	return &Replicator{
		store:      snapshot.NewStore(),
		alwaysFull: alwaysFull,
	}
}

// Store exposes the snapshot store for lifecycle bookkeeping (Forget on
// entity removal, Reset on reconnect). Gameplay code must not touch it.
func (r *Replicator) Store() *snapshot.Store { return r.store }

// CompressEntityState quantizes state and returns a packet: full when the
// entity has no prior snapshot (or deltas are disabled), delta otherwise.
// The store is always updated to the just-encoded absolute values so
// repeated calls chain correctly. Malformed input (non-finite values,
// coordinates past the world extent) produces no packet and leaves the
// store untouched.
func (r *Replicator) CompressEntityState(entityID string, state EntityState, timestamp int64) (*Packet, error) {
	if entityID == "" {
		return nil, ErrEmptyEntityID
	}

	candidate, err := quantizeState(state)
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", entityID, err)
	}
	candidate.Timestamp = timestamp

	prior, seen := r.store.Lookup(entityID)

	pkt := &Packet{
		entityID:  entityID,
		timestamp: timestamp,
	}
	if !seen || r.alwaysFull {
		pkt.kind = KindFull
		pkt.body = encodeBody(candidate)
	} else {
		pkt.kind = KindDelta
		pkt.baseTimestamp = prior.Timestamp
		pkt.body = encodeBody(diffSnapshots(candidate, prior))
	}

	r.store.Commit(entityID, candidate)
	return pkt, nil
}

// CompressRemoval emits a removal packet and stops tracking the entity.
func (r *Replicator) CompressRemoval(entityID string, timestamp int64) (*Packet, error) {
	if entityID == "" {
		return nil, ErrEmptyEntityID
	}
	r.store.Forget(entityID)
	return &Packet{
		entityID:  entityID,
		kind:      KindRemoval,
		timestamp: timestamp,
	}, nil
}

// DecompressEntityState decodes a state packet and reconciles it into the
// receiver store. The transport may delay, duplicate or reorder packets;
// the packet's own timestamps decide, not receive order. A packet that is
// not strictly newer than the stored snapshot decodes without error but
// does not regress or re-apply state: the returned applied flag is false
// and the store keeps what it had. A delta only applies onto the exact
// snapshot it was diffed against, identified by its base timestamp; any
// other baseline (a dropped or not-yet-arrived predecessor) is refused
// with applied=false until a full packet resyncs the entity.
func (r *Replicator) DecompressEntityState(pkt *Packet) (EntityState, bool, error) {
	if pkt.kind == KindRemoval {
		return EntityState{}, false, ErrNotStatePacket
	}

	snap, err := decodeBody(pkt.body)
	if err != nil {
		return EntityState{}, false, err
	}
	snap.Timestamp = pkt.timestamp

	prior, seen := r.store.Lookup(pkt.entityID)

	if pkt.kind == KindDelta {
		if !seen {
			return EntityState{}, false, fmt.Errorf("decode %q: %w", pkt.entityID, ErrNoBaseline)
		}
		if prior.Timestamp != pkt.baseTimestamp {
			return EntityState{}, false, nil
		}
		snap = addSnapshots(prior, snap)
		snap.Timestamp = pkt.timestamp
	}

	state := dequantizeState(snap)
	if seen && prior.Timestamp >= pkt.timestamp {
		return state, false, nil
	}

	r.store.Commit(pkt.entityID, snap)
	return state, true, nil
}

// ApplyRemoval drops receiver-side tracking for an entity announced as
// removed by the authority.
func (r *Replicator) ApplyRemoval(pkt *Packet) error {
	if pkt.kind != KindRemoval {
		return ErrUnknownKind
	}
	r.store.Forget(pkt.entityID)
	return nil
}

func quantizeState(state EntityState) (snapshot.Snapshot, error) {
	var snap snapshot.Snapshot
	var err error
	if snap.Position, err = codec.QuantizeVec3(state.Position); err != nil {
		return snap, err
	}
	if snap.Rotation, err = codec.QuantizeQuat(state.Rotation); err != nil {
		return snap, err
	}
	if snap.Velocity, err = codec.QuantizeVelocityVec3(state.Velocity); err != nil {
		return snap, err
	}
	snap.State = state.State
	return snap, nil
}

func dequantizeState(snap snapshot.Snapshot) EntityState {
	return EntityState{
		Position: codec.DequantizeVec3(snap.Position),
		Rotation: codec.DequantizeQuat(snap.Rotation),
		Velocity: codec.DequantizeVelocityVec3(snap.Velocity),
		State:    snap.State,
	}
}

// diffSnapshots expresses next as offsets from base. Positions span at
// most 2×scaled extent, which fits int32; rotation components span at most
// 2×RotationScale, which fits int16. The state byte travels absolute.
func diffSnapshots(next, base snapshot.Snapshot) snapshot.Snapshot {
	var d snapshot.Snapshot
	for i := range d.Position {
		d.Position[i] = next.Position[i] - base.Position[i]
	}
	for i := range d.Rotation {
		d.Rotation[i] = next.Rotation[i] - base.Rotation[i]
	}
	for i := range d.Velocity {
		d.Velocity[i] = next.Velocity[i] - base.Velocity[i]
	}
	d.State = next.State
	return d
}

func addSnapshots(base, delta snapshot.Snapshot) snapshot.Snapshot {
	var s snapshot.Snapshot
	for i := range s.Position {
		s.Position[i] = base.Position[i] + delta.Position[i]
	}
	for i := range s.Rotation {
		s.Rotation[i] = base.Rotation[i] + delta.Rotation[i]
	}
	for i := range s.Velocity {
		s.Velocity[i] = base.Velocity[i] + delta.Velocity[i]
	}
	s.State = delta.State
	return s
}
