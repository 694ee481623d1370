// Package replication is the synchronization protocol mounted as a world
// system. On the authority it samples changed entities at commit time,
// quantizes them through the codec and pushes packets onto its links; on
// a replica it drains inbound packets before the fixed step and writes
// decoded state back into local entities. Gameplay systems never touch
// it: they mutate entities and the replication system observes.
package replication

import (
	"sync"
	"time"

	"github.com/driftsync/driftsync/internal/core/entity"
	"github.com/driftsync/driftsync/internal/core/observability/log"
	"github.com/driftsync/driftsync/internal/core/protocol"
	"github.com/driftsync/driftsync/internal/core/world"
	"github.com/driftsync/driftsync/pkg/generic"
)

// SystemName is the name the replication system registers under.
const SystemName = "replication"

// Role selects which side of the wire a system instance serves.
type Role uint8

const (
	// RoleAuthority encodes and broadcasts local entity state.
	RoleAuthority Role = iota
	// RoleReplica applies remote entity state to local entities.
	RoleReplica
)

// Link is the transport boundary: a bidirectional raw-frame pipe. Frames
// may be dropped, delayed, duplicated or reordered; the protocol's
// timestamp and baseline checks keep replica state consistent through all
// of that. Send must not retain the frame after it returns.
type Link interface {
	Send(frame []byte) error
	Receive() <-chan []byte
	Close() error
}

// Config controls one replication system instance.
type Config struct {
	Role Role
	// EnableDeltas turns on delta encoding on the authority. Deltas are
	// baseline-checked by the receiver, so a lost frame can never corrupt
	// state, but every loss stalls the entity until a full packet resyncs
	// it. Leave disabled on links that drop frames.
	EnableDeltas bool
	// Now stamps outgoing packets, unix milliseconds. Defaults to
	// wall clock; tests inject a fake.
	Now func() int64
}

// System implements world.System for both roles.
type System struct {
	world.Base

	role   Role
	repl   *protocol.Replicator
	now    func() int64
	logger log.Log

	ctx  *world.Context
	bufs *generic.BufferPool

	mu    sync.RWMutex
	links []Link

	// lastSent maps entity id to the digest of its last encoded
	// snapshot; unchanged entities produce no packet.
	lastSent map[string]uint64
}

// New returns a factory for a replication system with the given config.
func New(config Config) world.Factory {
	return func(ctx *world.Context) (world.System, error) {
		now := config.Now
		if now == nil {
			now = func() int64 { return time.Now().UnixMilli() }
		}
		return &System{
			role:     config.Role,
			repl:     protocol.NewReplicator(!config.EnableDeltas),
			now:      now,
			logger:   ctx.Logger.With(log.String("module", "replication")),
			ctx:      ctx,
			bufs:     generic.NewBufferPool(64 + protocol.BodySize),
			lastSent: make(map[string]uint64),
		}, nil
	}
}

func (s *System) Name() string { return SystemName }

// Replicator exposes the protocol instance, mainly for tests and
// connection teardown (store reset forces fresh full packets).
func (s *System) Replicator() *protocol.Replicator { return s.repl }

// AttachLink adds a transport link. The authority broadcasts to every
// attached link; a replica usually has exactly one.
func (s *System) AttachLink(l Link) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = append(s.links, l)
}

// DetachLink removes a transport link.
func (s *System) DetachLink(l Link) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.links {
		if existing == l {
			s.links = append(s.links[:i], s.links[i+1:]...)
			return
		}
	}
}

// PreFixedUpdate is the inbound flush point: a replica drains every link
// and applies decoded state before gameplay steps.
func (s *System) PreFixedUpdate(bool) {
	if s.role != RoleReplica {
		return
	}
	for _, l := range s.snapshotLinks() {
		s.drainLink(l)
	}
}

// Commit is the outbound flush point: the authority encodes entities
// whose quantized state changed since the last send, plus removal
// notices for locally destroyed entities.
func (s *System) Commit() error {
	if s.role != RoleAuthority {
		return nil
	}

	timestamp := s.now()

	for _, id := range s.ctx.Entities.DrainRemovals() {
		pkt, err := s.repl.CompressRemoval(id, timestamp)
		if err != nil {
			continue
		}
		delete(s.lastSent, id)
		s.broadcast(pkt)
	}

	s.ctx.Entities.ForEach(func(e *entity.Entity) {
		s.publishEntity(e, timestamp)
	})
	return nil
}

// Destroy closes every attached link.
func (s *System) Destroy() error {
	s.mu.Lock()
	links := s.links
	s.links = nil
	s.mu.Unlock()

	for _, l := range links {
		if err := l.Close(); err != nil {
			s.logger.Warn("link close failed", log.Error(err))
		}
	}
	return nil
}

func (s *System) publishEntity(e *entity.Entity, timestamp int64) {
	state := protocol.EntityState{
		Position: e.Position(),
		Rotation: e.Rotation(),
		Velocity: e.Velocity(),
		State:    e.Flags(),
	}

	pkt, err := s.repl.CompressEntityState(e.ID(), state, timestamp)
	if err != nil {
		// Malformed state never reaches the wire; the entity keeps
		// its unencoded values and gameplay decides how to recover.
		s.logger.Warn("state rejected at encode boundary",
			log.String("entity", e.ID()), log.Error(err))
		return
	}

	snap, ok := s.repl.Store().Lookup(e.ID())
	if !ok {
		return
	}
	digest := snap.Digest()
	if prev, seen := s.lastSent[e.ID()]; seen && prev == digest {
		return
	}
	s.lastSent[e.ID()] = digest
	s.broadcast(pkt)
}

func (s *System) broadcast(pkt *protocol.Packet) {
	frame, err := protocol.AppendFrame(s.bufs.Get(), pkt)
	if err != nil {
		s.logger.Error("frame encode failed",
			log.String("entity", pkt.EntityID()), log.Error(err))
		return
	}
	for _, l := range s.snapshotLinks() {
		if err := l.Send(frame); err != nil {
			s.logger.Warn("frame send failed", log.Error(err))
		}
	}
	s.bufs.Put(frame)
}

func (s *System) drainLink(l Link) {
	for {
		select {
		case frame, ok := <-l.Receive():
			if !ok {
				return
			}
			s.applyFrame(frame)
		default:
			return
		}
	}
}

func (s *System) applyFrame(frame []byte) {
	pkt, err := protocol.ParseFrame(frame)
	if err != nil {
		s.logger.Warn("dropping malformed frame", log.Error(err))
		return
	}

	if pkt.Kind() == protocol.KindRemoval {
		if err := s.repl.ApplyRemoval(pkt); err != nil {
			return
		}
		if e, ok := s.ctx.Entities.Get(pkt.EntityID()); ok {
			e.Destroy(false)
		}
		return
	}

	state, applied, err := s.repl.DecompressEntityState(pkt)
	if err != nil {
		// A delta without a baseline means its full packet is still
		// in flight; drop and wait for it.
		s.logger.Debug("dropping undecodable packet",
			log.String("entity", pkt.EntityID()), log.Error(err))
		return
	}
	if !applied {
		// Stale by timestamp; newer state already applied.
		return
	}

	e, ok := s.ctx.Entities.Get(pkt.EntityID())
	if !ok {
		spawned, err := s.ctx.Entities.SpawnWithID(pkt.EntityID(), "", "replica")
		if err != nil {
			s.logger.Error("replica spawn failed",
				log.String("entity", pkt.EntityID()), log.Error(err))
			return
		}
		e = spawned
	}

	e.SetPosition(state.Position)
	e.SetRotation(state.Rotation)
	e.SetVelocity(state.Velocity)
	e.SetFlags(state.State)
}

func (s *System) snapshotLinks() []Link {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Link, len(s.links))
	copy(out, s.links)
	return out
}
