package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sample() Snapshot {
	return Snapshot{
		Position:  [3]int32{1000, 43869, -2500},
		Rotation:  [4]int16{0, 0, 0, 10000},
		Velocity:  [3]int32{100, 0, -100},
		State:     0x03,
		Timestamp: 1000,
	}
}

func TestStore(t *testing.T) {
	t.Run("Lifecycle", func(t *testing.T) {
		s := NewStore()
		require.Equal(t, 0, s.Len())

		_, ok := s.Lookup("e1")
		require.False(t, ok)

		snap := sample()
		s.Commit("e1", snap)
		got, ok := s.Lookup("e1")
		require.True(t, ok)
		require.Equal(t, snap, got)
		require.Equal(t, 1, s.Len())

		snap.Position[1] = 70000
		snap.Timestamp = 2000
		s.Commit("e1", snap)
		got, _ = s.Lookup("e1")
		require.Equal(t, int32(70000), got.Position[1])
		require.Equal(t, int64(2000), got.Timestamp)
		require.Equal(t, 1, s.Len())

		s.Forget("e1")
		_, ok = s.Lookup("e1")
		require.False(t, ok)
	})

	t.Run("ForgetAbsentIsNoop", func(t *testing.T) {
		s := NewStore()
		s.Forget("ghost")
		require.Equal(t, 0, s.Len())
	})

	t.Run("Reset", func(t *testing.T) {
		s := NewStore()
		s.Commit("e1", sample())
		s.Commit("e2", sample())
		s.Reset()
		require.Equal(t, 0, s.Len())
	})
}

func TestDigest(t *testing.T) {
	t.Run("StableAcrossTimestamps", func(t *testing.T) {
		a := sample()
		b := sample()
		b.Timestamp = 99999
		require.Equal(t, a.Digest(), b.Digest())
	})

	t.Run("ChangesWithAnyField", func(t *testing.T) {
		base := sample().Digest()

		moved := sample()
		moved.Position[0]++
		require.NotEqual(t, base, moved.Digest())

		rotated := sample()
		rotated.Rotation[3]--
		require.NotEqual(t, base, rotated.Digest())

		flagged := sample()
		flagged.State ^= 0x01
		require.NotEqual(t, base, flagged.Digest())
	})
}
