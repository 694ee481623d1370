package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftsync/driftsync/internal/core/geom"
)

func TestQuantizePosition(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		for _, v := range []float64{0, 0.001, -0.001, 1.5, -273.15, 9999.999, -99999.5, 43.869, 100000, -100000} {
			q, err := QuantizePosition(v)
			require.NoError(t, err)
			require.InDelta(t, v, DequantizePosition(q), 1.0/PositionScale)
		}
	})

	t.Run("NoOverflowAtOrdinaryCoordinates", func(t *testing.T) {
		// 43.869 once decoded as -21.667 under a 16-bit encoding.
		q, err := QuantizePosition(43.869)
		require.NoError(t, err)
		got := DequantizePosition(q)
		require.InDelta(t, 43.869, got, 0.001)
		require.Greater(t, got, 0.0)
	})

	t.Run("FullWorldExtent", func(t *testing.T) {
		q, err := QuantizePosition(MaxWorldExtent)
		require.NoError(t, err)
		require.InDelta(t, float64(MaxWorldExtent), DequantizePosition(q), 0.001)
	})

	t.Run("RejectsNonFinite", func(t *testing.T) {
		for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			_, err := QuantizePosition(v)
			require.ErrorIs(t, err, ErrNonFinite)
		}
	})

	t.Run("RejectsBeyondExtent", func(t *testing.T) {
		_, err := QuantizePosition(MaxWorldExtent + 1)
		require.ErrorIs(t, err, ErrOutOfRange)
		_, err = QuantizePosition(-MaxWorldExtent - 1)
		require.ErrorIs(t, err, ErrOutOfRange)
	})
}

func TestQuantizeRotation(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		for _, v := range []float64{0, 1, -1, 0.7071, -0.7071, 0.0001} {
			q, err := QuantizeRotation(v)
			require.NoError(t, err)
			require.InDelta(t, v, DequantizeRotation(q), 1.0/RotationScale)
		}
	})

	t.Run("BoundedComponentsNeverOverflow", func(t *testing.T) {
		q, err := QuantizeRotation(1)
		require.NoError(t, err)
		require.Equal(t, int16(RotationScale), q)
		q, err = QuantizeRotation(-1)
		require.NoError(t, err)
		require.Equal(t, int16(-RotationScale), q)
	})

	t.Run("RejectsNonUnitComponents", func(t *testing.T) {
		_, err := QuantizeRotation(1.5)
		require.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("RejectsNonFinite", func(t *testing.T) {
		_, err := QuantizeRotation(math.NaN())
		require.ErrorIs(t, err, ErrNonFinite)
	})
}

func TestQuantizeVelocity(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		for _, v := range []float64{0, 12.5, -3.25, 250.001} {
			q, err := QuantizeVelocity(v)
			require.NoError(t, err)
			require.InDelta(t, v, DequantizeVelocity(q), 1.0/VelocityScale)
		}
	})
}

func TestQuantizeVectors(t *testing.T) {
	t.Run("Vec3RoundTrip", func(t *testing.T) {
		v := geom.Vector3{X: 1.234, Y: 43.869, Z: -87654.321}
		q, err := QuantizeVec3(v)
		require.NoError(t, err)
		back := DequantizeVec3(q)
		require.InDelta(t, v.X, back.X, 0.001)
		require.InDelta(t, v.Y, back.Y, 0.001)
		require.InDelta(t, v.Z, back.Z, 0.001)
	})

	t.Run("Vec3PropagatesError", func(t *testing.T) {
		_, err := QuantizeVec3(geom.Vector3{Y: math.NaN()})
		require.ErrorIs(t, err, ErrNonFinite)
	})

	t.Run("QuatRoundTrip", func(t *testing.T) {
		q := geom.NormalizeQ(geom.Quaternion{X: 0.3, Y: -0.2, Z: 0.5, W: 0.9})
		enc, err := QuantizeQuat(q)
		require.NoError(t, err)
		back := DequantizeQuat(enc)
		require.InDelta(t, q.X, back.X, 1.0/RotationScale)
		require.InDelta(t, q.Y, back.Y, 1.0/RotationScale)
		require.InDelta(t, q.Z, back.Z, 1.0/RotationScale)
		require.InDelta(t, q.W, back.W, 1.0/RotationScale)
	})
}
