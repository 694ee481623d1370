package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVector3(t *testing.T) {
	t.Run("Arithmetic", func(t *testing.T) {
		a := Vector3{X: 1, Y: 2, Z: 3}
		b := Vector3{X: -1, Y: 0.5, Z: 10}

		require.Equal(t, Vector3{X: 0, Y: 2.5, Z: 13}, a.Add(b))
		require.Equal(t, Vector3{X: 2, Y: 1.5, Z: -7}, a.Sub(b))
		require.Equal(t, Vector3{X: 2, Y: 4, Z: 6}, a.Scale(2))
		require.Equal(t, Zero, a.Scale(0))
	})

	t.Run("LengthAndDistance", func(t *testing.T) {
		require.Equal(t, 0.0, Zero.Length())
		require.Equal(t, 5.0, Vector3{X: 3, Y: 4}.Length())
		require.Equal(t, 5.0, Distance(Vector3{X: 1, Y: 1}, Vector3{X: 4, Y: 5}))
	})

	t.Run("Lerp", func(t *testing.T) {
		a := Vector3{X: 0, Y: 43.869, Z: 0}
		b := Vector3{X: 0, Y: 70, Z: 0}

		require.Equal(t, a, Lerp(a, b, 0))
		require.Equal(t, b, Lerp(a, b, 1))
		mid := Lerp(a, b, 0.5)
		require.InDelta(t, (43.869+70)/2, mid.Y, 1e-12)
	})

	t.Run("IsFinite", func(t *testing.T) {
		require.True(t, Vector3{X: 1, Y: -2, Z: 3}.IsFinite())
		require.False(t, Vector3{X: math.NaN()}.IsFinite())
		require.False(t, Vector3{Z: math.Inf(-1)}.IsFinite())
	})
}

func TestQuaternion(t *testing.T) {
	t.Run("NormalizeRestoresUnitLength", func(t *testing.T) {
		q := NormalizeQ(Quaternion{X: 2, Y: 0, Z: 0, W: 2})
		l := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
		require.InDelta(t, 1.0, l, 1e-12)
	})

	t.Run("ZeroNormalizesToIdentity", func(t *testing.T) {
		require.Equal(t, IdentityQ, NormalizeQ(Quaternion{}))
	})

	t.Run("UnitQuaternionIsUnchanged", func(t *testing.T) {
		q := NormalizeQ(IdentityQ)
		require.Equal(t, IdentityQ, q)
	})

	t.Run("IsFinite", func(t *testing.T) {
		require.True(t, IdentityQ.IsFinite())
		require.False(t, Quaternion{W: math.Inf(1)}.IsFinite())
	})
}
