package geom

import "math"

// Vector3 is a point or direction in world units.
type Vector3 struct {
	X float64
	Y float64
	Z float64
}

// Quaternion is a rotation. Simulation code keeps it unit-length;
// NormalizeQ restores the invariant after accumulated drift.
type Quaternion struct {
	X float64
	Y float64
	Z float64
	W float64
}

var (
	// Zero is the origin / null direction.
	Zero = Vector3{}
	// One is the default entity scale.
	One = Vector3{X: 1, Y: 1, Z: 1}
	// IdentityQ is the no-rotation quaternion.
	IdentityQ = Quaternion{W: 1}
)

// Add returns v + o.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale returns v * s.
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Length returns the Euclidean length of v.
func (v Vector3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Distance computes Euclidean distance between two points.
func Distance(a, b Vector3) float64 {
	return a.Sub(b).Length()
}

// Lerp interpolates between a and b by t in [0,1].
func Lerp(a, b Vector3, t float64) Vector3 {
	return Vector3{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
	}
}

// IsFinite reports whether every component is a finite number.
func (v Vector3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

// NormalizeQ returns q scaled to unit length. The zero quaternion
// normalizes to identity rather than NaN.
func NormalizeQ(q Quaternion) Quaternion {
	l := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if l == 0 {
		return IdentityQ
	}
	return Quaternion{X: q.X / l, Y: q.Y / l, Z: q.Z / l, W: q.W / l}
}

// IsFinite reports whether every component is a finite number.
func (q Quaternion) IsFinite() bool {
	return isFinite(q.X) && isFinite(q.Y) && isFinite(q.Z) && isFinite(q.W)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
