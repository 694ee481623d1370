// Package codec converts between floating-point simulation units and the
// fixed-width integers carried on the wire. All functions are pure and
// deterministic; the same input always quantizes to the same integer on
// both sides of a connection.
package codec

import (
	"errors"
	"math"

	"github.com/driftsync/driftsync/internal/core/geom"
)

var (
	ErrNonFinite  = errors.New("codec: value is not a finite number")
	ErrOutOfRange = errors.New("codec: value exceeds the world extent")
)

const (
	// PositionScale gives millimeter precision for positions.
	PositionScale = 1000
	// RotationScale is enough for quaternion components, which are
	// bounded to [-1, 1] and therefore can never overflow an int16
	// at this scale.
	RotationScale = 10000
	// VelocityScale matches PositionScale so velocities share the
	// position field width and headroom.
	VelocityScale = 1000

	// MaxWorldExtent is the largest coordinate magnitude, in world
	// units, the codec accepts on any axis. Every axis uses the same
	// 32-bit field validated against this single constant.
	MaxWorldExtent = 100_000
)

// The scaled extent must fit an int32 on every axis. An earlier 16-bit
// encoding wrapped around at ±32.767 units and corrupted ordinary
// positions, so the width is proven here instead of assumed per call site.
const _ uint32 = math.MaxInt32 - PositionScale*MaxWorldExtent

// QuantizePosition converts a world coordinate to its wire integer.
// Non-finite and out-of-extent values are rejected so corrupt data never
// reaches the wire.
func QuantizePosition(v float64) (int32, error) {
	if !isFinite(v) {
		return 0, ErrNonFinite
	}
	if v < -MaxWorldExtent || v > MaxWorldExtent {
		return 0, ErrOutOfRange
	}
	return int32(math.Round(v * PositionScale)), nil
}

// DequantizePosition is the exact inverse of QuantizePosition. Round-trip
// error stays within 1/PositionScale world units.
func DequantizePosition(q int32) float64 {
	return float64(q) / PositionScale
}

// QuantizeRotation converts one quaternion component to its wire integer.
// Components outside [-1, 1] indicate a non-unit quaternion upstream and
// are rejected rather than silently clamped.
func QuantizeRotation(v float64) (int16, error) {
	if !isFinite(v) {
		return 0, ErrNonFinite
	}
	if v < -1 || v > 1 {
		return 0, ErrOutOfRange
	}
	return int16(math.Round(v * RotationScale)), nil
}

// DequantizeRotation is the exact inverse of QuantizeRotation.
func DequantizeRotation(q int16) float64 {
	return float64(q) / RotationScale
}

// QuantizeVelocity converts a velocity component to its wire integer.
func QuantizeVelocity(v float64) (int32, error) {
	if !isFinite(v) {
		return 0, ErrNonFinite
	}
	if v < -MaxWorldExtent || v > MaxWorldExtent {
		return 0, ErrOutOfRange
	}
	return int32(math.Round(v * VelocityScale)), nil
}

// DequantizeVelocity is the exact inverse of QuantizeVelocity.
func DequantizeVelocity(q int32) float64 {
	return float64(q) / VelocityScale
}

// QuantizeVec3 quantizes a position vector component-wise.
func QuantizeVec3(v geom.Vector3) ([3]int32, error) {
	var out [3]int32
	var err error
	if out[0], err = QuantizePosition(v.X); err != nil {
		return out, err
	}
	if out[1], err = QuantizePosition(v.Y); err != nil {
		return out, err
	}
	out[2], err = QuantizePosition(v.Z)
	return out, err
}

// DequantizeVec3 reverses QuantizeVec3.
func DequantizeVec3(q [3]int32) geom.Vector3 {
	return geom.Vector3{
		X: DequantizePosition(q[0]),
		Y: DequantizePosition(q[1]),
		Z: DequantizePosition(q[2]),
	}
}

// QuantizeQuat quantizes a rotation component-wise in x, y, z, w order.
func QuantizeQuat(q geom.Quaternion) ([4]int16, error) {
	var out [4]int16
	var err error
	if out[0], err = QuantizeRotation(q.X); err != nil {
		return out, err
	}
	if out[1], err = QuantizeRotation(q.Y); err != nil {
		return out, err
	}
	if out[2], err = QuantizeRotation(q.Z); err != nil {
		return out, err
	}
	out[3], err = QuantizeRotation(q.W)
	return out, err
}

// DequantizeQuat reverses QuantizeQuat.
func DequantizeQuat(q [4]int16) geom.Quaternion {
	return geom.Quaternion{
		X: DequantizeRotation(q[0]),
		Y: DequantizeRotation(q[1]),
		Z: DequantizeRotation(q[2]),
		W: DequantizeRotation(q[3]),
	}
}

// QuantizeVelocityVec3 quantizes a velocity vector component-wise.
func QuantizeVelocityVec3(v geom.Vector3) ([3]int32, error) {
	var out [3]int32
	var err error
	if out[0], err = QuantizeVelocity(v.X); err != nil {
		return out, err
	}
	if out[1], err = QuantizeVelocity(v.Y); err != nil {
		return out, err
	}
	out[2], err = QuantizeVelocity(v.Z)
	return out, err
}

// DequantizeVelocityVec3 reverses QuantizeVelocityVec3.
func DequantizeVelocityVec3(q [3]int32) geom.Vector3 {
	return geom.Vector3{
		X: DequantizeVelocity(q[0]),
		Y: DequantizeVelocity(q[1]),
		Z: DequantizeVelocity(q[2]),
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
