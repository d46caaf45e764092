package quat

import "math"

// Quaternion math for body-frame orientation tracking.
//
// Conventions: Hamilton product, scalar-first components, incremental
// rotations applied by right-multiplication (the increment is expressed in
// the body frame).

const (
	// DeadZoneRadPerSec rejects residual gyro noise: below this angular-rate
	// magnitude an integration step leaves the quaternion untouched. Trading
	// a little slow-rotation precision for zero drift at rest.
	DeadZoneRadPerSec = 0.01

	// normFloor guards renormalization against division by ~0.
	normFloor = 1e-4
)

type Vec3 struct {
	X, Y, Z float64
}

type Quat struct {
	W, X, Y, Z float64
}

func Identity() Quat {
	return Quat{W: 1}
}

// Mul returns the Hamilton product a⊗b.
func Mul(a, b Quat) Quat {
	return Quat{
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
		X: a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		Y: a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X,
		Z: a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W,
	}
}

func Conjugate(q Quat) Quat {
	return Quat{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

func Norm(q Quat) float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalize rescales q to unit length. If the norm is below the numerical
// floor the input is returned unchanged rather than dividing by ~0.
func Normalize(q Quat) Quat {
	n := Norm(q)
	if n <= normFloor {
		return q
	}
	inv := 1.0 / n
	return Quat{W: q.W * inv, X: q.X * inv, Y: q.Y * inv, Z: q.Z * inv}
}

// Integrate advances q by one tick of angular velocity (rad/s, body frame)
// over dt seconds. Rates below the dead zone leave q unchanged. The caller
// is responsible for clamping dt; no clamping happens here.
func Integrate(q Quat, omega Vec3, dt float64) Quat {
	mag := math.Sqrt(omega.X*omega.X + omega.Y*omega.Y + omega.Z*omega.Z)
	if mag <= DeadZoneRadPerSec {
		return q
	}
	half := mag * dt * 0.5
	s := math.Sin(half) / mag
	dq := Quat{
		W: math.Cos(half),
		X: omega.X * s,
		Y: omega.Y * s,
		Z: omega.Z * s,
	}
	return Normalize(Mul(q, dq))
}

// Rotate applies q·v·q⁻¹ using the two-cross-product expansion, avoiding a
// full quaternion multiply.
func Rotate(q Quat, v Vec3) Vec3 {
	tx := 2 * (q.Y*v.Z - q.Z*v.Y)
	ty := 2 * (q.Z*v.X - q.X*v.Z)
	tz := 2 * (q.X*v.Y - q.Y*v.X)
	return Vec3{
		X: v.X + q.W*tx + (q.Y*tz - q.Z*ty),
		Y: v.Y + q.W*ty + (q.Z*tx - q.X*tz),
		Z: v.Z + q.W*tz + (q.X*ty - q.Y*tx),
	}
}
