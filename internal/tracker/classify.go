package tracker

import "math"

// SpinType is the heuristic spin label attached to samples and shots.
type SpinType string

const (
	SpinFlat     SpinType = "FLAT"
	SpinTopspin  SpinType = "TOPSPIN"
	SpinBackspin SpinType = "BACKSPIN"
	SpinSideL    SpinType = "SIDE_L"
	SpinSideR    SpinType = "SIDE_R"
	SpinSlice    SpinType = "SLICE"
	SpinMixed    SpinType = "MIXED"
)

// Classify maps filtered gyro components (deg/s) and smoothed RPM to a spin
// label. Axis dominance is checked in X, Y, Z order, so an exact tie between
// two dominant ratios resolves to the earlier axis.
func Classify(gx, gy, gz, rpm float64, p Params) SpinType {
	if rpm < p.MinSpinRPM {
		return SpinFlat
	}
	total := math.Abs(gx) + math.Abs(gy) + math.Abs(gz)
	if total < p.GyroTotalFloorDps {
		return SpinFlat
	}
	switch {
	case math.Abs(gx)/total > p.DominanceRatio:
		if gx > 0 {
			return SpinTopspin
		}
		return SpinBackspin
	case math.Abs(gy)/total > p.DominanceRatio:
		if gy > 0 {
			return SpinSideR
		}
		return SpinSideL
	case math.Abs(gz)/total > p.DominanceRatio:
		return SpinSlice
	}
	return SpinMixed
}

// SpinAxisAngles converts a gyro vector (deg/s) to the spherical direction
// of the spin axis: theta is the polar angle from +Z in [0,180], phi the
// azimuth in the XY plane in [0,360). Below 1 deg/s total rate the direction
// is noise and ok is false.
func SpinAxisAngles(gx, gy, gz float64) (theta, phi float64, ok bool) {
	omega := math.Sqrt(gx*gx + gy*gy + gz*gz)
	if omega < 1.0 {
		return 0, 0, false
	}
	nz := gz / omega
	if nz > 1 {
		nz = 1
	} else if nz < -1 {
		nz = -1
	}
	theta = math.Acos(nz) * 180 / math.Pi
	phi = math.Atan2(gy/omega, gx/omega) * 180 / math.Pi
	if phi < 0 {
		phi += 360
	}
	return theta, phi, true
}
