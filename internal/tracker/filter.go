package tracker

import "math"

// rpmPerDps converts an angular-rate magnitude in deg/s to revolutions per
// minute: (dps/360)*60.
const rpmPerDps = 1.0 / 6.0

// gyroFilter is the fast display/telemetry smoother. Its outputs feed the
// classifier and the wire format; they are never bias-corrected. This is
// "what the user sees", not what gets integrated.
type gyroFilter struct {
	alphaGyro float64
	alphaRPM  float64

	gx, gy, gz float64 // deg/s
	rpm        float64
}

func newGyroFilter(p Params) gyroFilter {
	return gyroFilter{alphaGyro: p.GyroAlpha, alphaRPM: p.RPMAlpha}
}

func (f *gyroFilter) update(gxDps, gyDps, gzDps float64) {
	f.gx += f.alphaGyro * (gxDps - f.gx)
	f.gy += f.alphaGyro * (gyDps - f.gy)
	f.gz += f.alphaGyro * (gzDps - f.gz)

	raw := math.Sqrt(gxDps*gxDps+gyDps*gyDps+gzDps*gzDps) * rpmPerDps
	f.rpm += f.alphaRPM * (raw - f.rpm)
}

// biasEstimator learns the slowly drifting zero-rate gyro offset (rad/s).
// It only adapts while the instantaneous rate magnitude is below the
// stationarity threshold, so genuine spin is never cancelled. The estimate
// is subtracted from the raw rate before integration and nowhere else.
type biasEstimator struct {
	alpha      float64
	stationary float64

	x, y, z float64 // rad/s
}

func newBiasEstimator(p Params) biasEstimator {
	return biasEstimator{alpha: p.BiasAlpha, stationary: p.StationaryRadPerSec}
}

func (b *biasEstimator) update(gxRad, gyRad, gzRad float64) {
	mag := math.Sqrt(gxRad*gxRad + gyRad*gyRad + gzRad*gzRad)
	if mag >= b.stationary {
		return
	}
	b.x += b.alpha * (gxRad - b.x)
	b.y += b.alpha * (gyRad - b.y)
	b.z += b.alpha * (gzRad - b.z)
}
