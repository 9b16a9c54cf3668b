package geo

import "math"

// Common epsilons.
const (
	Epsilon1  = 0.1
	Epsilon3  = 0.001
	Epsilon5  = 0.00001
	Epsilon7  = 1e-7
	Epsilon10 = 1e-10
	Epsilon12 = 1e-12
	Epsilon14 = 1e-14

	TwoPi   = 2 * math.Pi
	PiOver2 = math.Pi / 2
)

// NegativePiToPi wraps an angle into [-Pi, Pi].
func NegativePiToPi(angle float64) float64 {
	if angle >= -math.Pi && angle <= math.Pi {
		return angle
	}
	return ZeroToTwoPi(angle+math.Pi) - math.Pi
}

// ZeroToTwoPi wraps an angle into [0, 2Pi]. Multiples of 2Pi other than
// zero map to 2Pi.
func ZeroToTwoPi(angle float64) float64 {
	mod := math.Mod(angle, TwoPi)
	if mod < 0 {
		mod += TwoPi
	}
	if math.Abs(mod) < Epsilon14 && math.Abs(angle) > Epsilon14 {
		return TwoPi
	}
	return mod
}

// Fog returns the fog factor in [0, 1) at the given distance.
func Fog(distance, density float64) float64 {
	scalar := distance * density
	return 1 - math.Exp(-(scalar * scalar))
}

// EqualsEpsilon reports whether a and b are within the given relative or
// absolute tolerance.
func EqualsEpsilon(a, b, relative, absolute float64) bool {
	diff := math.Abs(a - b)
	return diff <= absolute || diff <= relative*math.Max(math.Abs(a), math.Abs(b))
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ToRadians converts degrees to radians.
func ToRadians(deg float64) float64 { return deg * math.Pi / 180 }

// ToDegrees converts radians to degrees.
func ToDegrees(rad float64) float64 { return rad * 180 / math.Pi }
