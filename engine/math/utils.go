package math

import (
	m "math"

	"golang.org/x/exp/constraints"
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// CeilDiv returns ceil(n / d) for positive integers.
func CeilDiv[T constraints.Unsigned](n, d T) T {
	return (n + d - 1) / d
}

// ScaleExtent returns floor(min(a, b) * scale) per axis.
func ScaleExtent(a, b Extent2D, scale float32) Extent2D {
	return Extent2D{
		Width:  uint32(m.Floor(float64(float32(min(a.Width, b.Width)) * scale))),
		Height: uint32(m.Floor(float64(float32(min(a.Height, b.Height)) * scale))),
	}
}

// MipLevels returns the length of a full mip chain for an image of the given size.
func MipLevels(width, height uint32) uint32 {
	return uint32(m.Floor(m.Log2(float64(max(width, height))))) + 1
}
