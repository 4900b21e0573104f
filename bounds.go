package dolly

import (
	"math"
	"strconv"
	"strings"
)

// Bounds is the value model of a slider: an inclusive range [min, max] with a
// step grid anchored at min.
//
// Every value a Bounds hands back lies inside the range. Values are snapped to
// the grid min, min+step, min+2*step, ... except at the upper boundary, where
// max itself is always reachable even when max-min is not a multiple of step.
//
// Bounds is immutable and safe to copy.
type Bounds struct {
	min       float64
	max       float64
	step      float64
	precision int // decimal places carried by min and step
}

// NewBounds validates the range and step and returns the value model.
//
// Construction fails with a *ConfigError when min >= max, when step <= 0, or
// when any of the three is NaN or infinite. There is no partially usable
// Bounds for invalid input.
//
// Example:
//
//	b, err := dolly.NewBounds(0, 100, 1)
//	if err != nil {
//		return err
//	}
//	b.Quantize(49.6) // 50
func NewBounds(min, max, step float64) (Bounds, error) {
	switch {
	case !finite(min):
		return Bounds{}, newConfigError("min", "must be a finite number", min, max, step)
	case !finite(max):
		return Bounds{}, newConfigError("max", "must be a finite number", min, max, step)
	case !finite(step):
		return Bounds{}, newConfigError("step", "must be a finite number", min, max, step)
	case min >= max:
		return Bounds{}, newConfigError("max", "must be greater than min", min, max, step)
	case step <= 0:
		return Bounds{}, newConfigError("step", "must be positive", min, max, step)
	}

	return Bounds{
		min:       min,
		max:       max,
		step:      step,
		precision: maxInt(decimals(min), decimals(step)),
	}, nil
}

// Min returns the lower bound.
func (b Bounds) Min() float64 { return b.min }

// Max returns the upper bound.
func (b Bounds) Max() float64 { return b.max }

// Step returns the grid spacing.
func (b Bounds) Step() float64 { return b.step }

// Span returns max - min.
func (b Bounds) Span() float64 { return b.max - b.min }

// Clamp limits v to [min, max]. NaN clamps to min.
func (b Bounds) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return b.min
	}
	return math.Max(b.min, math.Min(v, b.max))
}

// Quantize snaps v to the nearest grid point, rounding half away from zero.
//
// Values at or past a boundary, and grid points that would land past one,
// come back as the boundary itself: the boundary wins over grid alignment.
func (b Bounds) Quantize(v float64) float64 {
	switch {
	case math.IsNaN(v), v <= b.min:
		return b.min
	case v >= b.max:
		return b.max
	}

	q := b.trim(b.min + math.Round((v-b.min)/b.step)*b.step)
	switch {
	case q >= b.max:
		return b.max
	case q <= b.min:
		return b.min
	}
	return q
}

// Apply moves current by delta and returns the clamped, quantized result.
func (b Bounds) Apply(current, delta float64) float64 {
	return b.Quantize(b.Clamp(current + delta))
}

// Contains reports whether v lies inside [min, max].
func (b Bounds) Contains(v float64) bool {
	return v >= b.min && v <= b.max
}

// OnGrid reports whether v is a value Quantize could have produced: either
// max, or min plus a whole number of steps.
func (b Bounds) OnGrid(v float64) bool {
	if !b.Contains(v) {
		return false
	}
	if v == b.max {
		return true
	}
	n := (v - b.min) / b.step
	return math.Abs(n-math.Round(n)) < 1e-9
}

// Format renders v with the precision of the grid, without trailing zeros.
func (b Bounds) Format(v float64) string {
	return strconv.FormatFloat(b.trim(v), 'f', -1, 64)
}

// trim drops float noise below the grid's decimal precision.
func (b Bounds) trim(v float64) float64 {
	p := math.Pow10(b.precision)
	return math.Round(v*p) / p
}

// decimals counts the digits after the decimal point in the shortest
// representation of v, capped so Pow10 stays exact.
func decimals(v float64) int {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	return minInt(len(s)-i-1, 12)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
