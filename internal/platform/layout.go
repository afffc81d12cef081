package platform

import (
	"image"
	"math"
)

// Output is a monitor area in physical pixels and its logical scale factor.
// A zero Scale means the output has no configured scale.
type Output struct {
	Bounds image.Rectangle
	Scale  float64
}

// Layout maps overlay coordinates between logical and physical pixels when
// outputs carry different scales. It mirrors the per-output scaling applied
// to window snapshots, so an overlay placed at a target's logical bounds
// lands on the target's physical pixels.
type Layout struct {
	Outputs []Output
	// Fallback applies off every output and to outputs without a scale.
	Fallback float64
}

func (l Layout) factor(s float64) float64 {
	switch {
	case s > 0:
		return s
	case l.Fallback > 0:
		return l.Fallback
	default:
		return 1
	}
}

// ScaleAt returns the factor of the output whose area contains the logical
// point p once scaled.
func (l Layout) ScaleAt(p image.Point) float64 {
	for _, o := range l.Outputs {
		s := l.factor(o.Scale)
		if scalePoint(p, s).In(o.Bounds) {
			return s
		}
	}
	return l.factor(0)
}

// PhysicalPoint converts a logical point to physical pixels.
func (l Layout) PhysicalPoint(p image.Point) image.Point {
	return scalePoint(p, l.ScaleAt(p))
}

// LogicalPoint converts a physical point to logical pixels using the output
// under it.
func (l Layout) LogicalPoint(p image.Point) image.Point {
	s := l.factor(0)
	for _, o := range l.Outputs {
		if p.In(o.Bounds) {
			s = l.factor(o.Scale)
			break
		}
	}
	return scalePoint(p, 1/s)
}

func scalePoint(p image.Point, s float64) image.Point {
	return image.Pt(int(math.Round(float64(p.X)*s)), int(math.Round(float64(p.Y)*s)))
}
