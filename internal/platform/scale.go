package platform

import "github.com/1broseidon/stickyfollow/internal/anchor"

// BaseDPI is the DPI at which logical and physical pixels coincide.
const BaseDPI = 96.0

// ResolveScale picks the physical-per-logical pixel factor for a window:
// the per-window DPI when known, else the scale of the screen under the
// pointer, else the primary screen, else 1.
func ResolveScale(windowDPI, pointerScale, primaryScale float64) float64 {
	switch {
	case windowDPI > 0:
		return windowDPI / BaseDPI
	case pointerScale > 0:
		return pointerScale
	case primaryScale > 0:
		return primaryScale
	default:
		return 1
	}
}

// ToLogical converts a physical pixel rectangle into logical coordinates.
func ToLogical(x, y, width, height int, scale float64) anchor.Rect {
	if scale <= 0 {
		scale = 1
	}
	return anchor.Rect{
		X:      float64(x) / scale,
		Y:      float64(y) / scale,
		Width:  float64(width) / scale,
		Height: float64(height) / scale,
	}
}
