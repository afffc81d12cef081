package anchor

import (
	"fmt"
	"image"
	"math"
	"strings"
)

// Rect is a rectangle in logical screen coordinates.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Point is a 2D vector. It is used both for screen points and offsets.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Size is the width and height of an overlay.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Empty reports whether either dimension is zero or negative.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Corner selects which corner of the target rectangle an overlay hangs off.
type Corner int

const (
	TopLeft Corner = iota
	BottomLeft
	TopRight
	BottomRight
)

var cornerNames = map[Corner]string{
	TopLeft:     "top-left",
	BottomLeft:  "bottom-left",
	TopRight:    "top-right",
	BottomRight: "bottom-right",
}

func (c Corner) String() string {
	if name, ok := cornerNames[c]; ok {
		return name
	}
	return fmt.Sprintf("corner(%d)", int(c))
}

// Right reports whether the corner is on the right edge.
func (c Corner) Right() bool {
	return c == TopRight || c == BottomRight
}

// Bottom reports whether the corner is on the bottom edge.
func (c Corner) Bottom() bool {
	return c == BottomLeft || c == BottomRight
}

// ParseCorner accepts the names produced by String, case-insensitively.
func ParseCorner(s string) (Corner, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for c, name := range cornerNames {
		if name == needle {
			return c, nil
		}
	}
	return TopLeft, fmt.Errorf("unknown anchor corner %q (want top-left, bottom-left, top-right or bottom-right)", s)
}

func (c Corner) MarshalText() ([]byte, error) {
	if _, ok := cornerNames[c]; !ok {
		return nil, fmt.Errorf("invalid anchor corner %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Corner) UnmarshalText(text []byte) error {
	parsed, err := ParseCorner(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// OffsetMode controls how a raw offset is interpreted.
type OffsetMode int

const (
	// Pixels treats the offset as absolute logical pixels.
	Pixels OffsetMode = iota
	// Ratio treats the offset as a fraction of the target's width and height.
	Ratio
)

func (m OffsetMode) String() string {
	switch m {
	case Pixels:
		return "pixels"
	case Ratio:
		return "ratio"
	default:
		return fmt.Sprintf("offset-mode(%d)", int(m))
	}
}

// ParseOffsetMode parses "pixels" or "ratio".
func ParseOffsetMode(s string) (OffsetMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pixels", "px", "absolute":
		return Pixels, nil
	case "ratio", "relative":
		return Ratio, nil
	}
	return Pixels, fmt.Errorf("unknown offset mode %q (want pixels or ratio)", s)
}

func (m OffsetMode) MarshalText() ([]byte, error) {
	if m != Pixels && m != Ratio {
		return nil, fmt.Errorf("invalid offset mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *OffsetMode) UnmarshalText(text []byte) error {
	parsed, err := ParseOffsetMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// AnchorPoint returns the requested corner of r.
func AnchorPoint(r Rect, c Corner) Point {
	p := Point{X: r.X, Y: r.Y}
	if c.Right() {
		p.X = r.X + r.Width
	}
	if c.Bottom() {
		p.Y = r.Y + r.Height
	}
	return p
}

// ComputeOffset converts a raw offset into pixels for the given target.
func ComputeOffset(r Rect, mode OffsetMode, raw Point) Point {
	if mode == Ratio {
		return Point{X: raw.X * r.Width, Y: raw.Y * r.Height}
	}
	return raw
}

// AnchoredPosition returns the top-left pixel at which an overlay of the
// given size must be placed so that its anchored corner sits at the target
// corner plus offset.
func AnchoredPosition(r Rect, size Size, c Corner, mode OffsetMode, raw Point) image.Point {
	a := AnchorPoint(r, c)
	off := ComputeOffset(r, mode, raw)
	x := a.X + off.X
	y := a.Y + off.Y
	if c.Right() {
		x -= size.Width
	}
	if c.Bottom() {
		y -= size.Height
	}
	return image.Pt(int(math.Round(x)), int(math.Round(y)))
}

// OffsetForPosition is the inverse of AnchoredPosition: it returns the raw
// offset that places an overlay of the given size at topLeft. In ratio mode
// an axis of zero extent yields a zero component.
func OffsetForPosition(r Rect, size Size, topLeft image.Point, c Corner, mode OffsetMode) Point {
	a := AnchorPoint(r, c)
	x := float64(topLeft.X)
	y := float64(topLeft.Y)
	if c.Right() {
		x += size.Width
	}
	if c.Bottom() {
		y += size.Height
	}
	off := Point{X: x - a.X, Y: y - a.Y}
	if mode != Ratio {
		return off
	}

	var out Point
	if r.Width > 0 {
		out.X = off.X / r.Width
	}
	if r.Height > 0 {
		out.Y = off.Y / r.Height
	}
	return out
}

// CornerForPosition picks the corner of r nearest to p by quadrant. Points
// exactly on a centre line count as right/bottom.
func CornerForPosition(r Rect, p Point) Corner {
	c := r.Center()
	left := p.X < c.X
	top := p.Y < c.Y
	switch {
	case left && top:
		return TopLeft
	case left:
		return BottomLeft
	case top:
		return TopRight
	default:
		return BottomRight
	}
}
