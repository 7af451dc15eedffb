// Package graphics holds the geometry and color values exchanged with native
// platform views.
package graphics

// Offset represents a 2D point or vector in logical pixels.
type Offset struct {
	X float64
	Y float64
}

// Size represents width and height dimensions in logical pixels.
type Size struct {
	Width  float64
	Height float64
}

// IsEmpty reports whether the size encloses no area.
func (s Size) IsEmpty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Rect represents a rectangle using left, top, right, bottom coordinates.
type Rect struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// RectFromOffsetSize constructs a Rect positioned at offset with the given size.
func RectFromOffsetSize(offset Offset, size Size) Rect {
	return Rect{
		Left:   offset.X,
		Top:    offset.Y,
		Right:  offset.X + size.Width,
		Bottom: offset.Y + size.Height,
	}
}

// Size returns the size of the rectangle.
func (r Rect) Size() Size {
	return Size{Width: r.Right - r.Left, Height: r.Bottom - r.Top}
}
