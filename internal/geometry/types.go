package geometry

// Normalized metering space spans [-NormalizedExtent, NormalizedExtent] on both axes.
const NormalizedExtent = 1000

// MaxMeteringWeight is the highest weight a metering rectangle can carry.
const MaxMeteringWeight = 1000

type Point struct {
	X float64
	Y float64
}

type Size struct {
	Width  int
	Height int
}

func (s Size) Area() int {
	return s.Width * s.Height
}

func (s Size) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

// Rect uses exclusive right and bottom edges, Width() = Right - Left.
type Rect struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

func (r Rect) Width() int {
	return r.Right - r.Left
}

func (r Rect) Height() int {
	return r.Bottom - r.Top
}

func (r Rect) IsEmpty() bool {
	return r.Left >= r.Right || r.Top >= r.Bottom
}

// Contains reports whether o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	return o.Left >= r.Left && o.Right <= r.Right && o.Top >= r.Top && o.Bottom <= r.Bottom
}

func (r Rect) Center() Point {
	return Point{
		X: float64(r.Left+r.Right) / 2,
		Y: float64(r.Top+r.Bottom) / 2,
	}
}

// FocusRegion is a rectangle in normalized metering space plus its weight.
type FocusRegion struct {
	Rect   Rect
	Weight int
}

// MeteringRect is a weighted rectangle in sensor pixel space.
type MeteringRect struct {
	Rect   Rect
	Weight int
}
