package geometry

import (
	"github.com/go-gl/mathgl/mgl64"
)

// focusAreaSize is the side of the square metering region in normalized units.
const focusAreaSize = 100

// ViewTransform maps between normalized metering space and preview view pixels
// for a given sensor orientation and mirroring.
type ViewTransform struct {
	toView       mgl64.Mat3
	toNormalized mgl64.Mat3
}

// NewViewTransform builds the normalized-to-view transform: mirror the y axis
// for front sensors, rotate by the sensor orientation, scale [-1000,1000] onto
// the view and move the origin to the view center.
func NewViewTransform(view Size, orientation int, mirrored bool) ViewTransform {
	yScale := 1.0
	if mirrored {
		yScale = -1
	}
	w, h := float64(view.Width), float64(view.Height)

	m := mgl64.Translate2D(w/2, h/2).
		Mul3(mgl64.Scale2D(w/(2*NormalizedExtent), h/(2*NormalizedExtent))).
		Mul3(mgl64.HomogRotate2D(mgl64.DegToRad(float64(orientation)))).
		Mul3(mgl64.Scale2D(1, yScale))

	return ViewTransform{toView: m, toNormalized: m.Inv()}
}

func (t ViewTransform) ToView(p Point) Point {
	return apply(t.toView, p)
}

func (t ViewTransform) ToNormalized(p Point) Point {
	return apply(t.toNormalized, p)
}

func apply(m mgl64.Mat3, p Point) Point {
	v := m.Mul3x1(mgl64.Vec3{p.X, p.Y, 1})
	return Point{X: v.X(), Y: v.Y()}
}

// ScreenPointToSensorRegion converts a touch on the preview view into a square
// metering region in normalized space. The square is shifted back inside
// [-1000,1000] when it would cross an edge; it is never shrunk.
func ScreenPointToSensorRegion(touch Point, view Size, orientation int, mirrored bool) FocusRegion {
	p := NewViewTransform(view, orientation, mirrored).ToNormalized(touch)
	focusX, focusY := int(p.X), int(p.Y)

	half := focusAreaSize / 2
	left, right := shiftInside(focusX-half, focusX+half)
	top, bottom := shiftInside(focusY-half, focusY+half)

	return FocusRegion{
		Rect:   Rect{Left: left, Top: top, Right: right, Bottom: bottom},
		Weight: MaxMeteringWeight,
	}
}

func shiftInside(low, high int) (int, int) {
	switch {
	case low < -NormalizedExtent:
		low = -NormalizedExtent
		high = low + focusAreaSize
	case high > NormalizedExtent:
		high = NormalizedExtent
		low = high - focusAreaSize
	}
	return low, high
}

// NormalizedRegionToSensorRect maps a normalized rectangle onto the active
// array. Every edge ends up inside [origin, origin+extent].
func NormalizedRegionToSensorRect(active Rect, region Rect) Rect {
	left := toSensor(active.Left, active.Width(), region.Left)
	right := toSensor(active.Left, active.Width(), region.Right)
	top := toSensor(active.Top, active.Height(), region.Top)
	bottom := toSensor(active.Top, active.Height(), region.Bottom)

	left = clamp(left, active.Left, active.Right)
	right = clamp(right, active.Left, active.Right)
	top = clamp(top, active.Top, active.Bottom)
	bottom = clamp(bottom, active.Top, active.Bottom)

	if right < left {
		right = left
	}
	if bottom < top {
		bottom = top
	}
	return Rect{Left: left, Top: top, Right: right, Bottom: bottom}
}

func toSensor(origin, extent, normalized int) int {
	f := float64(normalized+NormalizedExtent) / (2 * NormalizedExtent)
	return int(float64(origin) + f*float64(extent-1))
}

func clamp(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
