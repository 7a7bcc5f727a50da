package geometry

import "math"

// FingerSpacing returns the distance between two pointers. Only ever compared
// against the spacing of the previous gesture frame.
func FingerSpacing(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// ComputeZoomRegion moves level one step in the direction of delta and returns
// the centered crop for the new level. Crop margins are rounded down to a
// multiple of 4 to satisfy the hardware alignment.
func ComputeZoomRegion(level int, delta float64, active Rect, maxZoom float64) (int, Rect) {
	if level < 1 {
		level = 1
	}
	if maxZoom < 1 {
		return 1, active
	}
	if float64(level) > maxZoom {
		level = int(maxZoom)
	}

	switch {
	case delta > 0 && maxZoom > float64(level):
		level++
	case delta < 0 && level > 1:
		level--
	}

	cropWidth := cropMargin(active.Width(), maxZoom, level)
	cropHeight := cropMargin(active.Height(), maxZoom, level)

	return level, Rect{
		Left:   active.Left + cropWidth,
		Top:    active.Top + cropHeight,
		Right:  active.Right - cropWidth,
		Bottom: active.Bottom - cropHeight,
	}
}

func cropMargin(extent int, maxZoom float64, level int) int {
	dim := float64(extent)
	diff := dim - dim/maxZoom
	crop := int(diff / 100 * float64(level))
	crop -= crop & 3

	// never crop past the minimum zoomed extent
	limit := int(diff / 2)
	limit -= limit & 3
	if crop > limit {
		crop = limit
	}
	if crop < 0 {
		crop = 0
	}
	return crop
}
