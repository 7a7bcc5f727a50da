// Package streamconfig picks the preview and still stream sizes for a device.
package streamconfig

import (
	"fmt"
	"sort"

	"github.com/bilbercode/stillcam/internal/geometry"
	"github.com/bilbercode/stillcam/internal/hal"
)

// DefaultMaxPreview is the largest preview stream the pipeline asks for.
var DefaultMaxPreview = geometry.Size{Width: 1920, Height: 1080}

type Config struct {
	Preview geometry.Size
	Still   geometry.Size
}

// StillSize returns the JPEG size at index once sizes are ordered by area,
// largest first. An out of range index falls back to the largest size.
func StillSize(sizes []geometry.Size, index int) (geometry.Size, error) {
	if len(sizes) == 0 {
		return geometry.Size{}, fmt.Errorf("%w: device reports no JPEG sizes", hal.ErrConfiguration)
	}
	sorted := append([]geometry.Size(nil), sizes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Area() > sorted[j].Area()
	})
	if index < 0 || index >= len(sorted) {
		return sorted[0], fmt.Errorf("%w: resolution index %d out of range [0,%d)", hal.ErrConfiguration, index, len(sorted))
	}
	return sorted[index], nil
}

// ChooseOptimalSize picks the smallest candidate with the aspect ratio of
// aspect that covers the view and fits inside max. Without one it picks the
// largest matching candidate, and without any match the first choice.
func ChooseOptimalSize(choices []geometry.Size, viewWidth, viewHeight, maxWidth, maxHeight int, aspect geometry.Size) geometry.Size {
	if len(choices) == 0 {
		return geometry.Size{}
	}
	if aspect.Width == 0 {
		return choices[0]
	}

	var bigEnough, notBigEnough []geometry.Size
	for _, option := range choices {
		if option.Width > maxWidth || option.Height > maxHeight {
			continue
		}
		if option.Height != option.Width*aspect.Height/aspect.Width {
			continue
		}
		if option.Width >= viewWidth && option.Height >= viewHeight {
			bigEnough = append(bigEnough, option)
		} else {
			notBigEnough = append(notBigEnough, option)
		}
	}

	switch {
	case len(bigEnough) > 0:
		best := bigEnough[0]
		for _, s := range bigEnough[1:] {
			if s.Area() < best.Area() {
				best = s
			}
		}
		return best
	case len(notBigEnough) > 0:
		best := notBigEnough[0]
		for _, s := range notBigEnough[1:] {
			if s.Area() > best.Area() {
				best = s
			}
		}
		return best
	default:
		return choices[0]
	}
}

// Select derives the stream configuration for a freshly opened device. The
// returned Config is always usable; a non-nil error describes the fallback
// that produced it.
func Select(chars *hal.Characteristics, resolutionIndex int, view, display, maxPreview geometry.Size) (Config, error) {
	still, err := StillSize(chars.JPEGSizes, resolutionIndex)

	viewWidth, viewHeight := view.Width, view.Height
	maxWidth, maxHeight := display.Width, display.Height
	if chars.SensorOrientation == 90 || chars.SensorOrientation == 270 {
		viewWidth, viewHeight = viewHeight, viewWidth
		maxWidth, maxHeight = maxHeight, maxWidth
	}
	if maxWidth > maxPreview.Width {
		maxWidth = maxPreview.Width
	}
	if maxHeight > maxPreview.Height {
		maxHeight = maxPreview.Height
	}

	preview := ChooseOptimalSize(chars.PreviewSizes, viewWidth, viewHeight, maxWidth, maxHeight, still)
	if preview.IsZero() && err == nil {
		err = fmt.Errorf("%w: device reports no preview sizes", hal.ErrConfiguration)
	}

	return Config{Preview: preview, Still: still}, err
}
