package streamconfig

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilbercode/stillcam/internal/geometry"
	"github.com/bilbercode/stillcam/internal/hal"
)

func sizes(pairs ...int) []geometry.Size {
	var out []geometry.Size
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, geometry.Size{Width: pairs[i], Height: pairs[i+1]})
	}
	return out
}

var fourByThree = geometry.Size{Width: 4, Height: 3}

func TestChooseOptimalSizeBoundExcludesTallCandidate(t *testing.T) {
	choices := sizes(4000, 3000, 1920, 1440, 640, 480)

	// 1920x1440 is dropped by the 1080 height bound, so only 640x480 is left
	// and it is too small for the view.
	got := ChooseOptimalSize(choices, 1080, 720, 1920, 1080, fourByThree)
	assert.Equal(t, geometry.Size{Width: 640, Height: 480}, got)

	// a view that 640x480 covers makes it the big-enough pick
	got = ChooseOptimalSize(choices, 600, 400, 1920, 1080, fourByThree)
	assert.Equal(t, geometry.Size{Width: 640, Height: 480}, got)
}

func TestChooseOptimalSizePrefersSmallestSufficient(t *testing.T) {
	choices := sizes(4000, 3000, 1440, 1080, 960, 720, 640, 480)

	got := ChooseOptimalSize(choices, 1000, 700, 1920, 1080, fourByThree)
	assert.Equal(t, geometry.Size{Width: 1440, Height: 1080}, got)

	got = ChooseOptimalSize(choices, 900, 600, 1920, 1080, fourByThree)
	assert.Equal(t, geometry.Size{Width: 960, Height: 720}, got)
}

func TestChooseOptimalSizeFallsBackToLargestTooSmall(t *testing.T) {
	choices := sizes(320, 240, 960, 720, 640, 480)

	got := ChooseOptimalSize(choices, 1920, 1080, 1920, 1080, fourByThree)
	assert.Equal(t, geometry.Size{Width: 960, Height: 720}, got)
}

func TestChooseOptimalSizeFallsBackToFirstChoice(t *testing.T) {
	choices := sizes(1920, 1080, 1280, 720)

	got := ChooseOptimalSize(choices, 640, 480, 1920, 1080, fourByThree)
	assert.Equal(t, geometry.Size{Width: 1920, Height: 1080}, got)

	assert.Equal(t, geometry.Size{}, ChooseOptimalSize(nil, 640, 480, 1920, 1080, fourByThree))
	assert.Equal(t, geometry.Size{Width: 1920, Height: 1080}, ChooseOptimalSize(choices, 1, 1, 1920, 1080, geometry.Size{}))
}

func TestStillSize(t *testing.T) {
	jpeg := sizes(1280, 960, 4000, 3000, 640, 480, 3264, 2448)

	got, err := StillSize(jpeg, 0)
	require.NoError(t, err)
	assert.Equal(t, geometry.Size{Width: 4000, Height: 3000}, got)

	got, err = StillSize(jpeg, 2)
	require.NoError(t, err)
	assert.Equal(t, geometry.Size{Width: 1280, Height: 960}, got)

	got, err = StillSize(jpeg, 9)
	assert.True(t, errors.Is(err, hal.ErrConfiguration))
	assert.Equal(t, geometry.Size{Width: 4000, Height: 3000}, got)

	_, err = StillSize(nil, 0)
	assert.True(t, errors.Is(err, hal.ErrConfiguration))
}

func TestSelectSwapsDimensionsForRotatedSensor(t *testing.T) {
	chars := &hal.Characteristics{
		SensorOrientation: 90,
		JPEGSizes:         sizes(4000, 3000, 1280, 960),
		PreviewSizes:      sizes(1920, 1440, 1440, 1080, 1280, 960, 960, 720, 640, 480),
	}

	// portrait view 1080x1440 becomes 1440x1080 in sensor terms
	cfg, err := Select(chars, 0, geometry.Size{Width: 1080, Height: 1440},
		geometry.Size{Width: 1080, Height: 2340}, DefaultMaxPreview)
	require.NoError(t, err)
	assert.Equal(t, geometry.Size{Width: 4000, Height: 3000}, cfg.Still)
	assert.Equal(t, geometry.Size{Width: 1440, Height: 1080}, cfg.Preview)
}

func TestSelectUnrotatedSensor(t *testing.T) {
	chars := &hal.Characteristics{
		SensorOrientation: 0,
		JPEGSizes:         sizes(4000, 3000),
		PreviewSizes:      sizes(1920, 1440, 1440, 1080, 1280, 960, 960, 720, 640, 480),
	}

	cfg, err := Select(chars, 0, geometry.Size{Width: 1200, Height: 900},
		geometry.Size{Width: 1280, Height: 1024}, DefaultMaxPreview)
	require.NoError(t, err)
	assert.Equal(t, geometry.Size{Width: 1280, Height: 960}, cfg.Preview)
}

func TestSelectReportsFallback(t *testing.T) {
	chars := &hal.Characteristics{
		JPEGSizes:    sizes(4000, 3000),
		PreviewSizes: sizes(640, 480),
	}

	cfg, err := Select(chars, 5, geometry.Size{Width: 640, Height: 480},
		geometry.Size{Width: 1920, Height: 1080}, DefaultMaxPreview)
	assert.True(t, errors.Is(err, hal.ErrConfiguration))
	assert.Equal(t, geometry.Size{Width: 4000, Height: 3000}, cfg.Still)
	assert.Equal(t, geometry.Size{Width: 640, Height: 480}, cfg.Preview)
}
