package photo

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilbercode/stillcam/internal/camera"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

// halves encodes a 64x32 JPEG, red on the left and blue on the right.
func halves(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			if x < 32 {
				img.Set(x, y, red)
			} else {
				img.Set(x, y, blue)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}))
	return buf.Bytes()
}

func isRed(c color.Color) bool {
	r, _, b, _ := c.RGBA()
	return r > b
}

func decode(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	return img
}

func TestProcessWritesTarget(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	target := filepath.Join(t.TempDir(), "still.jpg")
	data := halves(t)

	require.NoError(t, w.Process(context.Background(), &camera.Photo{Data: data, Target: target}))
	written, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, data, written)
}

func TestProcessDefaultsToTimestampedFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	w.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC) }

	require.NoError(t, w.Process(context.Background(), &camera.Photo{Data: halves(t)}))
	_, err = os.Stat(filepath.Join(dir, "IMG_20240501_123045.000.jpg"))
	assert.NoError(t, err)
}

func TestProcessRotatesClockwise(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	target := filepath.Join(dir, "rotated.jpg")

	require.NoError(t, w.Process(context.Background(), &camera.Photo{
		Data: halves(t), Target: target, JPEGOrientation: 90,
	}))
	img := decode(t, target)
	assert.Equal(t, image.Rect(0, 0, 32, 64), img.Bounds())
	assert.True(t, isRed(img.At(16, 8)))
	assert.False(t, isRed(img.At(16, 56)))
}

func TestProcessMirrorsFrontCamera(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	target := filepath.Join(dir, "front.jpg")

	require.NoError(t, w.Process(context.Background(), &camera.Photo{
		Data: halves(t), Target: target, Front: true, JPEGOrientation: 90, Rotation: 270,
	}))
	img := decode(t, target)
	assert.Equal(t, image.Rect(0, 0, 64, 32), img.Bounds())
	assert.False(t, isRed(img.At(8, 16)))
	assert.True(t, isRed(img.At(56, 16)))
}

func TestProcessRejectsCorruptStill(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	err = w.Process(context.Background(), &camera.Photo{Data: []byte("nope"), JPEGOrientation: 90})
	assert.Error(t, err)
}

func TestProcessHonoursCancellation(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Process(ctx, &camera.Photo{Data: halves(t)}), context.Canceled)
}
