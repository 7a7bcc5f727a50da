// Package photo writes finished stills to disk.
package photo

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/bilbercode/stillcam/internal/camera"
)

type Writer struct {
	dir string
	now func() time.Time
}

func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create photo folder %s: %w", dir, err)
	}
	return &Writer{dir: dir, now: time.Now}, nil
}

// Process rotates the still upright, mirrors front camera shots and writes it
// to the photo target, or a timestamped file when no target was set.
func (w *Writer) Process(ctx context.Context, photo *camera.Photo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := photo.Data
	degrees := (photo.JPEGOrientation + photo.Rotation) % 360
	if degrees != 0 || photo.Front {
		transformed, err := transform(data, degrees, photo.Front)
		if err != nil {
			return err
		}
		data = transformed
	}

	target := photo.Target
	if target == "" {
		target = filepath.Join(w.dir, w.now().Format("IMG_20060102_150405.000")+".jpg")
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return fmt.Errorf("failed to write photo %s: %w", target, err)
	}

	log.WithFields(log.Fields{
		"path":     target,
		"size":     humanize.Bytes(uint64(len(data))),
		"rotation": degrees,
		"intent":   photo.ImageCaptureIntent,
	}).Info("photo saved")
	return nil
}

// transform rotates the JPEG clockwise by degrees, a multiple of 90, and
// mirrors it horizontally when mirror is set.
func transform(data []byte, degrees int, mirror bool) ([]byte, error) {
	src, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode still: %w", err)
	}
	b := src.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	var m f64.Aff3
	dw, dh := b.Dx(), b.Dy()
	switch degrees {
	case 90:
		m = f64.Aff3{0, -1, h, 1, 0, 0}
		dw, dh = dh, dw
	case 180:
		m = f64.Aff3{-1, 0, w, 0, -1, h}
	case 270:
		m = f64.Aff3{0, 1, 0, -1, 0, w}
		dw, dh = dh, dw
	default:
		m = f64.Aff3{1, 0, 0, 0, 1, 0}
	}
	// the source origin may not be zero
	m[2] -= m[0]*float64(b.Min.X) + m[1]*float64(b.Min.Y)
	m[5] -= m[3]*float64(b.Min.X) + m[4]*float64(b.Min.Y)
	if mirror {
		m[0], m[1], m[2] = -m[0], -m[1], float64(dw)-m[2]
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.NearestNeighbor.Transform(dst, m, src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("failed to encode still: %w", err)
	}
	return buf.Bytes(), nil
}
