package simulator

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/bilbercode/stillcam/internal/geometry"
	"github.com/bilbercode/stillcam/internal/hal"
)

const checkerSize = 250

// renderStill draws the part of a synthetic scene that crop selects from the
// active array, labels it and encodes it as JPEG.
func renderStill(size geometry.Size, crop geometry.Rect, chars *hal.Characteristics, frame int64) ([]byte, error) {
	if size.IsZero() {
		return nil, fmt.Errorf("%w: empty still size", hal.ErrConfiguration)
	}
	active := chars.ActiveArray
	if crop.IsEmpty() {
		crop = active
	}

	img := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	for y := 0; y < size.Height; y++ {
		sy := crop.Top + y*crop.Height()/size.Height
		for x := 0; x < size.Width; x++ {
			sx := crop.Left + x*crop.Width()/size.Width
			i := img.PixOffset(x, y)
			shade := uint8(255 * (sx - active.Left) / max(active.Width(), 1))
			if ((sx-active.Left)/checkerSize+(sy-active.Top)/checkerSize)%2 == 0 {
				img.Pix[i], img.Pix[i+1], img.Pix[i+2] = shade, 96, 255-shade
			} else {
				img.Pix[i], img.Pix[i+1], img.Pix[i+2] = 255-shade, 192, shade
			}
			img.Pix[i+3] = 255
		}
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 255, G: 255, A: 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(10), Y: fixed.I(20)},
	}
	d.DrawString(fmt.Sprintf("camera %s frame %d crop %d,%d %dx%d",
		chars.ID, frame, crop.Left, crop.Top, crop.Width(), crop.Height()))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode still: %w", err)
	}
	return buf.Bytes(), nil
}
