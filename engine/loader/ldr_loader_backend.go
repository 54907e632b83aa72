package loader

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/Carmen-Shannon/oxy-ibl/common"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
)

// ldrLoaderBackend decodes 8-bit PNG and JPEG panoramas, converting sRGB to linear.
type ldrLoaderBackend struct{}

var _ loaderBackend = &ldrLoaderBackend{}

// newLDRLoaderBackend creates a PNG / JPEG backend.
func newLDRLoaderBackend() loaderBackend {
	return &ldrLoaderBackend{}
}

func (b *ldrLoaderBackend) Decode(r io.Reader) (*texture.Image, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("ldr: %w", err)
	}
	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("ldr: empty %s image", format)
	}

	img := texture.NewImage(bounds.Dx(), bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := src.At(x, y).RGBA()
			img.Set(x-bounds.Min.X, y-bounds.Min.Y, [4]float32{
				common.SRGBToLinear(float32(r) / 0xffff),
				common.SRGBToLinear(float32(g) / 0xffff),
				common.SRGBToLinear(float32(b) / 0xffff),
				float32(a) / 0xffff,
			})
		}
	}
	return img, nil
}
