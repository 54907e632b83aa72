// Package texture holds the CPU-side float images the IBL precompute reads and writes:
// 2D images (panoramas, lookup tables) and cubemaps with a mip chain per face.
package texture

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Channels is the number of float32 values stored per pixel (RGBA).
const Channels = 4

// Image is a 2D linear floating-point RGBA image stored row-major, top row first.
type Image struct {
	Width  int
	Height int
	// Pix holds Width*Height*Channels values.
	Pix []float32
}

// NewImage allocates a zeroed image of the given dimensions.
// Panics if either dimension is not positive.
//
// Parameters:
//   - width: the image width in pixels
//   - height: the image height in pixels
//
// Returns:
//   - *Image: the new image
func NewImage(width, height int) *Image {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("texture: invalid image size %dx%d", width, height))
	}
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]float32, width*height*Channels),
	}
}

// NewImageFromPixels wraps an existing RGBA pixel slice.
//
// Parameters:
//   - width: the image width in pixels
//   - height: the image height in pixels
//   - pix: RGBA pixel data, len(pix) must equal width*height*4
//
// Returns:
//   - *Image: the image referencing pix
//   - error: if the slice length does not match the dimensions
func NewImageFromPixels(width, height int, pix []float32) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("texture: invalid image size %dx%d", width, height)
	}
	if len(pix) != width*height*Channels {
		return nil, fmt.Errorf("texture: %dx%d image needs %d values, got %d", width, height, width*height*Channels, len(pix))
	}
	return &Image{Width: width, Height: height, Pix: pix}, nil
}

// At returns the pixel at (x, y). Coordinates must be in bounds.
func (img *Image) At(x, y int) [4]float32 {
	i := (y*img.Width + x) * Channels
	return [4]float32{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
}

// Set writes the pixel at (x, y). Coordinates must be in bounds.
func (img *Image) Set(x, y int, c [4]float32) {
	i := (y*img.Width + x) * Channels
	copy(img.Pix[i:i+Channels], c[:])
}

// Fill sets every pixel to c.
func (img *Image) Fill(c [4]float32) {
	for i := 0; i < len(img.Pix); i += Channels {
		copy(img.Pix[i:i+Channels], c[:])
	}
}

// Clone returns a deep copy of the image.
func (img *Image) Clone() *Image {
	pix := make([]float32, len(img.Pix))
	copy(pix, img.Pix)
	return &Image{Width: img.Width, Height: img.Height, Pix: pix}
}

// Bilinear samples the image at normalized coordinates (u, v) with texel centres at
// ((x+0.5)/W, (y+0.5)/H). Vertical addressing always clamps to the edge. Horizontal
// addressing wraps when wrapU is set and clamps otherwise.
//
// Parameters:
//   - u: horizontal coordinate, 0 = left edge, 1 = right edge
//   - v: vertical coordinate, 0 = top edge, 1 = bottom edge
//   - wrapU: whether the horizontal axis is periodic
//
// Returns:
//   - [4]float32: the filtered RGBA value
func (img *Image) Bilinear(u, v float32, wrapU bool) [4]float32 {
	fx := u*float32(img.Width) - 0.5
	fy := v*float32(img.Height) - 0.5
	x0f := math32.Floor(fx)
	y0f := math32.Floor(fy)
	tx := fx - x0f
	ty := fy - y0f

	x0, y0 := int(x0f), int(y0f)
	x1, y1 := x0+1, y0+1

	if wrapU {
		x0 = wrap(x0, img.Width)
		x1 = wrap(x1, img.Width)
	} else {
		x0 = clampIndex(x0, img.Width)
		x1 = clampIndex(x1, img.Width)
	}
	y0 = clampIndex(y0, img.Height)
	y1 = clampIndex(y1, img.Height)

	c00 := img.At(x0, y0)
	c10 := img.At(x1, y0)
	c01 := img.At(x0, y1)
	c11 := img.At(x1, y1)

	var out [4]float32
	for c := range Channels {
		top := c00[c]*(1-tx) + c10[c]*tx
		bottom := c01[c]*(1-tx) + c11[c]*tx
		out[c] = top*(1-ty) + bottom*ty
	}
	return out
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
