package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
	"github.com/chewxy/math32"
)

// hdrLoaderBackend decodes Radiance RGBE (.hdr) images: flat and new-style run-length
// encoded scanlines in the standard -Y H +X W orientation.
type hdrLoaderBackend struct{}

var _ loaderBackend = &hdrLoaderBackend{}

// newHDRLoaderBackend creates a Radiance HDR backend.
func newHDRLoaderBackend() loaderBackend {
	return &hdrLoaderBackend{}
}

var errHDRScanline = errors.New("corrupt scanline")

// Decoded panoramas are bounded before any buffer is sized from the header.
const (
	maxHDRDimension = 1 << 15
	maxHDRTexels    = 1 << 27
)

func (b *hdrLoaderBackend) Decode(r io.Reader) (*texture.Image, error) {
	br := bufio.NewReader(r)
	width, height, err := readHDRHeader(br)
	if err != nil {
		return nil, err
	}

	img := texture.NewImage(width, height)
	scan := make([]byte, width*4)
	for y := range height {
		if err := readHDRScanline(br, scan, width); err != nil {
			return nil, fmt.Errorf("hdr: row %d: %w", y, err)
		}
		for x := range width {
			img.Set(x, y, rgbeToFloat(scan[x*4:x*4+4]))
		}
	}
	return img, nil
}

// readHDRHeader consumes the header lines, the blank separator and the resolution line.
func readHDRHeader(br *bufio.Reader) (int, int, error) {
	magic, err := br.ReadString('\n')
	if err != nil {
		return 0, 0, fmt.Errorf("hdr: reading magic: %w", err)
	}
	magic = strings.TrimSpace(magic)
	if magic != "#?RADIANCE" && magic != "#?RGBE" {
		return 0, 0, fmt.Errorf("hdr: bad magic %q", magic)
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return 0, 0, fmt.Errorf("hdr: unterminated header: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if format, ok := strings.CutPrefix(line, "FORMAT="); ok && format != "32-bit_rle_rgbe" {
			return 0, 0, fmt.Errorf("hdr: unsupported format %q", format)
		}
	}

	res, err := br.ReadString('\n')
	if err != nil {
		return 0, 0, fmt.Errorf("hdr: reading resolution: %w", err)
	}
	var width, height int
	if _, err := fmt.Sscanf(strings.TrimSpace(res), "-Y %d +X %d", &height, &width); err != nil {
		return 0, 0, fmt.Errorf("hdr: unsupported resolution line %q", strings.TrimSpace(res))
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("hdr: invalid size %dx%d", width, height)
	}
	if width > maxHDRDimension || height > maxHDRDimension || width*height > maxHDRTexels {
		return 0, 0, fmt.Errorf("hdr: size %dx%d exceeds the limit of %d per axis and %d texels", width, height, maxHDRDimension, maxHDRTexels)
	}
	return width, height, nil
}

// readHDRScanline fills scan with width RGBE texels, detecting new-style RLE by its
// 2, 2, hi(width), lo(width) marker.
func readHDRScanline(br *bufio.Reader, scan []byte, width int) error {
	if _, err := io.ReadFull(br, scan[:4]); err != nil {
		return err
	}
	rle := width >= 8 && width < 0x8000 &&
		scan[0] == 2 && scan[1] == 2 && scan[2]&0x80 == 0 &&
		int(scan[2])<<8|int(scan[3]) == width
	if !rle {
		_, err := io.ReadFull(br, scan[4:])
		return err
	}

	// channels are stored planar, each as a sequence of runs and literal dumps
	for c := range 4 {
		for x := 0; x < width; {
			count, err := br.ReadByte()
			if err != nil {
				return err
			}
			if count > 128 {
				n := int(count) - 128
				if x+n > width {
					return errHDRScanline
				}
				v, err := br.ReadByte()
				if err != nil {
					return err
				}
				for range n {
					scan[x*4+c] = v
					x++
				}
				continue
			}
			n := int(count)
			if n == 0 || x+n > width {
				return errHDRScanline
			}
			for range n {
				v, err := br.ReadByte()
				if err != nil {
					return err
				}
				scan[x*4+c] = v
				x++
			}
		}
	}
	return nil
}

// rgbeToFloat expands a shared-exponent texel: channel · 2^(e−136).
func rgbeToFloat(p []byte) [4]float32 {
	if p[3] == 0 {
		return [4]float32{0, 0, 0, 1}
	}
	f := math32.Ldexp(1, int(p[3])-136)
	return [4]float32{float32(p[0]) * f, float32(p[1]) * f, float32(p[2]) * f, 1}
}

// floatToRGBE packs a linear colour into a shared-exponent texel.
func floatToRGBE(c [4]float32) [4]byte {
	v := max(c[0], c[1], c[2])
	if v < 1e-32 {
		return [4]byte{}
	}
	frac, exp := math32.Frexp(v)
	scale := frac * 256 / v
	return [4]byte{byte(c[0] * scale), byte(c[1] * scale), byte(c[2] * scale), byte(exp + 128)}
}

// WriteHDR encodes img as a Radiance RGBE file with flat scanlines.
//
// Parameters:
//   - w: the destination
//   - img: the image to encode
//
// Returns:
//   - error: any write error
func WriteHDR(w io.Writer, img *texture.Image) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y %d +X %d\n", img.Height, img.Width); err != nil {
		return err
	}
	for y := range img.Height {
		for x := range img.Width {
			p := floatToRGBE(img.At(x, y))
			if _, err := bw.Write(p[:]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
