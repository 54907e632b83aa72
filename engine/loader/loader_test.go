package loader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-ibl/common"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func newMarkedCubemap() *texture.Cubemap {
	c := texture.NewCubemap("marked", 4, 3)
	c.Fill([4]float32{0.25, 0.5, 0.75, 1})
	for level := range c.Levels() {
		for _, f := range texture.Faces {
			c.Face(f, level).Set(0, 0, [4]float32{float32(f), float32(level), 3, 1})
		}
	}
	return c
}

func TestContainerRoundTrip(t *testing.T) {
	src := newMarkedCubemap()
	var buf bytes.Buffer
	if err := WriteCubemap(&buf, src); err != nil {
		t.Fatalf("WriteCubemap: %v", err)
	}

	got, err := ReadCubemap("copy", buf.Bytes())
	if err != nil {
		t.Fatalf("ReadCubemap: %v", err)
	}
	if got.Levels() != src.Levels() || got.Size(0) != src.Size(0) {
		t.Fatalf("got %d levels at %d, want %d at %d", got.Levels(), got.Size(0), src.Levels(), src.Size(0))
	}
	for level := range src.Levels() {
		for _, f := range texture.Faces {
			want := src.Face(f, level)
			have := got.Face(f, level)
			if have.Width != want.Width || !slicesEqual(have.Pix, want.Pix) {
				t.Fatalf("face %s level %d differs after round trip", f, level)
			}
		}
	}
}

func TestContainerRejectsDuplicateFace(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCubemap(&buf, newMarkedCubemap()); err != nil {
		t.Fatalf("WriteCubemap: %v", err)
	}
	data := buf.Bytes()
	// second entry claims face 0 of level 0, same as the first
	binary.LittleEndian.PutUint32(data[containerHeaderSize+containerEntrySize+8:], 0)

	_, err := ReadCubemap("dup", data)
	var mismatch *common.ResourceMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("ReadCubemap error = %v, want ResourceMismatchError", err)
	}
}

func TestContainerRejectsTruncation(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCubemap(&buf, newMarkedCubemap()); err != nil {
		t.Fatalf("WriteCubemap: %v", err)
	}
	data := buf.Bytes()
	for _, n := range []int{0, 3, containerHeaderSize + 5, len(data) - 1} {
		if _, err := ReadCubemap("short", data[:n]); err == nil {
			t.Errorf("ReadCubemap accepted %d of %d bytes", n, len(data))
		}
	}
}

func TestContainerRejectsOversizedEntry(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCubemap(&buf, newMarkedCubemap()); err != nil {
		t.Fatalf("WriteCubemap: %v", err)
	}
	data := bytes.Clone(buf.Bytes())
	entry := data[containerHeaderSize:]
	// 2^31 x 2^31 x 16 bytes wraps to a zero length in uint64
	binary.LittleEndian.PutUint32(entry[0:4], 1<<31)
	binary.LittleEndian.PutUint32(entry[4:8], 1<<31)
	binary.LittleEndian.PutUint64(entry[24:32], 0)

	_, err := ReadCubemap("huge", data)
	if err == nil || !strings.Contains(err.Error(), "larger than") {
		t.Fatalf("ReadCubemap error = %v, want oversized entry", err)
	}

	binary.LittleEndian.PutUint32(data[8:12], 1<<20)
	if _, err := ReadCubemap("huge", data); err == nil {
		t.Fatal("ReadCubemap accepted a 2^20 cube size")
	}
}

func TestHDRFlatScanline(t *testing.T) {
	data := []byte("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y 1 +X 2\n")
	data = append(data, 128, 128, 128, 128, 0, 0, 0, 0)

	img, err := newHDRLoaderBackend().Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Width != 2 || img.Height != 1 {
		t.Fatalf("size = %dx%d, want 2x1", img.Width, img.Height)
	}
	if got := img.At(0, 0); got != [4]float32{0.5, 0.5, 0.5, 1} {
		t.Errorf("texel 0 = %v, want 0.5 grey", got)
	}
	if got := img.At(1, 0); got != [4]float32{0, 0, 0, 1} {
		t.Errorf("texel 1 = %v, want black", got)
	}
}

func TestHDRRunLengthScanline(t *testing.T) {
	data := []byte("#?RGBE\n\n-Y 1 +X 8\n")
	data = append(data, 2, 2, 0, 8)
	// red and green as runs, blue as a literal dump, exponent as a run
	data = append(data, 128+8, 128)
	data = append(data, 128+8, 64)
	data = append(data, 8, 0, 0, 0, 0, 0, 0, 0, 0)
	data = append(data, 128+8, 129)

	img, err := newHDRLoaderBackend().Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for x := range 8 {
		if got := img.At(x, 0); got != [4]float32{1, 0.5, 0, 1} {
			t.Fatalf("texel %d = %v, want (1, 0.5, 0, 1)", x, got)
		}
	}
}

func TestHDRCorruptRunOverflows(t *testing.T) {
	data := []byte("#?RADIANCE\n\n-Y 1 +X 8\n")
	data = append(data, 2, 2, 0, 8, 128+9, 1)
	if _, err := newHDRLoaderBackend().Decode(bytes.NewReader(data)); !errors.Is(err, errHDRScanline) {
		t.Errorf("Decode error = %v, want errHDRScanline", err)
	}
}

func TestHDRWriteReadRoundTrip(t *testing.T) {
	src := texture.NewImage(3, 2)
	src.Fill([4]float32{1, 0.5, 0.25, 1})
	src.Set(2, 1, [4]float32{4, 2, 1, 1})

	var buf bytes.Buffer
	if err := WriteHDR(&buf, src); err != nil {
		t.Fatalf("WriteHDR: %v", err)
	}
	got, err := newHDRLoaderBackend().Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for y := range 2 {
		for x := range 3 {
			want, have := src.At(x, y), got.At(x, y)
			for c := range 3 {
				if !common.ApproxEqual(want[c], have[c], want[c]/64) {
					t.Fatalf("texel (%d,%d) = %v, want %v", x, y, have, want)
				}
			}
		}
	}
}

func TestLoadPanoramaMalformedHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.hdr")
	if err := os.WriteFile(path, []byte("P6\n2 2\n255\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewLoader().LoadPanorama(path)
	var loadErr *common.AssetLoadError
	if !errors.As(err, &loadErr) || loadErr.Path != path {
		t.Fatalf("LoadPanorama error = %v, want AssetLoadError for %s", err, path)
	}
}

func TestLoadPanoramaRejectsHugeHeader(t *testing.T) {
	for _, res := range []string{
		"-Y 4294967296 +X 4294967296",
		"-Y 32769 +X 16",
		"-Y 16384 +X 32768",
	} {
		data := []byte("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n" + res + "\n")
		_, err := NewLoader().LoadPanoramaReader("huge.hdr", bytes.NewReader(data))
		var loadErr *common.AssetLoadError
		if !errors.As(err, &loadErr) || !strings.Contains(err.Error(), "exceeds") {
			t.Errorf("%s: error = %v, want AssetLoadError for the size limit", res, err)
		}
	}
}

func TestLoadPanoramaUnsupportedExtension(t *testing.T) {
	_, err := NewLoader().LoadPanorama("sky.exr")
	var loadErr *common.AssetLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("LoadPanorama error = %v, want AssetLoadError", err)
	}
}

func TestLoadPanoramaPNGIsLinearized(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.NRGBA{255, 255, 255, 255})
	src.Set(1, 0, color.NRGBA{188, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	img, err := NewLoader().LoadPanoramaReader("sky.png", &buf)
	if err != nil {
		t.Fatalf("LoadPanoramaReader: %v", err)
	}
	if got := img.At(0, 0); !common.ApproxEqual(got[0], 1, 1e-4) || !common.ApproxEqual(got[3], 1, 1e-4) {
		t.Errorf("white texel = %v, want 1", got)
	}
	// sRGB 188/255 is roughly 0.5 linear
	if got := img.At(1, 0); !common.ApproxEqual(got[0], 0.5, 0.01) || got[1] != 0 {
		t.Errorf("red texel = %v, want about (0.5, 0, 0)", got)
	}
}

func TestLoaderCachesByPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sky.hdr")
	src := texture.NewImage(4, 2)
	src.Fill([4]float32{1, 1, 1, 1})
	var buf bytes.Buffer
	if err := WriteHDR(&buf, src); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader()
	first, err := l.LoadPanorama(path)
	if err != nil {
		t.Fatalf("LoadPanorama: %v", err)
	}
	second, err := l.LoadPanorama(path)
	if err != nil {
		t.Fatalf("LoadPanorama: %v", err)
	}
	if first != second {
		t.Error("second load returned a different image")
	}

	l.Evict(path)
	if l.Panorama(path) != nil {
		t.Error("Evict left the panorama cached")
	}
}

func TestSaveAndLoadCubemap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.oxyc")
	src := newMarkedCubemap()

	writer := NewLoader()
	if err := writer.SaveCubemap(path, src); err != nil {
		t.Fatalf("SaveCubemap: %v", err)
	}
	if writer.Cubemap(path) != src {
		t.Error("SaveCubemap did not cache the cubemap")
	}

	got, err := NewLoader().LoadCubemap(path)
	if err != nil {
		t.Fatalf("LoadCubemap: %v", err)
	}
	if got.Levels() != 3 || got.Face(texture.FacePositiveZ, 2).At(0, 0) != src.Face(texture.FacePositiveZ, 2).At(0, 0) {
		t.Error("loaded cubemap does not match the saved one")
	}
}

func TestWithCubemapPrepopulates(t *testing.T) {
	c := newMarkedCubemap()
	l := NewLoader(WithCubemap("env", c))
	got, err := l.LoadCubemap("env")
	if err != nil || got != c {
		t.Fatalf("LoadCubemap = %p, %v, want the pre-populated cubemap", got, err)
	}
}

func TestSphere(t *testing.T) {
	m, err := Sphere(4, 8)
	if err != nil {
		t.Fatalf("Sphere: %v", err)
	}
	verts := 5 * 9
	if len(m.Positions) != verts*3 || len(m.Normals) != verts*3 || len(m.UVs) != verts*2 {
		t.Fatalf("vertex arrays = %d/%d/%d, want %d vertices", len(m.Positions), len(m.Normals), len(m.UVs), verts)
	}
	if len(m.Indices) != 4*8*6 {
		t.Fatalf("index count = %d, want %d", len(m.Indices), 4*8*6)
	}
	for i := 0; i < len(m.Positions); i += 3 {
		p := mgl32.Vec3{m.Positions[i], m.Positions[i+1], m.Positions[i+2]}
		if math32.Abs(p.Len()-1) > 1e-5 {
			t.Fatalf("vertex %d not on the unit sphere: %v", i/3, p)
		}
	}
	for _, idx := range m.Indices {
		if int(idx) >= verts {
			t.Fatalf("index %d out of range", idx)
		}
	}

	if _, err := Sphere(1, 8); err == nil {
		t.Error("Sphere(1, 8) did not fail")
	}
}

func slicesEqual(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
