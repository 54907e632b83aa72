package ibl

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ibl/engine/device"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// EquirectUV maps a unit direction to panorama coordinates: longitude atan2(z, x) spans
// u in [0,1] from -π to π, latitude asin(y) spans v in [0,1] from +π/2 (row 0) to -π/2.
//
// Parameters:
//   - dir: a unit direction
//
// Returns:
//   - float32: u
//   - float32: v
func EquirectUV(dir mgl32.Vec3) (float32, float32) {
	lon := math32.Atan2(dir.Z(), dir.X())
	lat := math32.Asin(max(-1, min(1, dir.Y())))
	return lon/(2*math32.Pi) + 0.5, 0.5 - lat/math32.Pi
}

// EquirectDirection is the inverse of EquirectUV.
//
// Parameters:
//   - u: the horizontal panorama coordinate
//   - v: the vertical panorama coordinate
//
// Returns:
//   - mgl32.Vec3: the unit direction
func EquirectDirection(u, v float32) mgl32.Vec3 {
	lon := (u - 0.5) * 2 * math32.Pi
	lat := (0.5 - v) * math32.Pi
	cl := math32.Cos(lat)
	return mgl32.Vec3{cl * math32.Cos(lon), math32.Sin(lat), cl * math32.Sin(lon)}
}

// ProjectPanorama resamples an equirectangular panorama onto a single-level cubemap. Each
// destination texel centre is mapped to a direction through its face basis and the panorama
// is sampled bilinearly, wrapping in longitude and clamping in latitude.
//
// Parameters:
//   - dev: the device that executes the pass
//   - panorama: the source panorama
//   - size: the cube face side length
//
// Returns:
//   - *texture.Cubemap: the projected cubemap with one level
//   - error: if size is not positive or the pass fails
func ProjectPanorama(dev device.Device, panorama *texture.Image, size int) (*texture.Cubemap, error) {
	if size <= 0 {
		return nil, fmt.Errorf("ibl: cube size must be positive, got %d", size)
	}
	if panorama == nil || panorama.Width <= 0 || panorama.Height <= 0 {
		return nil, fmt.Errorf("ibl: empty panorama")
	}

	cube := texture.NewCubemap("Environment", size, 1)
	err := dev.SubmitCube(device.CubePass{
		Label:  "Project Panorama",
		Target: cube,
		Level:  0,
		Kernel: func(f texture.Face, x, y int) [4]float32 {
			u, v := EquirectUV(texture.TexelDirection(f, x, y, size))
			return panorama.Bilinear(u, v, true)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ibl: projection failed: %w", err)
	}
	return cube, nil
}
