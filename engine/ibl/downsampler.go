package ibl

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ibl/common"
	"github.com/Carmen-Shannon/oxy-ibl/engine/device"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
)

// Downsample writes level src+1 of cube from level src. Each destination texel is the plain
// mean of the 2×2 source block below it, per face and per channel; neighbouring faces are
// never read, so seams are only approximately continuous. Level src+1 is appended if the
// cube does not have it yet. Odd source sizes clamp the block to the face edge.
//
// Parameters:
//   - dev: the device that executes the pass
//   - cube: the cubemap, modified in place
//   - src: the source level
//
// Returns:
//   - error: if src is out of range or already 1×1, or the pass fails
func Downsample(dev device.Device, cube *texture.Cubemap, src int) error {
	if src < 0 || src >= cube.Levels() {
		return &common.ResourceMismatchError{Resource: cube.Label, Level: src, Detail: fmt.Sprintf("source level outside [0,%d)", cube.Levels())}
	}
	srcSize := cube.Size(src)
	if srcSize <= 1 {
		return &common.ResourceMismatchError{Resource: cube.Label, Level: src, Detail: "cannot downsample a 1x1 level"}
	}
	if cube.Levels() == src+1 {
		cube.AddLevel()
	}

	return dev.SubmitCube(device.CubePass{
		Label:  fmt.Sprintf("Downsample %s level %d", cube.Label, src),
		Target: cube,
		Level:  src + 1,
		Kernel: func(f texture.Face, x, y int) [4]float32 {
			img := cube.Face(f, src)
			x0, y0 := 2*x, 2*y
			x1, y1 := min(x0+1, srcSize-1), min(y0+1, srcSize-1)
			a, b, c, d := img.At(x0, y0), img.At(x1, y0), img.At(x0, y1), img.At(x1, y1)
			var out [4]float32
			for i := range out {
				out[i] = (a[i] + b[i] + c[i] + d[i]) * 0.25
			}
			return out
		},
	})
}

// BuildMipChain applies Downsample steps times in strict order starting from the cube's
// last level, stopping early once a 1×1 level is reached.
//
// Parameters:
//   - dev: the device that executes the passes
//   - cube: the cubemap, modified in place
//   - steps: the number of levels to add
//
// Returns:
//   - int: the number of levels added
//   - error: if a pass fails
func BuildMipChain(dev device.Device, cube *texture.Cubemap, steps int) (int, error) {
	added := 0
	for range steps {
		last := cube.Levels() - 1
		if cube.Size(last) <= 1 {
			break
		}
		if err := Downsample(dev, cube, last); err != nil {
			return added, fmt.Errorf("ibl: mip chain step %d: %w", added+1, err)
		}
		added++
	}
	return added, nil
}
