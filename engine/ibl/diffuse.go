package ibl

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ibl/common"
	"github.com/Carmen-Shannon/oxy-ibl/engine/device"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
	"github.com/chewxy/math32"
)

// ConvolveDiffuse computes the diffuse irradiance cubemap from one level of src. For each
// destination texel normal N, every sample point becomes a cosine-weighted direction in the
// hemisphere around N and the result is Σ L·cosθ·Δω / Σ cosθ·Δω with Δω = 1/(n·pdf) and
// pdf = cosθ/π, so a constant environment is reproduced exactly.
//
// Parameters:
//   - dev: the device that executes the pass
//   - src: the source cubemap
//   - srcLevel: the level sampled, normally the coarsest of the mip chain
//   - size: the output face size; non-positive uses the size of srcLevel
//   - points: the sample points
//
// Returns:
//   - *texture.Cubemap: the single-level irradiance cubemap
//   - error: if srcLevel is out of range, points is empty, or the pass fails
func ConvolveDiffuse(dev device.Device, src *texture.Cubemap, srcLevel, size int, points *SamplePointSet) (*texture.Cubemap, error) {
	if srcLevel < 0 || srcLevel >= src.Levels() {
		return nil, &common.ResourceMismatchError{Resource: src.Label, Level: srcLevel, Detail: "diffuse source level out of range"}
	}
	if points == nil || points.Len() == 0 {
		return nil, fmt.Errorf("ibl: diffuse convolution needs sample points")
	}
	if size <= 0 {
		size = src.Size(srcLevel)
	}

	n := float32(points.Len())
	out := texture.NewCubemap("Irradiance", size, 1)
	err := dev.SubmitCube(device.CubePass{
		Label:  "Convolve Diffuse",
		Target: out,
		Level:  0,
		Kernel: func(f texture.Face, x, y int) [4]float32 {
			normal := texture.TexelDirection(f, x, y, size)
			t, b := tangentFrame(normal)

			var sum [4]float32
			var total float32
			for i := range points.Len() {
				px, py := points.At(i)
				local, cosTheta := cosineSample(px, py)
				if cosTheta <= 1e-6 {
					continue
				}
				pdf := cosTheta / math32.Pi
				w := cosTheta / (n * pdf)
				l := src.Sample(toWorld(local, t, b, normal), srcLevel)
				for c := range sum {
					sum[c] += l[c] * w
				}
				total += w
			}
			if total <= 0 {
				return [4]float32{}
			}
			for c := range sum {
				sum[c] /= total
			}
			return sum
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ibl: diffuse convolution failed: %w", err)
	}
	return out, nil
}
