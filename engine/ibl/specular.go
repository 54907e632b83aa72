package ibl

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ibl/common"
	"github.com/Carmen-Shannon/oxy-ibl/engine/device"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// degenerateWeight is the total N·L weight below which a texel falls back to the plain
// average of its samples.
const degenerateWeight = 1e-6

// Roughness returns the roughness prefiltered into mip m of an M-level specular cubemap:
// m/(M−1), or 0 when M is 1.
func Roughness(m, levels int) float32 {
	if levels <= 1 {
		return 0
	}
	return float32(m) / float32(levels-1)
}

// PrefilterSpecular computes the GGX-prefiltered specular cubemap. Mip m holds roughness
// m/(M−1) at side max(1, size>>m). Mip 0 copies the source level of the same size (or the
// nearest finer one through trilinear sampling). Every other texel assumes N = V = R, turns
// each sample point into a GGX half vector, reflects V about it and accumulates the source
// radiance along L weighted by N·L, sampled at a level of detail chosen from the sample pdf
// against the source texel solid angle. A texel whose total weight vanishes takes the
// unweighted average of all sampled radiance instead.
//
// Parameters:
//   - dev: the device that executes the passes
//   - src: the source cubemap with its mip chain
//   - size: the level 0 face size; non-positive uses the source level 0 size
//   - levels: the number of mips M, must be positive
//   - points: the sample points
//
// Returns:
//   - *texture.Cubemap: the M-level specular cubemap
//   - error: if arguments are invalid or a pass fails
func PrefilterSpecular(dev device.Device, src *texture.Cubemap, size, levels int, points *SamplePointSet) (*texture.Cubemap, error) {
	if levels <= 0 {
		return nil, fmt.Errorf("ibl: specular level count must be positive, got %d", levels)
	}
	if points == nil || points.Len() == 0 {
		return nil, fmt.Errorf("ibl: specular prefilter needs sample points")
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = src.Size(0)
	}

	out := texture.NewCubemap("Specular", size, levels)
	baseLod := math32.Log2(float32(src.Size(0)) / float32(size))
	if baseLod < 0 {
		return nil, &common.ResourceMismatchError{Resource: src.Label, Detail: fmt.Sprintf("specular size %d exceeds source size %d", size, src.Size(0))}
	}

	for m := range levels {
		var kernel device.Kernel
		if m == 0 {
			kernel = copyKernel(src, size, baseLod)
		} else {
			kernel = ggxKernel(src, out.Size(m), Roughness(m, levels), points)
		}
		err := dev.SubmitCube(device.CubePass{
			Label:  fmt.Sprintf("Prefilter Specular level %d", m),
			Target: out,
			Level:  m,
			Kernel: kernel,
		})
		if err != nil {
			return nil, fmt.Errorf("ibl: specular level %d failed: %w", m, err)
		}
	}
	return out, nil
}

// copyKernel reads the source texel at the same position when a source level of the
// destination size exists, and samples trilinearly otherwise.
func copyKernel(src *texture.Cubemap, size int, lod float32) device.Kernel {
	for level := range src.Levels() {
		if src.Size(level) == size {
			return func(f texture.Face, x, y int) [4]float32 {
				return src.Face(f, level).At(x, y)
			}
		}
	}
	return func(f texture.Face, x, y int) [4]float32 {
		return src.SampleLod(texture.TexelDirection(f, x, y, size), lod)
	}
}

func ggxKernel(src *texture.Cubemap, size int, roughness float32, points *SamplePointSet) device.Kernel {
	alpha := roughness * roughness
	n := float32(points.Len())
	texelSA := src.TexelSolidAngle(0)

	return func(f texture.Face, x, y int) [4]float32 {
		normal := texture.TexelDirection(f, x, y, size)
		view := normal
		t, b := tangentFrame(normal)

		var weighted, plain [4]float32
		var total float32
		for i := range points.Len() {
			px, py := points.At(i)
			local, nDotH := ggxSample(px, py, alpha)
			h := toWorld(local, t, b, normal)
			l := reflectAbout(view, h)
			nDotL := normal.Dot(l)

			// with N = V the pdf reduces to D(N·H)/4
			pdf := ggxD(nDotH, alpha) / 4
			sampleSA := 1 / (n*pdf + 1e-4)
			lod := max(0, 0.5*math32.Log2(sampleSA/texelSA))
			radiance := src.SampleLod(safeDirection(l, normal), lod)

			for c := range plain {
				plain[c] += radiance[c]
			}
			if nDotL > 0 {
				for c := range weighted {
					weighted[c] += radiance[c] * nDotL
				}
				total += nDotL
			}
		}

		if total < degenerateWeight {
			for c := range plain {
				plain[c] /= n
			}
			return plain
		}
		for c := range weighted {
			weighted[c] /= total
		}
		return weighted
	}
}

// safeDirection replaces a vanishing direction with fallback so cube lookups never divide by zero.
func safeDirection(d, fallback mgl32.Vec3) mgl32.Vec3 {
	if d.Dot(d) < 1e-12 {
		return fallback
	}
	return d
}
