package ibl

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ibl/engine/device"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// smithSchlickG1 is the Schlick approximation of Smith's masking term with k = α/2.
func smithSchlickG1(nDotX, k float32) float32 {
	return nDotX / (nDotX*(1-k) + k)
}

// IntegrateBRDF computes the split-sum BRDF integration LUT. Column x holds N·V and row y
// holds roughness, both sampled at texel centres. Each texel is the GGX/Smith-Schlick
// specular response to a white environment split into a scale (R) and a bias (G) of F0.
//
// Parameters:
//   - dev: the device that executes the pass
//   - size: the LUT side length
//   - points: the sample points
//
// Returns:
//   - *texture.Image: the size×size LUT with (scale, bias, 0, 1) texels
//   - error: if size is not positive, points is empty, or the pass fails
func IntegrateBRDF(dev device.Device, size int, points *SamplePointSet) (*texture.Image, error) {
	if size <= 0 {
		return nil, fmt.Errorf("ibl: BRDF LUT size must be positive, got %d", size)
	}
	if points == nil || points.Len() == 0 {
		return nil, fmt.Errorf("ibl: BRDF integration needs sample points")
	}

	lut := texture.NewImage(size, size)
	n := float32(points.Len())
	err := dev.SubmitImage(device.ImagePass{
		Label:  "Integrate BRDF",
		Target: lut,
		Kernel: func(x, y int) [4]float32 {
			nDotV := (float32(x) + 0.5) / float32(size)
			roughness := (float32(y) + 0.5) / float32(size)
			scale, bias := integrateBRDFTexel(nDotV, roughness, points, n)
			return [4]float32{scale, bias, 0, 1}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ibl: BRDF integration failed: %w", err)
	}
	return lut, nil
}

func integrateBRDFTexel(nDotV, roughness float32, points *SamplePointSet, n float32) (float32, float32) {
	alpha := roughness * roughness
	k := alpha / 2
	view := mgl32.Vec3{math32.Sqrt(1 - nDotV*nDotV), 0, nDotV}

	var a, b float32
	for i := range points.Len() {
		px, py := points.At(i)
		h, nDotH := ggxSample(px, py, alpha)
		l := reflectAbout(view, h)
		nDotL := l.Z()
		if nDotL <= 0 {
			continue
		}
		vDotH := max(view.Dot(h), 0)
		g := smithSchlickG1(nDotV, k) * smithSchlickG1(nDotL, k)
		gVis := g * vDotH / (nDotH * nDotV)
		fc := math32.Pow(1-vDotH, 5)
		a += (1 - fc) * gVis
		b += fc * gVis
	}
	return a / n, b / n
}
