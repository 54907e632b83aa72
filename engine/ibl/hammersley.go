// Package ibl implements the image-based-lighting precompute: projecting an equirectangular
// panorama onto a cubemap, building its box-filtered mip chain, and deriving the diffuse
// irradiance cubemap, the GGX-prefiltered specular cubemap and the split-sum BRDF LUT.
// Every per-texel stage is expressed as a device pass.
package ibl

import (
	"fmt"
	"math/bits"
	"sync"

	"github.com/Carmen-Shannon/oxy-ibl/common"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
)

// SamplePointSet is an immutable set of low-discrepancy points in [0,1)².
type SamplePointSet struct {
	xs []float32
	ys []float32
}

// Hammersley generates n points of the Hammersley sequence: x_i = i/n and y_i is the bit
// reversal of i over bits.Len(n-1) bits, divided by 2^bits. For n a power of two this is
// the radical inverse in base 2. For other n the reversal runs over the bits of the next
// power of two, which keeps every point distinct and inside [0,1) but is not the exact
// radical inverse.
//
// Parameters:
//   - n: the number of points, must be positive
//
// Returns:
//   - *SamplePointSet: the points
//   - error: if n is not positive
func Hammersley(n int) (*SamplePointSet, error) {
	if n <= 0 {
		return nil, fmt.Errorf("ibl: sample count must be positive, got %d", n)
	}
	width := bits.Len(uint(n - 1))
	scale := float32(uint64(1) << width)

	s := &SamplePointSet{
		xs: make([]float32, n),
		ys: make([]float32, n),
	}
	for i := range n {
		s.xs[i] = float32(i) / float32(n)
		if width > 0 {
			s.ys[i] = float32(bits.Reverse64(uint64(i))>>(64-width)) / scale
		}
	}
	return s, nil
}

// Len returns the number of points.
func (s *SamplePointSet) Len() int {
	return len(s.xs)
}

// Exact reports whether the y coordinates are the exact base-2 radical inverse, which holds
// when Len is a power of two.
func (s *SamplePointSet) Exact() bool {
	return common.IsPowerOfTwo(len(s.xs))
}

// At returns point i.
func (s *SamplePointSet) At(i int) (float32, float32) {
	return s.xs[i], s.ys[i]
}

// Table returns the points as a flat x, y table.
//
// Returns:
//   - []float32: 2·Len() values
func (s *SamplePointSet) Table() []float32 {
	out := make([]float32, 0, 2*len(s.xs))
	for i := range s.xs {
		out = append(out, s.xs[i], s.ys[i])
	}
	return out
}

// Image returns the points as an n×1 texture with x in R and y in G, the layout materials
// sample the set from.
//
// Returns:
//   - *texture.Image: the texture
func (s *SamplePointSet) Image() *texture.Image {
	img := texture.NewImage(len(s.xs), 1)
	for i := range s.xs {
		img.Set(i, 0, [4]float32{s.xs[i], s.ys[i], 0, 1})
	}
	return img
}

// GPU returns the points packed for a storage buffer binding.
//
// Returns:
//   - *GPUSamplePointSet: the packed set
func (s *SamplePointSet) GPU() *GPUSamplePointSet {
	g := &GPUSamplePointSet{
		Count:  uint32(len(s.xs)),
		Points: make([][4]float32, len(s.xs)),
	}
	for i := range s.xs {
		g.Points[i] = [4]float32{s.xs[i], s.ys[i], 0, 0}
	}
	return g
}

// samplePointCache memoizes sample sets by count for the lifetime of one pipeline run.
type samplePointCache struct {
	mu   sync.Mutex
	sets map[int]*SamplePointSet
}

func newSamplePointCache() *samplePointCache {
	return &samplePointCache{sets: make(map[int]*SamplePointSet)}
}

// get returns the cached set for n, generating it on first use.
func (c *samplePointCache) get(n int) (*SamplePointSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sets[n]; ok {
		return s, nil
	}
	s, err := Hammersley(n)
	if err != nil {
		return nil, err
	}
	c.sets[n] = s
	return s, nil
}
