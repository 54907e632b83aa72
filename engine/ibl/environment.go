package ibl

import (
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
)

// Environment is the result of a precompute run. All textures are owned by the Environment;
// materials only hold weak references to them.
type Environment struct {
	// Source is the projected (or loaded) environment with its box-filtered mip chain.
	Source *texture.Cubemap
	// Irradiance is the diffuse convolution of the coarsest Source level.
	Irradiance *texture.Cubemap
	// Specular holds one roughness per mip, from 0 at level 0 to 1 at the last level.
	Specular *texture.Cubemap
	// BRDF is the split-sum integration LUT.
	BRDF *texture.Image
	// DiffuseSamples and SpecularSamples are the sample sets the convolutions used.
	DiffuseSamples  *SamplePointSet
	SpecularSamples *SamplePointSet
}

// SpecularLevels returns the number of specular mips, 0 for an empty Environment.
func (e *Environment) SpecularLevels() int {
	if e.Specular == nil {
		return 0
	}
	return e.Specular.Levels()
}
