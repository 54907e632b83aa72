package ibl

import "github.com/Carmen-Shannon/oxy-ibl/engine/profiler"

// PipelineBuilderOption is a functional option for configuring a Pipeline.
type PipelineBuilderOption func(*pipeline)

// WithConfig applies every knob of cfg. Later options override it.
//
// Parameters:
//   - cfg: the settings; zero fields take defaults
//
// Returns:
//   - PipelineBuilderOption: a function that applies the config option
func WithConfig(cfg Config) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cfg = cfg
	}
}

// WithSize sets the cube face size the panorama is projected to.
//
// Parameters:
//   - size: the level 0 side length
//
// Returns:
//   - PipelineBuilderOption: a function that applies the size option
func WithSize(size int) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cfg.Size = size
	}
}

// WithMipSteps sets how many box-filter levels are built below level 0.
//
// Parameters:
//   - steps: the number of downsample steps
//
// Returns:
//   - PipelineBuilderOption: a function that applies the mip steps option
func WithMipSteps(steps int) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cfg.MipSteps = steps
	}
}

// WithDiffuseSamples sets the sample count of the diffuse convolution.
//
// Parameters:
//   - n: the number of Hammersley points
//
// Returns:
//   - PipelineBuilderOption: a function that applies the diffuse samples option
func WithDiffuseSamples(n int) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cfg.DiffuseSamples = n
	}
}

// WithSpecularSamples sets the sample count of the specular prefilter.
//
// Parameters:
//   - n: the number of Hammersley points
//
// Returns:
//   - PipelineBuilderOption: a function that applies the specular samples option
func WithSpecularSamples(n int) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cfg.SpecularSamples = n
	}
}

// WithSpecularLevels sets the number of roughness levels in the specular cubemap.
//
// Parameters:
//   - levels: the mip count
//
// Returns:
//   - PipelineBuilderOption: a function that applies the specular levels option
func WithSpecularLevels(levels int) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cfg.SpecularLevels = levels
	}
}

// WithBRDF sets the BRDF LUT side length and sample count.
//
// Parameters:
//   - size: the LUT side length
//   - samples: the number of Hammersley points per texel
//
// Returns:
//   - PipelineBuilderOption: a function that applies the BRDF option
func WithBRDF(size, samples int) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cfg.BRDFSize = size
		p.cfg.BRDFSamples = samples
	}
}

// WithProfiler records stage timings into prof instead of a fresh logging profiler.
//
// Parameters:
//   - prof: the stage profiler
//
// Returns:
//   - PipelineBuilderOption: a function that applies the profiler option
func WithProfiler(prof *profiler.StageProfiler) PipelineBuilderOption {
	return func(p *pipeline) {
		p.profiler = prof
	}
}
