package ibl

import (
	"fmt"
	"log"

	"github.com/Carmen-Shannon/oxy-ibl/engine/device"
	"github.com/Carmen-Shannon/oxy-ibl/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	dev      device.Device
	cfg      Config
	profiler *profiler.StageProfiler
}

// Pipeline runs the precompute stages strictly in order on the calling goroutine. Each stage
// is one or more blocking device passes, and a failing stage aborts the run.
type Pipeline interface {
	// Run projects a panorama onto a cubemap and derives the full Environment from it.
	//
	// Parameters:
	//   - panorama: the equirectangular source
	//
	// Returns:
	//   - *Environment: the precomputed environment
	//   - error: the first stage failure
	Run(panorama *texture.Image) (*Environment, error)

	// RunFromCubemap derives the Environment from an already projected cubemap, such as a
	// loaded container. Projection is skipped and any levels the cubemap already carries are
	// kept; the mip chain is only extended up to the configured number of steps.
	//
	// Parameters:
	//   - cube: the source cubemap; it becomes Environment.Source and may gain levels
	//
	// Returns:
	//   - *Environment: the precomputed environment
	//   - error: the first stage failure
	RunFromCubemap(cube *texture.Cubemap) (*Environment, error)

	// Config returns the effective settings.
	//
	// Returns:
	//   - Config: the settings with defaults applied
	Config() Config

	// Profiler returns the stage profiler the pipeline records into.
	//
	// Returns:
	//   - *profiler.StageProfiler: the profiler
	Profiler() *profiler.StageProfiler
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a Pipeline that executes its passes on dev.
// Panics if dev is nil.
//
// Parameters:
//   - dev: the device passes are submitted to
//   - options: functional options to configure the pipeline
//
// Returns:
//   - Pipeline: the pipeline
func NewPipeline(dev device.Device, options ...PipelineBuilderOption) Pipeline {
	if dev == nil {
		panic("ibl: NewPipeline requires a device")
	}
	p := &pipeline{dev: dev}
	for _, opt := range options {
		opt(p)
	}
	p.cfg = p.cfg.WithDefaults()
	if p.profiler == nil {
		p.profiler = profiler.NewStageProfiler(false)
	}
	return p
}

func (p *pipeline) Config() Config {
	return p.cfg
}

func (p *pipeline) Profiler() *profiler.StageProfiler {
	return p.profiler
}

func (p *pipeline) Run(panorama *texture.Image) (*Environment, error) {
	var cube *texture.Cubemap
	err := p.profiler.Stage("project", func() error {
		var err error
		cube, err = ProjectPanorama(p.dev, panorama, p.cfg.Size)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p.derive(cube, p.cfg.MipSteps)
}

func (p *pipeline) RunFromCubemap(cube *texture.Cubemap) (*Environment, error) {
	if cube == nil {
		return nil, fmt.Errorf("ibl: nil cubemap")
	}
	if err := cube.Validate(); err != nil {
		return nil, err
	}
	log.Printf("[Pipeline] Using prefiltered cubemap %q (%dx%d, %d levels)", cube.Label, cube.Size(0), cube.Size(0), cube.Levels())
	return p.derive(cube, max(0, p.cfg.MipSteps-(cube.Levels()-1)))
}

// derive runs every stage after projection.
func (p *pipeline) derive(cube *texture.Cubemap, steps int) (*Environment, error) {
	samples := newSamplePointCache()
	env := &Environment{Source: cube}

	stages := []struct {
		name string
		run  func() error
	}{
		{"hammersley", func() error {
			var err error
			if env.DiffuseSamples, err = samples.get(p.cfg.DiffuseSamples); err != nil {
				return err
			}
			env.SpecularSamples, err = samples.get(p.cfg.SpecularSamples)
			return err
		}},
		{"downsample", func() error {
			_, err := BuildMipChain(p.dev, cube, steps)
			return err
		}},
		{"diffuse", func() error {
			var err error
			env.Irradiance, err = ConvolveDiffuse(p.dev, cube, cube.Levels()-1, 0, env.DiffuseSamples)
			return err
		}},
		{"specular", func() error {
			var err error
			env.Specular, err = PrefilterSpecular(p.dev, cube, cube.Size(0), p.cfg.SpecularLevels, env.SpecularSamples)
			return err
		}},
		{"brdf", func() error {
			points, err := samples.get(p.cfg.BRDFSamples)
			if err != nil {
				return err
			}
			env.BRDF, err = IntegrateBRDF(p.dev, p.cfg.BRDFSize, points)
			return err
		}},
	}

	for _, s := range stages {
		if err := p.profiler.Stage(s.name, s.run); err != nil {
			return nil, fmt.Errorf("ibl: stage %s: %w", s.name, err)
		}
	}
	log.Printf("[Pipeline] Environment ready: source %d levels, irradiance %dx%d, specular %d levels, BRDF %dx%d in %s",
		env.Source.Levels(), env.Irradiance.Size(0), env.Irradiance.Size(0), env.Specular.Levels(), env.BRDF.Width, env.BRDF.Height, p.profiler.Total())
	return env, nil
}
