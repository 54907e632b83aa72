package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-ibl/engine/device"
	"github.com/Carmen-Shannon/oxy-ibl/engine/loader"
	"github.com/Carmen-Shannon/oxy-ibl/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ibl/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ibl/engine/scene"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables per-stage profiling output.
//
// Parameters:
//   - enabled: if true, every precompute stage logs its timing
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithDevice sets the device passes are submitted to. The caller keeps ownership and must
// release it.
//
// Parameters:
//   - dev: the device
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDevice(dev device.Device) EngineBuilderOption {
	return func(e *engine) {
		e.dev = dev
	}
}

// WithLoader sets the asset loader, for example one with pre-populated caches.
//
// Parameters:
//   - l: the loader
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLoader(l loader.Loader) EngineBuilderOption {
	return func(e *engine) {
		e.loader = l
	}
}

// WithCompiler sets the material variant compiler, for example one backed by WebGPU.
//
// Parameters:
//   - c: the compiler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCompiler(c shader.VariantCompiler) EngineBuilderOption {
	return func(e *engine) {
		e.compiler = c
	}
}

// WithProfiler sets the stage profiler the precompute records into.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.StageProfiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithScene registers a scene at the given z-index key during engine construction.
//
// Parameters:
//   - key: the z-index determining frame order (lower first)
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}

// WithRenderFrameLimit sets an optional frame rate cap in frames per second.
// Pass 0 to uncap the frame loop (default).
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}

// WithShaderWatch makes Run poll a shader file and reload every material when it changes.
//
// Parameters:
//   - path: the WGSL file
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithShaderWatch(path string) EngineBuilderOption {
	return func(e *engine) {
		e.shaderPath = path
	}
}
