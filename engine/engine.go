package engine

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-ibl/engine/device"
	"github.com/Carmen-Shannon/oxy-ibl/engine/ibl"
	"github.com/Carmen-Shannon/oxy-ibl/engine/loader"
	"github.com/Carmen-Shannon/oxy-ibl/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ibl/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ibl/engine/scene"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
)

// ErrQuit is returned by Run when Quit interrupts the frame loop.
var ErrQuit = errors.New("engine: quit")

// engine implements the Engine interface.
// Coordinates the precompute, the scenes and the headless frame loop.
type engine struct {
	mu sync.Mutex

	dev      device.Device
	loader   loader.Loader
	compiler shader.VariantCompiler
	profiler *profiler.StageProfiler

	profilingEnabled bool
	ownsDevice       bool

	scenes         map[int]scene.Scene
	renderCallback func(key int, frame scene.Frame)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	shaderPath    string
	shaderModTime time.Time

	quitChannel chan struct{}
	quitOnce    sync.Once
}

// Engine is the main entry point. It runs the environment precompute, owns the scenes
// whose materials consume the result, and drives their frames.
type Engine interface {
	// Device returns the device passes are submitted to.
	Device() device.Device

	// Loader returns the asset loader.
	Loader() loader.Loader

	// Compiler returns the material variant compiler.
	Compiler() shader.VariantCompiler

	// Profiler returns the stage profiler the precompute records into.
	Profiler() *profiler.StageProfiler

	// Precompute loads the configured source and runs the pipeline. A cubemap container
	// source skips projection.
	//
	// Parameters:
	//   - cfg: the precompute settings
	//
	// Returns:
	//   - *ibl.Environment: the result
	//   - error: a *common.AssetLoadError for the source, or the failing stage
	Precompute(cfg ibl.Config) (*ibl.Environment, error)

	// Export writes the environment next to path: the source cubemap at path, the
	// irradiance and specular cubemaps with _irradiance and _specular suffixes, and the BRDF
	// LUT as a Radiance file with a _brdf suffix.
	//
	// Parameters:
	//   - env: the environment
	//   - path: the source container path
	//
	// Returns:
	//   - []string: the files written
	//   - error: the first write failure
	Export(env *ibl.Environment, path string) ([]string, error)

	// AddScene registers a scene at the given z-index key.
	// Scenes are resolved in ascending key order during the frame loop.
	//
	// Parameters:
	//   - key: the z-index determining frame order (lower first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// SetRenderCallback registers the function receiving every resolved frame.
	//
	// Parameters:
	//   - callback: called per scene per frame on the frame loop goroutine
	SetRenderCallback(callback func(key int, frame scene.Frame))

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the frame loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Reload recompiles every material's variant from new source. Materials whose
	// recompile fails keep their current program.
	//
	// Parameters:
	//   - source: the new program text
	//
	// Returns:
	//   - int: the number of materials rebound
	Reload(source string) int

	// Run resolves frames for every scene until frames have been produced (0 runs until
	// Quit). A watched shader file is polled before each frame and reloaded when modified.
	//
	// Parameters:
	//   - frames: the number of frames, 0 for no limit
	//
	// Returns:
	//   - error: the first frame error, or ErrQuit when interrupted
	Run(frames int) error

	// Quit stops the frame loop. Safe to call multiple times.
	Quit()

	// Release stops every scene, the compiler and, if the engine created it, the device.
	Release()
}

// NewEngine creates a new Engine instance with the provided options.
// A software device, a loader and a validating variant compiler are created unless given.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		scenes:      make(map[int]scene.Scene),
		quitChannel: make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.dev == nil {
		e.dev = device.NewSoftwareDevice()
		e.ownsDevice = true
	}
	if e.loader == nil {
		e.loader = loader.NewLoader()
	}
	if e.compiler == nil {
		e.compiler = shader.NewVariantCompiler()
	}
	if e.profiler == nil {
		e.profiler = profiler.NewStageProfiler(!e.profilingEnabled)
	}
	if e.shaderPath != "" {
		if fi, err := os.Stat(e.shaderPath); err == nil {
			e.shaderModTime = fi.ModTime()
		}
	}
	return e
}

func (e *engine) Device() device.Device {
	return e.dev
}

func (e *engine) Loader() loader.Loader {
	return e.loader
}

func (e *engine) Compiler() shader.VariantCompiler {
	return e.compiler
}

func (e *engine) Profiler() *profiler.StageProfiler {
	return e.profiler
}

func (e *engine) Precompute(cfg ibl.Config) (*ibl.Environment, error) {
	cfg = cfg.WithDefaults()
	p := ibl.NewPipeline(e.dev, ibl.WithConfig(cfg), ibl.WithProfiler(e.profiler))

	if cfg.Cubemap != "" {
		cube, err := e.loader.LoadCubemap(cfg.Cubemap)
		if err != nil {
			return nil, err
		}
		return p.RunFromCubemap(cube)
	}
	pano, err := e.loader.LoadPanorama(cfg.Panorama)
	if err != nil {
		return nil, err
	}
	return p.Run(pano)
}

func (e *engine) Export(env *ibl.Environment, path string) ([]string, error) {
	if env == nil {
		return nil, errors.New("engine: nothing to export")
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	written := make([]string, 0, 4)

	for _, out := range []struct {
		path string
		cube *texture.Cubemap
	}{
		{path, env.Source},
		{stem + "_irradiance" + ext, env.Irradiance},
		{stem + "_specular" + ext, env.Specular},
	} {
		if err := e.loader.SaveCubemap(out.path, out.cube); err != nil {
			return written, err
		}
		written = append(written, out.path)
	}

	if env.BRDF != nil {
		brdfPath := stem + "_brdf.hdr"
		f, err := os.Create(brdfPath)
		if err != nil {
			return written, fmt.Errorf("engine: %w", err)
		}
		if err := loader.WriteHDR(f, env.BRDF); err != nil {
			f.Close()
			return written, fmt.Errorf("engine: %s: %w", brdfPath, err)
		}
		if err := f.Close(); err != nil {
			return written, fmt.Errorf("engine: %s: %w", brdfPath, err)
		}
		written = append(written, brdfPath)
	}
	log.Printf("[Engine] Exported %d files", len(written))
	return written, nil
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[int]scene.Scene, len(e.scenes))
	for k, s := range e.scenes {
		out[k] = s
	}
	return out
}

func (e *engine) SetRenderCallback(callback func(key int, frame scene.Frame)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) Reload(source string) int {
	rebound := 0
	for _, key := range e.sortedKeys() {
		s := e.Scene(key)
		if s == nil {
			continue
		}
		for _, m := range s.Materials() {
			p, err := e.compiler.Recompile(m.Program().Key(), source)
			if err != nil {
				// the compiler already logged the diagnostic; the old program stays bound
				continue
			}
			m.SetProgram(p)
			rebound++
		}
	}
	log.Printf("[Engine] Reloaded %d materials", rebound)
	return rebound
}

func (e *engine) Run(frames int) error {
	for n := 0; frames <= 0 || n < frames; n++ {
		start := time.Now()
		select {
		case <-e.quitChannel:
			return ErrQuit
		default:
		}

		e.pollShader()

		e.mu.Lock()
		callback := e.renderCallback
		limit := e.renderFrameLimit
		e.mu.Unlock()

		for _, key := range e.sortedKeys() {
			s := e.Scene(key)
			if s == nil {
				continue
			}
			frame, err := s.Frame()
			if err != nil {
				return fmt.Errorf("engine: scene %d: %w", key, err)
			}
			if callback != nil {
				callback(key, frame)
			}
		}

		if limit > 0 {
			if wait := limit - time.Since(start); wait > 0 {
				select {
				case <-e.quitChannel:
					return ErrQuit
				case <-time.After(wait):
				}
			}
		}
	}
	return nil
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Release() {
	e.Quit()
	for _, s := range e.Scenes() {
		s.Release()
	}
	e.compiler.Release()
	if e.ownsDevice {
		e.dev.Release()
	}
}

// sortedKeys returns the scene keys in ascending order.
func (e *engine) sortedKeys() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// pollShader reloads the watched shader file when its modification time changes.
func (e *engine) pollShader() {
	if e.shaderPath == "" {
		return
	}
	fi, err := os.Stat(e.shaderPath)
	if err != nil || !fi.ModTime().After(e.shaderModTime) {
		return
	}
	e.shaderModTime = fi.ModTime()
	source, err := os.ReadFile(e.shaderPath)
	if err != nil {
		log.Printf("[Engine] Reading %s: %v", e.shaderPath, err)
		return
	}
	log.Printf("[Engine] %s changed, reloading", e.shaderPath)
	e.Reload(string(source))
}
