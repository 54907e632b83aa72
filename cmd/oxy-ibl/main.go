// Command oxy-ibl precomputes image-based lighting for an environment panorama or cubemap
// container, writes the results as containers and resolves a grid of PBR material variants
// against them.
//
//	oxy-ibl -config cfg.json [-out env.oxyc] [-gpu] [-frames n] [-shader pbr.wgsl] [-profile]
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/Carmen-Shannon/oxy-ibl/common"
	"github.com/Carmen-Shannon/oxy-ibl/engine"
	"github.com/Carmen-Shannon/oxy-ibl/engine/device"
	"github.com/Carmen-Shannon/oxy-ibl/engine/ibl"
	"github.com/Carmen-Shannon/oxy-ibl/engine/loader"
	"github.com/Carmen-Shannon/oxy-ibl/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ibl/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

func main() {
	configPath := flag.String("config", "", "JSON config file (required)")
	outPath := flag.String("out", "", "environment container path, overrides the config's output")
	useGPU := flag.Bool("gpu", false, "compile materials and upload textures through WebGPU")
	frames := flag.Int("frames", 1, "frames to resolve, 0 runs until interrupted")
	shaderPath := flag.String("shader", "", "WGSL material source to use and watch instead of the built-in PBR program")
	profile := flag.Bool("profile", false, "log per-stage timings")
	flag.Parse()

	if *configPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*configPath, *outPath, *shaderPath, *useGPU, *frames, *profile); err != nil {
		log.Fatalf("[oxy-ibl] %v", err)
	}
}

func run(configPath, outPath, shaderPath string, useGPU bool, frames int, profile bool) error {
	cfg, err := ibl.LoadConfig(configPath)
	if err != nil {
		return err
	}
	sceneCfg, err := scene.LoadConfig(configPath)
	if err != nil {
		return err
	}

	source := shader.PBRSource
	if shaderPath != "" {
		data, err := os.ReadFile(shaderPath)
		if err != nil {
			return &common.AssetLoadError{Path: shaderPath, Err: err}
		}
		source = string(data)
	}

	var gpu *device.WGPUBackend
	compilerOpts := []shader.VariantCompilerBuilderOption{}
	if useGPU {
		gpu, err = device.NewWGPUBackend(false)
		if err != nil {
			return err
		}
		defer gpu.Release()
		compilerOpts = append(compilerOpts, shader.WithBackend(gpu))
	}

	dev := device.NewSoftwareDevice(device.WithWorkers(cfg.Workers))
	defer dev.Release()

	engineOpts := []engine.EngineBuilderOption{
		engine.WithDevice(dev),
		engine.WithCompiler(shader.NewVariantCompiler(compilerOpts...)),
		engine.WithProfiling(profile),
	}
	if shaderPath != "" {
		engineOpts = append(engineOpts, engine.WithShaderWatch(shaderPath))
	}
	e := engine.NewEngine(engineOpts...)
	defer e.Release()

	env, err := e.Precompute(cfg)
	if err != nil {
		return err
	}
	written, err := e.Export(env, common.Coalesce(outPath, cfg.Output, "environment.oxyc"))
	if err != nil {
		return err
	}
	for _, p := range written {
		log.Printf("[oxy-ibl] wrote %s", p)
	}

	s, err := scene.Build(sceneCfg, e.Compiler(), shader.PBRBase, source, scene.WithEnvironment(env))
	if err != nil {
		return err
	}
	e.AddScene(0, s)

	sphere, err := loader.Sphere(32, 64)
	if err != nil {
		return err
	}

	var uploader *gpuFrameUploader
	if gpu != nil {
		uploader, err = newGPUFrameUploader(gpu, env, sphere)
		if err != nil {
			return err
		}
		defer uploader.Release()
	}

	e.SetRenderCallback(func(key int, f scene.Frame) {
		textures := 0
		for _, d := range f.Draws {
			textures += len(d.Snapshot.Textures)
			if uploader != nil {
				uploader.write(s, d)
			}
		}
		log.Printf("[oxy-ibl] scene %d frame %d: %d materials, %d texture bindings, %d indices per draw",
			key, f.Index, len(f.Draws), textures, len(sphere.Indices))
	})

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)
	go func() {
		if _, ok := <-interrupt; ok {
			e.Quit()
		}
	}()

	if err := e.Run(frames); err != nil && !errors.Is(err, engine.ErrQuit) {
		return err
	}
	return nil
}

// gpuFrameUploader keeps the environment textures, the sphere mesh and every material's
// uniform blocks resident on the GPU and rewrites the blocks every frame.
type gpuFrameUploader struct {
	gpu       *device.WGPUBackend
	textures  []*device.GPUTexture
	mesh      *device.GPUMesh
	materials map[string]device.MaterialBindings
	layouts   map[string]*pipelineLayout
}

type pipelineLayout struct {
	layout *wgpu.PipelineLayout
	groups []*wgpu.BindGroupLayout
}

func newGPUFrameUploader(gpu *device.WGPUBackend, env *ibl.Environment, sphere *common.MeshData) (*gpuFrameUploader, error) {
	u := &gpuFrameUploader{
		gpu:       gpu,
		materials: make(map[string]device.MaterialBindings),
		layouts:   make(map[string]*pipelineLayout),
	}
	empty := common.SamplerStagingData{}
	if err := u.keep("specular")(gpu.UploadCubemap(env.Specular, empty)); err != nil {
		return nil, err
	}
	if err := u.keep("irradiance")(gpu.UploadCubemap(env.Irradiance, empty)); err != nil {
		return nil, err
	}
	if err := u.keep("brdf")(gpu.UploadImage("BRDF", env.BRDF, empty)); err != nil {
		return nil, err
	}
	if err := u.keep("samples")(gpu.UploadImage("Hammersley", env.SpecularSamples.Image(), empty)); err != nil {
		return nil, err
	}

	mesh, err := gpu.UploadMesh("Sphere", sphere)
	if err != nil {
		u.Release()
		return nil, err
	}
	u.mesh = mesh
	log.Printf("[oxy-ibl] uploaded %d textures and a %d-index sphere", len(u.textures), mesh.IndexCount)
	return u, nil
}

// keep returns a function that records an uploaded texture, or releases everything uploaded
// so far when the upload failed.
func (u *gpuFrameUploader) keep(name string) func(*device.GPUTexture, error) error {
	return func(t *device.GPUTexture, err error) error {
		if err != nil {
			u.Release()
			return fmt.Errorf("uploading %s: %w", name, err)
		}
		u.textures = append(u.textures, t)
		return nil
	}
}

// write creates or rewrites the uniform blocks of one draw, creating the pipeline layout of
// its program variant on first use.
func (u *gpuFrameUploader) write(s scene.Scene, d scene.Draw) {
	key := d.Snapshot.Key.String()
	if _, ok := u.layouts[key]; !ok {
		if m := s.Material(d.Snapshot.Material); m != nil {
			layout, groups, err := u.gpu.CreatePipelineLayout(m.Program())
			if err != nil {
				log.Printf("[oxy-ibl] %v", err)
			} else {
				u.layouts[key] = &pipelineLayout{layout: layout, groups: groups}
				log.Printf("[oxy-ibl] created pipeline layout %s with %d bind groups", key, len(groups))
			}
		}
	}

	b, ok := u.materials[d.Snapshot.Material]
	if !ok {
		b = device.NewMaterialBindings(d.Snapshot.Material, u.gpu)
		u.materials[d.Snapshot.Material] = b
	}
	if err := b.Write(d.Snapshot); err != nil {
		log.Printf("[oxy-ibl] material %s: %v", d.Snapshot.Material, err)
	}
}

func (u *gpuFrameUploader) Release() {
	for _, t := range u.textures {
		t.Release()
	}
	if u.mesh != nil {
		u.mesh.Release()
	}
	for _, b := range u.materials {
		b.Release()
	}
	for _, l := range u.layouts {
		l.layout.Release()
		for _, g := range l.groups {
			g.Release()
		}
	}
}
