package engine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-ibl/engine/device"
	"github.com/Carmen-Shannon/oxy-ibl/engine/ibl"
	"github.com/Carmen-Shannon/oxy-ibl/engine/loader"
	"github.com/Carmen-Shannon/oxy-ibl/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ibl/engine/scene"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
)

func smallConfig() ibl.Config {
	return ibl.Config{
		Panorama:        "sky.hdr",
		Size:            8,
		MipSteps:        2,
		DiffuseSamples:  16,
		SpecularSamples: 16,
		SpecularLevels:  3,
		BRDFSize:        8,
		BRDFSamples:     16,
	}
}

func newTestEngine(t *testing.T, options ...EngineBuilderOption) Engine {
	t.Helper()
	pano := texture.NewImage(8, 4)
	pano.Fill([4]float32{0.5, 0.5, 0.5, 1})
	opts := append([]EngineBuilderOption{
		WithDevice(device.NewSoftwareDevice(device.WithWorkers(2))),
		WithLoader(loader.NewLoader(loader.WithPanorama("sky.hdr", pano))),
	}, options...)
	e := NewEngine(opts...)
	t.Cleanup(func() {
		e.Release()
		e.Device().Release()
	})
	return e
}

func TestPrecomputeAndExport(t *testing.T) {
	e := newTestEngine(t)
	env, err := e.Precompute(smallConfig())
	if err != nil {
		t.Fatalf("Precompute: %v", err)
	}
	if env.SpecularLevels() != 3 || env.Source.Levels() != 3 {
		t.Fatalf("specular levels %d, source levels %d", env.SpecularLevels(), env.Source.Levels())
	}

	out := filepath.Join(t.TempDir(), "env.oxyc")
	written, err := e.Export(env, out)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(written) != 4 {
		t.Fatalf("wrote %v, want 4 files", written)
	}
	for _, p := range written {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s: %v", p, err)
		}
	}

	back, err := loader.NewLoader().LoadCubemap(strings.TrimSuffix(out, ".oxyc") + "_specular.oxyc")
	if err != nil {
		t.Fatalf("LoadCubemap: %v", err)
	}
	if back.Levels() != 3 {
		t.Errorf("specular container has %d levels, want 3", back.Levels())
	}
}

func TestPrecomputeMissingSource(t *testing.T) {
	e := newTestEngine(t)
	cfg := smallConfig()
	cfg.Panorama = filepath.Join(t.TempDir(), "missing.hdr")
	if _, err := e.Precompute(cfg); err == nil {
		t.Fatal("Precompute succeeded without a source")
	}
}

func buildScene(t *testing.T, e Engine) scene.Scene {
	t.Helper()
	s, err := scene.Build(scene.Config{}, e.Compiler(), shader.PBRBase, shader.PBRSource, scene.WithWorkers(2))
	if err != nil {
		t.Fatalf("scene.Build: %v", err)
	}
	return s
}

func TestRunResolvesFramesInKeyOrder(t *testing.T) {
	e := newTestEngine(t)
	env, err := e.Precompute(smallConfig())
	if err != nil {
		t.Fatalf("Precompute: %v", err)
	}
	back, front := buildScene(t, e), buildScene(t, e)
	for _, s := range []scene.Scene{back, front} {
		if err := s.SetEnvironment(env); err != nil {
			t.Fatalf("SetEnvironment: %v", err)
		}
	}
	e.AddScene(2, front)
	e.AddScene(1, back)

	var order []int
	e.SetRenderCallback(func(key int, f scene.Frame) {
		order = append(order, key)
		if len(f.Draws) != 12 {
			t.Errorf("scene %d frame %d has %d draws, want 12", key, f.Index, len(f.Draws))
		}
	})
	if err := e.Run(3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []int{1, 2, 1, 2, 1, 2}
	if len(order) != len(want) {
		t.Fatalf("callback order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("callback order %v, want %v", order, want)
		}
	}
}

func TestRunAfterQuit(t *testing.T) {
	e := newTestEngine(t)
	e.Quit()
	e.Quit()
	if err := e.Run(0); !errors.Is(err, ErrQuit) {
		t.Fatalf("Run error = %v, want ErrQuit", err)
	}
}

func TestReloadKeepsProgramsOnFailure(t *testing.T) {
	e := newTestEngine(t)
	s := buildScene(t, e)
	e.AddScene(0, s)
	before := s.Material("PBR").Program()

	if n := e.Reload("fn broken( {"); n != 0 {
		t.Errorf("broken reload rebound %d materials", n)
	}
	if s.Material("PBR").Program() != before {
		t.Error("failed reload replaced the program")
	}

	if n := e.Reload(shader.PBRSource + "\n// tweaked\n"); n != 12 {
		t.Errorf("reload rebound %d materials, want 12", n)
	}
	if !strings.Contains(s.Material("PBR").Program().Source(), "// tweaked") {
		t.Error("reload did not bind the new source")
	}
}

func TestRunReloadsWatchedShader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pbr.wgsl")
	if err := os.WriteFile(path, []byte(shader.PBRSource), 0o644); err != nil {
		t.Fatal(err)
	}
	e := newTestEngine(t, WithShaderWatch(path))
	s := buildScene(t, e)
	e.AddScene(0, s)

	if err := os.WriteFile(path, []byte(shader.PBRSource+"\n// watched\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	if err := e.Run(1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(s.Material("Normals").Program().Source(), "// watched") {
		t.Error("watched shader change was not reloaded")
	}
}
