package scene

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-ibl/engine/ibl"
	"github.com/Carmen-Shannon/oxy-ibl/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-ibl/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
)

func floatAt(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
}

func testEnvironment(t *testing.T) *ibl.Environment {
	t.Helper()
	samples, err := ibl.Hammersley(8)
	if err != nil {
		t.Fatal(err)
	}
	return &ibl.Environment{
		Source:          texture.NewCubemap("source", 4, 3),
		Irradiance:      texture.NewCubemap("irradiance", 1, 1),
		Specular:        texture.NewCubemap("specular", 4, 3),
		BRDF:            texture.NewImage(4, 4),
		DiffuseSamples:  samples,
		SpecularSamples: samples,
	}
}

func pbrMaterial(t *testing.T, c shader.VariantCompiler, name string) material.Material {
	t.Helper()
	p, err := c.Compile(shader.VariantKey{Base: shader.PBRBase}, shader.PBRSource)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return material.NewMaterial(p, material.WithName(name))
}

func TestGrid(t *testing.T) {
	cells := Grid(1280, 720, 4, 3, 0)
	if len(cells) != 12 {
		t.Fatalf("got %d cells, want 12", len(cells))
	}
	if want := (Viewport{X: 320, Y: 240, W: 320, H: 240}); cells[5] != want {
		t.Errorf("cell 5 = %+v, want %+v", cells[5], want)
	}

	inset := Grid(100, 50, 2, 1, 5)
	if want := (Viewport{X: 55, Y: 5, W: 40, H: 40}); inset[1] != want {
		t.Errorf("inset cell = %+v, want %+v", inset[1], want)
	}
	if got := cells[0].FlipY(720); got.Y != 480 {
		t.Errorf("FlipY top row Y = %d, want 480", got.Y)
	}
	if Grid(10, 10, 0, 3, 0) != nil {
		t.Error("Grid with zero columns returned cells")
	}
}

func TestAddFailsWhenGridIsFull(t *testing.T) {
	c := shader.NewVariantCompiler()
	defer c.Release()
	s := NewScene("full", WithGrid(1, 1, 0), WithWorkers(1))
	defer s.Release()

	if _, err := s.Add(pbrMaterial(t, c, "a")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add(pbrMaterial(t, c, "b")); !errors.Is(err, ErrGridFull) {
		t.Fatalf("Add error = %v, want ErrGridFull", err)
	}
}

func TestFrameResolvesEnvironmentAndCamera(t *testing.T) {
	c := shader.NewVariantCompiler()
	defer c.Release()
	env := testEnvironment(t)

	s := NewScene("env", WithWorkers(2))
	defer s.Release()
	vp, err := s.Add(pbrMaterial(t, c, "first"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if vp != s.Viewports()[0] {
		t.Errorf("first material got %+v, want the first cell", vp)
	}
	if err := s.SetEnvironment(env); err != nil {
		t.Fatalf("SetEnvironment: %v", err)
	}
	if _, err := s.Add(pbrMaterial(t, c, "second")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	frame, err := s.Frame()
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if frame.Index != 1 || len(frame.Draws) != 2 {
		t.Fatalf("frame %d with %d draws, want frame 1 with 2", frame.Index, len(frame.Draws))
	}
	for i, d := range frame.Draws {
		if len(d.Snapshot.Textures) != 4 {
			t.Errorf("draw %d binds %d textures, want 4", i, len(d.Snapshot.Textures))
		}
		if d.Viewport != s.Viewports()[i] {
			t.Errorf("draw %d viewport = %+v", i, d.Viewport)
		}
		if got := floatAt(d.Snapshot.Buffer(1, 0), 60); got != 3 {
			t.Errorf("draw %d uSpecularLevels = %v, want 3", i, got)
		}
		eye := s.Camera().Position()
		if got := floatAt(d.Snapshot.Buffer(0, 0), 128); got != eye.X() {
			t.Errorf("draw %d eye.x = %v, want %v", i, got, eye.X())
		}
	}
	if frame.Draws[0].Snapshot.Textures[0].Cubemap != env.Specular {
		t.Error("uReflectionMap does not point at the specular cubemap")
	}

	next, err := s.Frame()
	if err != nil || next.Index != 2 {
		t.Errorf("second frame = %d, %v", next.Index, err)
	}
}

func TestBuildDefaultScene(t *testing.T) {
	c := shader.NewVariantCompiler()
	defer c.Release()

	s, err := Build(Config{}, c, shader.PBRBase, shader.PBRSource, WithWorkers(2))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer s.Release()

	if got := len(s.Materials()); got != 12 {
		t.Fatalf("got %d materials, want 12", got)
	}
	m := s.Material("Roughness5")
	if m == nil {
		t.Fatal("Roughness5 missing")
	}
	if v, _ := m.Get("uRoughness"); v.Floats()[0] != 1 {
		t.Errorf("uRoughness = %v, want 1", v.Floats())
	}
	if !m.Program().Key().Flags.Has(shader.FlagUseTonemap) {
		t.Error("Roughness5 was not compiled with USE_TONEMAP")
	}
	if s.Material("Normals").Program().Key().Flags != shader.NewFlagSet(shader.FlagShowNormals) {
		t.Error("Normals variant has the wrong flags")
	}
}

func TestBuildRejectsBadMaterials(t *testing.T) {
	c := shader.NewVariantCompiler()
	defer c.Release()

	_, err := Build(Config{Materials: []MaterialConfig{{Name: "x", Flags: []string{"SHOW_EVERYTHING"}}}}, c, shader.PBRBase, shader.PBRSource)
	if err == nil {
		t.Error("Build accepted an unknown flag")
	}

	_, err = Build(Config{Materials: []MaterialConfig{{Name: "x", Uniforms: map[string]UniformValue{"uGlow": {1}}}}}, c, shader.PBRBase, shader.PBRSource)
	if !errors.Is(err, material.ErrUnknownUniform) {
		t.Errorf("Build error = %v, want ErrUnknownUniform", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	doc := `{
  "panorama": "sky.hdr",
  "scene": {
    "width": 800,
    "columns": 2,
    "rows": 1,
    "materials": [
      {"name": "gold", "uniforms": {"uRoughness": 0.3, "uAlbedoColor": [1, 0.8, 0.3, 1]}, "ranges": {"uRoughness": [0.01, 1]}}
    ]
  }
}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Width != 800 || cfg.Height != DefaultHeight || cfg.Columns != 2 || cfg.Rows != 1 {
		t.Errorf("config = %+v", cfg)
	}
	if len(cfg.Materials) != 1 {
		t.Fatalf("got %d materials, want 1", len(cfg.Materials))
	}
	gold := cfg.Materials[0]
	if len(gold.Uniforms["uRoughness"]) != 1 || len(gold.Uniforms["uAlbedoColor"]) != 4 {
		t.Errorf("uniforms = %v", gold.Uniforms)
	}
	if gold.Ranges["uRoughness"] != [2]float32{0.01, 1} {
		t.Errorf("ranges = %v", gold.Ranges)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadConfig accepted a missing file")
	}
}
