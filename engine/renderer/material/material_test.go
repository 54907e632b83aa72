package material

import (
	"encoding/binary"
	"errors"
	"math"
	"runtime"
	"testing"

	"github.com/Carmen-Shannon/oxy-ibl/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
	"github.com/go-gl/mathgl/mgl32"
)

const roughnessOnlySource = `
struct MaterialUniforms {
    uRoughness: f32,
};

@group(1) @binding(0) var<uniform> material: MaterialUniforms;

@vertex
fn vs_main() -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(material.uRoughness);
}
`

func compile(t *testing.T, key shader.VariantKey, source string) shader.Program {
	t.Helper()
	c := shader.NewVariantCompiler()
	t.Cleanup(c.Release)
	p, err := c.Compile(key, source)
	if err != nil {
		t.Fatalf("Compile(%s): %v", key, err)
	}
	return p
}

func pbrProgram(t *testing.T) shader.Program {
	return compile(t, shader.VariantKey{Base: shader.PBRBase}, shader.PBRSource)
}

func floatAt(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
}

func TestNewMaterialAppliesDefaults(t *testing.T) {
	m := NewMaterial(pbrProgram(t))
	if m.Name() != "pbr[]" {
		t.Errorf("Name() = %q, want the variant key", m.Name())
	}

	snap, err := m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	block := snap.Buffer(1, 0)
	if len(block) != 64 {
		t.Fatalf("material block is %d bytes, want 64", len(block))
	}
	checks := []struct {
		name   string
		offset int
		want   float32
	}{
		{"uAlbedoColor.a", 12, 1},
		{"uLightColor.r", 16, 1},
		{"uLightPos.x", 32, 10},
		{"uLightPos.y", 36, 10},
		{"uLightPos.z", 40, 0},
		{"uRoughness", 44, 0.5},
		{"uMetalness", 48, 0},
		{"uExposure", 52, 0.5},
		{"uIor", 56, 1.4},
	}
	for _, c := range checks {
		if got := floatAt(block, c.offset); got != c.want {
			t.Errorf("%s = %v, want %v", c.name, got, c.want)
		}
	}
	if len(snap.Textures) != 0 {
		t.Errorf("unexpected texture bindings: %+v", snap.Textures)
	}
}

func TestSetRejectsUnknownUniform(t *testing.T) {
	m := NewMaterial(pbrProgram(t), WithName("chrome"))
	err := m.Set("uNotThere", Scalar(1))
	if !errors.Is(err, ErrUnknownUniform) {
		t.Fatalf("Set error = %v, want ErrUnknownUniform", err)
	}
}

func TestSetRejectsKindMismatch(t *testing.T) {
	m := NewMaterial(pbrProgram(t))
	tests := []struct {
		name string
		v    Value
	}{
		{"uRoughness", Vector(1, 2)},
		{"uLightPos", Vector(1, 2, 3, 4)},
		{"uAlbedoColor", Scalar(1)},
		{"uReflectionMap", ImageTexture(texture.NewImage(1, 1))},
		{"uBRDFLut", CubeTexture(texture.NewCubemap("c", 1, 1))},
		{"uSampler", Scalar(0)},
	}
	for _, tt := range tests {
		if err := m.Set(tt.name, tt.v); !errors.Is(err, ErrKindMismatch) {
			t.Errorf("Set(%s) error = %v, want ErrKindMismatch", tt.name, err)
		}
	}
	if v, _ := m.Get("uRoughness"); v.Floats()[0] != 0.5 {
		t.Error("rejected value replaced the default")
	}
}

func TestSetClampsToRange(t *testing.T) {
	m := NewMaterial(pbrProgram(t), WithRange("uRoughness", 0.01, 1), WithRange("uExposure", 0.01, 2))
	if err := m.Set("uRoughness", Scalar(5)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := m.Set("uExposure", Scalar(-1)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := m.Get("uRoughness"); v.Floats()[0] != 1 {
		t.Errorf("uRoughness = %v, want clamped to 1", v.Floats())
	}
	if v, _ := m.Get("uExposure"); v.Floats()[0] != 0.01 {
		t.Errorf("uExposure = %v, want clamped to 0.01", v.Floats())
	}
	if lo, hi, ok := m.Range("uRoughness"); !ok || lo != 0.01 || hi != 1 {
		t.Errorf("Range = %v, %v, %v", lo, hi, ok)
	}
}

func TestSnapshotAssignsTextureUnitsInTableOrder(t *testing.T) {
	reflection := texture.NewCubemap("reflection", 4, 1)
	irradiance := texture.NewCubemap("irradiance", 2, 1)
	lut := texture.NewImage(8, 8)

	m := NewMaterial(pbrProgram(t))
	// assigned out of table order on purpose
	for name, v := range map[string]Value{
		"uBRDFLut":       ImageTexture(lut),
		"uIrradianceMap": CubeTexture(irradiance),
		"uReflectionMap": CubeTexture(reflection),
	} {
		if err := m.Set(name, v); err != nil {
			t.Fatalf("Set(%s): %v", name, err)
		}
	}

	snap, err := m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	want := []string{"uReflectionMap", "uIrradianceMap", "uBRDFLut"}
	if len(snap.Textures) != len(want) {
		t.Fatalf("got %d texture bindings, want %d", len(snap.Textures), len(want))
	}
	for i, name := range want {
		tb := snap.Textures[i]
		if tb.Name != name || tb.Unit != i {
			t.Errorf("binding %d = %s unit %d, want %s unit %d", i, tb.Name, tb.Unit, name, i)
		}
	}
	if snap.Textures[0].Cubemap != reflection || snap.Textures[2].Image != lut {
		t.Error("texture bindings do not reference the assigned resources")
	}
	runtime.KeepAlive(reflection)
	runtime.KeepAlive(irradiance)
	runtime.KeepAlive(lut)
}

func TestSnapshotReportsReleasedTexture(t *testing.T) {
	m := NewMaterial(pbrProgram(t))
	func() {
		if err := m.Set("uReflectionMap", CubeTexture(texture.NewCubemap("gone", 4, 1))); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}()
	runtime.GC()
	runtime.GC()

	if _, err := m.Snapshot(); !errors.Is(err, ErrTextureReleased) {
		t.Fatalf("Snapshot error = %v, want ErrTextureReleased", err)
	}
}

func TestSnapshotMarshalsCameraMatrices(t *testing.T) {
	m := NewMaterial(pbrProgram(t))
	view := mgl32.Translate3D(1, 2, 3)
	if err := m.Set("view", Matrix(view)); err != nil {
		t.Fatalf("Set(view): %v", err)
	}
	if err := m.Set("eye", Vector(4, 4, 4)); err != nil {
		t.Fatalf("Set(eye): %v", err)
	}

	snap, err := m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	block := snap.Buffer(0, 0)
	if len(block) != 144 {
		t.Fatalf("camera block is %d bytes, want 144", len(block))
	}
	// translation lives in the fourth column
	if floatAt(block, 48) != 1 || floatAt(block, 52) != 2 || floatAt(block, 56) != 3 {
		t.Errorf("view translation = %v %v %v", floatAt(block, 48), floatAt(block, 52), floatAt(block, 56))
	}
	if floatAt(block, 128) != 4 {
		t.Errorf("eye.x = %v, want 4", floatAt(block, 128))
	}
	if snap.Buffers[0].Group != 0 || snap.Buffers[1].Group != 1 {
		t.Error("buffer writes are not ordered by group")
	}
}

func TestSetProgramDropsUndeclaredValues(t *testing.T) {
	m := NewMaterial(pbrProgram(t))
	if err := m.Set("uRoughness", Scalar(0.25)); err != nil {
		t.Fatal(err)
	}

	m.SetProgram(compile(t, shader.VariantKey{Base: "roughness"}, roughnessOnlySource))
	if v, ok := m.Get("uRoughness"); !ok || v.Floats()[0] != 0.25 {
		t.Error("uRoughness was not carried over")
	}
	if _, ok := m.Get("uIor"); ok {
		t.Error("uIor survived a program that does not declare it")
	}
	if err := m.Set("uIor", Scalar(1.5)); !errors.Is(err, ErrUnknownUniform) {
		t.Errorf("Set(uIor) error = %v, want ErrUnknownUniform", err)
	}
}

func TestNewMaterialPanicsOnNilProgram(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewMaterial(nil) did not panic")
		}
	}()
	NewMaterial(nil)
}
