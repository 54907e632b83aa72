package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

const minimalProgram = `
@group(0) @binding(0) var<uniform> params: Params;

struct Params {
    uValue: f32,
};

@vertex
fn vs_main() -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
#ifdef SHOW_NORMALS
    return vec4<f32>(1.0);
#else
    return vec4<f32>(params.uValue);
#endif
}
`

type countingBackend struct {
	calls int
	fail  bool
}

func (b *countingBackend) CreateModule(label, source string) (Module, error) {
	b.calls++
	if b.fail {
		return nil, errors.New("error: expected ';'")
	}
	return &validatedModule{label: label}, nil
}

func TestVariantKeyIgnoresFlagOrder(t *testing.T) {
	a := VariantKey{Base: "pbr", Flags: NewFlagSet(FlagShowNormals, FlagUseTonemap)}
	b := VariantKey{Base: "pbr", Flags: NewFlagSet(FlagUseTonemap, FlagShowNormals, FlagUseTonemap)}

	if a != b {
		t.Fatalf("keys differ: %v vs %v", a, b)
	}
	if got, want := a.String(), "pbr[USE_TONEMAP,SHOW_NORMALS]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := (VariantKey{Base: "pbr"}).String(), "pbr[]"; got != want {
		t.Errorf("empty key String() = %q, want %q", got, want)
	}
	if got, want := a.Flags.DefineBlock(), "#define USE_TONEMAP\n#define SHOW_NORMALS\n"; got != want {
		t.Errorf("DefineBlock() = %q, want %q", got, want)
	}
}

func TestFlagSetMembership(t *testing.T) {
	s := NewFlagSet(FlagShowFresnel).With(FlagShowIrradiance).Without(FlagShowFresnel)
	if s.Has(FlagShowFresnel) || !s.Has(FlagShowIrradiance) {
		t.Fatalf("unexpected membership: %s", s)
	}
	for _, f := range []Flag{FlagUseTonemap, FlagShowNormals, FlagShowTexCoords, FlagShowFresnel, FlagShowIrradiance, FlagShowIndirectSpecular} {
		parsed, err := ParseFlag(f.String())
		if err != nil || parsed != f {
			t.Errorf("ParseFlag(%q) = %v, %v", f.String(), parsed, err)
		}
	}
	if _, err := ParseFlag("SHOW_EVERYTHING"); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestFlagSetIgnoresUndeclaredFlags(t *testing.T) {
	s := NewFlagSet(FlagShowNormals)
	if got := s.With(flagCount).With(Flag(40)); got != s {
		t.Fatalf("With(undeclared) = %b, want %b", got, s)
	}
	if s.With(flagCount).Has(flagCount) {
		t.Error("Has reported an undeclared flag")
	}
	if got := (s | 1<<20).Known(); got != s {
		t.Errorf("Known() = %b, want %b", got, s)
	}
}

func TestCompileCanonicalizesStrayFlagBits(t *testing.T) {
	backend := &countingBackend{}
	c := NewVariantCompiler(WithBackend(backend))
	defer c.Release()

	clean := VariantKey{Base: "min", Flags: NewFlagSet(FlagShowNormals)}
	stray := VariantKey{Base: "min", Flags: clean.Flags | 1<<flagCount}
	p1, err := c.Compile(clean, minimalProgram)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	p2, err := c.Compile(stray, minimalProgram)
	if err != nil {
		t.Fatalf("Compile with stray bits: %v", err)
	}
	if p1 != p2 || backend.calls != 1 {
		t.Fatalf("stray bits produced a second program (backend calls = %d)", backend.calls)
	}
	if p2.Key() != clean {
		t.Errorf("Key() = %+v, want %+v", p2.Key(), clean)
	}
	if bound, ok := c.Bound(stray); !ok || bound != p1 {
		t.Error("Bound with stray bits did not find the canonical program")
	}
}

func TestPreProcessorResolvesConditionals(t *testing.T) {
	src := strings.Join([]string{
		"#define A",
		"#ifdef A",
		"a",
		"#ifndef B",
		"not-b",
		"#else",
		"b",
		"#endif",
		"#else",
		"not-a",
		"#endif",
		"#ifdef B",
		"#define C",
		"#endif",
		"tail",
	}, "\n")

	pp := NewPreProcessor()
	out, err := pp.Process(src)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	lines := strings.Split(out, "\n")
	if len(lines) != 15 {
		t.Fatalf("line count %d, want 15", len(lines))
	}
	var kept []string
	for _, l := range lines {
		if l != "" {
			kept = append(kept, l)
		}
	}
	if got, want := strings.Join(kept, ","), "a,not-b,tail"; got != want {
		t.Errorf("kept lines %q, want %q", got, want)
	}
	if got := pp.Defines(); len(got) != 1 || got[0] != "A" {
		t.Errorf("Defines() = %v, want [A]", got)
	}
}

func TestPreProcessorRejectsMalformedDirectives(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"stray endif", "x\n#endif", 2},
		{"stray else", "#else", 1},
		{"duplicate else", "#ifdef A\n#else\n#else\n#endif", 3},
		{"unterminated", "#ifdef A\nx", 1},
		{"missing name", "#ifdef", 1},
		{"unknown", "#include foo", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPreProcessor().Process(tt.src)
			var de *DirectiveError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DirectiveError, got %v", err)
			}
			if de.Line != tt.line {
				t.Errorf("line %d, want %d", de.Line, tt.line)
			}
		})
	}
}

func TestCompileCachesIdenticalVariants(t *testing.T) {
	backend := &countingBackend{}
	c := NewVariantCompiler(WithBackend(backend))
	defer c.Release()

	key := VariantKey{Base: "min", Flags: NewFlagSet(FlagShowNormals)}
	p1, err := c.Compile(key, minimalProgram)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	p2, err := c.Compile(VariantKey{Base: "min", Flags: NewFlagSet(FlagShowNormals)}, minimalProgram)
	if err != nil {
		t.Fatalf("second Compile: %v", err)
	}

	if backend.calls != 1 {
		t.Errorf("backend called %d times, want 1", backend.calls)
	}
	if p1 != p2 {
		t.Error("expected cached program")
	}
	if s := c.Stats(); s.Hits != 1 || s.Misses != 1 {
		t.Errorf("stats = %+v", s)
	}

	if _, err := c.Compile(VariantKey{Base: "min"}, minimalProgram); err != nil {
		t.Fatalf("Compile without flags: %v", err)
	}
	if backend.calls != 2 {
		t.Errorf("different flags should miss the cache, backend calls = %d", backend.calls)
	}
}

func TestCompileSelectsFlaggedBranch(t *testing.T) {
	c := NewVariantCompiler()
	defer c.Release()

	on, err := c.Compile(VariantKey{Base: "min", Flags: NewFlagSet(FlagShowNormals)}, minimalProgram)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	off, err := c.Compile(VariantKey{Base: "min"}, minimalProgram)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if !strings.Contains(on.Source(), "vec4<f32>(1.0)") || strings.Contains(on.Source(), "params.uValue") {
		t.Error("flagged variant kept the wrong branch")
	}
	if strings.Contains(off.Source(), "vec4<f32>(1.0)") || !strings.Contains(off.Source(), "params.uValue") {
		t.Error("plain variant kept the wrong branch")
	}
	if on.EntryPoint(ShaderTypeVertex) != "vs_main" || on.EntryPoint(ShaderTypeFragment) != "fs_main" {
		t.Errorf("entry points %q %q", on.EntryPoint(ShaderTypeVertex), on.EntryPoint(ShaderTypeFragment))
	}
}

func TestFailedRecompileKeepsBoundProgram(t *testing.T) {
	backend := &countingBackend{}
	c := NewVariantCompiler(WithBackend(backend))
	defer c.Release()

	key := VariantKey{Base: "min", Flags: NewFlagSet(FlagUseTonemap)}
	first, err := c.Compile(key, minimalProgram)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	backend.fail = true
	_, err = c.Recompile(key, minimalProgram+"\n// edited")
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CompileError, got %v", err)
	}
	if ce.Key != key || !strings.Contains(ce.Diagnostic, "expected ';'") {
		t.Errorf("unexpected error contents: %+v", ce)
	}

	bound, ok := c.Bound(key)
	if !ok || bound != first {
		t.Fatal("previous program should remain bound")
	}

	backend.fail = false
	second, err := c.Recompile(key, minimalProgram+"\n// edited")
	if err != nil {
		t.Fatalf("Recompile: %v", err)
	}
	if bound, _ := c.Bound(key); bound != second || second == first {
		t.Error("successful recompile should replace the bound program")
	}
}

func TestRecompileRequiresBinding(t *testing.T) {
	c := NewVariantCompiler()
	defer c.Release()

	_, err := c.Recompile(VariantKey{Base: "never"}, minimalProgram)
	if !errors.Is(err, ErrNotBound) {
		t.Fatalf("expected ErrNotBound, got %v", err)
	}
}

func TestValidatingBackendDiagnostics(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		substr string
	}{
		{"unbalanced", "@vertex fn v() { @fragment fn f() {}", "unclosed"},
		{"no fragment", "@vertex fn v() {}", "@fragment"},
		{"leftover directive", "@vertex fn v() {}\n@fragment fn f() {}\n#ifdef X", "unresolved directive"},
	}
	b := NewValidatingBackend()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.CreateModule(tt.name, tt.src)
			if err == nil || !strings.Contains(err.Error(), tt.substr) {
				t.Fatalf("error %v should mention %q", err, tt.substr)
			}
		})
	}
}

func TestPBRProgramUniformTable(t *testing.T) {
	c := NewVariantCompiler()
	defer c.Release()

	p, err := c.Compile(VariantKey{Base: PBRBase}, PBRSource)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	tests := []struct {
		name   string
		kind   UniformKind
		offset uint64
		comps  int
	}{
		{"uAlbedoColor", UniformKindVector, 0, 4},
		{"uLightColor", UniformKindVector, 16, 4},
		{"uLightPos", UniformKindVector, 32, 3},
		{"uRoughness", UniformKindScalar, 44, 1},
		{"uMetalness", UniformKindScalar, 48, 1},
		{"uSpecularLevels", UniformKindScalar, 60, 1},
		{"uReflectionMap", UniformKindTexture, 0, 0},
		{"uBRDFLut", UniformKindTexture, 0, 0},
		{"uSampler", UniformKindSampler, 0, 0},
	}
	for _, tt := range tests {
		u, ok := p.Uniform(tt.name)
		if !ok {
			t.Errorf("%s missing from uniform table", tt.name)
			continue
		}
		if u.Kind != tt.kind || u.Offset != tt.offset || u.Components != tt.comps {
			t.Errorf("%s = %+v, want kind %v offset %d components %d", tt.name, u, tt.kind, tt.offset, tt.comps)
		}
	}
	if u, _ := p.Uniform("uIrradianceMap"); u.Dimension != wgpu.TextureViewDimensionCube {
		t.Errorf("uIrradianceMap dimension %v", u.Dimension)
	}
	if u, _ := p.Uniform("uHammersleyPointSetMap"); u.Dimension != wgpu.TextureViewDimension2D {
		t.Errorf("uHammersleyPointSetMap dimension %v", u.Dimension)
	}
	if _, ok := p.Uniform("uNotThere"); ok {
		t.Error("unexpected uniform")
	}

	group := p.BindGroupLayoutDescriptors()[1]
	if len(group.Entries) != 6 {
		t.Fatalf("group 1 has %d entries, want 6", len(group.Entries))
	}
	if group.Entries[0].Buffer.MinBindingSize != 64 {
		t.Errorf("material block size %d, want 64", group.Entries[0].Buffer.MinBindingSize)
	}
}

func TestPBRProgramCompilesEveryFlag(t *testing.T) {
	c := NewVariantCompiler()
	defer c.Release()

	all := FlagSet(0)
	for f := range flagCount {
		all = all.With(f)
		if _, err := c.Compile(VariantKey{Base: PBRBase, Flags: NewFlagSet(f)}, PBRSource); err != nil {
			t.Errorf("%s: %v", f, err)
		}
	}
	if _, err := c.Compile(VariantKey{Base: PBRBase, Flags: all}, PBRSource); err != nil {
		t.Errorf("all flags: %v", err)
	}
}
