package shader

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies a shader stage entry point.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// Module is a backend-built shader module. The WebGPU backend returns *wgpu.ShaderModule.
type Module interface {
	Release()
}

// ProgramBackend builds a module from fully pre-processed WGSL source.
type ProgramBackend interface {
	// CreateModule builds a module. A returned error is the backend's diagnostic.
	//
	// Parameters:
	//   - label: a debug label, the variant key
	//   - source: plain WGSL with all directives resolved
	//
	// Returns:
	//   - Module: the built module
	//   - error: the compile diagnostic on failure
	CreateModule(label, source string) (Module, error)
}

// program is the implementation of the Program interface.
type program struct {
	key         VariantKey
	source      string
	entryPoints map[ShaderType]string
	layouts     map[int]wgpu.BindGroupLayoutDescriptor
	uniforms    []Uniform
	uniformIdx  map[string]int
	module      Module
}

// Program is a compiled material variant: the built module plus everything parsed from its
// source that materials and pipelines need, most importantly the static uniform table.
type Program interface {
	// Key returns the variant key the program was compiled for.
	//
	// Returns:
	//   - VariantKey: the key
	Key() VariantKey

	// Source returns the pre-processed WGSL the module was built from.
	//
	// Returns:
	//   - string: plain WGSL
	Source() string

	// EntryPoint returns the entry point name for a stage, or "" if the program has none.
	//
	// Parameters:
	//   - shaderType: the stage
	//
	// Returns:
	//   - string: the entry point function name
	EntryPoint(shaderType ShaderType) string

	// BindGroupLayoutDescriptors returns the bind group layouts declared by the program,
	// visible to both the vertex and fragment stage.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// Uniforms returns the static uniform table in declaration order.
	//
	// Returns:
	//   - []Uniform: the table
	Uniforms() []Uniform

	// Uniform looks up one entry of the uniform table by name.
	//
	// Parameters:
	//   - name: the uniform name
	//
	// Returns:
	//   - Uniform: the entry
	//   - bool: false if the program declares no such uniform
	Uniform(name string) (Uniform, bool)

	// Module returns the backend module.
	//
	// Returns:
	//   - Module: the module
	Module() Module

	// Release frees the backend module.
	Release()
}

var _ Program = &program{}

// newProgram parses a pre-processed source and wraps the built module.
func newProgram(key VariantKey, source string, module Module) *program {
	p := &program{
		key:         key,
		source:      source,
		entryPoints: make(map[ShaderType]string, 3),
		layouts:     parseBindGroupLayouts(source, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment),
		uniforms:    parseUniformTable(source),
		module:      module,
	}
	for _, st := range []ShaderType{ShaderTypeVertex, ShaderTypeFragment, ShaderTypeCompute} {
		if ep := parseEntryPoint(source, st); ep != "" {
			p.entryPoints[st] = ep
		}
	}
	p.uniformIdx = make(map[string]int, len(p.uniforms))
	for i, u := range p.uniforms {
		p.uniformIdx[u.Name] = i
	}
	return p
}

func (p *program) Key() VariantKey {
	return p.key
}

func (p *program) Source() string {
	return p.source
}

func (p *program) EntryPoint(shaderType ShaderType) string {
	return p.entryPoints[shaderType]
}

func (p *program) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return p.layouts
}

func (p *program) Uniforms() []Uniform {
	return p.uniforms
}

func (p *program) Uniform(name string) (Uniform, bool) {
	i, ok := p.uniformIdx[name]
	if !ok {
		return Uniform{}, false
	}
	return p.uniforms[i], true
}

func (p *program) Module() Module {
	return p.module
}

func (p *program) Release() {
	if p.module != nil {
		p.module.Release()
	}
}
