package shader

import "github.com/cogentcore/webgpu/wgpu"

// sampledTextureInfo holds the view dimension and multisampled flag for a sampled texture type
type sampledTextureInfo struct {
	viewDimension wgpu.TextureViewDimension
	multisampled  bool
}

// wgslTypeLayout holds the byte size and alignment for a WGSL type per the WGSL specification.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name      string
	typeName  string
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}

// UniformKind classifies an entry of a program's uniform table.
type UniformKind int

const (
	// UniformKindScalar is a single f32, i32, u32 or bool member of a uniform block.
	UniformKindScalar UniformKind = iota

	// UniformKindVector is a vecN member of a uniform block.
	UniformKindVector

	// UniformKindMatrix is a matCxR member of a uniform block.
	UniformKindMatrix

	// UniformKindTexture is a sampled texture binding.
	UniformKindTexture

	// UniformKindSampler is a sampler binding.
	UniformKindSampler
)

// String returns a readable name for the kind.
func (k UniformKind) String() string {
	switch k {
	case UniformKindScalar:
		return "scalar"
	case UniformKindVector:
		return "vector"
	case UniformKindMatrix:
		return "matrix"
	case UniformKindTexture:
		return "texture"
	case UniformKindSampler:
		return "sampler"
	default:
		return "unknown"
	}
}

// Uniform is one row of a program's static uniform table. Block members carry the byte
// offset and size inside their uniform buffer; texture and sampler bindings carry the view
// dimension they must be bound with.
type Uniform struct {
	Name       string
	Type       string
	Kind       UniformKind
	Group      int
	Binding    int
	Offset     uint64
	Size       uint64
	Components int
	Dimension  wgpu.TextureViewDimension
}
