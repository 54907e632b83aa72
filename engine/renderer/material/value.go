package material

import (
	"weak"

	"github.com/Carmen-Shannon/oxy-ibl/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// Value is a uniform value held by a material. Texture values are weak references: the
// precompute result owns the cubemaps and images, a material only points at them.
type Value struct {
	kind  shader.UniformKind
	data  []float32
	dim   wgpu.TextureViewDimension
	cube  weak.Pointer[texture.Cubemap]
	image weak.Pointer[texture.Image]
}

// Scalar creates a value for an f32 member of a uniform block.
func Scalar(v float32) Value {
	return Value{kind: shader.UniformKindScalar, data: []float32{v}}
}

// Vector creates a value for a vecN member of a uniform block.
func Vector(v ...float32) Value {
	return Value{kind: shader.UniformKindVector, data: append([]float32(nil), v...)}
}

// Matrix creates a value for a mat4x4 member of a uniform block.
func Matrix(m mgl32.Mat4) Value {
	return Value{kind: shader.UniformKindMatrix, data: append([]float32(nil), m[:]...)}
}

// CubeTexture creates a weak reference to a cubemap for a texture_cube binding.
func CubeTexture(c *texture.Cubemap) Value {
	return Value{kind: shader.UniformKindTexture, dim: wgpu.TextureViewDimensionCube, cube: weak.Make(c)}
}

// ImageTexture creates a weak reference to an image for a texture_2d binding.
func ImageTexture(img *texture.Image) Value {
	return Value{kind: shader.UniformKindTexture, dim: wgpu.TextureViewDimension2D, image: weak.Make(img)}
}

// Kind returns the uniform kind the value can be assigned to.
func (v Value) Kind() shader.UniformKind {
	return v.kind
}

// Floats returns a copy of the numeric components, nil for textures.
func (v Value) Floats() []float32 {
	if v.data == nil {
		return nil
	}
	return append([]float32(nil), v.data...)
}

// Cubemap returns the referenced cubemap, or nil if it is not a cube texture or has been
// collected.
func (v Value) Cubemap() *texture.Cubemap {
	return v.cube.Value()
}

// Image returns the referenced image, or nil if it is not a 2D texture or has been collected.
func (v Value) Image() *texture.Image {
	return v.image.Value()
}

// Dimension returns the view dimension of a texture value.
func (v Value) Dimension() wgpu.TextureViewDimension {
	return v.dim
}

// live reports whether a texture value still points at its resource.
func (v Value) live() bool {
	switch v.dim {
	case wgpu.TextureViewDimensionCube:
		return v.cube.Value() != nil
	case wgpu.TextureViewDimension2D:
		return v.image.Value() != nil
	default:
		return false
	}
}
