// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// FloatTextureStagingData holds linear RGBA float pixel data for a texture pending GPU upload.
// Faces of a cube texture are staged one layer at a time, mip levels one level at a time.
type FloatTextureStagingData struct {
	// Pixels is the RGBA float32 pixel data, 4 values per pixel, row-major, top row first.
	Pixels []float32
	// Width is the width of the texture level in pixels.
	Width uint32
	// Height is the height of the texture level in pixels.
	Height uint32
	// Layer is the array layer (cube face index) the pixels belong to.
	Layer uint32
	// MipLevel is the mip level the pixels belong to.
	MipLevel uint32
}

// SamplerStagingData holds the configuration for a sampler pending GPU creation.
// Zero fields fall back to linear filtering with clamp-to-edge addressing.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// MeshData holds the vertex and index arrays of a polygon mesh. The engine only consumes
// these arrays; it never parses geometry formats itself.
type MeshData struct {
	// Positions holds xyz triples.
	Positions []float32
	// Normals holds xyz triples, one per position.
	Normals []float32
	// UVs holds uv pairs, one per position.
	UVs []float32
	// Indices holds triangle-list indices into the vertex arrays.
	Indices []uint32
}

// VertexCount returns the number of vertices in the mesh.
//
// Returns:
//   - int: len(Positions) / 3
func (m *MeshData) VertexCount() int {
	return len(m.Positions) / 3
}
