package device

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-ibl/common"
	"github.com/Carmen-Shannon/oxy-ibl/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/x448/float16"
)

// GPUTextureFormat is the pixel format every IBL texture is uploaded with. RGBA16Float is
// filterable on every WebGPU adapter, unlike RGBA32Float.
const GPUTextureFormat = wgpu.TextureFormatRGBA16Float

// GPUTexture bundles an uploaded texture with the view and sampler a material binds.
type GPUTexture struct {
	Texture *wgpu.Texture
	View    *wgpu.TextureView
	Sampler *wgpu.Sampler
	Format  wgpu.TextureFormat
	Levels  uint32
}

// Release frees the view, sampler and texture.
func (t *GPUTexture) Release() {
	if t.Sampler != nil {
		t.Sampler.Release()
	}
	if t.View != nil {
		t.View.Release()
	}
	if t.Texture != nil {
		t.Texture.Release()
	}
}

// WGPUBackend is the WebGPU side of the device abstraction: it owns a headless device and
// queue, creates textures with an explicit format and filtering mode from precomputed
// results, and creates shader modules for the variant compiler.
type WGPUBackend struct {
	mu       *sync.Mutex
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
}

var _ shader.ProgramBackend = &WGPUBackend{}

// NewWGPUBackend requests an adapter and device without a presentation surface.
//
// Parameters:
//   - forceFallbackAdapter: request the software fallback adapter
//
// Returns:
//   - *WGPUBackend: the backend
//   - error: if no adapter or device could be obtained
func NewWGPUBackend(forceFallbackAdapter bool) (*WGPUBackend, error) {
	runtime.LockOSThread()
	b := &WGPUBackend{
		mu:       &sync.Mutex{},
		instance: wgpu.CreateInstance(nil),
	}

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
	})
	if err != nil {
		b.instance.Release()
		return nil, fmt.Errorf("device: failed to request adapter: %w", err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "IBL Device",
	})
	if err != nil {
		a.Release()
		b.instance.Release()
		return nil, fmt.Errorf("device: failed to request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()
	return b, nil
}

// StageCubemap flattens every face and level of a cubemap into staging records in
// upload order (level-major, then face).
//
// Parameters:
//   - c: the cubemap to stage
//
// Returns:
//   - []common.FloatTextureStagingData: one record per face per level
func StageCubemap(c *texture.Cubemap) []common.FloatTextureStagingData {
	staged := make([]common.FloatTextureStagingData, 0, c.Levels()*texture.FaceCount)
	for level := range c.Levels() {
		for _, f := range texture.Faces {
			img := c.Face(f, level)
			staged = append(staged, common.FloatTextureStagingData{
				Pixels:   img.Pix,
				Width:    uint32(img.Width),
				Height:   uint32(img.Height),
				Layer:    uint32(f),
				MipLevel: uint32(level),
			})
		}
	}
	return staged
}

// PackHalfFloat converts RGBA float32 pixels to little-endian RGBA16Float bytes.
//
// Parameters:
//   - pix: the float32 pixel values
//
// Returns:
//   - []byte: 2 bytes per value
func PackHalfFloat(pix []float32) []byte {
	out := make([]byte, len(pix)*2)
	for i, v := range pix {
		binary.LittleEndian.PutUint16(out[i*2:], float16.Fromfloat32(v).Bits())
	}
	return out
}

// UploadCubemap creates a cube texture holding every face and mip level of c.
//
// Parameters:
//   - c: the cubemap to upload
//   - samplerData: sampler configuration; zero fields default to linear / clamp-to-edge
//
// Returns:
//   - *GPUTexture: the texture with a cube view and sampler
//   - error: if any GPU object could not be created
func (b *WGPUBackend) UploadCubemap(c *texture.Cubemap, samplerData common.SamplerStagingData) (*GPUTexture, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	levels := uint32(c.Levels())
	size := uint32(c.Size(0))
	return b.upload(c.Label, size, size, texture.FaceCount, levels, wgpu.TextureViewDimensionCube, StageCubemap(c), samplerData)
}

// UploadImage creates a 2D texture from img.
//
// Parameters:
//   - label: a label for the GPU objects
//   - img: the image to upload
//   - samplerData: sampler configuration; zero fields default to linear / clamp-to-edge
//
// Returns:
//   - *GPUTexture: the texture with a 2D view and sampler
//   - error: if any GPU object could not be created
func (b *WGPUBackend) UploadImage(label string, img *texture.Image, samplerData common.SamplerStagingData) (*GPUTexture, error) {
	staged := []common.FloatTextureStagingData{{
		Pixels: img.Pix,
		Width:  uint32(img.Width),
		Height: uint32(img.Height),
	}}
	return b.upload(label, uint32(img.Width), uint32(img.Height), 1, 1, wgpu.TextureViewDimension2D, staged, samplerData)
}

func (b *WGPUBackend) upload(label string, width, height, layers, levels uint32, viewDim wgpu.TextureViewDimension, staged []common.FloatTextureStagingData, samplerData common.SamplerStagingData) (*GPUTexture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: layers,
		},
		Format:        GPUTextureFormat,
		MipLevelCount: levels,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("device: failed to create texture %q: %w", label, err)
	}

	for _, s := range staged {
		b.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: s.MipLevel,
				Origin:   wgpu.Origin3D{Z: s.Layer},
				Aspect:   wgpu.TextureAspectAll,
			},
			PackHalfFloat(s.Pixels),
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  s.Width * texture.Channels * 2,
				RowsPerImage: s.Height,
			},
			&wgpu.Extent3D{
				Width:              s.Width,
				Height:             s.Height,
				DepthOrArrayLayers: 1,
			},
		)
	}

	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           label + " View",
		Format:          GPUTextureFormat,
		Dimension:       viewDim,
		BaseMipLevel:    0,
		MipLevelCount:   levels,
		BaseArrayLayer:  0,
		ArrayLayerCount: layers,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("device: failed to create view for %q: %w", label, err)
	}

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label + " Sampler",
		AddressModeU:  common.Coalesce(samplerData.AddressModeU, wgpu.AddressModeClampToEdge),
		AddressModeV:  common.Coalesce(samplerData.AddressModeV, wgpu.AddressModeClampToEdge),
		AddressModeW:  common.Coalesce(samplerData.AddressModeW, wgpu.AddressModeClampToEdge),
		MagFilter:     common.Coalesce(samplerData.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(samplerData.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(samplerData.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   samplerData.LodMinClamp,
		LodMaxClamp:   common.Coalesce(samplerData.LodMaxClamp, float32(levels)),
		MaxAnisotropy: common.Coalesce(samplerData.MaxAnisotropy, 1),
	})
	if err != nil {
		view.Release()
		tex.Release()
		return nil, fmt.Errorf("device: failed to create sampler for %q: %w", label, err)
	}

	return &GPUTexture{
		Texture: tex,
		View:    view,
		Sampler: samp,
		Format:  GPUTextureFormat,
		Levels:  levels,
	}, nil
}

// GPUMesh holds an uploaded mesh: interleaved position, normal and uv vertices (32 bytes
// each) and a uint32 index buffer.
type GPUMesh struct {
	Vertex     *wgpu.Buffer
	Index      *wgpu.Buffer
	IndexCount uint32
}

// Release frees both buffers.
func (m *GPUMesh) Release() {
	if m.Vertex != nil {
		m.Vertex.Release()
	}
	if m.Index != nil {
		m.Index.Release()
	}
}

// InterleaveMesh packs a mesh into position, normal, uv vertices.
//
// Parameters:
//   - m: the mesh
//
// Returns:
//   - []float32: 8 floats per vertex
func InterleaveMesh(m *common.MeshData) []float32 {
	n := m.VertexCount()
	out := make([]float32, 0, n*8)
	for i := range n {
		out = append(out, m.Positions[i*3:i*3+3]...)
		out = append(out, m.Normals[i*3:i*3+3]...)
		out = append(out, m.UVs[i*2:i*2+2]...)
	}
	return out
}

// UploadMesh creates vertex and index buffers for m.
//
// Parameters:
//   - label: a label for the buffers
//   - m: the mesh
//
// Returns:
//   - *GPUMesh: the buffers
//   - error: if a buffer could not be created
func (b *WGPUBackend) UploadMesh(label string, m *common.MeshData) (*GPUMesh, error) {
	vertex, err := b.CreateBuffer(label+" Vertex Buffer", common.SliceToBytes(InterleaveMesh(m)), wgpu.BufferUsageVertex)
	if err != nil {
		return nil, err
	}
	index, err := b.CreateBuffer(label+" Index Buffer", common.SliceToBytes(m.Indices), wgpu.BufferUsageIndex)
	if err != nil {
		vertex.Release()
		return nil, err
	}
	return &GPUMesh{Vertex: vertex, Index: index, IndexCount: uint32(len(m.Indices))}, nil
}

// CreateBuffer creates a buffer initialised with data. CopyDst is always added to usage so
// the buffer can be rewritten with WriteBuffer.
//
// Parameters:
//   - label: the buffer label
//   - data: the initial contents
//   - usage: the buffer usage
//
// Returns:
//   - *wgpu.Buffer: the buffer
//   - error: if the device rejected the buffer
func (b *WGPUBackend) CreateBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             uint64(len(data)),
		Usage:            usage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("device: failed to create buffer %q: %w", label, err)
	}
	b.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// WriteBuffer replaces the contents of buf from offset 0.
//
// Parameters:
//   - buf: the buffer
//   - data: the new contents
func (b *WGPUBackend) WriteBuffer(buf *wgpu.Buffer, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteBuffer(buf, 0, data)
}

// CreateModule compiles WGSL source into a shader module. Compilation errors reported by
// the device are returned as the diagnostic.
func (b *WGPUBackend) CreateModule(label, source string) (shader.Module, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// CreatePipelineLayout creates the bind group layouts a program declares and a pipeline
// layout over them. Groups the program skips get an empty layout.
//
// Parameters:
//   - p: the compiled program
//
// Returns:
//   - *wgpu.PipelineLayout: the pipeline layout
//   - []*wgpu.BindGroupLayout: one layout per group index; the caller releases them
//   - error: if the device rejected a layout
func (b *WGPUBackend) CreatePipelineLayout(p shader.Program) (*wgpu.PipelineLayout, []*wgpu.BindGroupLayout, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	descriptors := p.BindGroupLayoutDescriptors()
	maxGroup := -1
	for g := range descriptors {
		maxGroup = max(maxGroup, g)
	}
	release := func(layouts []*wgpu.BindGroupLayout) {
		for _, l := range layouts {
			if l != nil {
				l.Release()
			}
		}
	}

	bindGroupLayouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := range bindGroupLayouts {
		desc, ok := descriptors[g]
		if !ok {
			desc = wgpu.BindGroupLayoutDescriptor{Label: fmt.Sprintf("%s Empty Group %d", p.Key(), g)}
		}
		bgl, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			release(bindGroupLayouts)
			return nil, nil, fmt.Errorf("device: failed to create bind group layout for group %d: %w", g, err)
		}
		bindGroupLayouts[g] = bgl
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.Key().String(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		release(bindGroupLayouts)
		return nil, nil, fmt.Errorf("device: failed to create pipeline layout for %s: %w", p.Key(), err)
	}
	return layout, bindGroupLayouts, nil
}

// Release frees the device, adapter and instance.
func (b *WGPUBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
