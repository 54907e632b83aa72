package material

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-ibl/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
	"github.com/cogentcore/webgpu/wgpu"
)

// BufferWrite is the marshalled contents of one uniform block binding. Data covers the whole
// block; members without an assigned value are zero.
type BufferWrite struct {
	Group   int
	Binding int
	Data    []byte
}

// TextureBinding assigns a referenced texture to a texture unit. Units are handed out in
// uniform table order, counting only bound textures.
type TextureBinding struct {
	Name      string
	Unit      int
	Group     int
	Binding   int
	Dimension wgpu.TextureViewDimension
	Cubemap   *texture.Cubemap
	Image     *texture.Image
}

// Snapshot is a material's uniforms resolved for one frame. It holds strong references to
// its textures for as long as it is alive.
type Snapshot struct {
	Material string
	Key      shader.VariantKey
	Buffers  []BufferWrite
	Textures []TextureBinding
}

// Buffer returns the write for a binding, or nil.
func (s Snapshot) Buffer(group, binding int) []byte {
	for _, b := range s.Buffers {
		if b.Group == group && b.Binding == binding {
			return b.Data
		}
	}
	return nil
}

// blockKey identifies a uniform block binding.
type blockKey struct {
	group, binding int
}

// resolve marshals values against the program's uniform table.
func resolve(name string, program shader.Program, values map[string]Value) (Snapshot, error) {
	snap := Snapshot{Material: name, Key: program.Key()}
	uniforms := program.Uniforms()

	sizes := make(map[blockKey]uint64)
	for _, u := range uniforms {
		if u.Kind > shader.UniformKindMatrix {
			continue
		}
		k := blockKey{u.Group, u.Binding}
		sizes[k] = max(sizes[k], roundUp(u.Offset+u.Size, 16))
	}
	blocks := make(map[blockKey][]byte, len(sizes))
	for k, size := range sizes {
		blocks[k] = make([]byte, size)
	}

	unit := 0
	for _, u := range uniforms {
		v, ok := values[u.Name]
		if !ok {
			continue
		}
		switch u.Kind {
		case shader.UniformKindScalar, shader.UniformKindVector:
			buf := blocks[blockKey{u.Group, u.Binding}]
			putFloats(buf[u.Offset:], v.data)
		case shader.UniformKindMatrix:
			buf := blocks[blockKey{u.Group, u.Binding}]
			putMatrix(buf[u.Offset:], u.Type, v.data)
		case shader.UniformKindTexture:
			if !v.live() {
				return Snapshot{}, fmt.Errorf("material %s: %q: %w", name, u.Name, ErrTextureReleased)
			}
			snap.Textures = append(snap.Textures, TextureBinding{
				Name:      u.Name,
				Unit:      unit,
				Group:     u.Group,
				Binding:   u.Binding,
				Dimension: u.Dimension,
				Cubemap:   v.Cubemap(),
				Image:     v.Image(),
			})
			unit++
		}
	}

	for k, data := range blocks {
		snap.Buffers = append(snap.Buffers, BufferWrite{Group: k.group, Binding: k.binding, Data: data})
	}
	sort.Slice(snap.Buffers, func(i, j int) bool {
		a, b := snap.Buffers[i], snap.Buffers[j]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Binding < b.Binding
	})
	return snap, nil
}

// putFloats writes little-endian f32 values.
func putFloats(buf []byte, vs []float32) {
	for i, v := range vs {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
}

// putMatrix writes a column-major matCxR, padding each column to its vecR alignment.
func putMatrix(buf []byte, typeName string, vs []float32) {
	cols, rows := matrixShape(typeName)
	if cols*rows != len(vs) {
		return
	}
	stride := 16
	if rows == 2 {
		stride = 8
	}
	for c := range cols {
		putFloats(buf[c*stride:], vs[c*rows:(c+1)*rows])
	}
}

// matrixShape parses the column and row counts from "matCxR<f32>".
func matrixShape(typeName string) (int, int) {
	base, _, _ := strings.Cut(typeName, "<")
	if len(base) != 6 || !strings.HasPrefix(base, "mat") {
		return 0, 0
	}
	c, err1 := strconv.Atoi(base[3:4])
	r, err2 := strconv.Atoi(base[5:6])
	if err1 != nil || err2 != nil {
		return 0, 0
	}
	return c, r
}

func roundUp(n, align uint64) uint64 {
	return (n + align - 1) / align * align
}
