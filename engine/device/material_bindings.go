package device

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-ibl/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
)

// BufferAllocator creates and rewrites GPU buffers. WGPUBackend implements it.
type BufferAllocator interface {
	CreateBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error)
	WriteBuffer(buf *wgpu.Buffer, data []byte)
}

var _ BufferAllocator = &WGPUBackend{}

// bindingKey addresses one uniform block.
type bindingKey struct {
	group, binding int
}

type residentBuffer struct {
	buf  *wgpu.Buffer
	size int
}

// materialBindings is the implementation of MaterialBindings.
type materialBindings struct {
	label     string
	allocator BufferAllocator
	buffers   map[bindingKey]residentBuffer
	created   int
	releaser  func(*wgpu.Buffer)
}

// MaterialBindings keeps the uniform blocks of one material resident on the GPU.
//
// Usage pattern:
//  1. Create one MaterialBindings per material with NewMaterialBindings
//  2. Call Write with every frame's snapshot of that material
//  3. Bind Buffer(group, binding) for draw calls
//  4. Call Release when the material goes away
type MaterialBindings interface {
	// Write uploads every block in snap. A block is created on first use and recreated when
	// its size changes, which happens when the material's program is reloaded.
	//
	// Parameters:
	//   - snap: the material's resolved frame state
	//
	// Returns:
	//   - error: if a buffer could not be created
	Write(snap material.Snapshot) error

	// Buffer returns the resident buffer for a block, or nil.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(group, binding int) *wgpu.Buffer

	// Keys returns the resident blocks as (group, binding) pairs in ascending order.
	//
	// Returns:
	//   - [][2]int: the resident blocks
	Keys() [][2]int

	// Created returns how many buffers have been allocated over the bindings' lifetime.
	//
	// Returns:
	//   - int: the allocation count
	Created() int

	// Release frees every resident buffer.
	Release()
}

var _ MaterialBindings = &materialBindings{}

// NewMaterialBindings creates an empty binding set for one material.
//
// Parameters:
//   - label: a debug label, usually the material name
//   - allocator: the buffer allocator
//
// Returns:
//   - MaterialBindings: the binding set
func NewMaterialBindings(label string, allocator BufferAllocator) MaterialBindings {
	if allocator == nil {
		panic("device: NewMaterialBindings requires an allocator")
	}
	return &materialBindings{
		label:     label,
		allocator: allocator,
		buffers:   make(map[bindingKey]residentBuffer),
		releaser:  func(b *wgpu.Buffer) { b.Release() },
	}
}

func (m *materialBindings) Write(snap material.Snapshot) error {
	for _, w := range snap.Buffers {
		key := bindingKey{group: w.Group, binding: w.Binding}
		if r, ok := m.buffers[key]; ok {
			if r.size == len(w.Data) {
				m.allocator.WriteBuffer(r.buf, w.Data)
				continue
			}
			m.releaser(r.buf)
			delete(m.buffers, key)
		}

		label := fmt.Sprintf("%s Uniform Buffer %d/%d", m.label, w.Group, w.Binding)
		buf, err := m.allocator.CreateBuffer(label, w.Data, wgpu.BufferUsageUniform)
		if err != nil {
			return err
		}
		m.buffers[key] = residentBuffer{buf: buf, size: len(w.Data)}
		m.created++
	}
	return nil
}

func (m *materialBindings) Buffer(group, binding int) *wgpu.Buffer {
	return m.buffers[bindingKey{group: group, binding: binding}].buf
}

func (m *materialBindings) Keys() [][2]int {
	keys := make([][2]int, 0, len(m.buffers))
	for k := range m.buffers {
		keys = append(keys, [2]int{k.group, k.binding})
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	return keys
}

func (m *materialBindings) Created() int {
	return m.created
}

func (m *materialBindings) Release() {
	for k, r := range m.buffers {
		if r.buf != nil {
			m.releaser(r.buf)
		}
		delete(m.buffers, k)
	}
}
