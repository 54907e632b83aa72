package device

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-ibl/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
)

type fakeAllocator struct {
	creates int
	writes  int
	fail    error
}

func (f *fakeAllocator) CreateBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.creates++
	return new(wgpu.Buffer), nil
}

func (f *fakeAllocator) WriteBuffer(buf *wgpu.Buffer, data []byte) {
	f.writes++
}

func newTestBindings(alloc BufferAllocator) (*materialBindings, *int) {
	released := 0
	m := NewMaterialBindings("test", alloc).(*materialBindings)
	m.releaser = func(*wgpu.Buffer) { released++ }
	return m, &released
}

func TestMaterialBindingsCreateThenWrite(t *testing.T) {
	alloc := &fakeAllocator{}
	m, released := newTestBindings(alloc)

	snap := material.Snapshot{Buffers: []material.BufferWrite{
		{Group: 0, Binding: 0, Data: make([]byte, 144)},
		{Group: 1, Binding: 0, Data: make([]byte, 64)},
	}}
	for range 3 {
		if err := m.Write(snap); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if alloc.creates != 2 || alloc.writes != 4 {
		t.Fatalf("creates=%d writes=%d, want 2 and 4", alloc.creates, alloc.writes)
	}
	if m.Created() != 2 {
		t.Fatalf("Created = %d", m.Created())
	}
	keys := m.Keys()
	if len(keys) != 2 || keys[0] != [2]int{0, 0} || keys[1] != [2]int{1, 0} {
		t.Fatalf("Keys = %v", keys)
	}
	if m.Buffer(1, 0) == nil || m.Buffer(2, 0) != nil {
		t.Fatal("Buffer lookup mismatch")
	}

	m.Release()
	if *released != 2 || len(m.Keys()) != 0 {
		t.Fatalf("released %d, %d keys left", *released, len(m.Keys()))
	}
}

func TestMaterialBindingsRecreateOnResize(t *testing.T) {
	alloc := &fakeAllocator{}
	m, released := newTestBindings(alloc)

	for _, size := range []int{64, 16} {
		snap := material.Snapshot{Buffers: []material.BufferWrite{{Group: 1, Binding: 0, Data: make([]byte, size)}}}
		if err := m.Write(snap); err != nil {
			t.Fatalf("Write %d bytes: %v", size, err)
		}
	}
	if m.Created() != 2 || len(m.Keys()) != 1 {
		t.Fatalf("Created = %d with %d resident blocks, want 2 and 1", m.Created(), len(m.Keys()))
	}

	if alloc.creates != 2 || alloc.writes != 0 || *released != 1 {
		t.Fatalf("creates=%d writes=%d released=%d", alloc.creates, alloc.writes, *released)
	}
}

func TestMaterialBindingsCreateError(t *testing.T) {
	want := errors.New("out of memory")
	m, _ := newTestBindings(&fakeAllocator{fail: want})
	err := m.Write(material.Snapshot{Buffers: []material.BufferWrite{{Data: make([]byte, 16)}}})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
	if len(m.Keys()) != 0 {
		t.Fatal("failed create left a resident buffer")
	}
}

func TestNewMaterialBindingsNilPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewMaterialBindings("x", nil)
}
