package ibl

import (
	_ "embed"
	"encoding/binary"
	"math"
)

// GPUSamplePointSetSource is the canonical WGSL definition of the SamplePointSet struct.
// Matches GPUSamplePointSet.Marshal exactly: a 16-byte header followed by one vec4<f32>
// per point.
//
//go:embed assets/sample_point_set.wgsl
var GPUSamplePointSetSource string

// GPUSamplePointSet is the GPU layout of a SamplePointSet for a read-only storage binding.
// Each point occupies one vec4<f32> row as (x, y, 0, 0).
type GPUSamplePointSet struct {
	Count  uint32       // offset 0: number of points, followed by 12 bytes of padding
	Points [][4]float32 // offset 16: one 16-byte row per point
}

// Size returns the marshaled size in bytes.
//
// Returns:
//   - int: 16 + 16·Count
func (g *GPUSamplePointSet) Size() int {
	return 16 + 16*len(g.Points)
}

// Marshal serializes the set into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: Size() bytes, little endian
func (g *GPUSamplePointSet) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:4], g.Count)
	for i, p := range g.Points {
		off := 16 + 16*i
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(p[0]))
		binary.LittleEndian.PutUint32(buf[off+4:off+8], math.Float32bits(p[1]))
		binary.LittleEndian.PutUint32(buf[off+8:off+12], math.Float32bits(p[2]))
		binary.LittleEndian.PutUint32(buf[off+12:off+16], math.Float32bits(p[3]))
	}
	return buf
}
