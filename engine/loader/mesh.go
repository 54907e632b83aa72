package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ibl/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Sphere generates a unit UV sphere with the given number of latitude rings and longitude
// segments. The seam column is duplicated so texture coordinates run 0..1 without wrapping.
// Triangles wind counter-clockwise seen from outside.
//
// Parameters:
//   - rings: latitude subdivisions, at least 2
//   - segments: longitude subdivisions, at least 3
//
// Returns:
//   - *common.MeshData: positions, normals, uvs and indices
//   - error: if the subdivision counts are too small
func Sphere(rings, segments int) (*common.MeshData, error) {
	if rings < 2 || segments < 3 {
		return nil, fmt.Errorf("loader: sphere needs at least 2 rings and 3 segments, got %d and %d", rings, segments)
	}

	verts := (rings + 1) * (segments + 1)
	m := &common.MeshData{
		Positions: make([]float32, 0, verts*3),
		Normals:   make([]float32, 0, verts*3),
		UVs:       make([]float32, 0, verts*2),
		Indices:   make([]uint32, 0, rings*segments*6),
	}

	for r := 0; r <= rings; r++ {
		v := float32(r) / float32(rings)
		theta := v * math32.Pi
		for s := 0; s <= segments; s++ {
			u := float32(s) / float32(segments)
			phi := u * 2 * math32.Pi
			n := mgl32.Vec3{
				math32.Sin(theta) * math32.Cos(phi),
				math32.Cos(theta),
				-math32.Sin(theta) * math32.Sin(phi),
			}
			m.Positions = append(m.Positions, n.X(), n.Y(), n.Z())
			m.Normals = append(m.Normals, n.X(), n.Y(), n.Z())
			m.UVs = append(m.UVs, u, v)
		}
	}

	stride := uint32(segments + 1)
	for r := range uint32(rings) {
		for s := range uint32(segments) {
			a := r*stride + s
			b := a + stride
			m.Indices = append(m.Indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return m, nil
}
