package texture

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ibl/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Cubemap is six square faces, each an ordered list of mip levels. Level l of every face
// has side length max(1, Size>>l). A Cubemap produced by a pipeline stage is treated as
// immutable once the stage returns.
type Cubemap struct {
	// Label identifies the cubemap in logs and errors.
	Label string

	size  int
	faces [FaceCount][]*Image
}

// NewCubemap allocates a cubemap with `levels` zeroed mip levels per face.
// Panics if size or levels is not positive.
//
// Parameters:
//   - label: a name for logs and errors
//   - size: the level 0 side length
//   - levels: the number of mip levels to allocate
//
// Returns:
//   - *Cubemap: the new cubemap
func NewCubemap(label string, size, levels int) *Cubemap {
	if size <= 0 || levels <= 0 {
		panic(fmt.Sprintf("texture: invalid cubemap %q size %d levels %d", label, size, levels))
	}
	c := &Cubemap{Label: label, size: size}
	for _, f := range Faces {
		c.faces[f] = make([]*Image, 0, levels)
	}
	for range levels {
		c.AddLevel()
	}
	return c
}

// NewCubemapFromFaces assembles a cubemap from externally produced face images, indexed
// [face][level]. The result is validated so a mismatched face or level is reported as a
// *common.ResourceMismatchError.
//
// Parameters:
//   - label: a name for logs and errors
//   - faces: per-face mip chains, all with the same number of levels
//
// Returns:
//   - *Cubemap: the assembled cubemap
//   - error: a *common.ResourceMismatchError if dimensions disagree
func NewCubemapFromFaces(label string, faces [FaceCount][]*Image) (*Cubemap, error) {
	if len(faces[0]) == 0 || faces[0][0] == nil {
		return nil, &common.ResourceMismatchError{Resource: label, Level: 0, Detail: "face +X has no level 0"}
	}
	c := &Cubemap{Label: label, size: faces[0][0].Width, faces: faces}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Size returns the side length of the given level.
func (c *Cubemap) Size(level int) int {
	return common.LevelSize(c.size, level)
}

// Levels returns the number of mip levels held by every face.
func (c *Cubemap) Levels() int {
	return len(c.faces[FacePositiveX])
}

// Face returns the image for a face at a level.
func (c *Cubemap) Face(f Face, level int) *Image {
	return c.faces[f][level]
}

// AddLevel appends a zeroed level of the next size in the halving chain to every face.
//
// Returns:
//   - int: the index of the new level
func (c *Cubemap) AddLevel() int {
	level := c.Levels()
	s := c.Size(level)
	for _, f := range Faces {
		c.faces[f] = append(c.faces[f], NewImage(s, s))
	}
	return level
}

// Fill sets every texel of every face and level to col.
func (c *Cubemap) Fill(col [4]float32) {
	for _, f := range Faces {
		for _, img := range c.faces[f] {
			img.Fill(col)
		}
	}
}

// Validate checks that each level is square, follows the halving chain and matches across
// all six faces.
//
// Returns:
//   - error: a *common.ResourceMismatchError describing the first violation, or nil
func (c *Cubemap) Validate() error {
	levels := len(c.faces[FacePositiveX])
	for _, f := range Faces {
		if len(c.faces[f]) != levels {
			return &common.ResourceMismatchError{
				Resource: c.Label,
				Detail:   fmt.Sprintf("face %s has %d levels, face +X has %d", f, len(c.faces[f]), levels),
			}
		}
	}
	for level := range levels {
		want := c.Size(level)
		for _, f := range Faces {
			img := c.faces[f][level]
			if img == nil {
				return &common.ResourceMismatchError{Resource: c.Label, Level: level, Detail: fmt.Sprintf("face %s is missing", f)}
			}
			if img.Width != want || img.Height != want {
				return &common.ResourceMismatchError{
					Resource: c.Label,
					Level:    level,
					Detail:   fmt.Sprintf("face %s is %dx%d, expected %dx%d", f, img.Width, img.Height, want, want),
				}
			}
		}
	}
	return nil
}

// Sample returns the bilinearly filtered value along dir at one mip level. Filtering
// clamps at the edges of the face the direction pierces; neighbouring faces are not read.
//
// Parameters:
//   - dir: the lookup direction (need not be normalized, must not be zero)
//   - level: the mip level
//
// Returns:
//   - [4]float32: the RGBA value
func (c *Cubemap) Sample(dir mgl32.Vec3, level int) [4]float32 {
	f, u, v := DirectionToFace(dir)
	return c.faces[f][level].Bilinear(u, v, false)
}

// SampleLod returns the trilinearly filtered value along dir at a fractional level of
// detail, clamped to the available levels.
//
// Parameters:
//   - dir: the lookup direction
//   - lod: the fractional mip level
//
// Returns:
//   - [4]float32: the RGBA value
func (c *Cubemap) SampleLod(dir mgl32.Vec3, lod float32) [4]float32 {
	maxLevel := float32(c.Levels() - 1)
	lod = common.Clamp(lod, 0, maxLevel)
	lo := math32.Floor(lod)
	t := lod - lo
	a := c.Sample(dir, int(lo))
	if t == 0 {
		return a
	}
	b := c.Sample(dir, int(lo)+1)
	for i := range a {
		a[i] = a[i]*(1-t) + b[i]*t
	}
	return a
}

// TexelSolidAngle returns the approximate solid angle covered by one texel of the given
// level, treating all texels as equal: 4π / (6·size²).
func (c *Cubemap) TexelSolidAngle(level int) float32 {
	s := float32(c.Size(level))
	return 4 * math32.Pi / (6 * s * s)
}
