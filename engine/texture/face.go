package texture

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Face identifies one face of a cubemap. The order matches the WebGPU / OpenGL cube
// layer order and is used as the array layer index on upload.
type Face int

const (
	// FacePositiveX is the +X face.
	FacePositiveX Face = iota
	// FaceNegativeX is the -X face.
	FaceNegativeX
	// FacePositiveY is the +Y face.
	FacePositiveY
	// FaceNegativeY is the -Y face.
	FaceNegativeY
	// FacePositiveZ is the +Z face.
	FacePositiveZ
	// FaceNegativeZ is the -Z face.
	FaceNegativeZ
)

// FaceCount is the number of faces in a cubemap.
const FaceCount = 6

// Faces lists every face in layer order.
var Faces = [FaceCount]Face{FacePositiveX, FaceNegativeX, FacePositiveY, FaceNegativeY, FacePositiveZ, FaceNegativeZ}

// FaceBasis holds the world-space vectors that span a cube face. The direction through
// face coordinates (s, t) in [-1, 1] is Forward + s*Right + t*Down, where s grows with the
// pixel column and t grows with the pixel row.
type FaceBasis struct {
	Forward mgl32.Vec3
	Right   mgl32.Vec3
	Down    mgl32.Vec3
}

// faceBases follows the cube map axes convention:
// https://www.khronos.org/opengl/wiki_opengl/images/CubeMapAxes.png
var faceBases = [FaceCount]FaceBasis{
	FacePositiveX: {Forward: mgl32.Vec3{1, 0, 0}, Right: mgl32.Vec3{0, 0, -1}, Down: mgl32.Vec3{0, -1, 0}},
	FaceNegativeX: {Forward: mgl32.Vec3{-1, 0, 0}, Right: mgl32.Vec3{0, 0, 1}, Down: mgl32.Vec3{0, -1, 0}},
	FacePositiveY: {Forward: mgl32.Vec3{0, 1, 0}, Right: mgl32.Vec3{1, 0, 0}, Down: mgl32.Vec3{0, 0, 1}},
	FaceNegativeY: {Forward: mgl32.Vec3{0, -1, 0}, Right: mgl32.Vec3{1, 0, 0}, Down: mgl32.Vec3{0, 0, -1}},
	FacePositiveZ: {Forward: mgl32.Vec3{0, 0, 1}, Right: mgl32.Vec3{1, 0, 0}, Down: mgl32.Vec3{0, -1, 0}},
	FaceNegativeZ: {Forward: mgl32.Vec3{0, 0, -1}, Right: mgl32.Vec3{-1, 0, 0}, Down: mgl32.Vec3{0, -1, 0}},
}

var faceNames = [FaceCount]string{"+X", "-X", "+Y", "-Y", "+Z", "-Z"}

func (f Face) String() string {
	if f < 0 || int(f) >= FaceCount {
		return "invalid"
	}
	return faceNames[f]
}

// Basis returns the spanning vectors of the face.
func (f Face) Basis() FaceBasis {
	return faceBases[f]
}

// TexelDirection returns the normalized direction through the centre of texel (x, y)
// on face f of a cube level with side length size.
//
// Parameters:
//   - f: the cube face
//   - x: the texel column
//   - y: the texel row
//   - size: the face side length in texels
//
// Returns:
//   - mgl32.Vec3: the unit direction
func TexelDirection(f Face, x, y, size int) mgl32.Vec3 {
	s := (2*float32(x)+1)/float32(size) - 1
	t := (2*float32(y)+1)/float32(size) - 1
	b := faceBases[f]
	return b.Forward.Add(b.Right.Mul(s)).Add(b.Down.Mul(t)).Normalize()
}

// DirectionToFace maps a direction to the face it pierces and normalized face
// coordinates (u, v) in [0, 1], where u follows pixel columns and v pixel rows.
// The direction does not need to be normalized but must not be zero.
//
// Parameters:
//   - dir: the lookup direction
//
// Returns:
//   - Face: the major-axis face
//   - float32: u coordinate
//   - float32: v coordinate
func DirectionToFace(dir mgl32.Vec3) (Face, float32, float32) {
	ax, ay, az := math32.Abs(dir[0]), math32.Abs(dir[1]), math32.Abs(dir[2])

	var f Face
	var major float32
	switch {
	case ax >= ay && ax >= az:
		major = ax
		if dir[0] >= 0 {
			f = FacePositiveX
		} else {
			f = FaceNegativeX
		}
	case ay >= az:
		major = ay
		if dir[1] >= 0 {
			f = FacePositiveY
		} else {
			f = FaceNegativeY
		}
	default:
		major = az
		if dir[2] >= 0 {
			f = FacePositiveZ
		} else {
			f = FaceNegativeZ
		}
	}

	b := faceBases[f]
	s := dir.Dot(b.Right) / major
	t := dir.Dot(b.Down) / major
	return f, (s + 1) * 0.5, (t + 1) * 0.5
}
