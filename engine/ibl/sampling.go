package ibl

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// tangentFrame returns two unit vectors that complete n to a right-handed orthonormal basis.
func tangentFrame(n mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	up := mgl32.Vec3{0, 1, 0}
	if math32.Abs(n.Y()) > 0.999 {
		up = mgl32.Vec3{1, 0, 0}
	}
	t := up.Cross(n).Normalize()
	b := n.Cross(t)
	return t, b
}

// toWorld expresses a tangent-space vector (x along t, y along b, z along n) in world space.
func toWorld(v mgl32.Vec3, t, b, n mgl32.Vec3) mgl32.Vec3 {
	return t.Mul(v.X()).Add(b.Mul(v.Y())).Add(n.Mul(v.Z()))
}

// cosineSample maps a point of the unit square to a cosine-weighted hemisphere direction
// around +Z: φ = 2πx, cosθ = √(1−y).
func cosineSample(x, y float32) (mgl32.Vec3, float32) {
	phi := 2 * math32.Pi * x
	cosTheta := math32.Sqrt(1 - y)
	sinTheta := math32.Sqrt(y)
	return mgl32.Vec3{sinTheta * math32.Cos(phi), sinTheta * math32.Sin(phi), cosTheta}, cosTheta
}

// ggxSample maps a point of the unit square to a GGX-distributed half vector around +Z for
// the given α: φ = 2πx, cosθ_h = √((1−y)/(1+(α²−1)y)).
func ggxSample(x, y, alpha float32) (mgl32.Vec3, float32) {
	a2 := alpha * alpha
	phi := 2 * math32.Pi * x
	cosTheta := math32.Sqrt((1 - y) / (1 + (a2-1)*y))
	sinTheta := math32.Sqrt(max(0, 1-cosTheta*cosTheta))
	return mgl32.Vec3{sinTheta * math32.Cos(phi), sinTheta * math32.Sin(phi), cosTheta}, cosTheta
}

// ggxD is the GGX normal distribution for N·H and α.
func ggxD(nDotH, alpha float32) float32 {
	a2 := alpha * alpha
	d := nDotH*nDotH*(a2-1) + 1
	return a2 / (math32.Pi * d * d)
}

// reflectAbout reflects v about unit h: 2(v·h)h − v.
func reflectAbout(v, h mgl32.Vec3) mgl32.Vec3 {
	return h.Mul(2 * v.Dot(h)).Sub(v)
}
