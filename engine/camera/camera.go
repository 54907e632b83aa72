package camera

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// camera is the implementation of the Camera interface. The eye orbits the target on a
// sphere described by radius, azimuth around +Y and elevation above the XZ plane.
type camera struct {
	mu sync.Mutex

	up     mgl32.Vec3
	fov    float32
	aspect float32
	near   float32
	far    float32

	target    mgl32.Vec3
	radius    float32
	azimuth   float32
	elevation float32

	minRadius    float32
	maxRadius    float32
	maxElevation float32
}

// Camera is a perspective orbit camera looking at a target point.
type Camera interface {
	// Position returns the eye position in world space.
	//
	// Returns:
	//   - mgl32.Vec3: the eye
	Position() mgl32.Vec3

	// Target returns the point the camera looks at.
	//
	// Returns:
	//   - mgl32.Vec3: the target
	Target() mgl32.Vec3

	// ViewMatrix returns the world-to-view transform.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the perspective projection.
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionMatrix() mgl32.Mat4

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// SetAspect sets the aspect ratio (width / height).
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// LookAt places the eye and target, deriving the orbit from their offset.
	//
	// Parameters:
	//   - eye: the eye position
	//   - target: the target position
	LookAt(eye, target mgl32.Vec3)

	// Orbit rotates the eye around the target. Elevation is clamped short of the poles.
	//
	// Parameters:
	//   - dAzimuth: radians around +Y
	//   - dElevation: radians towards +Y
	Orbit(dAzimuth, dElevation float32)

	// Zoom moves the eye along the view direction, clamped to the radius limits.
	//
	// Parameters:
	//   - delta: change in distance, negative moves closer
	Zoom(delta float32)
}

var _ Camera = &camera{}

// NewCamera creates a camera with a 45 degree field of view, near 0.1, far 100, looking at
// the origin from (4, 4, 4).
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &camera{
		up:           mgl32.Vec3{0, 1, 0},
		fov:          mgl32.DegToRad(45),
		aspect:       1,
		near:         0.1,
		far:          100,
		minRadius:    0.5,
		maxRadius:    50,
		maxElevation: math32.Pi/2 - 0.01,
	}
	c.lookAt(mgl32.Vec3{4, 4, 4}, mgl32.Vec3{})
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *camera) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position()
}

func (c *camera) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *camera) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return mgl32.LookAtV(c.position(), c.target, c.up)
}

func (c *camera) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return mgl32.Perspective(c.fov, c.aspect, c.near, c.far)
}

func (c *camera) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *camera) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
}

func (c *camera) LookAt(eye, target mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookAt(eye, target)
}

func (c *camera) Orbit(dAzimuth, dElevation float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.azimuth = math32.Mod(c.azimuth+dAzimuth, 2*math32.Pi)
	c.elevation = mgl32.Clamp(c.elevation+dElevation, -c.maxElevation, c.maxElevation)
}

func (c *camera) Zoom(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.radius = mgl32.Clamp(c.radius+delta, c.minRadius, c.maxRadius)
}

// position computes the eye from the orbit. Caller must hold the mutex.
func (c *camera) position() mgl32.Vec3 {
	cosE, sinE := math32.Cos(c.elevation), math32.Sin(c.elevation)
	return c.target.Add(mgl32.Vec3{
		c.radius * cosE * math32.Sin(c.azimuth),
		c.radius * sinE,
		c.radius * cosE * math32.Cos(c.azimuth),
	})
}

// lookAt derives the orbit from an eye and target. Caller must hold the mutex.
func (c *camera) lookAt(eye, target mgl32.Vec3) {
	offset := eye.Sub(target)
	r := offset.Len()
	if r < 1e-6 {
		return
	}
	c.target = target
	c.radius = r
	c.azimuth = math32.Atan2(offset.X(), offset.Z())
	c.elevation = math32.Asin(mgl32.Clamp(offset.Y()/r, -1, 1))
	c.minRadius = min(c.minRadius, r)
	c.maxRadius = max(c.maxRadius, r)
}
