package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraBuilderOption is a functional option for configuring a Camera via NewCamera.
type CameraBuilderOption func(*camera)

// WithFov sets the camera's vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *camera) {
		c.fov = fov
	}
}

// WithAspect sets the camera's aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio to set
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *camera) {
		if aspect > 0 {
			c.aspect = aspect
		}
	}
}

// WithNearFar sets the clipping planes.
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the clipping planes
func WithNearFar(near, far float32) CameraBuilderOption {
	return func(c *camera) {
		c.near = near
		c.far = far
	}
}

// WithEye places the eye and target.
//
// Parameters:
//   - eye: the eye position
//   - target: the point looked at
//
// Returns:
//   - CameraBuilderOption: a function that positions the camera
func WithEye(eye, target mgl32.Vec3) CameraBuilderOption {
	return func(c *camera) {
		c.lookAt(eye, target)
	}
}

// WithRadiusLimits bounds the orbit distance used by Zoom.
//
// Parameters:
//   - lo: the closest distance
//   - hi: the farthest distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the radius limits
func WithRadiusLimits(lo, hi float32) CameraBuilderOption {
	return func(c *camera) {
		c.minRadius = lo
		c.maxRadius = hi
	}
}
