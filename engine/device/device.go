// Package device is the graphics device abstraction the IBL precompute is expressed in.
// A stage describes its work as a pass: a destination texture level plus a per-texel
// kernel. The device executes every texel of the pass, in any order and in parallel, and
// Submit blocks until the whole pass has completed, so the control goroutine can issue
// dependent passes strictly in sequence.
package device

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
)

// Kernel computes one destination texel of a cube pass. It must only read immutable inputs
// and must not write shared state; it may be called concurrently for different texels.
type Kernel func(face texture.Face, x, y int) [4]float32

// ImageKernel computes one destination texel of a 2D pass under the same rules as Kernel.
type ImageKernel func(x, y int) [4]float32

// CubePass writes every texel of one mip level of a cubemap, on all six faces.
type CubePass struct {
	// Label identifies the pass in logs and errors.
	Label string
	// Target is the cubemap that receives the results.
	Target *texture.Cubemap
	// Level is the mip level of Target that is written.
	Level int
	// Kernel produces each texel.
	Kernel Kernel
}

// ImagePass writes every texel of a 2D image.
type ImagePass struct {
	// Label identifies the pass in logs and errors.
	Label string
	// Target is the image that receives the results.
	Target *texture.Image
	// Kernel produces each texel.
	Kernel ImageKernel
}

// Device executes passes. Implementations parallelize texel work internally; callers
// never do.
type Device interface {
	// SubmitCube executes a cube pass and blocks until every texel has been written.
	//
	// Parameters:
	//   - pass: the pass to execute
	//
	// Returns:
	//   - error: if the pass is malformed or a kernel failed; the target contents are then undefined
	SubmitCube(pass CubePass) error

	// SubmitImage executes a 2D pass and blocks until every texel has been written.
	//
	// Parameters:
	//   - pass: the pass to execute
	//
	// Returns:
	//   - error: if the pass is malformed or a kernel failed; the target contents are then undefined
	SubmitImage(pass ImagePass) error

	// Passes returns the number of passes executed so far.
	//
	// Returns:
	//   - int: the pass count
	Passes() int

	// Release frees the device's execution resources. The device must not be used afterwards.
	Release()
}

// ErrInvalidPass is wrapped by errors returned for malformed passes.
var ErrInvalidPass = errors.New("invalid pass")

func validateCubePass(pass CubePass) error {
	if pass.Target == nil {
		return fmt.Errorf("device: pass %q: %w: nil target", pass.Label, ErrInvalidPass)
	}
	if pass.Kernel == nil {
		return fmt.Errorf("device: pass %q: %w: nil kernel", pass.Label, ErrInvalidPass)
	}
	if pass.Level < 0 || pass.Level >= pass.Target.Levels() {
		return fmt.Errorf("device: pass %q: %w: level %d outside [0,%d)", pass.Label, ErrInvalidPass, pass.Level, pass.Target.Levels())
	}
	return nil
}

func validateImagePass(pass ImagePass) error {
	if pass.Target == nil {
		return fmt.Errorf("device: pass %q: %w: nil target", pass.Label, ErrInvalidPass)
	}
	if pass.Kernel == nil {
		return fmt.Errorf("device: pass %q: %w: nil kernel", pass.Label, ErrInvalidPass)
	}
	return nil
}
