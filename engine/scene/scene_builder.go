package scene

import (
	"github.com/Carmen-Shannon/oxy-ibl/engine/camera"
	"github.com/Carmen-Shannon/oxy-ibl/engine/ibl"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithSize sets the render target size the grid is laid out on.
//
// Parameters:
//   - width: the target width in pixels
//   - height: the target height in pixels
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSize(width, height int) SceneBuilderOption {
	return func(s *scene) {
		if width > 0 && height > 0 {
			s.width, s.height = width, height
		}
	}
}

// WithGrid sets the viewport grid. Defaults to 4 columns, 3 rows and no margin.
//
// Parameters:
//   - cols: the number of columns
//   - rows: the number of rows
//   - margin: the inset on every side of a cell
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithGrid(cols, rows, margin int) SceneBuilderOption {
	return func(s *scene) {
		if cols > 0 && rows > 0 {
			s.cols, s.rows = cols, rows
		}
		s.margin = max(margin, 0)
	}
}

// WithCamera replaces the default camera.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCamera(cam camera.Camera) SceneBuilderOption {
	return func(s *scene) {
		s.cam = cam
	}
}

// WithEnvironment binds a precompute result before any material is added.
//
// Parameters:
//   - env: the environment
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithEnvironment(env *ibl.Environment) SceneBuilderOption {
	return func(s *scene) {
		s.env = env
		if env != nil && env.SpecularSamples != nil {
			s.pointSet = env.SpecularSamples.Image()
		}
	}
}

// WithWorkers sets the number of goroutines resolving material snapshots. Defaults to
// runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		s.workers = max(n, 1)
	}
}
