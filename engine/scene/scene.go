package scene

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-ibl/engine/camera"
	"github.com/Carmen-Shannon/oxy-ibl/engine/ibl"
	"github.com/Carmen-Shannon/oxy-ibl/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
)

// Scene defaults, one 1280x720 target split into a 4x3 grid.
const (
	DefaultWidth   = 1280
	DefaultHeight  = 720
	DefaultColumns = 4
	DefaultRows    = 3
)

// ErrGridFull is returned by Add when every viewport already has a material.
var ErrGridFull = errors.New("scene: no free viewport")

// Draw is one material resolved for a frame, with the cell it renders into.
type Draw struct {
	Viewport Viewport
	Snapshot material.Snapshot
}

// Frame is the resolved state of every material for one frame, in the order the materials
// were added.
type Frame struct {
	Index uint64
	Draws []Draw
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu sync.RWMutex

	name          string
	width, height int
	cols, rows    int
	margin        int

	viewports []Viewport
	materials []material.Material

	env      *ibl.Environment
	pointSet *texture.Image
	cam      camera.Camera

	// pool resolves material snapshots in parallel; a WaitGroup is the per-frame barrier.
	pool    worker.DynamicWorkerPool
	workers int
	taskID  int
	frame   uint64
}

// Scene owns a set of materials laid out on a viewport grid, the camera they share and the
// precomputed Environment their texture uniforms point at. The Scene keeps the Environment
// alive; materials only hold weak references into it.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Size returns the render target size.
	//
	// Returns:
	//   - int: width
	//   - int: height
	Size() (int, int)

	// Camera returns the shared camera.
	Camera() camera.Camera

	// Add places a material in the next free viewport and binds the current Environment to it.
	//
	// Parameters:
	//   - m: the material
	//
	// Returns:
	//   - Viewport: the assigned cell
	//   - error: ErrGridFull, or an error binding the environment
	Add(m material.Material) (Viewport, error)

	// Materials returns the materials in the order they were added.
	Materials() []material.Material

	// Material looks a material up by name, nil if absent.
	//
	// Parameters:
	//   - name: the material name
	//
	// Returns:
	//   - material.Material: the material or nil
	Material(name string) material.Material

	// Viewports returns every cell of the grid, including unused ones.
	Viewports() []Viewport

	// Environment returns the bound precompute result, or nil.
	Environment() *ibl.Environment

	// SetEnvironment takes ownership of env and points every material's environment
	// textures at it. Materials that do not declare a given uniform are skipped.
	//
	// Parameters:
	//   - env: the precompute result
	//
	// Returns:
	//   - error: the first material that rejected a value
	SetEnvironment(env *ibl.Environment) error

	// Frame writes the camera uniforms into every material, then snapshots all of them in
	// parallel.
	//
	// Returns:
	//   - Frame: the resolved frame
	//   - error: the first snapshot error
	Frame() (Frame, error)

	// Release stops the snapshot workers.
	Release()
}

var _ Scene = &scene{}

// NewScene creates an empty scene with the default target size and grid.
//
// Parameters:
//   - name: the scene name
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		name:    name,
		width:   DefaultWidth,
		height:  DefaultHeight,
		cols:    DefaultColumns,
		rows:    DefaultRows,
		workers: max(runtime.NumCPU()-1, 1),
	}
	for _, option := range options {
		option(s)
	}
	s.viewports = Grid(s.width, s.height, s.cols, s.rows, s.margin)
	if s.cam == nil {
		s.cam = camera.NewCamera()
	}
	if len(s.viewports) > 0 {
		s.cam.SetAspect(s.viewports[0].Aspect())
	}
	s.pool = worker.NewDynamicWorkerPool(s.workers, 256, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Size() (int, int) {
	return s.width, s.height
}

func (s *scene) Camera() camera.Camera {
	return s.cam
}

func (s *scene) Add(m material.Material) (Viewport, error) {
	if m == nil {
		panic("scene: Add requires a non-nil Material")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.materials) >= len(s.viewports) {
		return Viewport{}, fmt.Errorf("%w: %d cells", ErrGridFull, len(s.viewports))
	}
	if s.env != nil {
		if err := s.bindEnvironment(m); err != nil {
			return Viewport{}, err
		}
	}
	s.materials = append(s.materials, m)
	return s.viewports[len(s.materials)-1], nil
}

func (s *scene) Materials() []material.Material {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]material.Material(nil), s.materials...)
}

func (s *scene) Material(name string) material.Material {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.materials {
		if m.Name() == name {
			return m
		}
	}
	return nil
}

func (s *scene) Viewports() []Viewport {
	return append([]Viewport(nil), s.viewports...)
}

func (s *scene) Environment() *ibl.Environment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.env
}

func (s *scene) SetEnvironment(env *ibl.Environment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env = env
	s.pointSet = nil
	if env != nil && env.SpecularSamples != nil {
		s.pointSet = env.SpecularSamples.Image()
	}
	for _, m := range s.materials {
		if err := s.bindEnvironment(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *scene) Frame() (Frame, error) {
	s.mu.Lock()
	s.frame++
	index := s.frame
	materials := append([]material.Material(nil), s.materials...)
	s.mu.Unlock()

	view, projection, eye := s.cam.ViewMatrix(), s.cam.ProjectionMatrix(), s.cam.Position()
	for _, m := range materials {
		for name, v := range map[string]material.Value{
			"view":       material.Matrix(view),
			"projection": material.Matrix(projection),
			"eye":        material.Vector(eye[:]...),
		} {
			if err := setIfDeclared(m, name, v); err != nil {
				return Frame{}, err
			}
		}
	}

	frame := Frame{Index: index, Draws: make([]Draw, len(materials))}
	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	for i, m := range materials {
		wg.Add(1)
		s.mu.Lock()
		id := s.taskID
		s.taskID++
		s.mu.Unlock()
		s.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				snap, err := m.Snapshot()
				if err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					errMu.Unlock()
					return nil, err
				}
				frame.Draws[i] = Draw{Viewport: s.viewports[i], Snapshot: snap}
				return nil, nil
			},
		})
	}
	wg.Wait()
	if firstErr != nil {
		log.Printf("[Scene] %s: frame %d: %v", s.name, index, firstErr)
		return Frame{}, firstErr
	}
	return frame, nil
}

func (s *scene) Release() {
	s.pool.Stop()
}

// bindEnvironment points m's environment uniforms at the current Environment. Caller must
// hold the write lock.
func (s *scene) bindEnvironment(m material.Material) error {
	if s.env == nil {
		return nil
	}
	values := map[string]material.Value{
		"uSpecularLevels": material.Scalar(float32(s.env.SpecularLevels())),
	}
	if s.env.Specular != nil {
		values["uReflectionMap"] = material.CubeTexture(s.env.Specular)
	}
	if s.env.Irradiance != nil {
		values["uIrradianceMap"] = material.CubeTexture(s.env.Irradiance)
	}
	if s.env.BRDF != nil {
		values["uBRDFLut"] = material.ImageTexture(s.env.BRDF)
	}
	if s.pointSet != nil {
		values["uHammersleyPointSetMap"] = material.ImageTexture(s.pointSet)
	}
	for name, v := range values {
		if err := setIfDeclared(m, name, v); err != nil {
			return err
		}
	}
	return nil
}

// setIfDeclared assigns v unless m's program does not declare name.
func setIfDeclared(m material.Material, name string, v material.Value) error {
	err := m.Set(name, v)
	if errors.Is(err, material.ErrUnknownUniform) {
		return nil
	}
	return err
}
