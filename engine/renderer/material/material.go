package material

import (
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-ibl/engine/renderer/shader"
)

// valueRange bounds a scalar uniform.
type valueRange struct {
	min, max float32
}

// material is the implementation of the Material interface.
type material struct {
	mu      sync.RWMutex
	name    string
	program shader.Program
	values  map[string]Value
	ranges  map[string]valueRange
}

// Material binds a compiled program to a set of uniform values. Values are checked against
// the program's static uniform table when set; a name the program does not declare is an
// error rather than silently ignored.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Program returns the currently bound program.
	//
	// Returns:
	//   - shader.Program: the program
	Program() shader.Program

	// SetProgram rebinds the material to a new program, typically after a recompile. Values
	// whose uniform no longer exists or changed kind are dropped and logged.
	//
	// Parameters:
	//   - program: the new program
	SetProgram(program shader.Program)

	// Set assigns a uniform value. Scalars with a configured range are clamped.
	//
	// Parameters:
	//   - name: the uniform name
	//   - v: the value
	//
	// Returns:
	//   - error: wrapping ErrUnknownUniform or ErrKindMismatch
	Set(name string, v Value) error

	// Get returns the value currently assigned to a uniform.
	//
	// Parameters:
	//   - name: the uniform name
	//
	// Returns:
	//   - Value: the value
	//   - bool: false if nothing is assigned
	Get(name string) (Value, bool)

	// Range returns the configured scalar range of a uniform.
	//
	// Parameters:
	//   - name: the uniform name
	//
	// Returns:
	//   - float32: lower bound
	//   - float32: upper bound
	//   - bool: false if the uniform has no range
	Range(name string) (float32, float32, bool)

	// Snapshot resolves every assigned value into uniform buffer writes and texture unit
	// bindings, in uniform table order.
	//
	// Returns:
	//   - Snapshot: the resolved uniforms
	//   - error: wrapping ErrTextureReleased if a referenced texture is gone
	Snapshot() (Snapshot, error)
}

var _ Material = &material{}

// NewMaterial creates a material for program. Defaults from the PBR table are applied for
// every uniform the program declares, then the options.
//
// Parameters:
//   - program: the compiled program, must not be nil
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(program shader.Program, options ...MaterialBuilderOption) Material {
	if program == nil {
		panic("material: program must not be nil")
	}
	m := &material{
		name:    program.Key().String(),
		program: program,
		values:  make(map[string]Value),
		ranges:  make(map[string]valueRange),
	}
	for name, v := range Defaults() {
		if u, ok := program.Uniform(name); ok && matches(u, v) {
			m.values[name] = v
		}
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Program() shader.Program {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.program
}

func (m *material) SetProgram(program shader.Program) {
	if program == nil {
		panic("material: program must not be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.program = program
	for name, v := range m.values {
		if u, ok := program.Uniform(name); !ok || !matches(u, v) {
			log.Printf("[Material] %s: dropping %s, not declared by %s", m.name, name, program.Key())
			delete(m.values, name)
		}
	}
}

func (m *material) Set(name string, v Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.program.Uniform(name)
	if !ok {
		return fmt.Errorf("material %s: %q: %w", m.name, name, ErrUnknownUniform)
	}
	if !matches(u, v) {
		return fmt.Errorf("material %s: %q is a %s %s: %w", m.name, name, u.Kind, u.Type, ErrKindMismatch)
	}
	if r, ok := m.ranges[name]; ok && v.kind == shader.UniformKindScalar {
		v = Scalar(min(max(v.data[0], r.min), r.max))
	}
	m.values[name] = v
	return nil
}

func (m *material) Get(name string) (Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[name]
	return v, ok
}

func (m *material) Range(name string) (float32, float32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.ranges[name]
	return r.min, r.max, ok
}

func (m *material) Snapshot() (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return resolve(m.name, m.program, m.values)
}

// matches reports whether v can be assigned to u.
func matches(u shader.Uniform, v Value) bool {
	if u.Kind != v.kind {
		return false
	}
	switch u.Kind {
	case shader.UniformKindScalar, shader.UniformKindVector, shader.UniformKindMatrix:
		return len(v.data) == u.Components
	case shader.UniformKindTexture:
		return u.Dimension == v.dim
	default:
		return false
	}
}
