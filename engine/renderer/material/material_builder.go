package material

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithRange is an option builder that bounds a scalar uniform. Values set later are clamped,
// and an already assigned value is clamped immediately.
//
// Parameters:
//   - name: the uniform name
//   - lo: the lower bound
//   - hi: the upper bound
//
// Returns:
//   - MaterialBuilderOption: a function that applies the range option to a material
func WithRange(name string, lo, hi float32) MaterialBuilderOption {
	return func(m *material) {
		m.ranges[name] = valueRange{min: lo, max: hi}
		if v, ok := m.values[name]; ok && len(v.data) == 1 {
			m.values[name] = Scalar(min(max(v.data[0], lo), hi))
		}
	}
}

// WithValue is an option builder that assigns an initial uniform value. Values the program
// cannot accept are ignored; use Set to get the error.
//
// Parameters:
//   - name: the uniform name
//   - v: the value
//
// Returns:
//   - MaterialBuilderOption: a function that applies the value option to a material
func WithValue(name string, v Value) MaterialBuilderOption {
	return func(m *material) {
		if u, ok := m.program.Uniform(name); ok && matches(u, v) {
			m.values[name] = v
		}
	}
}
