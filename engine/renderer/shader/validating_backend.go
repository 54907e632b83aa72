package shader

import (
	"errors"
	"fmt"
	"strings"
)

// validatedModule is the module produced by the validating backend. It holds no GPU state.
type validatedModule struct {
	label string
}

func (m *validatedModule) Release() {}

// validatingBackend is a ProgramBackend that checks a source structurally without a GPU.
type validatingBackend struct {
	required []ShaderType
}

var _ ProgramBackend = &validatingBackend{}

// NewValidatingBackend creates a backend that accepts a source when its brackets balance,
// no directive survived pre-processing and every required entry point is present. With no
// arguments, a vertex and a fragment entry point are required.
//
// Parameters:
//   - required: the stages that must have an entry point
//
// Returns:
//   - ProgramBackend: the backend
func NewValidatingBackend(required ...ShaderType) ProgramBackend {
	if len(required) == 0 {
		required = []ShaderType{ShaderTypeVertex, ShaderTypeFragment}
	}
	return &validatingBackend{required: required}
}

func (b *validatingBackend) CreateModule(label, source string) (Module, error) {
	cleaned := stripComments(source)

	var errs []error
	if err := checkBrackets(cleaned); err != nil {
		errs = append(errs, err)
	}
	for i, line := range strings.Split(cleaned, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			errs = append(errs, fmt.Errorf("line %d: unresolved directive %q", i+1, strings.TrimSpace(line)))
		}
	}
	for _, st := range b.required {
		if parseEntryPoint(cleaned, st) == "" {
			errs = append(errs, fmt.Errorf("missing %s entry point", stageName(st)))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &validatedModule{label: label}, nil
}

// checkBrackets verifies that (), [] and {} nest correctly.
func checkBrackets(source string) error {
	type open struct {
		ch   byte
		line int
	}
	pairs := map[byte]byte{')': '(', ']': '[', '}': '{'}
	var stack []open
	line := 1
	for i := 0; i < len(source); i++ {
		c := source[i]
		switch c {
		case '\n':
			line++
		case '(', '[', '{':
			stack = append(stack, open{c, line})
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1].ch != pairs[c] {
				return fmt.Errorf("line %d: unbalanced %q", line, c)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return fmt.Errorf("line %d: unclosed %q", top.line, top.ch)
	}
	return nil
}

func stageName(st ShaderType) string {
	switch st {
	case ShaderTypeVertex:
		return "@vertex"
	case ShaderTypeFragment:
		return "@fragment"
	case ShaderTypeCompute:
		return "@compute"
	default:
		return "unknown"
	}
}
