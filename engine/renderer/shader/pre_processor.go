// pre_processor.go implements the directive pre-processor that WGSL lacks. Variant sources
// are assembled as a block of #define lines followed by the program text; Process resolves
// the conditional blocks and strips every directive, leaving plain WGSL.
//
// Supported directives, each on its own line (leading whitespace allowed):
//   - #define NAME
//   - #undef NAME
//   - #ifdef NAME / #ifndef NAME
//   - #else
//   - #endif
//
// Directive and inactive lines are replaced with empty lines so line numbers reported by
// the program backend still match the assembled text.
package shader

import (
	"fmt"
	"slices"
	"strings"
)

// conditionalFrame tracks one open #ifdef / #ifndef block.
type conditionalFrame struct {
	// line is where the block was opened, for unterminated-block diagnostics.
	line int

	// parentActive is whether the enclosing block emits lines.
	parentActive bool

	// taken is whether the #ifdef / #ifndef branch condition held.
	taken bool

	// inElse is set once #else has been seen.
	inElse bool
}

func (f conditionalFrame) active() bool {
	if !f.parentActive {
		return false
	}
	if f.inElse {
		return !f.taken
	}
	return f.taken
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	defines map[string]struct{}
}

// PreProcessor resolves #define / #ifdef style directives in shader source.
type PreProcessor interface {
	// Process resolves all directives in source and returns plain WGSL. The set of defined
	// names is reset to the pre-processor's initial defines at the start of each call.
	//
	// Parameters:
	//   - source: the assembled source with directives
	//
	// Returns:
	//   - string: the source with directives resolved and removed
	//   - error: a *DirectiveError for malformed or unbalanced directives
	Process(source string) (string, error)

	// Defines returns the names defined at the end of the most recent Process call, sorted.
	//
	// Returns:
	//   - []string: the defined names
	Defines() []string
}

var _ PreProcessor = &preProcessor{}

// DirectiveError reports a malformed or unbalanced directive.
type DirectiveError struct {
	Line int
	Msg  string
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// NewPreProcessor creates a PreProcessor.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		defines: make(map[string]struct{}),
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	clear(p.defines)

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	var stack []conditionalFrame

	active := func() bool {
		if len(stack) == 0 {
			return true
		}
		return stack[len(stack)-1].active()
	}

	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			if active() {
				out = append(out, line)
			} else {
				out = append(out, "")
			}
			continue
		}

		fields := strings.Fields(trimmed)
		directive := fields[0]
		name := ""
		if len(fields) > 1 {
			name = fields[1]
		}

		switch directive {
		case "#define", "#undef", "#ifdef", "#ifndef":
			if name == "" {
				return "", &DirectiveError{Line: lineNum, Msg: fmt.Sprintf("%s requires a name", directive)}
			}
		}

		switch directive {
		case "#define":
			if active() {
				p.defines[name] = struct{}{}
			}
		case "#undef":
			if active() {
				delete(p.defines, name)
			}
		case "#ifdef", "#ifndef":
			_, defined := p.defines[name]
			stack = append(stack, conditionalFrame{
				line:         lineNum,
				parentActive: active(),
				taken:        defined == (directive == "#ifdef"),
			})
		case "#else":
			if len(stack) == 0 {
				return "", &DirectiveError{Line: lineNum, Msg: "#else without #ifdef"}
			}
			top := &stack[len(stack)-1]
			if top.inElse {
				return "", &DirectiveError{Line: lineNum, Msg: "duplicate #else"}
			}
			top.inElse = true
		case "#endif":
			if len(stack) == 0 {
				return "", &DirectiveError{Line: lineNum, Msg: "#endif without #ifdef"}
			}
			stack = stack[:len(stack)-1]
		default:
			return "", &DirectiveError{Line: lineNum, Msg: fmt.Sprintf("unknown directive %q", directive)}
		}
		out = append(out, "")
	}

	if len(stack) > 0 {
		return "", &DirectiveError{Line: stack[len(stack)-1].line, Msg: "unterminated conditional block"}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Defines() []string {
	names := make([]string, 0, len(p.defines))
	for name := range p.defines {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
