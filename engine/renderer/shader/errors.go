package shader

import "fmt"

// CompileError reports a variant that failed to pre-process or build. It is not fatal:
// the compiler logs it and the previously bound program for the key stays bound.
type CompileError struct {
	Key        VariantKey
	Diagnostic string
	Err        error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("shader: compile %s failed: %s", e.Key, e.Diagnostic)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
