package material

import "errors"

var (
	// ErrUnknownUniform is returned when a name is not in the program's uniform table.
	ErrUnknownUniform = errors.New("uniform not found")

	// ErrKindMismatch is returned when a value's kind, component count or texture
	// dimension does not match the declared uniform.
	ErrKindMismatch = errors.New("uniform kind mismatch")

	// ErrTextureReleased is returned by Snapshot when a referenced texture has been collected.
	ErrTextureReleased = errors.New("texture released")
)
