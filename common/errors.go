package common

import "fmt"

// AssetLoadError reports a missing or malformed panorama, cubemap or mesh file.
// It is fatal: a pipeline that hits it aborts startup.
type AssetLoadError struct {
	// Path is the file the error refers to, or a descriptive name for in-memory sources.
	Path string
	// Err is the underlying cause.
	Err error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("asset %q: %v", e.Path, e.Err)
}

func (e *AssetLoadError) Unwrap() error {
	return e.Err
}

// ResourceMismatchError reports a cubemap whose faces disagree on the resolution of a mip
// level, or a level whose size does not follow the halving chain. Downstream filtering
// assumes uniform per-level dimensions, so it is fatal.
type ResourceMismatchError struct {
	// Resource names the cubemap or texture involved.
	Resource string
	// Level is the mip level at which the mismatch was detected.
	Level int
	// Detail describes the mismatch.
	Detail string
}

func (e *ResourceMismatchError) Error() string {
	return fmt.Sprintf("resource %q level %d: %s", e.Resource, e.Level, e.Detail)
}
