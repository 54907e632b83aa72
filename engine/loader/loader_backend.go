package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
)

// loaderBackend decodes one panorama file format into linear RGBA float pixels.
// Concrete implementations (hdrLoaderBackend, ldrLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Decode reads a whole image from r.
	//
	// Parameters:
	//   - r: the encoded image stream
	//
	// Returns:
	//   - *texture.Image: the decoded image in linear RGBA float
	//   - error: if the stream is malformed
	Decode(r io.Reader) (*texture.Image, error)
}
