package loader

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-ibl/common"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	panoramaCache map[string]*texture.Image
	cubemapCache  map[string]*texture.Cubemap

	backends map[string]loaderBackend
}

// Loader loads and caches environment assets: equirectangular panoramas and cubemap
// containers. Results are cached by path and treated as immutable once returned.
type Loader interface {
	// LoadPanorama decodes a panorama, choosing the backend from the file extension:
	// .hdr is Radiance RGBE, .png / .jpg / .jpeg are sRGB and converted to linear.
	// A cached result is returned if the path has been loaded before.
	//
	// Parameters:
	//   - path: the panorama file
	//
	// Returns:
	//   - *texture.Image: the panorama in linear RGBA float
	//   - error: a *common.AssetLoadError if the file cannot be read or decoded
	LoadPanorama(path string) (*texture.Image, error)

	// LoadPanoramaReader decodes a panorama from a stream and caches it under name.
	// The backend is chosen from name's extension.
	//
	// Parameters:
	//   - name: the cache key, with a file extension
	//   - r: the encoded stream
	//
	// Returns:
	//   - *texture.Image: the panorama
	//   - error: a *common.AssetLoadError if decoding fails
	LoadPanoramaReader(name string, r io.Reader) (*texture.Image, error)

	// LoadCubemap reads a cubemap container with its full mip chain.
	//
	// Parameters:
	//   - path: the container file
	//
	// Returns:
	//   - *texture.Cubemap: the cubemap
	//   - error: a *common.AssetLoadError wrapping the cause
	LoadCubemap(path string) (*texture.Cubemap, error)

	// SaveCubemap writes c as a container and caches it under path.
	//
	// Parameters:
	//   - path: the destination file
	//   - c: the cubemap
	//
	// Returns:
	//   - error: a *common.AssetLoadError wrapping the cause
	SaveCubemap(path string, c *texture.Cubemap) error

	// Panorama returns a cached panorama, or nil.
	//
	// Parameters:
	//   - key: the cache key
	//
	// Returns:
	//   - *texture.Image: the cached panorama or nil
	Panorama(key string) *texture.Image

	// Cubemap returns a cached cubemap, or nil.
	//
	// Parameters:
	//   - key: the cache key
	//
	// Returns:
	//   - *texture.Cubemap: the cached cubemap or nil
	Cubemap(key string) *texture.Cubemap

	// Evict drops a key from both caches.
	//
	// Parameters:
	//   - key: the cache key
	Evict(key string)
}

var _ Loader = &loader{}

// NewLoader creates a Loader with the HDR and LDR backends registered.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: the loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	ldr := newLDRLoaderBackend()
	l := &loader{
		panoramaCache: make(map[string]*texture.Image),
		cubemapCache:  make(map[string]*texture.Cubemap),
		backends: map[string]loaderBackend{
			".hdr":  newHDRLoaderBackend(),
			".png":  ldr,
			".jpg":  ldr,
			".jpeg": ldr,
		},
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) LoadPanorama(path string) (*texture.Image, error) {
	if cached := l.Panorama(path); cached != nil {
		return cached, nil
	}
	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, &common.AssetLoadError{Path: path, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &common.AssetLoadError{Path: path, Err: err}
	}
	defer f.Close()

	img, err := backend.Decode(f)
	if err != nil {
		return nil, &common.AssetLoadError{Path: path, Err: err}
	}
	log.Printf("[Loader] Loaded panorama %s (%dx%d)", path, img.Width, img.Height)
	return l.storePanorama(path, img), nil
}

func (l *loader) LoadPanoramaReader(name string, r io.Reader) (*texture.Image, error) {
	if cached := l.Panorama(name); cached != nil {
		return cached, nil
	}
	backend, err := l.resolveBackend(name)
	if err != nil {
		return nil, &common.AssetLoadError{Path: name, Err: err}
	}
	img, err := backend.Decode(r)
	if err != nil {
		return nil, &common.AssetLoadError{Path: name, Err: err}
	}
	return l.storePanorama(name, img), nil
}

func (l *loader) LoadCubemap(path string) (*texture.Cubemap, error) {
	if cached := l.Cubemap(path); cached != nil {
		return cached, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &common.AssetLoadError{Path: path, Err: err}
	}
	label := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	c, err := ReadCubemap(label, data)
	if err != nil {
		return nil, &common.AssetLoadError{Path: path, Err: err}
	}
	log.Printf("[Loader] Loaded cubemap %s (%dx%d, %d levels)", path, c.Size(0), c.Size(0), c.Levels())

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.cubemapCache[path]; ok {
		return existing, nil
	}
	l.cubemapCache[path] = c
	return c, nil
}

func (l *loader) SaveCubemap(path string, c *texture.Cubemap) error {
	var buf bytes.Buffer
	if err := WriteCubemap(&buf, c); err != nil {
		return &common.AssetLoadError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &common.AssetLoadError{Path: path, Err: err}
	}
	log.Printf("[Loader] Wrote cubemap %s (%d bytes)", path, buf.Len())

	l.mu.Lock()
	l.cubemapCache[path] = c
	l.mu.Unlock()
	return nil
}

func (l *loader) Panorama(key string) *texture.Image {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.panoramaCache[key]
}

func (l *loader) Cubemap(key string) *texture.Cubemap {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cubemapCache[key]
}

func (l *loader) Evict(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.panoramaCache, key)
	delete(l.cubemapCache, key)
}

// storePanorama caches img under key unless a concurrent load got there first, returning
// the cached value either way.
func (l *loader) storePanorama(key string, img *texture.Image) *texture.Image {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.panoramaCache[key]; ok {
		return existing
	}
	l.panoramaCache[key] = img
	return img
}

// resolveBackend selects a loader backend based on the file extension.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if b, ok := l.backends[ext]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("unsupported panorama format: %q", ext)
}
