package loader

import "github.com/Carmen-Shannon/oxy-ibl/engine/texture"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithPanorama is an option builder that pre-populates the panorama cache.
//
// Parameters:
//   - key: the cache key for the panorama
//   - img: the panorama to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the panorama option to a loader
func WithPanorama(key string, img *texture.Image) LoaderBuilderOption {
	return func(l *loader) {
		l.panoramaCache[key] = img
	}
}

// WithCubemap is an option builder that pre-populates the cubemap cache.
//
// Parameters:
//   - key: the cache key for the cubemap
//   - c: the cubemap to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the cubemap option to a loader
func WithCubemap(key string, c *texture.Cubemap) LoaderBuilderOption {
	return func(l *loader) {
		l.cubemapCache[key] = c
	}
}
