package ibl

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-ibl/common"
)

// Pipeline defaults.
const (
	DefaultSize            = 256
	DefaultMipSteps        = 4
	DefaultDiffuseSamples  = 256
	DefaultSpecularSamples = 512
	DefaultSpecularLevels  = 5
	DefaultBRDFSize        = 64
	DefaultBRDFSamples     = 256
)

// Config holds the precompute settings. Zero values take the package defaults.
type Config struct {
	// Panorama is the equirectangular source image (.hdr, .png, .jpg).
	Panorama string `json:"panorama,omitempty"`
	// Cubemap is a prefiltered cubemap container; when set, projection is skipped.
	Cubemap string `json:"cubemap,omitempty"`
	// Output is where the environment container is written.
	Output string `json:"output,omitempty"`

	Size            int `json:"size,omitempty"`
	MipSteps        int `json:"mipSteps,omitempty"`
	DiffuseSamples  int `json:"diffuseSamples,omitempty"`
	SpecularSamples int `json:"specularSamples,omitempty"`
	SpecularLevels  int `json:"specularLevels,omitempty"`
	BRDFSize        int `json:"brdfSize,omitempty"`
	BRDFSamples     int `json:"brdfSamples,omitempty"`
	// Workers bounds the software device's worker pool; zero uses every CPU.
	Workers int `json:"workers,omitempty"`
}

// WithDefaults returns a copy of c with every non-positive knob replaced by its default.
func (c Config) WithDefaults() Config {
	c.Size = common.Coalesce(max(c.Size, 0), DefaultSize)
	c.MipSteps = common.Coalesce(max(c.MipSteps, 0), DefaultMipSteps)
	c.DiffuseSamples = common.Coalesce(max(c.DiffuseSamples, 0), DefaultDiffuseSamples)
	c.SpecularSamples = common.Coalesce(max(c.SpecularSamples, 0), DefaultSpecularSamples)
	c.SpecularLevels = common.Coalesce(max(c.SpecularLevels, 0), DefaultSpecularLevels)
	c.BRDFSize = common.Coalesce(max(c.BRDFSize, 0), DefaultBRDFSize)
	c.BRDFSamples = common.Coalesce(max(c.BRDFSamples, 0), DefaultBRDFSamples)
	return c
}

// LoadConfig reads a JSON config file and applies defaults. A config needs a panorama or a
// cubemap source.
//
// Parameters:
//   - path: the JSON file
//
// Returns:
//   - Config: the config with defaults applied
//   - error: a *common.AssetLoadError if the file cannot be read or parsed, or a plain error if no source is set
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &common.AssetLoadError{Path: path, Err: err}
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, &common.AssetLoadError{Path: path, Err: err}
	}
	if cfg.Panorama == "" && cfg.Cubemap == "" {
		return Config{}, fmt.Errorf("ibl: config %s: one of panorama or cubemap is required", path)
	}
	return cfg.WithDefaults(), nil
}
