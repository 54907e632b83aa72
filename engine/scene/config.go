package scene

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-ibl/common"
	"github.com/Carmen-Shannon/oxy-ibl/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-ibl/engine/renderer/shader"
)

// UniformValue is a uniform written in a config file, either a number or an array of numbers.
type UniformValue []float32

// UnmarshalJSON accepts a bare number as a one-element value.
func (u *UniformValue) UnmarshalJSON(data []byte) error {
	var f float32
	if err := json.Unmarshal(data, &f); err == nil {
		*u = UniformValue{f}
		return nil
	}
	var fs []float32
	if err := json.Unmarshal(data, &fs); err != nil {
		return fmt.Errorf("uniform value must be a number or an array of numbers: %w", err)
	}
	*u = fs
	return nil
}

// Value converts the config form to a material value: one number is a scalar, more a vector.
func (u UniformValue) Value() material.Value {
	if len(u) == 1 {
		return material.Scalar(u[0])
	}
	return material.Vector(u...)
}

// MaterialConfig describes one material of the grid.
type MaterialConfig struct {
	Name     string                  `json:"name"`
	Flags    []string                `json:"flags,omitempty"`
	Uniforms map[string]UniformValue `json:"uniforms,omitempty"`
	Ranges   map[string][2]float32   `json:"ranges,omitempty"`
}

// Config describes a scene: its target, grid and materials.
type Config struct {
	Width     int              `json:"width,omitempty"`
	Height    int              `json:"height,omitempty"`
	Columns   int              `json:"columns,omitempty"`
	Rows      int              `json:"rows,omitempty"`
	Margin    int              `json:"margin,omitempty"`
	Materials []MaterialConfig `json:"materials,omitempty"`
}

// WithDefaults returns a copy of c with zero sizes replaced by the package defaults and
// DefaultMaterials used when no material is listed.
func (c Config) WithDefaults() Config {
	c.Width = common.Coalesce(max(c.Width, 0), DefaultWidth)
	c.Height = common.Coalesce(max(c.Height, 0), DefaultHeight)
	c.Columns = common.Coalesce(max(c.Columns, 0), DefaultColumns)
	c.Rows = common.Coalesce(max(c.Rows, 0), DefaultRows)
	if len(c.Materials) == 0 {
		c.Materials = DefaultMaterials()
	}
	return c
}

// DefaultMaterials returns one material per debug view followed by a roughness sweep, which
// fills the default 4x3 grid.
func DefaultMaterials() []MaterialConfig {
	mats := []MaterialConfig{
		{Name: "PBR", Flags: []string{"USE_TONEMAP"}},
		{Name: "Normals", Flags: []string{"SHOW_NORMALS"}},
		{Name: "TexCoords", Flags: []string{"SHOW_TEX_COORDS"}},
		{Name: "Fresnel", Flags: []string{"SHOW_FRESNEL"}},
		{Name: "Irradiance", Flags: []string{"SHOW_IRRADIANCE"}},
		{Name: "IndirectSpecular", Flags: []string{"SHOW_INDIRECT_SPECULAR"}},
	}
	for i, r := range []float32{0.05, 0.2, 0.4, 0.6, 0.8, 1} {
		mats = append(mats, MaterialConfig{
			Name:  fmt.Sprintf("Roughness%d", i),
			Flags: []string{"USE_TONEMAP"},
			Uniforms: map[string]UniformValue{
				"uRoughness":   {r},
				"uMetalness":   {1},
				"uAlbedoColor": {1, 1, 1, 1},
			},
		})
	}
	return mats
}

// LoadConfig reads the "scene" object of a JSON config file and applies defaults. A file
// without one yields the default scene.
//
// Parameters:
//   - path: the JSON file
//
// Returns:
//   - Config: the scene config with defaults applied
//   - error: a *common.AssetLoadError if the file cannot be read or parsed
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &common.AssetLoadError{Path: path, Err: err}
	}
	var doc struct {
		Scene Config `json:"scene"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Config{}, &common.AssetLoadError{Path: path, Err: err}
	}
	return doc.Scene.WithDefaults(), nil
}

// Build compiles one variant of base per configured material, applies the configured
// uniforms and ranges, and adds the materials to a new scene in order.
//
// Parameters:
//   - cfg: the scene config, defaults are applied
//   - compiler: the variant compiler
//   - base: the base program id
//   - source: the base program text
//   - options: further scene options, applied after the config's size and grid
//
// Returns:
//   - Scene: the scene
//   - error: an unknown flag, a *shader.CompileError, or a rejected uniform
func Build(cfg Config, compiler shader.VariantCompiler, base, source string, options ...SceneBuilderOption) (Scene, error) {
	cfg = cfg.WithDefaults()
	opts := append([]SceneBuilderOption{
		WithSize(cfg.Width, cfg.Height),
		WithGrid(cfg.Columns, cfg.Rows, cfg.Margin),
	}, options...)
	s := NewScene(base, opts...)

	for _, mc := range cfg.Materials {
		m, err := buildMaterial(mc, compiler, base, source)
		if err != nil {
			s.Release()
			return nil, err
		}
		if _, err := s.Add(m); err != nil {
			s.Release()
			return nil, fmt.Errorf("scene: material %s: %w", mc.Name, err)
		}
	}
	return s, nil
}

// buildMaterial compiles and configures one material.
func buildMaterial(mc MaterialConfig, compiler shader.VariantCompiler, base, source string) (material.Material, error) {
	var flags shader.FlagSet
	for _, name := range mc.Flags {
		f, err := shader.ParseFlag(name)
		if err != nil {
			return nil, fmt.Errorf("scene: material %s: %w", mc.Name, err)
		}
		flags = flags.With(f)
	}
	program, err := compiler.Compile(shader.VariantKey{Base: base, Flags: flags}, source)
	if err != nil {
		return nil, fmt.Errorf("scene: material %s: %w", mc.Name, err)
	}

	opts := []material.MaterialBuilderOption{material.WithName(common.Coalesce(mc.Name, program.Key().String()))}
	for name, r := range mc.Ranges {
		opts = append(opts, material.WithRange(name, r[0], r[1]))
	}
	m := material.NewMaterial(program, opts...)
	for name, u := range mc.Uniforms {
		if err := m.Set(name, u.Value()); err != nil {
			return nil, fmt.Errorf("scene: %w", err)
		}
	}
	return m, nil
}
