package shader

import (
	_ "embed"
)

// PBRBase is the base program id of the image-based-lighting material program.
const PBRBase = "pbr"

// PBRSource is the image-based-lighting material program. It declares the material block
// (uAlbedoColor, uLightColor, uLightPos, uRoughness, uMetalness, uExposure, uIor,
// uSpecularLevels) and the uReflectionMap, uIrradianceMap, uBRDFLut and
// uHammersleyPointSetMap textures, and switches its output on every Flag.
//
//go:embed assets/pbr.wgsl
var PBRSource string
