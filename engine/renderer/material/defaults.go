package material

// Defaults returns the uniform defaults of the PBR material: a black dielectric of medium
// roughness lit by a white point light.
//
// Returns:
//   - map[string]Value: a fresh table, safe to modify
func Defaults() map[string]Value {
	return map[string]Value{
		"uRoughness":   Scalar(0.5),
		"uMetalness":   Scalar(0),
		"uExposure":    Scalar(0.5),
		"uIor":         Scalar(1.4),
		"uLightPos":    Vector(10, 10, 0),
		"uAlbedoColor": Vector(0, 0, 0, 1),
		"uLightColor":  Vector(1, 1, 1, 1),
	}
}
