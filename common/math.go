package common

import (
	"unsafe"

	"github.com/chewxy/math32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Clamp restricts v to the closed range [lo, hi].
//
// Parameters:
//   - v: the value to clamp
//   - lo: the lower bound
//   - hi: the upper bound
//
// Returns:
//   - float32: the clamped value
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SRGBToLinear converts one sRGB-encoded channel value in [0, 1] to linear light.
// Reference: https://www.w3.org/Graphics/Color/srgb
//
// Parameters:
//   - c: the sRGB channel value
//
// Returns:
//   - float32: the linear channel value
func SRGBToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math32.Pow((c+0.055)/1.055, 2.4)
}

// ApproxEqual reports whether a and b differ by no more than eps.
//
// Parameters:
//   - a, b: the values to compare
//   - eps: the absolute tolerance
//
// Returns:
//   - bool: true if |a-b| <= eps
func ApproxEqual(a, b, eps float32) bool {
	return math32.Abs(a-b) <= eps
}
