package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// IsPowerOfTwo reports whether n is a positive power of two.
//
// Parameters:
//   - n: the value to test
//
// Returns:
//   - bool: true if n is 1, 2, 4, 8, ...
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// LevelSize returns the side length of mip level `level` for a base side length,
// never smaller than 1.
//
// Parameters:
//   - base: the level 0 side length
//   - level: the mip level index
//
// Returns:
//   - int: max(1, base >> level)
func LevelSize(base, level int) int {
	return max(base>>level, 1)
}
