package shader

import (
	"fmt"
	"strings"
)

// Flag is one compile-time feature switch of a material program.
type Flag uint8

const (
	// FlagUseTonemap applies exposure and tonemapping to the shaded colour.
	FlagUseTonemap Flag = iota

	// FlagShowNormals outputs the world-space normal.
	FlagShowNormals

	// FlagShowTexCoords outputs the texture coordinates.
	FlagShowTexCoords

	// FlagShowFresnel outputs the Fresnel term.
	FlagShowFresnel

	// FlagShowIrradiance outputs the diffuse irradiance lookup.
	FlagShowIrradiance

	// FlagShowIndirectSpecular outputs the prefiltered specular lookup.
	FlagShowIndirectSpecular

	flagCount
)

// flagNames are the define names in declaration order.
var flagNames = [flagCount]string{
	"USE_TONEMAP",
	"SHOW_NORMALS",
	"SHOW_TEX_COORDS",
	"SHOW_FRESNEL",
	"SHOW_IRRADIANCE",
	"SHOW_INDIRECT_SPECULAR",
}

// String returns the define name of the flag.
func (f Flag) String() string {
	if f >= flagCount {
		return fmt.Sprintf("Flag(%d)", uint8(f))
	}
	return flagNames[f]
}

// ParseFlag resolves a define name to its Flag.
//
// Parameters:
//   - name: a define name such as "SHOW_NORMALS"
//
// Returns:
//   - Flag: the flag
//   - error: if the name is not a known flag
func ParseFlag(name string) (Flag, error) {
	for i, n := range flagNames {
		if n == name {
			return Flag(i), nil
		}
	}
	return 0, fmt.Errorf("shader: unknown flag %q", name)
}

// FlagSet is a set of Flags. The zero value is the empty set.
type FlagSet uint32

// NewFlagSet builds a set from any number of flags in any order.
func NewFlagSet(flags ...Flag) FlagSet {
	var s FlagSet
	for _, f := range flags {
		s = s.With(f)
	}
	return s
}

// knownFlags has one bit per declared Flag.
const knownFlags FlagSet = 1<<flagCount - 1

// With returns the set with f added. Undeclared flags are ignored.
func (s FlagSet) With(f Flag) FlagSet {
	if f >= flagCount {
		return s
	}
	return s | 1<<f
}

// Without returns the set with f removed.
func (s FlagSet) Without(f Flag) FlagSet {
	if f >= flagCount {
		return s
	}
	return s &^ (1 << f)
}

// Has reports whether f is in the set.
func (s FlagSet) Has(f Flag) bool {
	return f < flagCount && s&(1<<f) != 0
}

// Known returns the set with every bit outside the declared flags cleared. Two sets with the
// same Known value render the same define block and key.
func (s FlagSet) Known() FlagSet {
	return s & knownFlags
}

// Flags returns the members of the set in declaration order.
func (s FlagSet) Flags() []Flag {
	var out []Flag
	for f := range flagCount {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// DefineBlock renders one "#define NAME" line per enabled flag in declaration order,
// terminated by a newline. The empty set renders as the empty string.
func (s FlagSet) DefineBlock() string {
	var sb strings.Builder
	for _, f := range s.Flags() {
		sb.WriteString("#define ")
		sb.WriteString(f.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// String renders the set as a comma-separated list in declaration order.
func (s FlagSet) String() string {
	flags := s.Flags()
	names := make([]string, len(flags))
	for i, f := range flags {
		names[i] = f.String()
	}
	return strings.Join(names, ",")
}

// VariantKey identifies one compiled variant of a base program.
type VariantKey struct {
	Base  string
	Flags FlagSet
}

// String returns the canonical form base[FLAG_A,FLAG_B], independent of the order the
// flags were enabled in.
func (k VariantKey) String() string {
	return k.Base + "[" + k.Flags.String() + "]"
}
