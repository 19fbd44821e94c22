package grid

import (
	"fmt"
	"strings"
)

// Kind identifies a grid topology. The ordinal values are stable.
type Kind int

// Grid kinds.
const (
	Bilinear    Kind = 0 // Regular 2D lattice, bilinear interpolation
	Barycentric Kind = 1 // Delaunay triangulation, barycentric interpolation
	Trilinear   Kind = 2 // Regular 3D lattice, trilinear interpolation
)

// String returns the lower-case kind name used in config files and flags.
func (k Kind) String() string {
	switch k {
	case Bilinear:
		return "bilinear"
	case Barycentric:
		return "barycentric"
	case Trilinear:
		return "trilinear"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == Bilinear || k == Barycentric || k == Trilinear
}

// ParseKind converts a kind name into a Kind. Matching is case-insensitive
// and accepts the short aliases "2d", "tri" and "3d".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bilinear", "2d", "regular2d":
		return Bilinear, nil
	case "barycentric", "tri", "triangular":
		return Barycentric, nil
	case "trilinear", "3d", "regular3d":
		return Trilinear, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}
