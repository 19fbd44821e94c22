// Package grid builds and edits the control grids a mesh is deformed against.
//
// A Grid is one of three layouts: a regular 2D lattice, a regular 3D lattice,
// or a Delaunay triangulation of random points. Layout is a closed sum type;
// callers dispatch on it with a type switch.
package grid

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/gridwarp/internal/logger"
	gwmath "github.com/Faultbox/gridwarp/pkg/math"
)

// Grid errors.
var (
	ErrInvalidSize      = errors.New("invalid grid size")
	ErrInvalidModelSize = errors.New("invalid model size")
	ErrUnknownKind      = errors.New("unknown grid kind")
	ErrVertexOutOfRange = errors.New("grid vertex index out of range")
	ErrTriangulation    = errors.New("triangulation failed")
)

// Size limits for regular and triangulated grids.
const (
	MinSize = 2
	MaxSize = 64
)

// Layout is the topology-specific part of a grid. It is implemented only by
// Regular2D, Regular3D and Triangulated.
type Layout interface {
	Kind() Kind
	layout()
}

// Regular2D is a Size x Size lattice in the z=0 plane. Vertex (row, col) is
// stored at row*Size+col; row 0 is the top edge (max y).
type Regular2D struct {
	Size int
}

// Regular3D is a Size^3 lattice. Vertex (cell, row, col) is stored at
// cell*Size*Size+row*Size+col; cell 0 is the layer nearest -z.
type Regular3D struct {
	Size int
}

// Triangulated is a triangle mesh over the grid vertices. Each triangle holds
// three indices into Grid.Vertices, so vertex edits reach the triangles
// without any lookup.
type Triangulated struct {
	Triangles [][3]int
}

func (Regular2D) Kind() Kind    { return Bilinear }
func (Regular3D) Kind() Kind    { return Trilinear }
func (Triangulated) Kind() Kind { return Barycentric }

func (Regular2D) layout()    {}
func (Regular3D) layout()    {}
func (Triangulated) layout() {}

// Grid is a built control grid. Only vertex positions change after Generate;
// the layout and Revision identify the topology bindings were computed for.
type Grid struct {
	Layout    Layout
	Vertices  []gwmath.Vec3
	ModelSize float32
	Revision  uint64
}

// Params selects the grid to generate.
type Params struct {
	Kind      Kind
	Size      int
	ModelSize float32
	// Seed drives interior point sampling for barycentric grids.
	// Zero picks a time-based seed.
	Seed uint64
}

// Validate checks the parameters without building anything.
func (p Params) Validate() error {
	if !p.Kind.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownKind, p.Kind)
	}
	if p.Size < MinSize || p.Size > MaxSize {
		return fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidSize, p.Size, MinSize, MaxSize)
	}
	ms := float64(p.ModelSize)
	if !(ms > 0) || math.IsInf(ms, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidModelSize, p.ModelSize)
	}
	return nil
}

var revisions atomic.Uint64

// Generate builds a new grid spanning [-ModelSize/2, ModelSize/2] on each
// axis it uses. Every call yields a new Revision.
func Generate(p Params) (*Grid, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	g := &Grid{ModelSize: p.ModelSize}
	switch p.Kind {
	case Bilinear:
		g.Layout = Regular2D{Size: p.Size}
		g.Vertices = regular2D(p.Size, p.ModelSize)
	case Trilinear:
		g.Layout = Regular3D{Size: p.Size}
		g.Vertices = regular3D(p.Size, p.ModelSize)
	case Barycentric:
		seed := p.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		verts, tris, err := triangulated(p.Size, p.ModelSize, seed)
		if err != nil {
			return nil, err
		}
		g.Layout = Triangulated{Triangles: tris}
		g.Vertices = verts
	}
	g.Revision = revisions.Add(1)

	logger.Debug("grid generated",
		zap.Stringer("kind", p.Kind),
		zap.Int("size", p.Size),
		zap.Float32("model_size", p.ModelSize),
		zap.Int("vertices", len(g.Vertices)),
		zap.Uint64("revision", g.Revision))

	return g, nil
}

// Kind returns the grid kind.
func (g *Grid) Kind() Kind {
	return g.Layout.Kind()
}

// Len returns the number of grid vertices.
func (g *Grid) Len() int {
	return len(g.Vertices)
}

// Vertex returns the position of vertex i.
func (g *Grid) Vertex(i int) gwmath.Vec3 {
	return g.Vertices[i]
}

// Bounds returns the axis-aligned bounding box of the current vertex positions.
func (g *Grid) Bounds() (lo, hi gwmath.Vec3) {
	lo, hi, _ = gwmath.Bounds(g.Vertices)
	return lo, hi
}

// Origin returns the reference corner regular lattices are laid out from:
// top-left for 2D, top-left-front (nearest -z) for 3D.
func Origin(kind Kind, modelSize float32) gwmath.Vec3 {
	half := modelSize / 2
	if kind == Trilinear {
		return gwmath.Vec3{X: -half, Y: half, Z: -half}
	}
	return gwmath.Vec3{X: -half, Y: half, Z: 0}
}

// Step returns the rest spacing between neighbouring lattice vertices.
func Step(size int, modelSize float32) float32 {
	return modelSize / float32(size-1)
}

func regular2D(size int, modelSize float32) []gwmath.Vec3 {
	origin := Origin(Bilinear, modelSize)
	step := Step(size, modelSize)

	verts := make([]gwmath.Vec3, size*size)
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			verts[row*size+col] = origin.Add(gwmath.Vec3{
				X: float32(col) * step,
				Y: -float32(row) * step,
			})
		}
	}
	return verts
}

func regular3D(size int, modelSize float32) []gwmath.Vec3 {
	origin := Origin(Trilinear, modelSize)
	step := Step(size, modelSize)

	verts := make([]gwmath.Vec3, size*size*size)
	for cell := 0; cell < size; cell++ {
		for row := 0; row < size; row++ {
			for col := 0; col < size; col++ {
				verts[cell*size*size+row*size+col] = origin.Add(gwmath.Vec3{
					X: float32(col) * step,
					Y: -float32(row) * step,
					Z: float32(cell) * step,
				})
			}
		}
	}
	return verts
}
