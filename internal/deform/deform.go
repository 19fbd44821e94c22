// Package deform binds mesh vertices to a control grid once and re-evaluates
// their positions whenever grid vertices move.
//
// Binding is the expensive step and runs once per grid topology. Evaluation
// is a fixed weighted sum over live grid vertices and runs every frame.
package deform

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/gridwarp/internal/grid"
	"github.com/Faultbox/gridwarp/internal/logger"
	gwmath "github.com/Faultbox/gridwarp/pkg/math"
)

// Deformation errors.
var (
	ErrStaleBindings  = errors.New("bindings were computed for another grid topology")
	ErrVertexMismatch = errors.New("vertex count does not match bindings")
)

// Binding ties one mesh vertex to grid elements.
//
// For lattices Element is (col, row, cell) of the containing cell and Weights
// holds (u, v, w). For triangulations Element holds the three grid vertex
// indices of the containing triangle and Weights the barycentric
// coordinates. Depth is the vertex's offset from the interpolated rest
// position along z for planar grids.
type Binding struct {
	Weights gwmath.Vec3
	Element [3]int
	Depth   float32
	// Bound is false when no grid element contains the vertex.
	Bound bool
	// Extrapolated marks vertices outside the lattice, weighted against the
	// nearest border cell.
	Extrapolated bool
}

// Bindings is the binding of a whole mesh against one grid topology.
type Bindings struct {
	Revision uint64
	Kind     grid.Kind
	Items    []Binding
}

// Stats summarises a binding pass.
type Stats struct {
	Total        int
	Bound        int
	Missed       int
	Extrapolated int
}

// Bind computes a binding for every vertex against g's current vertex
// positions. Vertices that cannot be bound are marked and never abort the
// pass.
func Bind(vertices []gwmath.Vec3, g *grid.Grid) Bindings {
	b := Bindings{
		Revision: g.Revision,
		Kind:     g.Kind(),
		Items:    make([]Binding, len(vertices)),
	}
	for i, v := range vertices {
		b.Items[i] = BindVertex(v, g)
	}

	st := b.Stats()
	logger.Debug("mesh bound to grid",
		zap.Stringer("kind", b.Kind),
		zap.Uint64("revision", b.Revision),
		zap.Int("vertices", st.Total),
		zap.Int("missed", st.Missed),
		zap.Int("extrapolated", st.Extrapolated))
	if st.Missed > 0 {
		logger.Warn("vertices outside grid keep their rest position",
			zap.Int("missed", st.Missed))
	}
	return b
}

// BindVertex computes the binding of a single vertex.
func BindVertex(v gwmath.Vec3, g *grid.Grid) Binding {
	switch l := g.Layout.(type) {
	case grid.Regular2D:
		return bindRegular2D(v, l.Size, g)
	case grid.Regular3D:
		return bindRegular3D(v, l.Size, g)
	case grid.Triangulated:
		return bindTriangulated(v, l.Triangles, g.Vertices)
	default:
		return Binding{}
	}
}

// Evaluate returns the deformed position of a bound vertex against g's
// current vertex positions. ok is false for an unbound vertex or one whose
// element does not exist in g.
func Evaluate(b Binding, g *grid.Grid) (p gwmath.Vec3, ok bool) {
	if !b.Bound {
		return gwmath.Vec3{}, false
	}
	switch l := g.Layout.(type) {
	case grid.Regular2D:
		return evalRegular2D(b, l.Size, g.Vertices)
	case grid.Regular3D:
		return evalRegular3D(b, l.Size, g.Vertices)
	case grid.Triangulated:
		return evalTriangulated(b, g.Vertices)
	default:
		return gwmath.Vec3{}, false
	}
}

// Matches reports whether the bindings were computed for g's topology.
func (b Bindings) Matches(g *grid.Grid) bool {
	return g != nil && b.Revision == g.Revision && b.Kind == g.Kind()
}

// Positions evaluates every binding against g. Vertices that are not bound
// stay at their rest position.
func (b Bindings) Positions(rest []gwmath.Vec3, g *grid.Grid) ([]gwmath.Vec3, error) {
	if !b.Matches(g) {
		return nil, ErrStaleBindings
	}
	if len(rest) != len(b.Items) {
		return nil, fmt.Errorf("%w: %d vertices, %d bindings", ErrVertexMismatch, len(rest), len(b.Items))
	}

	out := make([]gwmath.Vec3, len(rest))
	for i, item := range b.Items {
		p, ok := Evaluate(item, g)
		if !ok {
			p = rest[i]
		}
		out[i] = p
	}
	return out, nil
}

// Stats counts bound, missed and extrapolated vertices.
func (b Bindings) Stats() Stats {
	st := Stats{Total: len(b.Items)}
	for _, item := range b.Items {
		switch {
		case !item.Bound:
			st.Missed++
		case item.Extrapolated:
			st.Bound++
			st.Extrapolated++
		default:
			st.Bound++
		}
	}
	return st
}
