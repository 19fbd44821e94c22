package deform

import (
	"math"

	"github.com/Faultbox/gridwarp/internal/grid"
	gwmath "github.com/Faultbox/gridwarp/pkg/math"
)

// cellOf splits a lattice coordinate into a cell index and the fractional
// weight inside that cell. Indices are clamped to the border cells, so
// coordinates outside the lattice extrapolate linearly from the nearest cell.
func cellOf(f float32, size int) (index int, weight float32, outside bool) {
	index = int(math.Floor(float64(f)))
	if index < 0 {
		index = 0
	}
	if index > size-2 {
		index = size - 2
	}
	weight = f - float32(index)
	return index, weight, weight < 0 || weight > 1
}

// latticeCoords converts a position into lattice units measured from the
// rest origin. Rows grow toward -y and cells toward +z.
func latticeCoords(v gwmath.Vec3, kind grid.Kind, size int, modelSize float32) (fx, fy, fz float32) {
	origin := grid.Origin(kind, modelSize)
	step := grid.Step(size, modelSize)
	return (v.X - origin.X) / step, (origin.Y - v.Y) / step, (v.Z - origin.Z) / step
}

func bindRegular2D(v gwmath.Vec3, size int, g *grid.Grid) Binding {
	fx, fy, _ := latticeCoords(v, grid.Bilinear, size, g.ModelSize)
	col, u, outX := cellOf(fx, size)
	row, w, outY := cellOf(fy, size)

	b := Binding{
		Weights:      gwmath.Vec3{X: u, Y: w},
		Element:      [3]int{col, row, 0},
		Bound:        true,
		Extrapolated: outX || outY,
	}
	rest, _ := evalRegular2D(b, size, g.Vertices)
	b.Depth = v.Z - rest.Z
	return b
}

func bindRegular3D(v gwmath.Vec3, size int, g *grid.Grid) Binding {
	fx, fy, fz := latticeCoords(v, grid.Trilinear, size, g.ModelSize)
	col, u, outX := cellOf(fx, size)
	row, w, outY := cellOf(fy, size)
	cell, d, outZ := cellOf(fz, size)

	return Binding{
		Weights:      gwmath.Vec3{X: u, Y: w, Z: d},
		Element:      [3]int{col, row, cell},
		Bound:        true,
		Extrapolated: outX || outY || outZ,
	}
}

// bilinear interpolates one lattice layer starting at base.
//
//	c00 = (row, col)    c01 = (row, col+1)
//	c10 = (row+1, col)  c11 = (row+1, col+1)
func bilinear(verts []gwmath.Vec3, base, size, row, col int, u, v float32) gwmath.Vec3 {
	c00 := verts[base+row*size+col]
	c01 := verts[base+row*size+col+1]
	c10 := verts[base+(row+1)*size+col]
	c11 := verts[base+(row+1)*size+col+1]

	return c00.Scale((1 - u) * (1 - v)).
		Add(c01.Scale(u * (1 - v))).
		Add(c10.Scale((1 - u) * v)).
		Add(c11.Scale(u * v))
}

func inCell(i, size int) bool {
	return i >= 0 && i <= size-2
}

func evalRegular2D(b Binding, size int, verts []gwmath.Vec3) (gwmath.Vec3, bool) {
	col, row := b.Element[0], b.Element[1]
	if !inCell(col, size) || !inCell(row, size) || len(verts) < size*size {
		return gwmath.Vec3{}, false
	}
	p := bilinear(verts, 0, size, row, col, b.Weights.X, b.Weights.Y)
	p.Z += b.Depth
	return p, true
}

func evalRegular3D(b Binding, size int, verts []gwmath.Vec3) (gwmath.Vec3, bool) {
	col, row, cell := b.Element[0], b.Element[1], b.Element[2]
	if !inCell(col, size) || !inCell(row, size) || !inCell(cell, size) || len(verts) < size*size*size {
		return gwmath.Vec3{}, false
	}
	layer := size * size
	near := bilinear(verts, cell*layer, size, row, col, b.Weights.X, b.Weights.Y)
	far := bilinear(verts, (cell+1)*layer, size, row, col, b.Weights.X, b.Weights.Y)

	w := b.Weights.Z
	return near.Scale(1 - w).Add(far.Scale(w)), true
}
