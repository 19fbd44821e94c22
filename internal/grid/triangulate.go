package grid

import (
	"fmt"

	"github.com/fogleman/delaunay"
	"golang.org/x/exp/rand"

	gwmath "github.com/Faultbox/gridwarp/pkg/math"
)

// Corner indices of a triangulated grid. The bounding square corners are
// always the first four vertices.
const (
	CornerTopLeft = iota
	CornerTopRight
	CornerBottomRight
	CornerBottomLeft
)

// triangulated samples size*size-4 points inside the square spanned by the
// four fixed corners and triangulates the XY projection of all of them.
func triangulated(size int, modelSize float32, seed uint64) ([]gwmath.Vec3, [][3]int, error) {
	half := modelSize / 2
	verts := make([]gwmath.Vec3, size*size)
	verts[CornerTopLeft] = gwmath.Vec3{X: -half, Y: half}
	verts[CornerTopRight] = gwmath.Vec3{X: half, Y: half}
	verts[CornerBottomRight] = gwmath.Vec3{X: half, Y: -half}
	verts[CornerBottomLeft] = gwmath.Vec3{X: -half, Y: -half}

	r := rand.New(rand.NewSource(seed))
	for i := 4; i < len(verts); i++ {
		verts[i] = gwmath.Vec3{
			X: -half + r.Float32()*modelSize,
			Y: -half + r.Float32()*modelSize,
		}
	}

	points := make([]delaunay.Point, len(verts))
	for i, v := range verts {
		points[i] = delaunay.Point{X: float64(v.X), Y: float64(v.Y)}
	}

	tri, err := delaunay.Triangulate(points)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrTriangulation, err)
	}
	if len(tri.Triangles) == 0 {
		return nil, nil, fmt.Errorf("%w: no triangles", ErrTriangulation)
	}

	tris := make([][3]int, 0, len(tri.Triangles)/3)
	for i := 0; i+2 < len(tri.Triangles); i += 3 {
		tris = append(tris, [3]int{tri.Triangles[i], tri.Triangles[i+1], tri.Triangles[i+2]})
	}
	return verts, tris, nil
}
