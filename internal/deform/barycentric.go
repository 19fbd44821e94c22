package deform

import (
	"math"

	gwmath "github.com/Faultbox/gridwarp/pkg/math"
)

// insideEpsilon admits points on shared edges despite float32 rounding.
const insideEpsilon = 1e-5

// Barycentric returns the coordinates (s, t) of p in triangle (a, b, c)
// projected onto the XY plane, so that p = a + s*(b-a) + t*(c-a). ok is false
// for a degenerate triangle.
func Barycentric(p, a, b, c gwmath.Vec2) (s, t float32, ok bool) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	area := ab.Cross(ac)
	if area == 0 {
		return 0, 0, false
	}
	ap := p.Sub(a)
	s = ap.Cross(ac) / area
	t = ab.Cross(ap) / area
	if !finite(s) || !finite(t) {
		return 0, 0, false
	}
	return s, t, true
}

// Inside reports whether barycentric coordinates (s, t) lie in the triangle.
func Inside(s, t float32) bool {
	return s >= -insideEpsilon && t >= -insideEpsilon && s+t <= 1+insideEpsilon
}

func finite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

// bindTriangulated scans the triangles in order and binds v to the first one
// containing its XY projection.
func bindTriangulated(v gwmath.Vec3, tris [][3]int, verts []gwmath.Vec3) Binding {
	p := v.XY()
	for _, tri := range tris {
		a, b, c := verts[tri[0]], verts[tri[1]], verts[tri[2]]
		s, t, ok := Barycentric(p, a.XY(), b.XY(), c.XY())
		if !ok || !Inside(s, t) {
			continue
		}

		weights := gwmath.Vec3{X: 1 - s - t, Y: s, Z: t}
		rest := a.Scale(weights.X).Add(b.Scale(weights.Y)).Add(c.Scale(weights.Z))
		return Binding{
			Weights: weights,
			Element: tri,
			Depth:   v.Z - rest.Z,
			Bound:   true,
		}
	}
	return Binding{}
}

func evalTriangulated(b Binding, verts []gwmath.Vec3) (gwmath.Vec3, bool) {
	for _, i := range b.Element {
		if i < 0 || i >= len(verts) {
			return gwmath.Vec3{}, false
		}
	}
	p := verts[b.Element[0]].Scale(b.Weights.X).
		Add(verts[b.Element[1]].Scale(b.Weights.Y)).
		Add(verts[b.Element[2]].Scale(b.Weights.Z))
	p.Z += b.Depth
	return p, true
}
