// Package picking maps screen input onto grid vertices under a rotated
// orthographic view.
package picking

import (
	gwmath "github.com/Faultbox/gridwarp/pkg/math"
)

// Viewport is the size of the drawing surface in pixels.
type Viewport struct {
	Width, Height float32
}

// NDC converts pixel coordinates to normalized device coordinates, with y
// pointing up and both axes spanning [-1, 1].
func (vp Viewport) NDC(x, y float32) gwmath.Vec2 {
	if vp.Width <= 0 || vp.Height <= 0 {
		return gwmath.Vec2{}
	}
	return gwmath.Vec2{
		X: 2*x/vp.Width - 1,
		Y: 1 - 2*y/vp.Height,
	}
}

// Extent returns the half extents of the view plane for a model of the given
// size. The shorter axis spans [-size, size] and the longer one is widened by
// the aspect ratio.
func (vp Viewport) Extent(size float32) gwmath.Vec2 {
	if vp.Width <= 0 || vp.Height <= 0 {
		return gwmath.Vec2{X: size, Y: size}
	}
	aspect := vp.Width / vp.Height
	if aspect > 1 {
		return gwmath.Vec2{X: size * aspect, Y: size}
	}
	return gwmath.Vec2{X: size, Y: size / aspect}
}

// Projection returns the orthographic projection for the view plane. Depth
// spans [-size, size].
func (vp Viewport) Projection(size float32) gwmath.Mat4 {
	e := vp.Extent(size)
	return gwmath.Ortho(-e.X, e.X, -e.Y, e.Y, -size, size)
}

// CursorToWorld maps pixel coordinates onto the view plane. On a square
// viewport the plane spans [-size, size] on both axes.
func CursorToWorld(x, y float32, vp Viewport, size float32) gwmath.Vec2 {
	n := vp.NDC(x, y)
	e := vp.Extent(size)
	return gwmath.Vec2{X: n.X * e.X, Y: n.Y * e.Y}
}

// Radius returns the click radius used for a model of the given size.
func Radius(modelSize float32) float32 {
	return modelSize / 8
}

// Pick returns the vertex whose view-space projection lies within radius of
// cursor. When several qualify, the one nearest the viewer (largest view z)
// wins. ok is false when nothing is in range.
func Pick(vertices []gwmath.Vec3, view gwmath.Mat4, cursor gwmath.Vec2, radius float32) (index int, ok bool) {
	index = -1
	var bestZ float32
	for i, v := range vertices {
		p := view.TransformVec3(v)
		if p.XY().Distance(cursor) >= radius {
			continue
		}
		if index < 0 || p.Z > bestZ {
			index, bestZ = i, p.Z
		}
	}
	return index, index >= 0
}

// DragDelta converts a cursor movement on the view plane into a world-space
// displacement by undoing the view rotation.
func DragDelta(from, to gwmath.Vec2, view gwmath.Mat4) gwmath.Vec3 {
	d := to.Sub(from)
	return view.Inverse().TransformVec3(gwmath.Vec3{X: d.X, Y: d.Y})
}
