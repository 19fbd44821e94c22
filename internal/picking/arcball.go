package picking

import (
	stdmath "math"

	gwmath "github.com/Faultbox/gridwarp/pkg/math"
)

// Arcball turns cursor drags into a view rotation.
//
// Positions are normalized device coordinates. A drag rotates the view by
// twice the angle between the points where the press and the current cursor
// hit the unit sphere.
type Arcball struct {
	rotation gwmath.Quat
	base     gwmath.Quat
	start    gwmath.Vec3
	dragging bool
}

// NewArcball returns an arcball with no rotation.
func NewArcball() *Arcball {
	return &Arcball{rotation: gwmath.QuatIdentity(), base: gwmath.QuatIdentity()}
}

// Begin starts a drag at p.
func (a *Arcball) Begin(p gwmath.Vec2) {
	a.base = a.rotation
	a.start = onSphere(p)
	a.dragging = true
}

// Drag updates the rotation for the cursor at p. It does nothing outside a
// drag.
func (a *Arcball) Drag(p gwmath.Vec2) {
	if !a.dragging {
		return
	}
	q := gwmath.QuatBetween(a.start, onSphere(p))
	a.rotation = q.Mul(a.base).Normalize()
}

// End finishes the current drag.
func (a *Arcball) End() {
	a.dragging = false
}

// Dragging reports whether a drag is in progress.
func (a *Arcball) Dragging() bool {
	return a.dragging
}

// Reset clears the rotation.
func (a *Arcball) Reset() {
	*a = *NewArcball()
}

// Rotation returns the current view rotation.
func (a *Arcball) Rotation() gwmath.Quat {
	return a.rotation
}

// Matrix returns the current view rotation as a matrix.
func (a *Arcball) Matrix() gwmath.Mat4 {
	return a.rotation.ToMat4()
}

// onSphere projects p onto the unit sphere facing the viewer. Points outside
// the unit disc land on its rim.
func onSphere(p gwmath.Vec2) gwmath.Vec3 {
	d := p.X*p.X + p.Y*p.Y
	if d > 1 {
		n := p.Normalize()
		return gwmath.Vec3{X: n.X, Y: n.Y}
	}
	return gwmath.Vec3{X: p.X, Y: p.Y, Z: float32(stdmath.Sqrt(float64(1 - d)))}
}
