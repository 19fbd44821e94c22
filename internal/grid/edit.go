package grid

import (
	"fmt"

	gwmath "github.com/Faultbox/gridwarp/pkg/math"
)

// MoveVertex displaces vertex target by d.
//
// With attenuate set, every other vertex moves by d*(1-dist/span)^2, where
// dist is its distance to the target before the move and span is the diagonal
// of the grid's current bounding box. The target always moves by the full d.
func (g *Grid) MoveVertex(d gwmath.Vec3, target int, attenuate bool) error {
	if target < 0 || target >= len(g.Vertices) {
		return fmt.Errorf("%w: %d (grid has %d vertices)", ErrVertexOutOfRange, target, len(g.Vertices))
	}

	if !attenuate {
		g.Vertices[target] = g.Vertices[target].Add(d)
		return nil
	}

	weights := g.Falloff(target)
	for i, w := range weights {
		g.Vertices[i] = g.Vertices[i].Add(d.Scale(w))
	}
	return nil
}

// Falloff returns the attenuation weight of every vertex relative to target:
// 1 for the target itself and (1-dist/span)^2 for the others. A collapsed
// grid (zero span) only weights the target.
func (g *Grid) Falloff(target int) []float32 {
	weights := make([]float32, len(g.Vertices))
	weights[target] = 1

	lo, hi := g.Bounds()
	span := hi.Sub(lo).Length()
	if span == 0 {
		return weights
	}

	anchor := g.Vertices[target]
	for i, v := range g.Vertices {
		if i == target {
			continue
		}
		w := 1 - anchor.Distance(v)/span
		weights[i] = w * w
	}
	return weights
}
