package grid

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Faultbox/gridwarp/internal/logger"
	gwmath "github.com/Faultbox/gridwarp/pkg/math"
)

// ErrNotBuilt is returned when an edit is requested before any grid exists.
var ErrNotBuilt = errors.New("grid not built")

// Engine owns the current grid. It starts Unbuilt; Build moves it to Built and
// every later Build replaces the grid, which invalidates existing bindings.
// An Engine is driven by a single owner and is not safe for concurrent use.
type Engine struct {
	grid *Grid
}

// NewEngine returns an Engine in the Unbuilt state.
func NewEngine() *Engine {
	return &Engine{}
}

// Build generates a new grid and makes it current. On error the previous grid
// is kept.
func (e *Engine) Build(p Params) (*Grid, error) {
	g, err := Generate(p)
	if err != nil {
		logger.Warn("grid build rejected", zap.Error(err))
		return nil, err
	}
	e.grid = g
	logger.Info("grid built",
		zap.Stringer("kind", p.Kind),
		zap.Int("size", p.Size),
		zap.Int("vertices", g.Len()))
	return g, nil
}

// Grid returns the current grid, or nil while Unbuilt.
func (e *Engine) Grid() *Grid {
	return e.grid
}

// Built reports whether a grid has been built.
func (e *Engine) Built() bool {
	return e.grid != nil
}

// Move applies a vertex edit to the current grid.
func (e *Engine) Move(d gwmath.Vec3, target int, attenuate bool) error {
	if e.grid == nil {
		return ErrNotBuilt
	}
	return e.grid.MoveVertex(d, target, attenuate)
}
