// Package session drives interactive deformation: it owns the mesh, the
// control grid and the view, and turns cursor input into grid edits.
//
// A Session is not safe for concurrent use.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/gridwarp/internal/config"
	"github.com/Faultbox/gridwarp/internal/grid"
	"github.com/Faultbox/gridwarp/internal/logger"
	"github.com/Faultbox/gridwarp/internal/mesh"
	"github.com/Faultbox/gridwarp/internal/picking"
	gwmath "github.com/Faultbox/gridwarp/pkg/math"
)

// MeshExt is the extension enforced on saved meshes.
const MeshExt = ".mesh"

// Session errors.
var (
	ErrExists     = errors.New("file already exists")
	ErrNoGrid     = errors.New("no grid built")
	ErrInvalidArg = errors.New("invalid argument")
)

// Button identifies the mouse button of a press.
type Button int

// Mouse buttons. The left button drags grid vertices, the right one rotates
// the view.
const (
	ButtonLeft Button = iota
	ButtonRight
)

// Session holds the editing state of one mesh.
type Session struct {
	engine   *grid.Engine
	store    *mesh.Store
	arcball  *picking.Arcball
	viewport picking.Viewport

	kind      grid.Kind
	size      int
	attenuate bool
	seed      uint64

	selected int
	last     gwmath.Vec2
}

// New returns a session using the grid and view settings of cfg. No grid
// exists until BuildGrid or LoadMesh is called.
func New(cfg *config.Config) *Session {
	return &Session{
		engine:  grid.NewEngine(),
		store:   mesh.NewStore(),
		arcball: picking.NewArcball(),
		viewport: picking.Viewport{
			Width:  float32(cfg.View.Width),
			Height: float32(cfg.View.Height),
		},
		kind:      cfg.GridKind(),
		size:      cfg.Grid.Size,
		attenuate: cfg.Grid.Attenuate,
		seed:      cfg.Grid.Seed,
		selected:  -1,
	}
}

// LoadMesh loads a mesh file and builds a fresh grid around it. A failed
// load leaves an empty mesh, and a default-sized grid is still built.
func (s *Session) LoadMesh(path string) error {
	loadErr := s.store.Load(path)
	if err := s.BuildGrid(); err != nil {
		return errors.Join(loadErr, err)
	}
	return loadErr
}

// SetKind selects the kind of the next grid build.
func (s *Session) SetKind(k grid.Kind) error {
	if !k.Valid() {
		return fmt.Errorf("%w: %d", grid.ErrUnknownKind, int(k))
	}
	s.kind = k
	return nil
}

// SetSize selects the resolution of the next grid build.
func (s *Session) SetSize(n int) error {
	if n < config.MinGridSize || n > config.MaxGridSize {
		return fmt.Errorf("%w: grid size %d outside [%d, %d]", ErrInvalidArg, n, config.MinGridSize, config.MaxGridSize)
	}
	s.size = n
	return nil
}

// SetAttenuation toggles falloff for later vertex moves.
func (s *Session) SetAttenuation(on bool) {
	s.attenuate = on
}

// SetSeed fixes the seed of barycentric grid builds. 0 picks a new seed
// for every build.
func (s *Session) SetSeed(seed uint64) {
	s.seed = seed
}

// SetViewport updates the drawing surface size in pixels.
func (s *Session) SetViewport(width, height int) {
	s.viewport = picking.Viewport{Width: float32(width), Height: float32(height)}
}

// Kind returns the kind used for the next grid build.
func (s *Session) Kind() grid.Kind { return s.kind }

// Size returns the resolution used for the next grid build.
func (s *Session) Size() int { return s.size }

// Attenuation reports whether moves spread to the rest of the grid.
func (s *Session) Attenuation() bool { return s.attenuate }

// Mesh returns the mesh store.
func (s *Session) Mesh() *mesh.Store { return s.store }

// Grid returns the current grid, or nil before the first build.
func (s *Session) Grid() *grid.Grid { return s.engine.Grid() }

// BuildGrid generates a new grid around the mesh and rebinds the mesh to it.
// Edits to the previous grid are discarded.
func (s *Session) BuildGrid() error {
	g, err := s.engine.Build(grid.Params{
		Kind:      s.kind,
		Size:      s.size,
		ModelSize: s.store.ModelSize(),
		Seed:      s.seed,
	})
	if err != nil {
		return err
	}

	st := s.store.Rebind(g)
	s.selected = -1
	logger.Debug("session grid rebuilt",
		zap.Stringer("kind", s.kind),
		zap.Int("size", s.size),
		zap.Int("bound", st.Bound),
		zap.Int("missed", st.Missed))
	return nil
}

// Move displaces grid vertex index by d using the session's attenuation
// setting.
func (s *Session) Move(index int, d gwmath.Vec3) error {
	return s.MoveWith(index, d, s.attenuate)
}

// MoveWith displaces grid vertex index by d with an explicit attenuation
// choice.
func (s *Session) MoveWith(index int, d gwmath.Vec3, attenuate bool) error {
	if err := s.engine.Move(d, index, attenuate); err != nil {
		if errors.Is(err, grid.ErrNotBuilt) {
			return ErrNoGrid
		}
		return err
	}
	return nil
}

// PickAt returns the grid vertex under a view-plane position.
func (s *Session) PickAt(p gwmath.Vec2) (int, bool) {
	g := s.engine.Grid()
	if g == nil {
		return -1, false
	}
	return picking.Pick(g.Vertices, s.arcball.Matrix(), p, picking.Radius(s.store.ModelSize()))
}

// Press starts a drag at pixel (x, y). A left press selects the grid vertex
// under the cursor, if any. A right press starts rotating the view.
func (s *Session) Press(b Button, x, y float32) {
	s.last = s.cursor(x, y)
	switch b {
	case ButtonLeft:
		idx, ok := s.PickAt(s.last)
		if ok {
			s.selected = idx
			logger.Debug("grid vertex selected", zap.Int("vertex", idx))
		}
	case ButtonRight:
		s.arcball.Begin(s.viewport.NDC(x, y))
	}
}

// Drag continues a drag at pixel (x, y). The selected vertex follows the
// cursor in world space, or the view rotates.
func (s *Session) Drag(x, y float32) error {
	cur := s.cursor(x, y)
	defer func() { s.last = cur }()

	switch {
	case s.selected >= 0:
		d := picking.DragDelta(s.last, cur, s.arcball.Matrix())
		return s.Move(s.selected, d)
	case s.arcball.Dragging():
		s.arcball.Drag(s.viewport.NDC(x, y))
	}
	return nil
}

// Release ends the current drag.
func (s *Session) Release() {
	s.selected = -1
	s.arcball.End()
}

// Selected returns the vertex being dragged, or -1.
func (s *Session) Selected() int { return s.selected }

// ResetRotation restores the unrotated view.
func (s *Session) ResetRotation() {
	s.arcball.Reset()
}

// Rotation returns the view rotation.
func (s *Session) Rotation() gwmath.Mat4 {
	return s.arcball.Matrix()
}

// Projection returns the full view transform: the orthographic projection
// for the model size applied after the view rotation.
func (s *Session) Projection() gwmath.Mat4 {
	return s.viewport.Projection(s.store.ModelSize()).Mul(s.arcball.Matrix())
}

func (s *Session) cursor(x, y float32) gwmath.Vec2 {
	return picking.CursorToWorld(x, y, s.viewport, s.store.ModelSize())
}

// Frame is everything a renderer needs to draw the current state.
type Frame struct {
	GridVertices []gwmath.Vec3
	GridEdges    [][2]int
	Triangles    []mesh.Triangle
	Selected     int
	View         gwmath.Mat4
}

// Frame evaluates the deformed mesh against the current grid.
func (s *Session) Frame() (Frame, error) {
	g := s.engine.Grid()
	if g == nil {
		return Frame{}, ErrNoGrid
	}
	tris, err := s.store.Triangles(g)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		GridVertices: g.Vertices,
		GridEdges:    g.Edges(),
		Triangles:    tris,
		Selected:     s.selected,
		View:         s.Projection(),
	}, nil
}

// Save writes the deformed mesh. The path is given the .mesh extension, and
// an existing file is only replaced when overwrite is set. It returns the
// path written.
func (s *Session) Save(path string, overwrite bool) (string, error) {
	g := s.engine.Grid()
	if g == nil {
		return "", ErrNoGrid
	}

	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidArg)
	}
	path = MeshPath(path)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%w: %s", ErrExists, path)
		}
	}
	return path, s.store.Save(path, g)
}

// MeshPath replaces every extension of path's file name with .mesh, adding
// it when there is none.
func MeshPath(path string) string {
	dir, base := filepath.Split(path)
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	return dir + base + MeshExt
}
