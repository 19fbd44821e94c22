// Package mesh holds the loaded mesh and turns grid edits into deformed
// geometry through the deform package.
package mesh

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/gridwarp/internal/deform"
	"github.com/Faultbox/gridwarp/internal/grid"
	"github.com/Faultbox/gridwarp/internal/logger"
	"github.com/Faultbox/gridwarp/pkg/formats"
	gwmath "github.com/Faultbox/gridwarp/pkg/math"
)

// Mesh store errors.
var (
	ErrLoad           = errors.New("could not load mesh")
	ErrSave           = errors.New("could not save mesh")
	ErrDegenerateMesh = errors.New("mesh has zero extent")
	ErrNotBound       = errors.New("mesh is not bound to a grid")
)

// DefaultModelSize is the size reported while no mesh is loaded.
const DefaultModelSize float32 = 1.0

// Store owns the rest vertices of the loaded mesh and their bindings.
// The zero value is not usable; call NewStore.
type Store struct {
	path      string
	vertices  []gwmath.Vec3
	centroid  gwmath.Vec3
	modelSize float32

	bindings deform.Bindings
	bound    bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{modelSize: DefaultModelSize}
}

// Load reads a mesh file, recenters it on its centroid and sizes it by its
// bounding-box diagonal. On failure the store is reset to an empty mesh and
// the returned error wraps ErrLoad.
func (s *Store) Load(path string) error {
	m, err := formats.ParseMeshFile(path)
	if err == nil {
		err = s.Set(m.Vertices)
	}
	if err != nil {
		s.Reset()
		logger.Warn("mesh load failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w %s: %w", ErrLoad, path, err)
	}

	s.path = path
	logger.Info("mesh loaded",
		zap.String("path", path),
		zap.Int("triangles", s.TriangleCount()),
		zap.Float32("model_size", s.modelSize))
	return nil
}

// Set replaces the mesh with the given vertices, recentered around their
// centroid. Existing bindings are dropped.
func (s *Store) Set(vertices []gwmath.Vec3) error {
	lo, hi, ok := gwmath.Bounds(vertices)
	size := hi.Sub(lo).Length()
	if !ok || size == 0 {
		return ErrDegenerateMesh
	}

	var sum gwmath.Vec3
	for _, v := range vertices {
		sum = sum.Add(v)
	}
	centroid := sum.Div(float32(len(vertices)))

	rest := make([]gwmath.Vec3, len(vertices))
	for i, v := range vertices {
		rest[i] = v.Sub(centroid)
	}

	s.path = ""
	s.vertices = rest
	s.centroid = centroid
	s.modelSize = size
	s.bindings = deform.Bindings{}
	s.bound = false
	return nil
}

// Reset empties the store and restores the default model size.
func (s *Store) Reset() {
	*s = Store{modelSize: DefaultModelSize}
}

// IsEmpty reports whether no mesh is loaded.
func (s *Store) IsEmpty() bool {
	return len(s.vertices) == 0
}

// Path returns the file the mesh was loaded from.
func (s *Store) Path() string {
	return s.path
}

// ModelSize returns the bounding-box diagonal of the mesh.
func (s *Store) ModelSize() float32 {
	return s.modelSize
}

// Centroid returns the centroid the mesh was recentered from.
func (s *Store) Centroid() gwmath.Vec3 {
	return s.centroid
}

// Rest returns the recentered, undeformed vertices. The slice must not be
// modified.
func (s *Store) Rest() []gwmath.Vec3 {
	return s.vertices
}

// TriangleCount returns the number of triangles.
func (s *Store) TriangleCount() int {
	return len(s.vertices) / 3
}

// Rebind computes fresh bindings against g. It must run after every grid
// build and before the mesh is evaluated against that grid. A nil grid
// leaves the store unbound.
func (s *Store) Rebind(g *grid.Grid) deform.Stats {
	if g == nil {
		s.bindings = deform.Bindings{}
		s.bound = false
		return deform.Stats{}
	}
	s.bindings = deform.Bind(s.vertices, g)
	s.bound = true
	return s.bindings.Stats()
}

// Bindings returns the current bindings.
func (s *Store) Bindings() (deform.Bindings, bool) {
	return s.bindings, s.bound
}

// Deformed evaluates every mesh vertex against g's current vertex positions.
func (s *Store) Deformed(g *grid.Grid) ([]gwmath.Vec3, error) {
	if s.IsEmpty() {
		return nil, nil
	}
	if !s.bound {
		return nil, ErrNotBound
	}
	return s.bindings.Positions(s.vertices, g)
}

// Triangle is a deformed mesh face with its unit normal.
type Triangle struct {
	V      [3]gwmath.Vec3
	Normal gwmath.Vec3
}

// Triangles groups the deformed vertices into faces for a renderer.
func (s *Store) Triangles(g *grid.Grid) ([]Triangle, error) {
	verts, err := s.Deformed(g)
	if err != nil {
		return nil, err
	}

	tris := make([]Triangle, len(verts)/3)
	for i := range tris {
		a, b, c := verts[3*i], verts[3*i+1], verts[3*i+2]
		tris[i] = Triangle{
			V:      [3]gwmath.Vec3{a, b, c},
			Normal: b.Sub(a).Cross(c.Sub(a)).Normalize(),
		}
	}
	return tris, nil
}

// Save writes the deformed mesh to path. The data goes to a temporary file
// in the same directory first, so a failed save never leaves a truncated
// file behind. An existing file keeps its permissions; a new one gets
// 0644. Errors wrap ErrSave.
func (s *Store) Save(path string, g *grid.Grid) error {
	verts, err := s.Deformed(g)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrSave, path, err)
	}

	if err := writeFileAtomic(path, verts); err != nil {
		logger.Warn("mesh save failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w %s: %w", ErrSave, path, err)
	}

	logger.Info("mesh saved", zap.String("path", path), zap.Int("triangles", len(verts)/3))
	return nil
}

func writeFileAtomic(path string, verts []gwmath.Vec3) error {
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".gridwarp-*.mesh")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := formats.WriteMesh(tmp, verts); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
