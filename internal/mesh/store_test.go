package mesh

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Faultbox/gridwarp/internal/deform"
	"github.com/Faultbox/gridwarp/internal/grid"
	"github.com/Faultbox/gridwarp/pkg/formats"
	gwmath "github.com/Faultbox/gridwarp/pkg/math"
)

// unitSquare is two triangles covering [1,2]x[1,2], off origin so that
// recentering is observable.
const unitSquare = `2
1 1 0
2 1 0
2 2 0
1 1 0
2 2 0
1 2 0
`

func writeMesh(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "square.mesh")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write mesh: %v", err)
	}
	return path
}

func loadSquare(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	if err := s.Load(writeMesh(t, unitSquare)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func buildGrid(t *testing.T, s *Store, kind grid.Kind, size int) *grid.Grid {
	t.Helper()
	g, err := grid.Generate(grid.Params{Kind: kind, Size: size, ModelSize: s.ModelSize(), Seed: 7})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	s.Rebind(g)
	return g
}

func near(a, b gwmath.Vec3, tol float32) bool {
	return a.Distance(b) <= tol
}

func TestLoadRecenters(t *testing.T) {
	s := loadSquare(t)

	if s.IsEmpty() {
		t.Fatal("store is empty after Load")
	}
	if s.TriangleCount() != 2 {
		t.Errorf("TriangleCount = %d, want 2", s.TriangleCount())
	}
	if want := float32(math.Sqrt2); math.Abs(float64(s.ModelSize()-want)) > 1e-6 {
		t.Errorf("ModelSize = %v, want %v", s.ModelSize(), want)
	}

	wantCentroid := gwmath.Vec3{X: 1.5, Y: 1.5}
	if !near(s.Centroid(), wantCentroid, 1e-6) {
		t.Errorf("Centroid = %v, want %v", s.Centroid(), wantCentroid)
	}

	first := s.Rest()[0]
	want := gwmath.Vec3{X: 1, Y: 1}.Sub(wantCentroid)
	if !near(first, want, 1e-6) {
		t.Errorf("Rest()[0] = %v, want %v", first, want)
	}
}

func TestLoadFailureResets(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"garbage", "not a mesh", formats.ErrInvalidTriangleCount},
		{"truncated", "1\n0 0 0\n1 0 0\n", formats.ErrTruncatedMeshData},
		{"empty", "0\n", ErrDegenerateMesh},
		{"single point", "1\n1 1 1\n1 1 1\n1 1 1\n", ErrDegenerateMesh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := loadSquare(t)

			err := s.Load(writeMesh(t, tt.content))
			if !errors.Is(err, ErrLoad) {
				t.Errorf("Load error = %v, want ErrLoad", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load error = %v, want %v", err, tt.wantErr)
			}
			if !s.IsEmpty() {
				t.Error("store not reset after failed load")
			}
			if s.ModelSize() != DefaultModelSize {
				t.Errorf("ModelSize = %v, want %v", s.ModelSize(), DefaultModelSize)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := NewStore()
	err := s.Load(filepath.Join(t.TempDir(), "missing.mesh"))
	if !errors.Is(err, ErrLoad) {
		t.Errorf("Load error = %v, want ErrLoad", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load error = %v, want os.ErrNotExist in chain", err)
	}
}

func TestDeformedAtRest(t *testing.T) {
	for _, kind := range []grid.Kind{grid.Bilinear, grid.Barycentric, grid.Trilinear} {
		t.Run(kind.String(), func(t *testing.T) {
			s := loadSquare(t)
			g := buildGrid(t, s, kind, 4)

			got, err := s.Deformed(g)
			if err != nil {
				t.Fatalf("Deformed: %v", err)
			}
			for i, p := range got {
				if !near(p, s.Rest()[i], 1e-4) {
					t.Errorf("vertex %d = %v, want rest %v", i, p, s.Rest()[i])
				}
			}
		})
	}
}

func TestUnitSquareRoundTrip(t *testing.T) {
	s := loadSquare(t)
	g := buildGrid(t, s, grid.Bilinear, 2)

	got, err := s.Deformed(g)
	if err != nil {
		t.Fatalf("Deformed: %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("len(Deformed) = %d, want 6", len(got))
	}
	for i, p := range got {
		if !near(p, s.Rest()[i], 1e-5) {
			t.Errorf("vertex %d = %v, want %v", i, p, s.Rest()[i])
		}
	}

	b, ok := s.Bindings()
	if !ok {
		t.Fatal("Bindings() not set after Rebind")
	}
	if st := b.Stats(); st.Bound != 6 || st.Extrapolated != 0 {
		t.Errorf("Stats = %+v, want all 6 bound inside the lattice", st)
	}
}

func TestDeformedFollowsCorner(t *testing.T) {
	s := loadSquare(t)
	g := buildGrid(t, s, grid.Bilinear, 2)

	d := gwmath.Vec3{X: -0.2, Y: 0.3}
	if err := g.MoveVertex(d, 0, false); err != nil {
		t.Fatalf("MoveVertex: %v", err)
	}

	got, err := s.Deformed(g)
	if err != nil {
		t.Fatalf("Deformed: %v", err)
	}

	// Each vertex moves by d scaled by the top-left bilinear weight.
	half := s.ModelSize() / 2
	for i, r := range s.Rest() {
		u := (r.X + half) / s.ModelSize()
		v := (half - r.Y) / s.ModelSize()
		want := r.Add(d.Scale((1 - u) * (1 - v)))
		if !near(got[i], want, 1e-5) {
			t.Errorf("vertex %d = %v, want %v", i, got[i], want)
		}
	}
}

func TestDeformedRequiresBinding(t *testing.T) {
	s := loadSquare(t)
	g, err := grid.Generate(grid.Params{Kind: grid.Bilinear, Size: 3, ModelSize: s.ModelSize()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, err := s.Deformed(g); !errors.Is(err, ErrNotBound) {
		t.Errorf("Deformed error = %v, want ErrNotBound", err)
	}

	s.Rebind(g)
	rebuilt, err := grid.Generate(grid.Params{Kind: grid.Bilinear, Size: 3, ModelSize: s.ModelSize()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := s.Deformed(rebuilt); err == nil {
		t.Error("Deformed against a rebuilt grid without Rebind succeeded")
	}
}

func TestRebindNilGrid(t *testing.T) {
	s := loadSquare(t)
	g := buildGrid(t, s, grid.Bilinear, 2)

	if st := s.Rebind(nil); st != (deform.Stats{}) {
		t.Errorf("Rebind(nil) stats = %+v, want zero", st)
	}
	if _, ok := s.Bindings(); ok {
		t.Error("store still bound after Rebind(nil)")
	}
	if _, err := s.Deformed(g); !errors.Is(err, ErrNotBound) {
		t.Errorf("Deformed error = %v, want ErrNotBound", err)
	}
}

func TestDeformedEmpty(t *testing.T) {
	s := NewStore()
	g, err := grid.Generate(grid.Params{Kind: grid.Bilinear, Size: 2, ModelSize: s.ModelSize()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	got, err := s.Deformed(g)
	if err != nil || len(got) != 0 {
		t.Errorf("Deformed on empty store = %v, %v", got, err)
	}
}

func TestTrianglesNormals(t *testing.T) {
	s := loadSquare(t)
	g := buildGrid(t, s, grid.Bilinear, 3)

	tris, err := s.Triangles(g)
	if err != nil {
		t.Fatalf("Triangles: %v", err)
	}
	if len(tris) != 2 {
		t.Fatalf("len(Triangles) = %d, want 2", len(tris))
	}
	up := gwmath.Vec3{Z: 1}
	for i, tri := range tris {
		if !near(tri.Normal, up, 1e-5) {
			t.Errorf("triangle %d normal = %v, want %v", i, tri.Normal, up)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	s := loadSquare(t)
	g := buildGrid(t, s, grid.Bilinear, 3)
	if err := g.MoveVertex(gwmath.Vec3{X: 0.1, Y: -0.1}, 4, true); err != nil {
		t.Fatalf("MoveVertex: %v", err)
	}
	want, err := s.Deformed(g)
	if err != nil {
		t.Fatalf("Deformed: %v", err)
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "out.mesh")
	if err := s.Save(out, g); err != nil {
		t.Fatalf("Save: %v", err)
	}

	m, err := formats.ParseMeshFile(out)
	if err != nil {
		t.Fatalf("ParseMeshFile: %v", err)
	}
	if len(m.Vertices) != len(want) {
		t.Fatalf("saved %d vertices, want %d", len(m.Vertices), len(want))
	}
	for i := range want {
		if !near(m.Vertices[i], want[i], 1e-6) {
			t.Errorf("saved vertex %d = %v, want %v", i, m.Vertices[i], want[i])
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries after Save, want only the output", len(entries))
	}
}

func TestSaveFailure(t *testing.T) {
	s := loadSquare(t)
	g := buildGrid(t, s, grid.Bilinear, 2)

	out := filepath.Join(t.TempDir(), "missing", "out.mesh")
	if err := s.Save(out, g); !errors.Is(err, ErrSave) {
		t.Errorf("Save error = %v, want ErrSave", err)
	}

	unbound := loadSquare(t)
	if err := unbound.Save(filepath.Join(t.TempDir(), "out.mesh"), g); !errors.Is(err, ErrSave) {
		t.Errorf("Save of unbound mesh error = %v, want ErrSave", err)
	}
}

func TestSaveFileMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}

	tests := []struct {
		name     string
		existing os.FileMode
		want     os.FileMode
	}{
		{"new file", 0, 0o644},
		{"keeps 0644", 0o644, 0o644},
		{"keeps 0640", 0o640, 0o640},
		{"keeps 0600", 0o600, 0o600},
	}

	s := loadSquare(t)
	g := buildGrid(t, s, grid.Bilinear, 2)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "out.mesh")
			if tt.existing != 0 {
				if err := os.WriteFile(out, []byte("0\n"), tt.existing); err != nil {
					t.Fatalf("WriteFile: %v", err)
				}
				// WriteFile applies the umask.
				if err := os.Chmod(out, tt.existing); err != nil {
					t.Fatalf("Chmod: %v", err)
				}
			}

			if err := s.Save(out, g); err != nil {
				t.Fatalf("Save: %v", err)
			}

			fi, err := os.Stat(out)
			if err != nil {
				t.Fatalf("Stat: %v", err)
			}
			if got := fi.Mode().Perm(); got != tt.want {
				t.Errorf("mode after save = %v, want %v", got, tt.want)
			}
		})
	}
}
