package session

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/Faultbox/gridwarp/internal/grid"
	"github.com/Faultbox/gridwarp/pkg/formats"
	gwmath "github.com/Faultbox/gridwarp/pkg/math"
)

func TestParseScript(t *testing.T) {
	sc, err := ParseScript([]byte(`
grid:
  kind: trilinear
  size: 3
  attenuate: true
moves:
  - vertex: 13
    by: [0.1, 0.2, 0.3]
  - at: [-1, 1]
    by: [0.5, 0]
    attenuate: false
`))
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}

	if sc.Grid == nil || sc.Grid.Kind != "trilinear" || sc.Grid.Size != 3 {
		t.Fatalf("Grid = %+v", sc.Grid)
	}
	if sc.Grid.Attenuate == nil || !*sc.Grid.Attenuate {
		t.Error("grid attenuate not parsed")
	}
	if len(sc.Moves) != 2 {
		t.Fatalf("len(Moves) = %d, want 2", len(sc.Moves))
	}
	if m := sc.Moves[0]; m.Vertex == nil || *m.Vertex != 13 || m.Delta() != (gwmath.Vec3{X: 0.1, Y: 0.2, Z: 0.3}) {
		t.Errorf("move 0 = %+v", m)
	}
	if m := sc.Moves[1]; m.Attenuate == nil || *m.Attenuate || m.Delta() != (gwmath.Vec3{X: 0.5}) {
		t.Errorf("move 1 = %+v", m)
	}
}

func TestParseScriptEmpty(t *testing.T) {
	sc, err := ParseScript(nil)
	if err != nil {
		t.Fatalf("ParseScript(nil): %v", err)
	}
	if sc.Grid != nil || len(sc.Moves) != 0 {
		t.Errorf("empty script = %+v", sc)
	}
}

func TestParseScriptErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "moves:\n  - vertex: 1\n    by: [1, 0]\n    speed: 2\n"},
		{"unknown kind", "grid:\n  kind: hexagonal\n"},
		{"no target", "moves:\n  - by: [1, 0]\n"},
		{"both targets", "moves:\n  - vertex: 1\n    at: [0, 0]\n    by: [1, 0]\n"},
		{"short at", "moves:\n  - at: [0]\n    by: [1, 0]\n"},
		{"long by", "moves:\n  - vertex: 0\n    by: [1, 0, 0, 0]\n"},
		{"missing by", "moves:\n  - vertex: 0\n"},
		{"infinite by", "moves:\n  - vertex: 0\n    by: [.inf, 0]\n"},
		{"bad yaml", "moves: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseScript([]byte(tt.yaml)); !errors.Is(err, ErrScript) {
				t.Errorf("ParseScript error = %v, want ErrScript", err)
			}
		})
	}
}

func TestApplyScript(t *testing.T) {
	s := newSession(t, "bilinear", 2)
	sc, err := ParseScript([]byte(`
grid:
  size: 3
moves:
  - vertex: 4
    by: [0.5, 0, 0]
`))
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}

	if err := s.Apply(sc); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	g := s.Grid()
	if g.Len() != 9 {
		t.Fatalf("grid has %d vertices, want 9 after size override", g.Len())
	}
	fresh, err := grid.Generate(grid.Params{Kind: grid.Bilinear, Size: 3, ModelSize: g.ModelSize})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i, v := range g.Vertices {
		want := fresh.Vertices[i]
		if i == 4 {
			want = want.Add(gwmath.Vec3{X: 0.5})
		}
		if !near(v, want, 1e-6) {
			t.Errorf("vertex %d = %v, want %v", i, v, want)
		}
	}
}

func TestApplyScriptPicksByPosition(t *testing.T) {
	s := newSession(t, "bilinear", 2)
	corner := s.Grid().Vertices[3]

	sc := &Script{Moves: []Move{{
		At: []float32{corner.X + 0.05, corner.Y - 0.05},
		By: []float32{0, -0.25},
	}}}
	if err := s.Apply(sc); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got, want := s.Grid().Vertices[3], corner.Add(gwmath.Vec3{Y: -0.25}); !near(got, want, 1e-6) {
		t.Errorf("picked vertex = %v, want %v", got, want)
	}

	miss := &Script{Moves: []Move{{At: []float32{0, 0}, By: []float32{1, 0}}}}
	if err := s.Apply(miss); !errors.Is(err, ErrScript) {
		t.Errorf("Apply with nothing under the position: %v, want ErrScript", err)
	}
}

func TestApplyScriptOutOfRange(t *testing.T) {
	s := newSession(t, "bilinear", 2)
	v := 40
	err := s.Apply(&Script{Moves: []Move{{Vertex: &v, By: []float32{1, 0}}}})
	if !errors.Is(err, grid.ErrVertexOutOfRange) {
		t.Errorf("Apply error = %v, want ErrVertexOutOfRange", err)
	}
}

func TestRunJob(t *testing.T) {
	dir := t.TempDir()
	meshPath := writeFile(t, dir, "square.mesh", square)
	scriptPath := writeFile(t, dir, "edit.yaml", "moves:\n  - vertex: 0\n    by: [0.5, 0]\n")

	s := newSession(t, "bilinear", 2)
	out, err := s.Run(Job{Mesh: meshPath, Script: scriptPath, Output: filepath.Join(dir, "out")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	m, err := formats.ParseMeshFile(out)
	if err != nil {
		t.Fatalf("ParseMeshFile: %v", err)
	}
	if m.TriangleCount() != 2 {
		t.Errorf("output has %d triangles, want 2", m.TriangleCount())
	}
	// The top-left mesh corner follows the moved grid corner.
	if got := m.Vertices[5]; got.X <= -1 {
		t.Errorf("top-left corner = %v, want it moved right", got)
	}

	if _, err := s.Run(Job{Mesh: meshPath, Output: out}); !errors.Is(err, ErrExists) {
		t.Errorf("Run onto existing output: %v, want ErrExists", err)
	}
	if _, err := s.Run(Job{Mesh: meshPath, Script: filepath.Join(dir, "missing.yaml"), Output: out}); err == nil {
		t.Error("Run with missing script succeeded")
	}
}
