package grid

import (
	"errors"
	"testing"

	gwmath "github.com/Faultbox/gridwarp/pkg/math"
)

func TestEngineUnbuilt(t *testing.T) {
	e := NewEngine()
	if e.Built() || e.Grid() != nil {
		t.Fatal("new engine should be unbuilt")
	}
	if err := e.Move(gwmath.Vec3{X: 1}, 0, false); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("expected ErrNotBuilt, got %v", err)
	}
}

func TestEngineBuildReplacesGrid(t *testing.T) {
	e := NewEngine()

	first, err := e.Build(Params{Kind: Bilinear, Size: 3, ModelSize: 1})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if e.Grid() != first {
		t.Fatal("Grid should return the built grid")
	}

	second, err := e.Build(Params{Kind: Trilinear, Size: 2, ModelSize: 1})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if e.Grid() != second || second.Revision <= first.Revision {
		t.Errorf("rebuild should install a grid with a newer revision (%d -> %d)", first.Revision, second.Revision)
	}

	if err := e.Move(gwmath.Vec3{Y: 1}, 7, true); err != nil {
		t.Errorf("Move failed: %v", err)
	}
}

func TestEngineBuildFailureKeepsGrid(t *testing.T) {
	e := NewEngine()
	g, err := e.Build(Params{Kind: Bilinear, Size: 2, ModelSize: 1})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if _, err := e.Build(Params{Kind: Bilinear, Size: 1, ModelSize: 1}); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
	if e.Grid() != g {
		t.Error("failed build should keep the previous grid")
	}
}
