package session

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/gridwarp/internal/grid"
	"github.com/Faultbox/gridwarp/internal/logger"
	gwmath "github.com/Faultbox/gridwarp/pkg/math"
)

// ErrScript is wrapped by every script parse or apply failure.
var ErrScript = errors.New("invalid edit script")

// Script is a recorded list of grid edits, applied headlessly.
//
//	grid:
//	  kind: bilinear
//	  size: 3
//	moves:
//	  - vertex: 4
//	    by: [0.1, 0.2]
//	  - at: [-0.5, 0.5]
//	    by: [0, 0.1, 0.3]
//	    attenuate: true
type Script struct {
	Grid  *ScriptGrid `yaml:"grid,omitempty"`
	Moves []Move      `yaml:"moves"`
}

// ScriptGrid overrides the session's grid settings before the moves run.
type ScriptGrid struct {
	Kind      string `yaml:"kind,omitempty"`
	Size      int    `yaml:"size,omitempty"`
	Attenuate *bool  `yaml:"attenuate,omitempty"`
	Seed      uint64 `yaml:"seed,omitempty"`
}

// Move displaces one grid vertex. The vertex is given by index, or by a
// view-plane position that is picked the way a click would be.
type Move struct {
	Vertex    *int      `yaml:"vertex,omitempty"`
	At        []float32 `yaml:"at,omitempty"`
	By        []float32 `yaml:"by"`
	Attenuate *bool     `yaml:"attenuate,omitempty"`
}

// ParseScript decodes and validates a YAML edit script. Unknown keys are
// rejected.
func ParseScript(data []byte) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Script
	if err := dec.Decode(&sc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrScript, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadScript reads and parses a script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return ParseScript(data)
}

// Validate checks the script without applying it.
func (sc *Script) Validate() error {
	if sc.Grid != nil && sc.Grid.Kind != "" {
		if _, err := grid.ParseKind(sc.Grid.Kind); err != nil {
			return fmt.Errorf("%w: %w", ErrScript, err)
		}
	}
	for i, m := range sc.Moves {
		switch {
		case m.Vertex == nil && m.At == nil:
			return fmt.Errorf("%w: move %d: needs vertex or at", ErrScript, i)
		case m.Vertex != nil && m.At != nil:
			return fmt.Errorf("%w: move %d: vertex and at are exclusive", ErrScript, i)
		case m.At != nil && len(m.At) != 2:
			return fmt.Errorf("%w: move %d: at needs 2 coordinates, got %d", ErrScript, i, len(m.At))
		case len(m.By) != 2 && len(m.By) != 3:
			return fmt.Errorf("%w: move %d: by needs 2 or 3 coordinates, got %d", ErrScript, i, len(m.By))
		}
		if !toVec3(m.By).IsFinite() {
			return fmt.Errorf("%w: move %d: non-finite displacement", ErrScript, i)
		}
	}
	return nil
}

// Delta returns the displacement of the move.
func (m Move) Delta() gwmath.Vec3 {
	return toVec3(m.By)
}

func toVec3(c []float32) gwmath.Vec3 {
	var v gwmath.Vec3
	if len(c) > 0 {
		v.X = c[0]
	}
	if len(c) > 1 {
		v.Y = c[1]
	}
	if len(c) > 2 {
		v.Z = c[2]
	}
	return v
}

// Apply runs the script against the session. Grid overrides rebuild the
// grid first. Moves that pick by position fail when no vertex is in range.
func (s *Session) Apply(sc *Script) error {
	if sc.Grid != nil {
		if err := s.applyGrid(sc.Grid); err != nil {
			return err
		}
	}
	if s.Grid() == nil {
		return ErrNoGrid
	}

	for i, m := range sc.Moves {
		idx, err := s.resolve(m)
		if err != nil {
			return fmt.Errorf("%w: move %d: %w", ErrScript, i, err)
		}
		attenuate := s.attenuate
		if m.Attenuate != nil {
			attenuate = *m.Attenuate
		}
		if err := s.MoveWith(idx, m.Delta(), attenuate); err != nil {
			return fmt.Errorf("%w: move %d: %w", ErrScript, i, err)
		}
	}

	logger.Info("edit script applied", zap.Int("moves", len(sc.Moves)))
	return nil
}

func (s *Session) applyGrid(sg *ScriptGrid) error {
	if sg.Kind != "" {
		k, err := grid.ParseKind(sg.Kind)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrScript, err)
		}
		s.kind = k
	}
	if sg.Size != 0 {
		if err := s.SetSize(sg.Size); err != nil {
			return fmt.Errorf("%w: %w", ErrScript, err)
		}
	}
	if sg.Attenuate != nil {
		s.attenuate = *sg.Attenuate
	}
	if sg.Seed != 0 {
		s.seed = sg.Seed
	}
	return s.BuildGrid()
}

func (s *Session) resolve(m Move) (int, error) {
	if m.Vertex != nil {
		return *m.Vertex, nil
	}
	p := gwmath.Vec2{X: m.At[0], Y: m.At[1]}
	idx, ok := s.PickAt(p)
	if !ok {
		return -1, fmt.Errorf("no grid vertex near (%g, %g)", p.X, p.Y)
	}
	return idx, nil
}
