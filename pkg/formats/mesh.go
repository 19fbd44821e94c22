package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	gwmath "github.com/Faultbox/gridwarp/pkg/math"
)

// Mesh file errors.
var (
	ErrEmptyMeshData        = errors.New("empty mesh data")
	ErrInvalidTriangleCount = errors.New("invalid triangle count")
	ErrTruncatedMeshData    = errors.New("truncated mesh data")
	ErrInvalidCoordinate    = errors.New("invalid vertex coordinate")
)

// maxTriangles bounds the preallocation driven by the header.
const maxTriangles = 1 << 24

// Mesh is an unindexed triangle soup: every three consecutive vertices form
// one triangle, in file order.
type Mesh struct {
	Vertices []gwmath.Vec3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Vertices) / 3
}

// ParseMesh parses the plain-text mesh format: a triangle count T followed by
// 3*T vertices of three whitespace-separated floats each. T may be written
// as any integral number, so "2", "2.0" and "2e0" are equivalent. Tokens
// after the last vertex are ignored.
func ParseMesh(data []byte) (*Mesh, error) {
	s := bufio.NewScanner(bytes.NewReader(data))
	s.Split(bufio.ScanWords)

	if !s.Scan() {
		if err := s.Err(); err != nil {
			return nil, err
		}
		return nil, ErrEmptyMeshData
	}

	count, err := parseCount(s.Text())
	if err != nil {
		return nil, err
	}

	mesh := &Mesh{Vertices: make([]gwmath.Vec3, count*3)}
	for i := range mesh.Vertices {
		var c [3]float32
		for axis := range c {
			if !s.Scan() {
				if err := s.Err(); err != nil {
					return nil, err
				}
				return nil, fmt.Errorf("%w: vertex %d of %d", ErrTruncatedMeshData, i, len(mesh.Vertices))
			}
			f, err := strconv.ParseFloat(s.Text(), 32)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("%w: vertex %d: %q", ErrInvalidCoordinate, i, s.Text())
			}
			c[axis] = float32(f)
		}
		mesh.Vertices[i] = gwmath.Vec3{X: c[0], Y: c[1], Z: c[2]}
	}

	return mesh, nil
}

func parseCount(tok string) (int, error) {
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil || f != math.Trunc(f) || f < 0 || f > maxTriangles {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTriangleCount, tok)
	}
	return int(f), nil
}

// ParseMeshFile parses a mesh file from disk.
func ParseMeshFile(path string) (*Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mesh file: %w", err)
	}
	return ParseMesh(data)
}

// WriteMesh writes vertices in the format read by ParseMesh. A trailing
// partial triangle is not written.
func WriteMesh(w io.Writer, vertices []gwmath.Vec3) error {
	bw := bufio.NewWriter(w)
	triangles := len(vertices) / 3

	if _, err := fmt.Fprintf(bw, "%d\n", triangles); err != nil {
		return err
	}
	buf := make([]byte, 0, 64)
	for _, v := range vertices[:triangles*3] {
		buf = buf[:0]
		buf = strconv.AppendFloat(buf, float64(v.X), 'g', -1, 32)
		buf = append(buf, ' ')
		buf = strconv.AppendFloat(buf, float64(v.Y), 'g', -1, 32)
		buf = append(buf, ' ')
		buf = strconv.AppendFloat(buf, float64(v.Z), 'g', -1, 32)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}
