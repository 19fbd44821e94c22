package grid

// Edges returns the line segments a renderer should draw for the grid, as
// pairs of vertex indices. Lattices yield their axis-aligned lines;
// triangulations yield each shared triangle edge once.
func (g *Grid) Edges() [][2]int {
	switch l := g.Layout.(type) {
	case Regular2D:
		return latticeEdges(l.Size, 1)
	case Regular3D:
		return latticeEdges(l.Size, l.Size)
	case Triangulated:
		return triangleEdges(l.Triangles)
	default:
		return nil
	}
}

// Triangles returns the triangles of a triangulated grid, or nil for lattices.
func (g *Grid) Triangles() [][3]int {
	if l, ok := g.Layout.(Triangulated); ok {
		return l.Triangles
	}
	return nil
}

func latticeEdges(size, layers int) [][2]int {
	var edges [][2]int
	at := func(cell, row, col int) int {
		return cell*size*size + row*size + col
	}
	for cell := 0; cell < layers; cell++ {
		for row := 0; row < size; row++ {
			for col := 0; col < size; col++ {
				if col+1 < size {
					edges = append(edges, [2]int{at(cell, row, col), at(cell, row, col+1)})
				}
				if row+1 < size {
					edges = append(edges, [2]int{at(cell, row, col), at(cell, row+1, col)})
				}
				if cell+1 < layers {
					edges = append(edges, [2]int{at(cell, row, col), at(cell+1, row, col)})
				}
			}
		}
	}
	return edges
}

func triangleEdges(tris [][3]int) [][2]int {
	seen := make(map[[2]int]struct{}, len(tris)*3/2)
	edges := make([][2]int, 0, len(tris)*3/2)
	for _, t := range tris {
		for k := 0; k < 3; k++ {
			a, b := t[k], t[(k+1)%3]
			if a > b {
				a, b = b, a
			}
			key := [2]int{a, b}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			edges = append(edges, key)
		}
	}
	return edges
}
