// Package topology derives face-face adjacency from an indexed polygon mesh
// and navigates it with halfedge-style positions. It answers the questions
// the refiner does not need to ask itself: which edges are on the border,
// how many boundary loops there are, and what the Euler characteristic is.
package topology

import (
	"github.com/chazu/quadsplit/pkg/mesh"
)

// FaceEdge names edge E of face F, the edge from corner E to corner E+1.
type FaceEdge struct {
	F, E int
}

// pair is an undirected vertex pair, lower index first.
type pair struct {
	lo, hi int
}

func makePair(a, b int) pair {
	if a > b {
		a, b = b, a
	}
	return pair{lo: a, hi: b}
}

// Adjacency links every face edge to the face edge across from it. Border
// edges link to themselves. Edges shared by more than two faces are linked
// in a cycle through all of them and counted as non-manifold.
type Adjacency struct {
	m           *mesh.Mesh
	ff          [][]FaceEdge
	nonManifold int
}

// NewAdjacency builds face-face adjacency for m. The mesh must pass
// Validate without errors.
func NewAdjacency(m *mesh.Mesh) *Adjacency {
	incident := make(map[pair][]FaceEdge, m.CornerCount()/2)
	order := make([]pair, 0, m.CornerCount()/2)
	ff := make([][]FaceEdge, len(m.Faces))
	for fi, f := range m.Faces {
		ff[fi] = make([]FaceEdge, len(f))
		for e := range f {
			k := makePair(f.V0(e), f.V1(e))
			if _, ok := incident[k]; !ok {
				order = append(order, k)
			}
			incident[k] = append(incident[k], FaceEdge{F: fi, E: e})
		}
	}

	a := &Adjacency{m: m, ff: ff}
	for _, k := range order {
		fes := incident[k]
		if len(fes) > 2 {
			a.nonManifold++
		}
		for i, fe := range fes {
			a.ff[fe.F][fe.E] = fes[(i+1)%len(fes)]
		}
	}
	return a
}

// Mesh returns the mesh the adjacency was built from.
func (a *Adjacency) Mesh() *mesh.Mesh {
	return a.m
}

// Across returns the face edge on the other side of edge e of face f.
// For a border edge it returns (f, e).
func (a *Adjacency) Across(f, e int) FaceEdge {
	return a.ff[f][e]
}

// IsBorder reports whether edge e of face f has no neighbouring face.
func (a *Adjacency) IsBorder(f, e int) bool {
	return a.ff[f][e] == FaceEdge{F: f, E: e}
}

// NonManifoldEdges returns the number of edges shared by more than two
// faces.
func (a *Adjacency) NonManifoldEdges() int {
	return a.nonManifold
}

// BorderEdges returns every border face edge in face order.
func (a *Adjacency) BorderEdges() []FaceEdge {
	var out []FaceEdge
	for f := range a.ff {
		for e := range a.ff[f] {
			if a.IsBorder(f, e) {
				out = append(out, FaceEdge{F: f, E: e})
			}
		}
	}
	return out
}
