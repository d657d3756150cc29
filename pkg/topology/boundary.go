package topology

import (
	"github.com/chazu/quadsplit/pkg/mesh"
)

// Loop is one closed chain of border edges, listed by the vertices it
// passes through.
type Loop struct {
	Vertices []int
}

// Len returns the number of border edges in the loop.
func (l Loop) Len() int {
	return len(l.Vertices)
}

// BoundaryLoops walks every border of the mesh and returns one Loop per
// closed chain. Each border edge belongs to exactly one loop.
//
// The walk starts on an unvisited border edge, then repeatedly spins around
// the current vertex (FlipE, FlipF) until it reaches the next border edge
// and steps over it (FlipV), until it is back at the start.
func (a *Adjacency) BoundaryLoops() []Loop {
	visited := make(map[FaceEdge]bool)
	limit := a.m.CornerCount() + 1
	var loops []Loop

	for _, start := range a.BorderEdges() {
		if visited[start] {
			continue
		}
		first := a.Pos(start.F, start.E, a.m.Faces[start.F].V(start.E))
		pos := first
		var loop Loop
		for steps := 0; steps < limit; steps++ {
			visited[FaceEdge{F: pos.F, E: pos.E}] = true
			loop.Vertices = append(loop.Vertices, pos.V)

			for spin := 0; spin < limit; spin++ {
				pos.FlipE()
				pos.FlipF()
				if pos.IsBorder() {
					break
				}
			}
			pos.FlipV()
			if pos.Equal(first) {
				break
			}
		}
		loops = append(loops, loop)
	}
	return loops
}

// Summary collects the topological counts of a mesh.
type Summary struct {
	Vertices         int   `json:"vertices"`
	Faces            int   `json:"faces"`
	Corners          int   `json:"corners"`
	Edges            int   `json:"edges"`
	BorderEdges      int   `json:"border_edges"`
	NonManifoldEdges int   `json:"non_manifold_edges"`
	Loops            []int `json:"loops"` // border edges per loop
	Euler            int   `json:"euler"`
}

// Closed reports whether the mesh has no border.
func (s Summary) Closed() bool {
	return s.BorderEdges == 0
}

// Summarize computes vertex, face, edge and boundary counts and the Euler
// characteristic V - E + F. The edge count assumes every interior edge is
// shared by two faces: E = (corners + border edges) / 2.
func Summarize(m *mesh.Mesh) Summary {
	return NewAdjacency(m).Summary()
}

// Summary computes the counts of Summarize from an existing adjacency.
func (a *Adjacency) Summary() Summary {
	m := a.Mesh()
	s := Summary{
		Vertices:         m.VertexCount(),
		Faces:            m.FaceCount(),
		Corners:          m.CornerCount(),
		BorderEdges:      len(a.BorderEdges()),
		NonManifoldEdges: a.NonManifoldEdges(),
	}
	for _, l := range a.BoundaryLoops() {
		s.Loops = append(s.Loops, l.Len())
	}
	s.Edges = (s.Corners + s.BorderEdges) / 2
	s.Euler = s.Vertices - s.Edges + s.Faces
	return s
}
