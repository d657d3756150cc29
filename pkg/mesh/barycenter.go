package mesh

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// PolyBarycenter returns the arithmetic mean of the corner positions of f.
func (m *Mesh) PolyBarycenter(f Face) v3.Vec {
	var sum v3.Vec
	for _, v := range f {
		sum = sum.Add(m.Vertices[v])
	}
	return sum.DivScalar(float64(len(f)))
}

// Midpoint returns the midpoint of the segment between vertices a and b.
func (m *Mesh) Midpoint(a, b int) v3.Vec {
	return m.Vertices[a].Add(m.Vertices[b]).DivScalar(2)
}
