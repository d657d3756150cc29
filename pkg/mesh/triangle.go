package mesh

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Triangles fan-triangulates every face and returns the triangles as sdfx
// triangles, the form consumed by the sdfx STL writer.
func (m *Mesh) Triangles() []*sdf.Triangle3 {
	tris := make([]*sdf.Triangle3, 0, max(0, m.CornerCount()-2*len(m.Faces)))
	for _, f := range m.Faces {
		for i := 1; i+1 < len(f); i++ {
			tris = append(tris, &sdf.Triangle3{
				m.Vertices[f[0]],
				m.Vertices[f[i]],
				m.Vertices[f[i+1]],
			})
		}
	}
	return tris
}

// FromTriangles builds a triangle soup: three fresh vertices per triangle,
// no sharing. Run the clean passes to weld it into an indexed mesh.
func FromTriangles(tris []*sdf.Triangle3) *Mesh {
	m := &Mesh{}
	m.Vertices = make([]v3.Vec, 0, 3*len(tris))
	m.Faces = make([]Face, 0, len(tris))
	for _, t := range tris {
		base := len(m.Vertices)
		m.Vertices = append(m.Vertices, t[0], t[1], t[2])
		m.Faces = append(m.Faces, Face{base, base + 1, base + 2})
	}
	return m
}
