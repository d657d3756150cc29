// Package mesh defines the indexed polygon mesh shared by the loaders,
// the cleaning passes and the refiner. Positions and normals use the sdfx
// v3 vector type so meshes move between the kernel and the refiner without
// conversion.
package mesh

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Face is an ordered, cyclic loop of vertex indices. Corner i runs from
// V(i) to V(i+1).
type Face []int

// Len returns the number of corners.
func (f Face) Len() int {
	return len(f)
}

// V returns the vertex at corner i. Indices wrap in both directions, so
// V(-1) is the last corner and V(Len()) is the first.
func (f Face) V(i int) int {
	n := len(f)
	return f[((i%n)+n)%n]
}

// V0 returns the start vertex of the edge leaving corner i.
func (f Face) V0(i int) int { return f.V(i) }

// V1 returns the end vertex of the edge leaving corner i.
func (f Face) V1(i int) int { return f.V(i + 1) }

// V2 returns the vertex two corners after i.
func (f Face) V2(i int) int { return f.V(i + 2) }

// Has reports whether vertex v is referenced by the face.
func (f Face) Has(v int) bool {
	for _, x := range f {
		if x == v {
			return true
		}
	}
	return false
}

// Mesh is an indexed polygon mesh. Normals is either empty or holds exactly
// one normal per vertex.
type Mesh struct {
	Name     string   `json:"name,omitempty"`
	Vertices []v3.Vec `json:"vertices"`
	Normals  []v3.Vec `json:"normals,omitempty"`
	Faces    []Face   `json:"faces"`
}

// New returns an empty mesh.
func New() *Mesh {
	return &Mesh{}
}

// AddVertex appends a vertex and returns its index. Normals are not
// extended; HasNormals turns false until they are recomputed.
func (m *Mesh) AddVertex(p v3.Vec) int {
	m.Vertices = append(m.Vertices, p)
	return len(m.Vertices) - 1
}

// AddFace appends a polygon and returns its index. The slice is copied.
func (m *Mesh) AddFace(vs ...int) int {
	f := make(Face, len(vs))
	copy(f, vs)
	m.Faces = append(m.Faces, f)
	return len(m.Faces) - 1
}

// AddQuadFace appends a quadrilateral a-b-c-d and returns its index.
func (m *Mesh) AddQuadFace(a, b, c, d int) int {
	m.Faces = append(m.Faces, Face{a, b, c, d})
	return len(m.Faces) - 1
}

// P returns the position of vertex v.
func (m *Mesh) P(v int) v3.Vec {
	return m.Vertices[v]
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// FaceCount returns the number of faces.
func (m *Mesh) FaceCount() int {
	return len(m.Faces)
}

// CornerCount returns the total number of face corners (wedges).
func (m *Mesh) CornerCount() int {
	n := 0
	for _, f := range m.Faces {
		n += len(f)
	}
	return n
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// HasNormals reports whether the mesh carries one normal per vertex.
func (m *Mesh) HasNormals() bool {
	return len(m.Vertices) > 0 && len(m.Normals) == len(m.Vertices)
}

// IsQuadMesh reports whether every face has exactly four corners.
func (m *Mesh) IsQuadMesh() bool {
	return m.allArity(4)
}

// IsTriMesh reports whether every face has exactly three corners.
func (m *Mesh) IsTriMesh() bool {
	return m.allArity(3)
}

func (m *Mesh) allArity(n int) bool {
	if len(m.Faces) == 0 {
		return false
	}
	for _, f := range m.Faces {
		if len(f) != n {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Name:     m.Name,
		Vertices: append([]v3.Vec(nil), m.Vertices...),
		Normals:  append([]v3.Vec(nil), m.Normals...),
		Faces:    make([]Face, len(m.Faces)),
	}
	for i, f := range m.Faces {
		c.Faces[i] = append(Face(nil), f...)
	}
	return c
}

// BoundingBox returns the axis-aligned bounds of the vertices. An empty mesh
// returns two zero vectors.
func (m *Mesh) BoundingBox() (min, max v3.Vec) {
	if len(m.Vertices) == 0 {
		return min, max
	}
	min, max = m.Vertices[0], m.Vertices[0]
	for _, p := range m.Vertices[1:] {
		min = v3.Vec{X: minf(min.X, p.X), Y: minf(min.Y, p.Y), Z: minf(min.Z, p.Z)}
		max = v3.Vec{X: maxf(max.X, p.X), Y: maxf(max.Y, p.Y), Z: maxf(max.Z, p.Z)}
	}
	return min, max
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
