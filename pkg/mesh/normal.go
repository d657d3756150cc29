package mesh

import (
	"errors"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrNoNormals is returned by RequireNormals when the mesh does not carry
// one normal per vertex.
var ErrNoNormals = errors.New("mesh: per-vertex normals missing")

// ErrInvalidNormal is returned by RequireNormals for a NaN or infinite
// normal component.
var ErrInvalidNormal = errors.New("mesh: invalid per-vertex normal")

// FaceNormal returns the Newell normal of face f. Its length is twice the
// polygon area, so summing face normals weights them by area.
func (m *Mesh) FaceNormal(f Face) v3.Vec {
	var n v3.Vec
	for i := range f {
		a := m.Vertices[f.V0(i)]
		b := m.Vertices[f.V1(i)]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return n
}

// UpdateNormals recomputes area-weighted, unit-length per-vertex normals.
// Vertices not referenced by any face (or only by zero-area faces) get a
// zero normal.
func (m *Mesh) UpdateNormals() {
	normals := make([]v3.Vec, len(m.Vertices))
	for _, f := range m.Faces {
		fn := m.FaceNormal(f)
		for _, v := range f {
			normals[v] = normals[v].Add(fn)
		}
	}
	for i, n := range normals {
		if l := n.Length(); l > 0 {
			normals[i] = n.DivScalar(l)
		}
	}
	m.Normals = normals
}

// RequireNormals checks that the mesh carries a finite normal for every
// vertex.
func (m *Mesh) RequireNormals() error {
	if len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("%w: have %d normals for %d vertices", ErrNoNormals, len(m.Normals), len(m.Vertices))
	}
	for i, n := range m.Normals {
		if !finite(n.X) || !finite(n.Y) || !finite(n.Z) {
			return fmt.Errorf("%w: vertex %d has normal %v", ErrInvalidNormal, i, n)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
