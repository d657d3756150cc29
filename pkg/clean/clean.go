// Package clean repairs indexed meshes built from triangle soups: it merges
// coincident vertices, drops faces that collapse to fewer than three corners
// and compacts away vertices no face references.
//
// Loaders such as STL produce three private vertices per triangle; Weld turns
// that soup into a connected mesh the refiner can share edges across.
package clean

import (
	"math"

	"github.com/chazu/quadsplit/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Report counts what a Weld pass changed.
type Report struct {
	Duplicates   int `json:"duplicates"`   // vertices redirected to an earlier twin
	Degenerate   int `json:"degenerate"`   // faces removed
	Unreferenced int `json:"unreferenced"` // vertices removed by compaction
}

// Changed reports whether the pass modified the mesh.
func (r Report) Changed() bool {
	return r.Duplicates > 0 || r.Degenerate > 0 || r.Unreferenced > 0
}

// Weld runs RemoveDuplicateVertices, RemoveDegenerateFaces and
// CompactVertices in that order.
func Weld(m *mesh.Mesh, tol float64) Report {
	var r Report
	r.Duplicates = RemoveDuplicateVertices(m, tol)
	r.Degenerate = RemoveDegenerateFaces(m)
	r.Unreferenced = CompactVertices(m)
	return r
}

// cell is a quantized position used as a map key.
type cell struct {
	x, y, z int64
}

func quantize(p v3.Vec, tol float64) cell {
	return cell{
		x: int64(math.Round(p.X / tol)),
		y: int64(math.Round(p.Y / tol)),
		z: int64(math.Round(p.Z / tol)),
	}
}

// RemoveDuplicateVertices redirects every face reference to the first vertex
// at the same position and returns the number of redirected vertices. The
// duplicates stay in the vertex list, unreferenced, until CompactVertices.
//
// With tol == 0 positions must match exactly. With tol > 0 positions are
// snapped to a grid of that spacing and vertices in the same cell merge.
func RemoveDuplicateVertices(m *mesh.Mesh, tol float64) int {
	remap := make([]int, len(m.Vertices))
	dups := 0
	if tol > 0 {
		first := make(map[cell]int, len(m.Vertices))
		for i, p := range m.Vertices {
			k := quantize(p, tol)
			if j, ok := first[k]; ok {
				remap[i] = j
				dups++
				continue
			}
			first[k] = i
			remap[i] = i
		}
	} else {
		first := make(map[v3.Vec]int, len(m.Vertices))
		for i, p := range m.Vertices {
			if j, ok := first[p]; ok {
				remap[i] = j
				dups++
				continue
			}
			first[p] = i
			remap[i] = i
		}
	}
	if dups == 0 {
		return 0
	}
	for _, f := range m.Faces {
		for c, v := range f {
			if v >= 0 && v < len(remap) {
				f[c] = remap[v]
			}
		}
	}
	return dups
}

// RemoveDegenerateFaces collapses runs of the same vertex inside each face
// and removes faces left with fewer than three corners. It returns the
// number of faces removed.
func RemoveDegenerateFaces(m *mesh.Mesh) int {
	kept := m.Faces[:0]
	removed := 0
	for _, f := range m.Faces {
		f = collapse(f)
		if len(f) < 3 {
			removed++
			continue
		}
		kept = append(kept, f)
	}
	for i := len(kept); i < len(m.Faces); i++ {
		m.Faces[i] = nil
	}
	m.Faces = kept
	return removed
}

// collapse drops corners equal to their cyclic predecessor.
func collapse(f mesh.Face) mesh.Face {
	out := f[:0]
	for i, v := range f {
		if i > 0 && v == out[len(out)-1] {
			continue
		}
		out = append(out, v)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

// CompactVertices removes vertices no face references, renumbering the
// remaining ones in their original order. Normals are compacted alongside
// when the mesh has them. It returns the number of vertices removed.
func CompactVertices(m *mesh.Mesh) int {
	used := make([]bool, len(m.Vertices))
	for _, f := range m.Faces {
		for _, v := range f {
			if v >= 0 && v < len(used) {
				used[v] = true
			}
		}
	}

	remap := make([]int, len(m.Vertices))
	hasNormals := m.HasNormals()
	n := 0
	for i, u := range used {
		if !u {
			remap[i] = -1
			continue
		}
		remap[i] = n
		m.Vertices[n] = m.Vertices[i]
		if hasNormals {
			m.Normals[n] = m.Normals[i]
		}
		n++
	}
	removed := len(m.Vertices) - n
	if removed == 0 {
		return 0
	}

	m.Vertices = m.Vertices[:n]
	if hasNormals {
		m.Normals = m.Normals[:n]
	}
	for _, f := range m.Faces {
		for c, v := range f {
			if v >= 0 && v < len(remap) {
				f[c] = remap[v]
			}
		}
	}
	return removed
}
