package clean

import (
	"testing"

	"github.com/chazu/quadsplit/pkg/mesh"
	"github.com/chazu/quadsplit/pkg/topology"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func cube() *mesh.Mesh {
	m := mesh.New()
	for _, p := range []v3.Vec{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 1},
	} {
		m.AddVertex(p)
	}
	m.AddQuadFace(0, 3, 2, 1)
	m.AddQuadFace(4, 5, 6, 7)
	m.AddQuadFace(0, 1, 5, 4)
	m.AddQuadFace(1, 2, 6, 5)
	m.AddQuadFace(2, 3, 7, 6)
	m.AddQuadFace(3, 0, 4, 7)
	return m
}

func TestWeldSoupCube(t *testing.T) {
	soup := mesh.FromTriangles(cube().Triangles())
	if soup.VertexCount() != 36 || soup.FaceCount() != 12 {
		t.Fatalf("soup = %d vertices %d faces, want 36 and 12", soup.VertexCount(), soup.FaceCount())
	}

	r := Weld(soup, 0)
	if soup.VertexCount() != 8 {
		t.Errorf("VertexCount() = %d, want 8", soup.VertexCount())
	}
	if soup.FaceCount() != 12 {
		t.Errorf("FaceCount() = %d, want 12", soup.FaceCount())
	}
	want := Report{Duplicates: 28, Degenerate: 0, Unreferenced: 28}
	if r != want {
		t.Errorf("Weld() = %+v, want %+v", r, want)
	}

	s := topology.Summarize(soup)
	if !s.Closed() || s.Euler != 2 {
		t.Errorf("welded cube: closed=%v euler=%d, want closed and 2", s.Closed(), s.Euler)
	}
}

func TestRemoveDuplicateVerticesTolerance(t *testing.T) {
	build := func() *mesh.Mesh {
		m := mesh.New()
		m.AddVertex(v3.Vec{X: 0, Y: 0, Z: 0})
		m.AddVertex(v3.Vec{X: 1, Y: 0, Z: 0})
		m.AddVertex(v3.Vec{X: 0, Y: 1, Z: 0})
		m.AddVertex(v3.Vec{X: 1.0001, Y: 0, Z: 0})
		m.AddVertex(v3.Vec{X: 1, Y: 1, Z: 0})
		m.AddFace(0, 1, 2)
		m.AddFace(3, 4, 2)
		return m
	}

	tests := []struct {
		name string
		tol  float64
		want int
	}{
		{"exact", 0, 0},
		{"coarse grid", 0.01, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := build()
			if got := RemoveDuplicateVertices(m, tt.tol); got != tt.want {
				t.Errorf("RemoveDuplicateVertices() = %d, want %d", got, tt.want)
			}
			if tt.want > 0 && m.Faces[1][0] != 1 {
				t.Errorf("face 1 corner 0 = %d, want 1", m.Faces[1][0])
			}
			if m.VertexCount() != 5 {
				t.Errorf("VertexCount() = %d, want 5 before compaction", m.VertexCount())
			}
		})
	}
}

func TestRemoveDegenerateFaces(t *testing.T) {
	m := mesh.New()
	for i := 0; i < 5; i++ {
		m.AddVertex(v3.Vec{X: float64(i)})
	}
	m.AddFace(0, 1, 2)       // kept
	m.AddFace(0, 0, 1)       // collapses to an edge
	m.AddFace(1, 2, 2, 3)    // collapses to a triangle
	m.AddFace(3, 4, 3)       // first and last match
	m.AddFace(2, 3, 4, 4, 2) // collapses to a triangle

	if got := RemoveDegenerateFaces(m); got != 2 {
		t.Errorf("RemoveDegenerateFaces() = %d, want 2", got)
	}
	want := []mesh.Face{{0, 1, 2}, {1, 2, 3}, {2, 3, 4}}
	if len(m.Faces) != len(want) {
		t.Fatalf("faces = %v, want %v", m.Faces, want)
	}
	for i := range want {
		if !equalFace(m.Faces[i], want[i]) {
			t.Errorf("face %d = %v, want %v", i, m.Faces[i], want[i])
		}
	}
}

func TestCompactVerticesRemapsNormals(t *testing.T) {
	m := mesh.New()
	for i := 0; i < 5; i++ {
		m.AddVertex(v3.Vec{X: float64(i)})
	}
	m.Normals = []v3.Vec{{X: 0}, {X: 1}, {X: 2}, {X: 3}, {X: 4}}
	m.AddFace(4, 1, 3)

	if got := CompactVertices(m); got != 2 {
		t.Errorf("CompactVertices() = %d, want 2", got)
	}
	if !equalFace(m.Faces[0], mesh.Face{2, 0, 1}) {
		t.Errorf("face = %v, want [2 0 1]", m.Faces[0])
	}
	for i, want := range []float64{1, 3, 4} {
		if m.Vertices[i].X != want {
			t.Errorf("vertex %d X = %v, want %v", i, m.Vertices[i].X, want)
		}
		if m.Normals[i].X != want {
			t.Errorf("normal %d X = %v, want %v", i, m.Normals[i].X, want)
		}
	}
}

func TestCompactWithoutNormals(t *testing.T) {
	m := mesh.New()
	m.AddVertex(v3.Vec{})
	m.AddVertex(v3.Vec{X: 1})
	m.AddVertex(v3.Vec{Y: 1})
	m.AddVertex(v3.Vec{Z: 1})
	m.AddFace(0, 1, 2)

	if got := CompactVertices(m); got != 1 {
		t.Errorf("CompactVertices() = %d, want 1", got)
	}
	if len(m.Normals) != 0 {
		t.Errorf("normals = %v, want none", m.Normals)
	}
}

func TestWeldCleanMeshUnchanged(t *testing.T) {
	m := cube()
	if r := Weld(m, 0); r.Changed() {
		t.Errorf("Weld() on an indexed cube = %+v, want no changes", r)
	}
	if m.VertexCount() != 8 || m.FaceCount() != 6 {
		t.Errorf("cube = %d vertices %d faces, want 8 and 6", m.VertexCount(), m.FaceCount())
	}
}

func equalFace(a, b mesh.Face) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
