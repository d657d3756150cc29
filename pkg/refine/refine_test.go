package refine

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/quadsplit/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// --- fixtures ---

func withNormals(m *mesh.Mesh) *mesh.Mesh {
	m.UpdateNormals()
	return m
}

// singleTriangle is A(0,0,0) B(1,0,0) C(0,1,0) with one counter-clockwise face.
func singleTriangle() *mesh.Mesh {
	m := mesh.New()
	m.AddVertex(v3.Vec{X: 0, Y: 0, Z: 0})
	m.AddVertex(v3.Vec{X: 1, Y: 0, Z: 0})
	m.AddVertex(v3.Vec{X: 0, Y: 1, Z: 0})
	m.AddFace(0, 1, 2)
	return withNormals(m)
}

// twoTriangles shares edge B-C between faces (A,B,C) and (B,D,C).
func twoTriangles() *mesh.Mesh {
	m := mesh.New()
	m.AddVertex(v3.Vec{X: 0, Y: 0, Z: 0})
	m.AddVertex(v3.Vec{X: 1, Y: 0, Z: 0})
	m.AddVertex(v3.Vec{X: 0, Y: 1, Z: 0})
	m.AddVertex(v3.Vec{X: 1, Y: 1, Z: 0})
	m.AddFace(0, 1, 2)
	m.AddFace(1, 3, 2)
	return withNormals(m)
}

func tetrahedron() *mesh.Mesh {
	m := mesh.New()
	m.AddVertex(v3.Vec{X: 0, Y: 0, Z: 0})
	m.AddVertex(v3.Vec{X: 1, Y: 0, Z: 0})
	m.AddVertex(v3.Vec{X: 0, Y: 1, Z: 0})
	m.AddVertex(v3.Vec{X: 0, Y: 0, Z: 1})
	m.AddFace(0, 2, 1)
	m.AddFace(0, 1, 3)
	m.AddFace(0, 3, 2)
	m.AddFace(1, 2, 3)
	return withNormals(m)
}

// cube is the unit cube with six outward quads.
func cube() *mesh.Mesh {
	m := mesh.New()
	for _, p := range []v3.Vec{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 1},
	} {
		m.AddVertex(p)
	}
	m.AddFace(0, 3, 2, 1)
	m.AddFace(4, 5, 6, 7)
	m.AddFace(0, 1, 5, 4)
	m.AddFace(1, 2, 6, 5)
	m.AddFace(2, 3, 7, 6)
	m.AddFace(3, 0, 4, 7)
	return withNormals(m)
}

func near(a, b v3.Vec) bool {
	const tol = 1e-9
	return math.Abs(a.X-b.X) < tol && math.Abs(a.Y-b.Y) < tol && math.Abs(a.Z-b.Z) < tol
}

func mustRun(t *testing.T, m *mesh.Mesh) *Result {
	t.Helper()
	res, err := Run(m)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return res
}

// --- edge keys ---

func TestMakeEdgeKeySymmetry(t *testing.T) {
	tests := []struct {
		a, b int
		want EdgeKey
	}{
		{0, 1, EdgeKey{0, 1}},
		{1, 0, EdgeKey{0, 1}},
		{7, 3, EdgeKey{3, 7}},
		{5, 5, EdgeKey{5, 5}},
		{1000000, 2, EdgeKey{2, 1000000}},
	}
	for _, tt := range tests {
		if got := MakeEdgeKey(tt.a, tt.b); got != tt.want {
			t.Errorf("MakeEdgeKey(%d, %d) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if MakeEdgeKey(tt.a, tt.b) != MakeEdgeKey(tt.b, tt.a) {
			t.Errorf("MakeEdgeKey(%d, %d) != MakeEdgeKey(%d, %d)", tt.a, tt.b, tt.b, tt.a)
		}
	}
}

func TestEdgeKeyString(t *testing.T) {
	if got := MakeEdgeKey(4, 2).String(); got != "(2,4)" {
		t.Errorf("String() = %q, want %q", got, "(2,4)")
	}
}

// --- scenarios ---

func TestSingleTriangle(t *testing.T) {
	src := singleTriangle()
	res := mustRun(t, src)
	out := res.Mesh

	if out.VertexCount() != 7 {
		t.Fatalf("VertexCount() = %d, want 7", out.VertexCount())
	}
	if out.FaceCount() != 3 {
		t.Fatalf("FaceCount() = %d, want 3", out.FaceCount())
	}
	if !out.IsQuadMesh() {
		t.Fatal("output is not a quad mesh")
	}

	// Carried vertices keep their index and position.
	for i := 0; i < 3; i++ {
		if out.P(i) != src.P(i) {
			t.Errorf("carried vertex %d = %v, want %v", i, out.P(i), src.P(i))
		}
	}

	fp, ok := res.FacePoints.Lookup(0)
	if !ok || fp != 3 {
		t.Fatalf("FacePoints.Lookup(0) = %d, %v, want 3, true", fp, ok)
	}
	if want := (v3.Vec{X: 1.0 / 3, Y: 1.0 / 3}); !near(out.P(fp), want) {
		t.Errorf("face-point = %v, want centroid %v", out.P(fp), want)
	}

	// Each edge-point is (4*V(i) + 3*V(i+1) + V(i+2)) / 8 after a single visit.
	edges := []struct {
		key   EdgeKey
		index int
		want  v3.Vec
	}{
		{MakeEdgeKey(0, 1), 4, v3.Vec{X: 3.0 / 8, Y: 1.0 / 8}},
		{MakeEdgeKey(1, 2), 5, v3.Vec{X: 4.0 / 8, Y: 3.0 / 8}},
		{MakeEdgeKey(2, 0), 6, v3.Vec{X: 1.0 / 8, Y: 4.0 / 8}},
	}
	for _, e := range edges {
		p, ok := res.EdgePoints.Lookup(e.key)
		if !ok {
			t.Fatalf("edge %v not registered", e.key)
		}
		if p.Index != e.index {
			t.Errorf("edge %v index = %d, want %d", e.key, p.Index, e.index)
		}
		if p.Weight != WeightIncrement {
			t.Errorf("edge %v weight = %d, want %d", e.key, p.Weight, WeightIncrement)
		}
		if !near(out.P(p.Index), e.want) {
			t.Errorf("edge %v position = %v, want %v", e.key, out.P(p.Index), e.want)
		}
	}

	wantQuads := []mesh.Face{
		{0, 4, 3, 6},
		{1, 5, 3, 4},
		{2, 6, 3, 5},
	}
	for i, want := range wantQuads {
		got := out.Faces[i]
		for c := range want {
			if got[c] != want[c] {
				t.Errorf("quad %d = %v, want %v", i, got, want)
				break
			}
		}
	}
}

func TestQuadsKeepWinding(t *testing.T) {
	out := mustRun(t, singleTriangle()).Mesh
	for i, f := range out.Faces {
		if n := out.FaceNormal(f); n.Z <= 0 {
			t.Errorf("quad %d normal = %v, want +Z like the source face", i, n)
		}
	}
}

func TestSharedEdge(t *testing.T) {
	res := mustRun(t, twoTriangles())
	out := res.Mesh

	// V=4, F=2, E=5.
	if out.VertexCount() != 11 {
		t.Errorf("VertexCount() = %d, want 11", out.VertexCount())
	}
	if out.FaceCount() != 6 {
		t.Errorf("FaceCount() = %d, want 6", out.FaceCount())
	}
	if res.EdgePoints.Len() != 5 {
		t.Errorf("EdgePoints.Len() = %d, want 5", res.EdgePoints.Len())
	}

	shared, ok := res.EdgePoints.Lookup(MakeEdgeKey(1, 2))
	if !ok {
		t.Fatal("shared edge not registered")
	}
	if shared.Weight != 2*WeightIncrement {
		t.Errorf("shared edge weight = %d, want %d", shared.Weight, 2*WeightIncrement)
	}
	if shared.Visits() != 2 {
		t.Errorf("shared edge Visits() = %d, want 2", shared.Visits())
	}
	// (7B + 7C + A + D) / 16.
	if want := (v3.Vec{X: 0.5, Y: 0.5}); !near(out.P(shared.Index), want) {
		t.Errorf("shared edge-point = %v, want %v", out.P(shared.Index), want)
	}

	// The same edge on its own is a boundary edge with a different blend.
	alone := mustRun(t, singleTriangle())
	bp, _ := alone.EdgePoints.Lookup(MakeEdgeKey(1, 2))
	if near(alone.Mesh.P(bp.Index), out.P(shared.Index)) {
		t.Error("shared edge-point equals the boundary edge-point of a lone triangle")
	}

	for _, p := range res.EdgePoints.Points() {
		if p.Key == shared.Key {
			continue
		}
		if p.Weight != WeightIncrement {
			t.Errorf("boundary edge %v weight = %d, want %d", p.Key, p.Weight, WeightIncrement)
		}
	}
}

func TestSharedEdgeResolvesToOnePoint(t *testing.T) {
	res := mustRun(t, twoTriangles())
	shared, _ := res.EdgePoints.Lookup(MakeEdgeKey(1, 2))

	// Quads of both input faces must reference the shared edge-point.
	perFace := [2]int{}
	for qi, q := range res.Mesh.Faces {
		if q.Has(shared.Index) {
			perFace[qi/3]++
		}
	}
	if perFace[0] != 2 || perFace[1] != 2 {
		t.Errorf("shared edge-point referenced by %v quads per face, want [2 2]", perFace)
	}
}

func TestClosedMeshCounts(t *testing.T) {
	tests := []struct {
		name    string
		src     *mesh.Mesh
		v, f, e int
	}{
		{"tetrahedron", tetrahedron(), 4, 4, 6},
		{"cube", cube(), 8, 6, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustRun(t, tt.src)
			out := res.Mesh
			if got, want := out.VertexCount(), tt.v+tt.f+tt.e; got != want {
				t.Errorf("VertexCount() = %d, want V+F+E = %d", got, want)
			}
			if got, want := out.FaceCount(), tt.src.CornerCount(); got != want {
				t.Errorf("FaceCount() = %d, want corner count %d", got, want)
			}
			if !out.IsQuadMesh() {
				t.Error("output is not a quad mesh")
			}
			if res.Carried != tt.v {
				t.Errorf("Carried = %d, want %d", res.Carried, tt.v)
			}
			if res.FacePoints.Len() != tt.f {
				t.Errorf("FacePoints.Len() = %d, want %d", res.FacePoints.Len(), tt.f)
			}
			for _, p := range res.EdgePoints.Points() {
				if p.Weight != 2*WeightIncrement {
					t.Errorf("edge %v weight = %d, want %d on a closed mesh", p.Key, p.Weight, 2*WeightIncrement)
				}
			}
		})
	}
}

func TestTriangleFaceCount(t *testing.T) {
	src := tetrahedron()
	out := mustRun(t, src).Mesh
	if got, want := out.FaceCount(), 3*src.FaceCount(); got != want {
		t.Errorf("FaceCount() = %d, want 3F = %d", got, want)
	}
}

func TestVertexRanges(t *testing.T) {
	src := cube()
	res := mustRun(t, src)
	for fi := 0; fi < src.FaceCount(); fi++ {
		idx, ok := res.FacePoints.Lookup(fi)
		if !ok || idx != src.VertexCount()+fi {
			t.Errorf("FacePoints.Lookup(%d) = %d, %v, want %d", fi, idx, ok, src.VertexCount()+fi)
		}
	}
	base := src.VertexCount() + src.FaceCount()
	for i, p := range res.EdgePoints.Points() {
		if p.Index != base+i {
			t.Errorf("edge-point %d index = %d, want %d", i, p.Index, base+i)
		}
	}
	if _, ok := res.FacePoints.Lookup(src.FaceCount()); ok {
		t.Error("FacePoints.Lookup(F) succeeded, want miss")
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	res := mustRun(t, cube())
	if !res.EdgePoints.Normalized() {
		t.Fatal("Normalized() = false after Run")
	}
	before := append([]v3.Vec(nil), res.Mesh.Vertices...)
	res.EdgePoints.Normalize(res.Mesh)
	for i, p := range res.Mesh.Vertices {
		if p != before[i] {
			t.Errorf("vertex %d moved on second Normalize: %v -> %v", i, before[i], p)
		}
	}
}

func TestNormalizeSkipsZeroWeight(t *testing.T) {
	out := mesh.New()
	r := newEdgeRegistry(1)
	idx := out.AddVertex(v3.Vec{X: 3, Y: 6, Z: 9})
	r.slots[MakeEdgeKey(0, 1)] = 0
	r.points = append(r.points, EdgePoint{Key: MakeEdgeKey(0, 1), Index: idx})
	r.Normalize(out)
	if got := out.P(idx); got != (v3.Vec{X: 3, Y: 6, Z: 9}) {
		t.Errorf("zero-weight point moved to %v", got)
	}
}

func TestSourceUntouched(t *testing.T) {
	src := cube()
	snapshot := src.Clone()
	mustRun(t, src)
	for i := range src.Vertices {
		if src.Vertices[i] != snapshot.Vertices[i] {
			t.Errorf("source vertex %d changed", i)
		}
	}
	if src.FaceCount() != snapshot.FaceCount() {
		t.Errorf("source face count changed: %d -> %d", snapshot.FaceCount(), src.FaceCount())
	}
}

func TestRefineReturnsMesh(t *testing.T) {
	out, err := Refine(tetrahedron())
	if err != nil {
		t.Fatalf("Refine() error = %v", err)
	}
	if out.FaceCount() != 12 {
		t.Errorf("FaceCount() = %d, want 12", out.FaceCount())
	}
}

// --- preconditions and failures ---

func TestPreconditions(t *testing.T) {
	noNormals := func() *mesh.Mesh {
		m := singleTriangle()
		m.Normals = nil
		return m
	}
	badFace := func() *mesh.Mesh {
		m := singleTriangle()
		m.AddFace(0, 1)
		return m
	}
	outOfRange := func() *mesh.Mesh {
		m := singleTriangle()
		m.AddFace(0, 1, 9)
		return m
	}
	nanNormal := func() *mesh.Mesh {
		m := singleTriangle()
		m.Normals[0].X = math.Inf(1)
		return m
	}

	tests := []struct {
		name    string
		src     *mesh.Mesh
		opts    []Option
		wantErr bool
	}{
		{"nil mesh", nil, nil, true},
		{"missing normals", noNormals(), nil, true},
		{"missing normals allowed", noNormals(), []Option{WithRequireNormals(false)}, false},
		{"infinite normal", nanNormal(), nil, true},
		{"two-corner face", badFace(), []Option{WithRequireNormals(false)}, true},
		{"index out of range", outOfRange(), []Option{WithRequireNormals(false)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tt.src, tt.opts...)
			if tt.wantErr {
				if !errors.Is(err, ErrPrecondition) {
					t.Errorf("Run() error = %v, want ErrPrecondition", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Run() error = %v, want nil", err)
			}
		})
	}
}

func TestMissingNormalsWrapsMeshError(t *testing.T) {
	m := singleTriangle()
	m.Normals = nil
	_, err := Run(m)
	if !errors.Is(err, mesh.ErrNoNormals) {
		t.Errorf("Run() error = %v, want it to wrap mesh.ErrNoNormals", err)
	}
}

func TestAssembleWithoutAccumulation(t *testing.T) {
	src := singleTriangle()
	out := mesh.New()
	carryVertices(src, out)
	faces := generateFacePoints(src, out)

	err := assembleQuads(src, out, faces, newEdgeRegistry(0))
	if !errors.Is(err, ErrTopology) {
		t.Fatalf("assembleQuads() error = %v, want ErrTopology", err)
	}
	var te *TopologyError
	if !errors.As(err, &te) {
		t.Fatalf("assembleQuads() error = %T, want *TopologyError", err)
	}
	if te.Face != 0 || te.Corner != 0 || te.Key != MakeEdgeKey(0, 1) {
		t.Errorf("TopologyError = %+v, want face 0 corner 0 edge (0,1)", te)
	}
	if got, want := te.Error(), "refine: face 0 corner 0: no edge-point for edge (0,1)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestDegenerateGeometryPassesThrough(t *testing.T) {
	m := mesh.New()
	p := v3.Vec{X: 1, Y: 1, Z: 1}
	m.AddVertex(p)
	m.AddVertex(p)
	m.AddVertex(p)
	m.AddFace(0, 1, 2)
	res, err := Run(m, WithRequireNormals(false))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for i, v := range res.Mesh.Vertices {
		if !near(v, p) {
			t.Errorf("vertex %d = %v, want %v", i, v, p)
		}
	}
}
