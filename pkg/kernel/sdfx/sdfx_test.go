package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/quadsplit/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// testCells keeps marching cubes fast in tests.
const testCells = 16

func mustSolid(t *testing.T) func(kernel.Solid, error) kernel.Solid {
	return func(s kernel.Solid, err error) kernel.Solid {
		t.Helper()
		if err != nil {
			t.Fatalf("primitive error = %v", err)
		}
		return s
	}
}

func near(a, b v3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}

func TestNewCells(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want int
	}{
		{"default", nil, DefaultCells},
		{"explicit", []Option{WithCells(32)}, 32},
		{"non-positive ignored", []Option{WithCells(0)}, DefaultCells},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.opts...).Cells(); got != tt.want {
				t.Errorf("Cells() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBoxMesh(t *testing.T) {
	k := New(WithCells(testCells))
	box := mustSolid(t)(k.Box(10, 10, 10))
	m, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if m.FaceCount() == 0 {
		t.Fatal("expected triangles")
	}
	if !m.IsTriMesh() {
		t.Error("IsTriMesh() = false, want true")
	}
	if m.VertexCount() != 3*m.FaceCount() {
		t.Errorf("VertexCount() = %d, want %d (soup)", m.VertexCount(), 3*m.FaceCount())
	}
	min, max := m.BoundingBox()
	if !near(min, v3.Vec{X: -5, Y: -5, Z: -5}, 1) || !near(max, v3.Vec{X: 5, Y: 5, Z: 5}, 1) {
		t.Errorf("mesh bounds = %v %v, want about ±5", min, max)
	}
}

func TestSphereMesh(t *testing.T) {
	k := New(WithCells(testCells))
	m, err := k.ToMesh(mustSolid(t)(k.Sphere(5)))
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	for i, p := range m.Vertices {
		if r := p.Length(); math.Abs(r-5) > 0.5 {
			t.Fatalf("vertex %d at radius %f, want about 5", i, r)
		}
	}
}

func TestDifference(t *testing.T) {
	k := New(WithCells(testCells))

	box := mustSolid(t)(k.Box(10, 10, 10))
	boxMesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh(box) error = %v", err)
	}

	cyl := mustSolid(t)(k.Cylinder(12, 2))
	diffMesh, err := k.ToMesh(k.Difference(box, cyl))
	if err != nil {
		t.Fatalf("ToMesh(diff) error = %v", err)
	}
	// A box with a hole should have more triangles than a plain box.
	if diffMesh.FaceCount() <= boxMesh.FaceCount() {
		t.Fatalf("difference (%d triangles) should have more triangles than box (%d triangles)",
			diffMesh.FaceCount(), boxMesh.FaceCount())
	}
}

func TestUnionAndIntersection(t *testing.T) {
	k := New(WithCells(testCells))
	a := mustSolid(t)(k.Box(10, 10, 10))
	b := k.Translate(mustSolid(t)(k.Box(10, 10, 10)), 5, 0, 0)

	if got := kernel.Size(k.Union(a, b)); math.Abs(got.X-15) > 0.01 {
		t.Errorf("union X extent = %f, want 15", got.X)
	}
	m, err := k.ToMesh(k.Intersection(a, b))
	if err != nil {
		t.Fatalf("ToMesh(intersection) error = %v", err)
	}
	min, max := m.BoundingBox()
	if math.Abs((max.X-min.X)-5) > 1 {
		t.Errorf("intersection X extent = %f, want about 5", max.X-min.X)
	}
}

func TestTranslate(t *testing.T) {
	k := New()
	box := mustSolid(t)(k.Box(10, 10, 10))
	min, max := k.Translate(box, 100, 200, 300).BoundingBox()

	const tol = 0.5
	if !near(min, v3.Vec{X: 95, Y: 195, Z: 295}, tol) {
		t.Errorf("min = %v, want ~(95,195,295)", min)
	}
	if !near(max, v3.Vec{X: 105, Y: 205, Z: 305}, tol) {
		t.Errorf("max = %v, want ~(105,205,305)", max)
	}
}

func TestBoundingBox(t *testing.T) {
	k := New()
	min, max := mustSolid(t)(k.Box(100, 50, 25)).BoundingBox()

	const tol = 0.01
	if !near(min, v3.Vec{X: -50, Y: -25, Z: -12.5}, tol) {
		t.Errorf("min = %v, want (-50,-25,-12.5)", min)
	}
	if !near(max, v3.Vec{X: 50, Y: 25, Z: 12.5}, tol) {
		t.Errorf("max = %v, want (50,25,12.5)", max)
	}
}

func TestRotate(t *testing.T) {
	k := New()
	box := mustSolid(t)(k.Box(100, 10, 10))

	// A long box along X rotated 90 degrees around Z should extend along Y instead.
	size := kernel.Size(k.Rotate(box, 0, 0, 90))

	const tol = 1.0
	if math.Abs(size.X-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", size.X)
	}
	if math.Abs(size.Y-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", size.Y)
	}
}

func TestInvalidSphere(t *testing.T) {
	if _, err := New().Sphere(0); err == nil {
		t.Error("Sphere(0) error = nil, want error")
	}
}
