// Package kernel defines the solid-modeling interface used to build input
// meshes for refinement. Implementations (sdfx, manifold) provide
// primitives, boolean operations and transforms, and turn a finished solid
// into triangles.
package kernel

import (
	"errors"

	"github.com/chazu/quadsplit/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrEmptySolid is returned by ToMesh when a solid produces no surface.
var ErrEmptySolid = errors.New("kernel: solid has no surface")

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max v3.Vec)
}

// Kernel builds solids and converts them to meshes. Primitives are centered
// on the origin.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) (Solid, error)
	Sphere(radius float64) (Solid, error)
	Cylinder(height, radius float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// ToMesh returns the solid's surface as triangles. Marching cubes
	// kernels return an unwelded soup, three vertices per triangle;
	// boundary-representation kernels may share vertices.
	ToMesh(s Solid) (*mesh.Mesh, error)
}

// Size returns the extent of a solid along each axis.
func Size(s Solid) v3.Vec {
	min, max := s.BoundingBox()
	return max.Sub(min)
}
