//go:build manifold

// Package manifold provides a CGo-based geometry kernel binding to the
// Manifold library (https://github.com/elalish/manifold). Manifold keeps
// solids as exact triangle meshes, so ToMesh returns an indexed mesh with
// shared vertices instead of a marching cubes soup.
//
// This package requires the Manifold C library (manifoldc) to be installed.
// Build with: go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/chazu/quadsplit/pkg/kernel"
	"github.com/chazu/quadsplit/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*ManifoldKernel)(nil)
var _ kernel.Solid = (*manifoldSolid)(nil)

// Available reports whether the Manifold library was compiled in.
const Available = true

// manifoldSolid wraps a C ManifoldManifold pointer and implements kernel.Solid.
type manifoldSolid struct {
	ptr *C.ManifoldManifold
}

// BoundingBox returns the axis-aligned bounding box of the solid.
func (s *manifoldSolid) BoundingBox() (min, max v3.Vec) {
	alloc := C.manifold_alloc_box()
	bbox := C.manifold_bounding_box(alloc, s.ptr)
	defer C.manifold_delete_box(bbox)

	min = v3.Vec{
		X: float64(C.manifold_box_min_x(bbox)),
		Y: float64(C.manifold_box_min_y(bbox)),
		Z: float64(C.manifold_box_min_z(bbox)),
	}
	max = v3.Vec{
		X: float64(C.manifold_box_max_x(bbox)),
		Y: float64(C.manifold_box_max_y(bbox)),
		Z: float64(C.manifold_box_max_z(bbox)),
	}
	return min, max
}

// newSolid wraps a C ManifoldManifold pointer with Go-side finalizer
// for automatic memory management.
func newSolid(ptr *C.ManifoldManifold) *manifoldSolid {
	s := &manifoldSolid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *manifoldSolid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

func unwrap(s kernel.Solid) *C.ManifoldManifold {
	return s.(*manifoldSolid).ptr
}

// ManifoldKernel implements kernel.Kernel using the Manifold C library.
type ManifoldKernel struct {
	segments int
}

// New creates a ManifoldKernel. Round primitives use segments facets
// around their circumference; values below 3 select DefaultSegments.
func New(segments int) (kernel.Kernel, error) {
	if segments < 3 {
		segments = DefaultSegments
	}
	return &ManifoldKernel{segments: segments}, nil
}

func positive(op string, vals ...float64) error {
	for _, v := range vals {
		if !(v > 0) {
			return fmt.Errorf("manifold: %s: dimensions must be positive, got %v", op, vals)
		}
	}
	return nil
}

// Box creates an axis-aligned box centered on the origin.
func (k *ManifoldKernel) Box(x, y, z float64) (kernel.Solid, error) {
	if err := positive("box", x, y, z); err != nil {
		return nil, err
	}
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_cube(alloc,
		C.double(x), C.double(y), C.double(z),
		C.int(1), // center=true
	)
	return newSolid(ptr), nil
}

// Sphere creates a sphere centered on the origin.
func (k *ManifoldKernel) Sphere(radius float64) (kernel.Solid, error) {
	if err := positive("sphere", radius); err != nil {
		return nil, err
	}
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_sphere(alloc, C.double(radius), C.int(k.segments))
	return newSolid(ptr), nil
}

// Cylinder creates a cylinder along the Z axis centered on the origin.
func (k *ManifoldKernel) Cylinder(height, radius float64) (kernel.Solid, error) {
	if err := positive("cylinder", height, radius); err != nil {
		return nil, err
	}
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_cylinder(alloc,
		C.double(height),
		C.double(radius), // radius_low
		C.double(radius), // radius_high
		C.int(k.segments),
		C.int(1), // center=true
	)
	return newSolid(ptr), nil
}

// Union returns the boolean union of two solids.
func (k *ManifoldKernel) Union(a, b kernel.Solid) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	return newSolid(C.manifold_union(alloc, unwrap(a), unwrap(b)))
}

// Difference returns the boolean difference (a minus b).
func (k *ManifoldKernel) Difference(a, b kernel.Solid) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	return newSolid(C.manifold_difference(alloc, unwrap(a), unwrap(b)))
}

// Intersection returns the boolean intersection of two solids.
func (k *ManifoldKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	return newSolid(C.manifold_intersection(alloc, unwrap(a), unwrap(b)))
}

// Translate moves the solid by (x, y, z).
func (k *ManifoldKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_translate(alloc, unwrap(s),
		C.double(x), C.double(y), C.double(z),
	)
	return newSolid(ptr)
}

// Rotate rotates the solid by Euler angles (in degrees) around the X, Y, Z axes.
func (k *ManifoldKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_rotate(alloc, unwrap(s),
		C.double(x), C.double(y), C.double(z),
	)
	return newSolid(ptr)
}

// ToMesh extracts the solid's triangles from Manifold's MeshGL. MeshGL
// stores numProp floats per vertex with the position first; any further
// properties are ignored. Vertices are shared between triangles.
func (k *ManifoldKernel) ToMesh(s kernel.Solid) (*mesh.Mesh, error) {
	meshAlloc := C.manifold_alloc_meshgl()
	meshGL := C.manifold_get_meshgl(meshAlloc, unwrap(s))
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))
	if numVert == 0 || numTri == 0 {
		return nil, kernel.ErrEmptySolid
	}
	numProp := int(C.manifold_meshgl_num_prop(meshGL))
	if numProp < 3 {
		return nil, fmt.Errorf("manifold: meshgl has %d properties per vertex, need 3", numProp)
	}

	propData := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties(
		(*C.float)(unsafe.Pointer(&propData[0])),
		meshGL,
	)
	indices := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts(
		(*C.uint32_t)(unsafe.Pointer(&indices[0])),
		meshGL,
	)

	m := mesh.New()
	m.Vertices = make([]v3.Vec, 0, numVert)
	m.Faces = make([]mesh.Face, 0, numTri)
	for i := 0; i < numVert; i++ {
		p := propData[i*numProp:]
		m.AddVertex(v3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])})
	}
	for t := 0; t < numTri; t++ {
		a, b, c := int(indices[t*3]), int(indices[t*3+1]), int(indices[t*3+2])
		if a >= numVert || b >= numVert || c >= numVert {
			return nil, fmt.Errorf("manifold: triangle %d references vertex past %d", t, numVert)
		}
		m.AddFace(a, b, c)
	}
	return m, nil
}
