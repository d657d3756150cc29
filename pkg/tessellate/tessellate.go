// Package tessellate turns kernel solids into indexed meshes the refiner
// accepts: marching cubes output is welded, degenerate triangles are
// dropped and per-vertex normals are computed.
package tessellate

import (
	"fmt"

	"github.com/chazu/quadsplit/pkg/clean"
	"github.com/chazu/quadsplit/pkg/kernel"
	"github.com/chazu/quadsplit/pkg/mesh"
)

// relativeTolerance scales the bounding box diagonal to the default weld
// tolerance.
const relativeTolerance = 1e-6

type options struct {
	tolerance float64
	normals   bool
}

// Option configures tessellation.
type Option func(*options)

// WithTolerance sets the weld tolerance. Zero picks a tolerance relative to
// the solid's size.
func WithTolerance(tol float64) Option {
	return func(o *options) { o.tolerance = tol }
}

// WithNormals controls whether per-vertex normals are computed. The default
// is true.
func WithNormals(on bool) Option {
	return func(o *options) { o.normals = on }
}

// Solid tessellates a single solid into a welded mesh.
func Solid(k kernel.Kernel, s kernel.Solid, opts ...Option) (*mesh.Mesh, error) {
	o := options{normals: true}
	for _, opt := range opts {
		opt(&o)
	}

	m, err := k.ToMesh(s)
	if err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}

	tol := o.tolerance
	if tol <= 0 {
		tol = kernel.Size(s).Length() * relativeTolerance
	}
	clean.Weld(m, tol)
	if m.FaceCount() == 0 {
		return nil, fmt.Errorf("tessellate: %w", kernel.ErrEmptySolid)
	}

	if o.normals {
		m.UpdateNormals()
	}
	return m, nil
}
